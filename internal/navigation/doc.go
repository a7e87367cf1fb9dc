// Package navigation tracks where a browsing session has been.
//
// A [Stack] is never empty: it starts at the root target, Back stops at the root
// and Reset returns to it. There is no forward history.
package navigation
