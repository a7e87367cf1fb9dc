package navigation

import (
	"github.com/desertthunder/halx/internal/hal"
)

// Entry is a visited target.
type Entry struct {
	Target hal.Target
	Href   string
	Title  string
}

// Recorder is told about every navigation.
type Recorder interface {
	Record(entry Entry) error
}

// Stack is the navigation history of one session. It is not safe for
// concurrent use.
type Stack struct {
	entries  []Entry
	recorder Recorder
}

// NewStack creates a stack positioned at root. recorder may be nil.
func NewStack(root hal.Target, recorder Recorder) (*Stack, error) {
	entry, err := newEntry(root)
	if err != nil {
		return nil, err
	}

	s := &Stack{entries: []Entry{entry}, recorder: recorder}
	s.record(entry)
	return s, nil
}

func newEntry(t hal.Target) (Entry, error) {
	href, err := hal.ToHref(t)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{Target: t, Href: href}
	if l, ok := t.(hal.Link); ok {
		entry.Title = l.Title
	}
	return entry, nil
}

// Navigate pushes t and makes it current. A malformed target leaves the stack
// unchanged.
func (s *Stack) Navigate(t hal.Target) error {
	entry, err := newEntry(t)
	if err != nil {
		return err
	}

	s.entries = append(s.entries, entry)
	s.record(entry)
	return nil
}

// Back pops the current entry and reports whether it moved. At the root it does
// nothing.
func (s *Stack) Back() bool {
	if len(s.entries) <= 1 {
		return false
	}
	s.entries = s.entries[:len(s.entries)-1]
	return true
}

// Reset truncates the stack to the root.
func (s *Stack) Reset() {
	s.entries = s.entries[:1]
}

// IsFirst reports whether the current entry is the root.
func (s *Stack) IsFirst() bool {
	return len(s.entries) == 1
}

// Current returns the current entry.
func (s *Stack) Current() Entry {
	return s.entries[len(s.entries)-1]
}

// SetTitle names the current entry once its resource is known.
func (s *Stack) SetTitle(title string) {
	s.entries[len(s.entries)-1].Title = title
}

// Len returns the depth of the stack.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the stack, root first.
func (s *Stack) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Stack) record(entry Entry) {
	if s.recorder == nil {
		return
	}
	// History is best effort; recorders log their own failures.
	_ = s.recorder.Record(entry)
}
