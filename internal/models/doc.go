// Package models defines the persisted entities of halx.
//
//   - [CachedResource] : a fetched hypermedia body keyed by its resolved URL; a newer fetch replaces the older one
//   - [HistoryEntry] : one navigation within a browsing session, ordered by a per-table sequence
//   - [Session] : the OAuth2 tokens of the logged-in member, soft deleted on logout
//
// All entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
