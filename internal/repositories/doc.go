// Package repositories implements SQLite persistence for halx entities.
//
// Key Implementations:
//   - [ResourceRepository] : resource cache keyed by resolved URL; Create upserts so a newer fetch supersedes an older one
//   - [HistoryRepository] : navigation history per browsing session, ordered by sequence
//   - [SessionRepository] : OAuth2 sessions with soft delete on logout
//   - [ResourceCacheAdapter] : adapts [ResourceRepository] to the crawler's cache interface
//
// Sequence numbers for history come from [NextSequence], which atomically increments
// a per-table counter in a dedicated sequence table.
package repositories
