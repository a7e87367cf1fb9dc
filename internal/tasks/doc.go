// Package tasks runs long hypermedia operations with real-time progress reporting.
//
// # Core Operations
//
//  1. [Crawler.Run] : breadth-first walk of the API from a root resource
//     - Follows every non-templated link and every embedded self link
//     - Stays on the root's origin and stops at the requested depth
//     - Waits on a [rate.Limiter] before each request
//     - Collects per-href failures instead of aborting
//
//  2. [Crawler.Export] : write crawled resources to disk
//     - Worker pool rendering each resource as json, txt, markdown or csv
//     - Writes a manifest summarising the export
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Resource Caching
//
// The optional [ResourceCacher] receives every successfully fetched body once the
// walk ends (repositories.ResourceCacheAdapter). Cache errors are logged and skipped.
package tasks
