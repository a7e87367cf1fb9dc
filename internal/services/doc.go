// Package services implements the HTTP collaborators of halx.
//
// # Hypermedia Fetcher
//
// [HALService] implements [Fetcher]. Every request negotiates
// "application/prs.hal-forms+json, application/hal+json" and carries a bearer token
// read from the injected [TokenSource]. The token is never cached here so renewals
// made by the auth collaborator are picked up by the next request.
//
// Three entry points trade convenience for control:
//   - [HALService.Do] returns the raw [APIResponse] for any status
//   - [HALService.Fetch] returns parsed JSON and a [*FetchError] for non-2xx, with an
//     opt-in list of statuses treated as "no data"
//   - [HALService.Resource] resolves a navigation target and decodes a [hal.Document]
//
// # Auth Collaborator
//
// [OIDCService] runs the authorization code flow with PKCE through golang.org/x/oauth2,
// persists the session through a [SessionStore] and refreshes expired tokens on demand.
// [StaticToken] replaces it for scripting.
//
// # Error Handling
//
// Typed errors distinguish the failure classes of a hypermedia client:
//   - [*FetchError] : non-2xx response with status and body
//   - [*FormValidationError] : 400 problem+json with a field to message map
//   - [*TransportError] : any other failed write, rendered as "HTTP <status>"
//
// Sentinel errors from the shared package wrap configuration and auth failures:
//   - [shared.ErrAPIRequest] : transport failure
//   - [shared.ErrDiscoveryFailed] : provider metadata unavailable
//   - [shared.ErrTokenExpired] / [shared.ErrRefreshFailed] : session can no longer be renewed
package services
