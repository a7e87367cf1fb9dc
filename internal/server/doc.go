// Package server provides HTTP routing, middleware, and the OAuth callback used by the CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] completes the authorization code + PKCE flow.
//
// The handler validates the state parameter, exchanges the code together with the PKCE verifier,
// and sends the resulting session through a channel. It only processes one callback.
//
// During `halx auth login` a temporary server is started with [Serve] on the redirect URI's host,
// handles the callback, and shuts down once the session is stored.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
