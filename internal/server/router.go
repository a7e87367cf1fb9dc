package server

import (
	"net/http"
	"slices"
	"strings"
)

// Route is one registered pattern with the methods it accepts. An empty
// Methods slice accepts any method.
type Route struct {
	Methods []string
	Path    string
}

// BasicRouter dispatches through an [http.ServeMux] and applies the same
// middleware stack to every route.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	routes      []Route
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. Middleware added first runs outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for path. method is a comma separated list
// ("GET,POST"); empty accepts any method. Other methods get 405 with an
// Allow header.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	methods := parseMethods(method)
	wrapped := r.Apply(handler)

	r.register(Route{Methods: methods, Path: path}, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if len(methods) > 0 && !slices.Contains(methods, req.Method) {
			w.Header().Set("Allow", strings.Join(methods, ", "))
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wrapped.ServeHTTP(w, req)
	}))
}

// HandleFunc is [BasicRouter.Handle] for plain functions.
func (r *BasicRouter) HandleFunc(method, path string, fn http.HandlerFunc) {
	r.Handle(method, path, fn)
}

// Handler mounts every path returned by [Handler.Routes]; the handler does its own method checks.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, path := range handler.Routes() {
		r.register(Route{Path: path}, wrapped)
	}
}

// Routes lists registered routes in registration order.
func (r *BasicRouter) Routes() []Route {
	return slices.Clone(r.routes)
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the middleware stack.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	return handler
}

func (r *BasicRouter) register(route Route, h http.Handler) {
	r.routes = append(r.routes, route)
	r.mux.Handle(route.Path, h)
}

func parseMethods(method string) []string {
	var methods []string
	for m := range strings.SplitSeq(method, ",") {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" && !slices.Contains(methods, m) {
			methods = append(methods, m)
		}
	}
	return methods
}
