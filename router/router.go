package router

import (
	"fmt"
	"strings"

	"github.com/Sc1pex/httc/http"
	"github.com/Sc1pex/httc/http/method"
	"github.com/Sc1pex/httc/http/status"
	"github.com/Sc1pex/httc/http/uri"
)

// Handler processes a single request by mutating the response. A returned
// error makes the driver answer with 500 and close the connection.
type Handler func(request *http.Request, response *http.Response) error

// Next advances the middleware chain.
type Next func() error

// Middleware wraps the rest of the chain. It may do its work before or
// after calling next, or refuse to call it at all.
type Middleware func(request *http.Request, response *http.Response, next Next) error

// InvalidURI is raised by registration when the pattern doesn't parse as a
// query-less URI.
type InvalidURI struct {
	Pattern string
}

func (e InvalidURI) Error() string {
	return fmt.Sprintf("invalid URI: '%s'", e.Pattern)
}

// URICollision is raised by registration when two patterns would compete
// for the same requests: they match each other fully and bind the same
// method, or both carry a global handler.
type URICollision struct {
	New, Existing string
}

func (e URICollision) Error() string {
	return fmt.Sprintf("URI collision between '%s' and '%s'", e.New, e.Existing)
}

// handlerPath is a single routing table entry: a pattern, its per-method
// bindings and an optional global handler covering every other method.
type handlerPath struct {
	pattern  uri.URI
	byMethod map[method.Method]Handler
	global   Handler
}

// Router dispatches requests by URI and method. It is built once, before
// the server starts accepting, and is shared read-only across connections
// afterwards, so no locking happens on the hot path.
type Router struct {
	// root points at the owner of the routing table; nil for the root
	// router itself. Groups only carry a prefix and their own middlewares.
	root        *Router
	prefix      string
	routes      []handlerPath
	middlewares []Middleware
}

func New() *Router {
	return new(Router)
}

// Group returns a router registering everything under the prefix. Routes go
// into the same table; middlewares wrapped onto the group apply only to
// handlers registered through it afterwards, nested inside the root chain.
func (r *Router) Group(prefix string) *Router {
	parsed, err := uri.Parse(prefix)
	if err != nil || !parsed.Query.Empty() || strings.Contains(prefix, "*") {
		panic(InvalidURI{Pattern: prefix})
	}

	child := &Router{
		root:   r.base(),
		prefix: r.prefix + strings.TrimSuffix(prefix, "/"),
	}

	if r.root != nil {
		// nested groups inherit the parent group's middlewares
		child.middlewares = append([]Middleware(nil), r.middlewares...)
	}

	return child
}

func (r *Router) base() *Router {
	if r.root != nil {
		return r.root
	}

	return r
}

// Route registers a handler at the pattern. With methods given, the handler
// is bound to each of them; without, it becomes the pattern's global
// handler, receiving any method that has no dedicated binding.
//
// Registration failures panic with InvalidURI or URICollision: a route
// that cannot dispatch correctly must not survive into a running server.
func (r *Router) Route(pattern string, handler Handler, methods ...method.Method) *Router {
	base := r.base()
	if r != base {
		pattern = r.prefix + pattern
		handler = compose(handler, r.middlewares)
	}

	parsed, err := uri.Parse(pattern)
	if err != nil || !parsed.Query.Empty() {
		panic(InvalidURI{Pattern: pattern})
	}

	// a binding conflicts with every fully matching pattern, no matter how
	// it spells its parameters; only the identically spelled entry is
	// extended in place
	var entry *handlerPath
	for i := range base.routes {
		existing := &base.routes[i]
		if existing.pattern.Match(parsed) != uri.FullMatch {
			continue
		}

		if len(methods) == 0 && existing.global != nil {
			panic(URICollision{New: pattern, Existing: existing.pattern.Path()})
		}

		for _, m := range methods {
			if _, occupied := existing.byMethod[m]; occupied {
				panic(URICollision{New: pattern, Existing: existing.pattern.Path()})
			}
		}

		if identical(existing.pattern, parsed) {
			entry = existing
		}
	}

	if entry == nil {
		base.routes = append(base.routes, handlerPath{
			pattern:  parsed,
			byMethod: make(map[method.Method]Handler),
		})
		entry = &base.routes[len(base.routes)-1]
	}

	if len(methods) == 0 {
		entry.global = handler
		return r
	}

	for _, m := range methods {
		entry.byMethod[m] = handler
	}

	return r
}

func identical(a, b uri.URI) bool {
	if len(a.Segments) != len(b.Segments) {
		return false
	}

	for i := range a.Segments {
		if a.Segments[i] != b.Segments[i] {
			return false
		}
	}

	return true
}

// Wrap appends a middleware to the chain. Middlewares compose
// outermost-first in registration order: the first Wrap call is the
// outermost wrapper around every matched handler. On a group, the
// middleware wraps only handlers the group registers after this call.
func (r *Router) Wrap(middleware Middleware) *Router {
	r.middlewares = append(r.middlewares, middleware)
	return r
}

// compose folds middlewares into the handler, first one outermost. Used for
// group middlewares, which are baked into the handler at registration.
func compose(handler Handler, middlewares []Middleware) Handler {
	if len(middlewares) == 0 {
		return handler
	}

	inner := compose(handler, middlewares[1:])
	outer := middlewares[0]

	return func(request *http.Request, response *http.Response) error {
		return outer(request, response, func() error {
			return inner(request, response)
		})
	}
}

// Handle dispatches the request. The best full, parameter and wildcard
// matches are collected in one walk over the table; they are then tried in
// that priority order, ties broken by registration order.
func (r *Router) Handle(request *http.Request, response *http.Response) error {
	base := r.base()
	var full, param, wild *handlerPath

	for i := range base.routes {
		entry := &base.routes[i]
		switch entry.pattern.Match(request.URI) {
		case uri.FullMatch:
			if full == nil {
				full = entry
			}
		case uri.ParamMatch:
			if param == nil {
				param = entry
			}
		case uri.WildMatch:
			if wild == nil {
				wild = entry
			}
		}
	}

	methodNotAllowed := false

	for _, entry := range []*handlerPath{full, param, wild} {
		if entry == nil {
			continue
		}

		if handler, rewriteTo, found := entry.resolve(request.Method); found {
			if rewriteTo != "" {
				request.Method = rewriteTo
			}

			populate(request, entry.pattern)
			return base.runChain(request, response, handler)
		}

		if request.Method == method.OPTIONS {
			response.Code(status.OK).Header("Allow", entry.allow())
			return nil
		}

		methodNotAllowed = true
	}

	if methodNotAllowed {
		response.Code(status.MethodNotAllowed)
	} else {
		response.Code(status.NotFound)
	}

	return nil
}

// resolve picks the handler serving the method at this pattern: a dedicated
// binding, the global handler, or the GET binding for a HEAD request (with
// the method rewritten; the response already knows to elide the body).
func (h *handlerPath) resolve(m method.Method) (handler Handler, rewriteTo method.Method, found bool) {
	if handler = h.byMethod[m]; handler != nil {
		return handler, "", true
	}

	if h.global != nil {
		return h.global, "", true
	}

	if m == method.HEAD {
		if handler = h.byMethod[method.GET]; handler != nil {
			return handler, method.GET, true
		}
	}

	return nil, "", false
}

// allow lists the methods an OPTIONS response advertises for this pattern:
// everything bound plus OPTIONS and HEAD, which are always served.
func (h *handlerPath) allow() string {
	methods := make([]string, 0, len(h.byMethod)+2)
	for m := range h.byMethod {
		if m == method.OPTIONS || m == method.HEAD {
			continue
		}

		methods = append(methods, m)
	}

	return strings.Join(append(methods, method.OPTIONS, method.HEAD), ", ")
}

// populate captures :name parameters and the wildcard remainder from the
// request path. It runs exactly once per request, before any middleware.
func populate(request *http.Request, pattern uri.URI) {
	for i, segment := range pattern.Segments {
		if segment == "*" {
			request.WildcardPath = strings.Join(request.URI.Segments[i:], "/")
			return
		}

		if uri.IsParam(segment) {
			request.PathParams.Add(segment[1:], request.URI.Segments[i])
		}
	}
}

// runChain runs the middleware onion with the handler at its core.
func (r *Router) runChain(request *http.Request, response *http.Response, handler Handler) error {
	var advance func(depth int) error
	advance = func(depth int) error {
		if depth == len(r.middlewares) {
			return handler(request, response)
		}

		return r.middlewares[depth](request, response, func() error {
			return advance(depth + 1)
		})
	}

	return advance(0)
}
