package router

import "github.com/Sc1pex/httc/http/method"

// Method-named shorthands for Route.

func (r *Router) Get(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.GET)
}

func (r *Router) Head(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.HEAD)
}

func (r *Router) Post(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.POST)
}

func (r *Router) Put(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.PUT)
}

func (r *Router) Delete(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.DELETE)
}

func (r *Router) Connect(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.CONNECT)
}

func (r *Router) Options(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.OPTIONS)
}

func (r *Router) Trace(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.TRACE)
}

func (r *Router) Patch(pattern string, handler Handler) *Router {
	return r.Route(pattern, handler, method.PATCH)
}
