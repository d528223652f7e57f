package http

import (
	"net"

	"github.com/Sc1pex/httc/http/method"
	"github.com/Sc1pex/httc/http/uri"
	"github.com/Sc1pex/httc/kv"
)

// Request represents a fully framed HTTP request. It is constructed by the
// parser and stays valid until the handler returns; the backing storage is
// recycled for the next request on the connection afterwards.
type Request struct {
	// Method is the request method token, e.g. "GET". Extension methods
	// arrive here verbatim.
	Method method.Method
	// URI is the parsed request target.
	URI uri.URI
	// Headers hold all header pairs in arrival order. Lookup is
	// case-insensitive, the original casing is preserved.
	Headers *kv.Storage
	// Trailers are populated only after a chunked body carrying a trailer
	// section.
	Trailers *kv.Storage
	// Cookies hold the pairs extracted from all Cookie headers.
	Cookies *kv.Storage
	// PathParams map :name pattern segments (without the colon) to the
	// request segments they matched. Populated by the router before any
	// middleware runs.
	PathParams *kv.Storage
	// Body is the whole decoded body. Empty when the request carried none.
	Body []byte
	// WildcardPath is the part of the path captured by a trailing *
	// pattern segment, joined by / with no surrounding slashes.
	WildcardPath string
	// Remote holds the address of the peer. Note that proxies in the middle
	// make it a poor way to identify a user.
	Remote net.Addr
}

func NewRequest() *Request {
	return &Request{
		Headers:    kv.New(),
		Trailers:   kv.New(),
		Cookies:    kv.New(),
		PathParams: kv.New(),
	}
}

// Reset clears the request for reuse, keeping allocated storage around.
func (r *Request) Reset() {
	r.Method = ""
	r.URI = uri.URI{}
	r.Headers.Clear()
	r.Trailers.Clear()
	r.Cookies.Clear()
	r.PathParams.Clear()
	r.Body = nil
	r.WildcardPath = ""
}
