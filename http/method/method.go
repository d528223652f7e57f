// Package method names the request methods from RFC 9110, 9.1. A Method is
// a plain token string so that extension methods dispatch through global
// handlers just like the registered ones.
package method

type Method = string

const (
	GET     Method = "GET"
	HEAD    Method = "HEAD"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	CONNECT Method = "CONNECT"
	OPTIONS Method = "OPTIONS"
	TRACE   Method = "TRACE"
	PATCH   Method = "PATCH"
)
