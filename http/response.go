package http

import (
	"fmt"
	"net"
	"strconv"

	"github.com/Sc1pex/httc/http/cookie"
	"github.com/Sc1pex/httc/http/status"
	"github.com/Sc1pex/httc/internal/strutil"
	"github.com/Sc1pex/httc/kv"
	"github.com/Sc1pex/httc/transport"
	"github.com/indigo-web/utils/ft"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

var crlf = []byte("\r\n")

var chunkedFinalizer = []byte("0\r\n\r\n")

type responseState uint8

const (
	stateUninitialized responseState = iota
	stateBody
	stateStreamFixed
	stateStreamChunked
	stateSent
)

func (s responseState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateBody:
		return "holding a buffered body"
	case stateStreamFixed:
		return "streaming a fixed-length body"
	case stateStreamChunked:
		return "streaming a chunked body"
	case stateSent:
		return "already sent"
	default:
		return "corrupted"
	}
}

// Response accumulates status, headers and cookies, and owns the body
// emission over the connection. A handler commits to exactly one of three
// output disciplines: a buffered body (Bytes/String/JSON), a fixed-length
// stream (SendFixed) or a chunked stream (SendChunked). The states advance
// monotonically; any operation out of its state is a programmer error and
// panics.
type Response struct {
	writer   transport.Writer
	headers  *kv.Storage
	cookies  []string
	body     []byte
	head     []byte
	defaults []DefaultHeader
	code     status.Code
	state    responseState
	isHead   bool
}

func NewResponse(writer transport.Writer, defaults []DefaultHeader) *Response {
	return &Response{
		writer:   writer,
		headers:  kv.New(),
		defaults: defaults,
		code:     status.OK,
	}
}

// FromStatus builds a plain status response. Used by the connection driver
// to answer protocol errors before closing the connection.
func FromStatus(writer transport.Writer, code status.Code) *Response {
	return NewResponse(writer, nil).Code(code)
}

// MarkHead marks the response as answering a HEAD request: body bytes are
// discarded on emission while Content-Length still reflects them.
func (r *Response) MarkHead() *Response {
	r.isHead = true
	return r
}

func (r *Response) IsHead() bool {
	return r.isHead
}

// Code sets the response status code. The code must lie in 100-599.
func (r *Response) Code(code status.Code) *Response {
	if !status.Valid(code) {
		panic(fmt.Sprintf("httc: response: status code %d is out of the 100-599 range", code))
	}

	r.code = code
	return r
}

// StatusCode returns the currently set status code.
func (r *Response) StatusCode() status.Code {
	return r.code
}

// Header adds header values to a key. Existing values are kept; each value
// is emitted as a separate field line. Content-Length and Transfer-Encoding
// are owned by the emitter and never taken from here.
func (r *Response) Header(key string, values ...string) *Response {
	for _, value := range values {
		r.headers.Add(key, value)
	}

	return r
}

// Headers exposes the response headers, mostly for middleware inspecting
// what a handler has set.
func (r *Response) Headers() *kv.Storage {
	return r.headers
}

// AddCookie appends a raw Set-Cookie value to be emitted alongside the
// headers. The value is not parsed or validated.
func (r *Response) AddCookie(raw string) *Response {
	r.cookies = append(r.cookies, raw)
	return r
}

// Cookie renders the cookies and appends them as Set-Cookie values.
func (r *Response) Cookie(cookies ...cookie.Cookie) *Response {
	for _, c := range cookies {
		r.AddCookie(c.String())
	}

	return r
}

// Bytes sets the buffered body WITHOUT copying it. Content-Length is derived
// from it on emission.
func (r *Response) Bytes(body []byte) *Response {
	r.mustBe(stateUninitialized, "set a buffered body")
	r.body = body
	r.state = stateBody
	return r
}

// String sets the buffered body to the passed string.
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Write implements io.Writer by appending to the buffered body. It exists
// for encoders writing streamingly; the state transitions when the encoding
// operation completes.
func (r *Response) Write(b []byte) (n int, err error) {
	r.body = append(r.body, b...)
	return len(b), nil
}

// TryJSON encodes the model into the buffered body and sets the
// Content-Type accordingly.
func (r *Response) TryJSON(model any) (*Response, error) {
	r.mustBe(stateUninitialized, "set a buffered body")
	r.body = r.body[:0]

	stream := json.ConfigDefault.BorrowStream(r)
	stream.WriteVal(model)
	err := stream.Flush()
	json.ConfigDefault.ReturnStream(stream)
	if err != nil {
		r.body = r.body[:0]
		return r, err
	}

	r.state = stateBody
	return r.Header("Content-Type", "application/json"), nil
}

// JSON does the same as TryJSON, except an error is reported via Error.
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Error fills the response from an error. A status.HTTPError brings its own
// code; anything else results in the optional code (500 by default) with
// the error text as the body.
func (r *Response) Error(err error, code ...status.Code) *Response {
	if err == nil {
		return r
	}

	if http, ok := err.(status.HTTPError); ok {
		return r.Code(http.Code)
	}

	c := status.InternalServerError
	if len(code) > 0 {
		// peek the first, ignore the rest
		c = code[0]
	}

	return r.Code(c).String(err.Error())
}

// FixedStream writes a body whose length was promised in advance. The
// emitter trusts the handler to write exactly that many bytes in total.
type FixedStream struct {
	response *Response
}

// SendFixed transmits the status line and headers immediately, with
// Content-Length set to size, and returns a stream for the body bytes.
func (r *Response) SendFixed(size int) (*FixedStream, error) {
	r.mustBe(stateUninitialized, "open a fixed-length stream")

	r.renderHead(appendContentLength(nil, size))
	if err := r.writer.Write(net.Buffers{r.head}); err != nil {
		return nil, err
	}

	r.state = stateStreamFixed
	return &FixedStream{response: r}, nil
}

func (s *FixedStream) Write(data []byte) error {
	s.response.mustBe(stateStreamFixed, "write to a fixed-length stream")

	if len(data) == 0 || s.response.isHead {
		return nil
	}

	return s.response.writer.Write(net.Buffers{data})
}

// ChunkedStream writes a body as chunked transfer coding.
type ChunkedStream struct {
	response *Response
	sizeBuff []byte
}

// SendChunked transmits the status line and headers immediately, with
// Transfer-Encoding set to chunked in place of any Content-Length, and
// returns a stream for the chunks.
func (r *Response) SendChunked() (*ChunkedStream, error) {
	r.mustBe(stateUninitialized, "open a chunked stream")

	r.renderHead([]byte("Transfer-Encoding: chunked\r\n"))
	if err := r.writer.Write(net.Buffers{r.head}); err != nil {
		return nil, err
	}

	r.state = stateStreamChunked
	return &ChunkedStream{response: r}, nil
}

// Write emits a single chunk. Writing an empty chunk is a no-op, as it
// would terminate the stream prematurely.
func (s *ChunkedStream) Write(chunk []byte) error {
	s.response.mustBe(stateStreamChunked, "write to a chunked stream")

	if len(chunk) == 0 || s.response.isHead {
		return nil
	}

	s.sizeBuff = strconv.AppendUint(s.sizeBuff[:0], uint64(len(chunk)), 16)
	s.sizeBuff = append(s.sizeBuff, crlf...)

	return s.response.writer.Write(net.Buffers{s.sizeBuff, chunk, crlf})
}

// End terminates the stream with a zero-sized chunk.
func (s *ChunkedStream) End() error {
	s.response.mustBe(stateStreamChunked, "end a chunked stream")
	s.response.state = stateSent

	if s.response.isHead {
		return nil
	}

	return s.response.writer.Write(net.Buffers{chunkedFinalizer})
}

// Send finalizes the response. It is called by the connection driver once
// the handler has returned: a buffered (or untouched) response is emitted
// as a whole, an unterminated chunked stream receives its final chunk, and
// everything else has already reached the wire.
func (r *Response) Send() error {
	switch r.state {
	case stateSent:
		return nil
	case stateStreamFixed:
		r.state = stateSent
		return nil
	case stateStreamChunked:
		r.state = stateSent
		if r.isHead {
			return nil
		}

		return r.writer.Write(net.Buffers{chunkedFinalizer})
	case stateUninitialized, stateBody:
		r.renderHead(appendContentLength(nil, len(r.body)))
		buffers := net.Buffers{r.head}
		if !r.isHead && len(r.body) > 0 {
			buffers = append(buffers, r.body)
		}

		r.state = stateSent
		return r.writer.Write(buffers)
	default:
		panic(fmt.Sprintf("BUG: unexpected response state: %v", r.state))
	}
}

// Committed reports whether the head has already reached the wire.
func (r *Response) Committed() bool {
	return r.state == stateStreamFixed || r.state == stateStreamChunked || r.state == stateSent
}

// renderHead builds the status line, headers, the framing line and cookies
// into the head buffer, terminated by the empty line. The head is then
// transmitted in a single vectored write together with whatever body
// follows, so it can never interleave with body bytes.
func (r *Response) renderHead(framing []byte) {
	r.head = append(r.head[:0], "HTTP/1.1 "...)
	r.head = strconv.AppendUint(r.head, uint64(r.code), 10)
	if reason := status.Text(r.code); reason != "" {
		r.head = append(r.head, ' ')
		r.head = append(r.head, reason...)
	}
	r.head = append(r.head, crlf...)

	for _, pair := range r.headers.Expose() {
		if isFramingHeader(pair.Key) {
			continue
		}

		r.head = append(r.head, pair.Key...)
		r.head = append(r.head, ": "...)
		r.head = append(r.head, pair.Value...)
		r.head = append(r.head, crlf...)
	}

	for _, def := range r.defaults {
		if r.headers.Has(def.Key) {
			continue
		}

		r.head = append(r.head, def.Full...)
	}

	r.head = append(r.head, framing...)

	for _, cookie := range r.cookies {
		r.head = append(r.head, "Set-Cookie: "...)
		r.head = append(r.head, cookie...)
		r.head = append(r.head, crlf...)
	}

	r.head = append(r.head, crlf...)
}

func (r *Response) mustBe(state responseState, action string) {
	if r.state != state {
		panic(fmt.Sprintf("httc: response: cannot %s: the response is %s", action, r.state))
	}
}

func appendContentLength(to []byte, size int) []byte {
	to = append(to, "Content-Length: "...)
	to = strconv.AppendInt(to, int64(size), 10)
	return append(to, crlf...)
}

// isFramingHeader reports whether the header participates in message
// framing. Framing is owned by the emitter; such headers set by a handler
// are never rendered.
func isFramingHeader(key string) bool {
	return strutil.CmpFold(key, "content-length") || strutil.CmpFold(key, "transfer-encoding")
}

// DefaultHeader is a pre-rendered header line included into every response
// unless the handler sets the same name itself.
type DefaultHeader struct {
	Key  string
	Full string
}

// ProcessDefaultHeaders renders configured default headers once, so
// emission only appends ready-made lines.
func ProcessDefaultHeaders(hdrs map[string]string) []DefaultHeader {
	pairs := make([]kv.Pair, 0, len(hdrs))
	for key, value := range hdrs {
		pairs = append(pairs, kv.Pair{Key: key, Value: value})
	}

	render := func(pair kv.Pair) DefaultHeader {
		full := pair.Key + ": " + pair.Value + uf.B2S(crlf)
		return DefaultHeader{
			// reference the rendered line instead of the original map key,
			// letting the GC release the map
			Key:  full[:len(pair.Key)],
			Full: full,
		}
	}

	return ft.Map(render, pairs)
}
