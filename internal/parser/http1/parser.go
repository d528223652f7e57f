package http1

import (
	"bytes"
	"io"

	"github.com/Sc1pex/httc/config"
	"github.com/Sc1pex/httc/http"
	"github.com/Sc1pex/httc/http/cookie"
	"github.com/Sc1pex/httc/http/status"
	"github.com/Sc1pex/httc/http/uri"
	"github.com/Sc1pex/httc/internal/hexconv"
	"github.com/Sc1pex/httc/internal/strutil"
	"github.com/Sc1pex/httc/kv"
	"github.com/Sc1pex/httc/transport"
	"github.com/indigo-web/utils/arena"
	"github.com/indigo-web/utils/buffer"
	"github.com/indigo-web/utils/uf"
)

// maxChunkSizeLine bounds the chunk-size line, CRLF included. Sixteen hex
// digits cover any representable length; chunk extensions are not supported.
const maxChunkSizeLine = 16 + 2

var httpVersion = []byte("HTTP/1.1")

// Parser is a pull-based incremental HTTP/1.1 request parser. It pulls from
// the byte source only when the buffered bytes run out, so back-to-back
// pipelined requests are picked up by successive Next calls without losing
// data in between.
//
// Strings handed off inside the request are interned into an arena owned by
// the parser and stay valid until the following Next call.
type Parser struct {
	src     transport.Reader
	request *http.Request
	cfg     *config.Config
	// pending is the unconsumed tail of the last pull. It is fully consumed
	// before the source is pulled again, which keeps it valid in between.
	pending  []byte
	lineBuff *buffer.Buffer
	arena    arena.Arena[byte]
}

func New(src transport.Reader, cfg *config.Config) *Parser {
	return &Parser{
		src:      src,
		request:  http.NewRequest(),
		cfg:      cfg,
		lineBuff: buffer.New(1024, cfg.MaxHeaderSize),
		// the head and the trailer section each get their own budget, and
		// decoding never expands
		arena: arena.NewArena[byte](1024, 2*cfg.MaxHeaderSize),
	}
}

// Next parses and returns the next fully framed request off the source.
// io.EOF signals a cleanly exhausted source; this includes a source closed
// in the middle of a request, which is indistinguishable from a client
// disconnecting between requests. Any other error is fatal for the
// connection: the caller is expected to answer with the corresponding
// status and close.
func (p *Parser) Next() (*http.Request, error) {
	p.reset()
	headroom := p.cfg.MaxHeaderSize

	// RFC 9112, 2.2: ignore empty lines received prior to the request line
	var requestLine []byte
	for len(requestLine) == 0 {
		line, err := p.pullLine(headroom, status.ErrHeaderTooLarge)
		if err != nil {
			return nil, err
		}

		headroom -= len(line)
		requestLine, err = trimLine(line, status.ErrInvalidRequestLine)
		if err != nil {
			return nil, err
		}
	}

	if err := p.parseRequestLine(requestLine); err != nil {
		return nil, err
	}

	for {
		line, err := p.pullLine(headroom, status.ErrHeaderTooLarge)
		if err != nil {
			return nil, err
		}

		headroom -= len(line)
		header, err := trimLine(line, status.ErrInvalidHeader)
		if err != nil {
			return nil, err
		}

		if len(header) == 0 {
			break
		}

		if err = p.parseHeaderLine(header, p.request.Headers); err != nil {
			return nil, err
		}
	}

	if err := p.readBody(); err != nil {
		return nil, err
	}

	for _, value := range p.request.Headers.Values("cookie") {
		cookie.Parse(p.request.Cookies, value)
	}

	return p.request, nil
}

func (p *Parser) reset() {
	p.request.Reset()
	p.arena.Clear()
}

// pullLine returns the next line including its terminating LF, pulling from
// the source as needed. Scanning past limit bytes without finding the
// terminator fails with overflow. The line is valid until the next pullLine
// call.
func (p *Parser) pullLine(limit int, overflow error) ([]byte, error) {
	// every line handed out before was fully consumed, so the assembly
	// buffer can be recycled
	p.lineBuff.Clear()

	for {
		if lf := bytes.IndexByte(p.pending, '\n'); lf != -1 {
			if p.lineBuff.SegmentLength()+lf+1 > limit {
				return nil, overflow
			}

			if p.lineBuff.SegmentLength() == 0 {
				line := p.pending[:lf+1]
				p.pending = p.pending[lf+1:]
				return line, nil
			}

			if !p.lineBuff.Append(p.pending[:lf+1]) {
				return nil, overflow
			}

			p.pending = p.pending[lf+1:]
			return p.lineBuff.Finish(), nil
		}

		if len(p.pending) > 0 {
			if p.lineBuff.SegmentLength()+len(p.pending) > limit {
				return nil, overflow
			}

			if !p.lineBuff.Append(p.pending) {
				return nil, overflow
			}

			p.pending = nil
		}

		data, err := p.pull()
		if err != nil {
			return nil, err
		}

		p.pending = data
	}
}

func (p *Parser) pull() ([]byte, error) {
	data, err := p.src.Pull()
	switch err {
	case nil:
		return data, nil
	case transport.ErrClosed:
		return nil, io.EOF
	default:
		return nil, err
	}
}

// trimLine strips the CRLF off a line returned by pullLine. A lone LF
// violates the grammar and fails with malformed.
func trimLine(line []byte, malformed error) ([]byte, error) {
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, malformed
	}

	return line[:len(line)-2], nil
}

func (p *Parser) parseRequestLine(line []byte) error {
	sp := bytes.IndexByte(line, ' ')
	if sp == -1 {
		return status.ErrInvalidRequestLine
	}

	rawMethod, rest := line[:sp], line[sp+1:]
	if !strutil.IsToken(uf.B2S(rawMethod)) {
		return status.ErrInvalidRequestLine
	}

	sp = bytes.IndexByte(rest, ' ')
	if sp == -1 {
		return status.ErrInvalidRequestLine
	}

	// an extra SP would land inside the version and fail the comparison
	rawTarget, version := rest[:sp], rest[sp+1:]
	if len(rawTarget) == 0 || !bytes.Equal(version, httpVersion) {
		return status.ErrInvalidRequestLine
	}

	m, err := p.intern(rawMethod)
	if err != nil {
		return err
	}

	target, err := p.intern(rawTarget)
	if err != nil {
		return err
	}

	u, err := uri.Parse(target)
	if err != nil {
		return status.ErrInvalidRequestLine
	}

	p.request.Method = m
	p.request.URI = u
	return nil
}

func (p *Parser) parseHeaderLine(line []byte, into *kv.Storage) error {
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return status.ErrInvalidHeader
	}

	// a token check also rejects whitespace between the name and the colon
	name := uf.B2S(line[:colon])
	if !strutil.IsToken(name) {
		return status.ErrInvalidHeader
	}

	value := strutil.RStripWS(strutil.LStripWS(uf.B2S(line[colon+1:])))
	if !strutil.IsFieldValue(value) {
		return status.ErrInvalidHeader
	}

	name, err := p.intern(uf.S2B(name))
	if err != nil {
		return err
	}

	value, err = p.intern(uf.S2B(value))
	if err != nil {
		return err
	}

	into.Add(name, value)
	return nil
}

func (p *Parser) readBody() error {
	hasLength := p.request.Headers.Has("content-length")
	hasEncoding := p.request.Headers.Has("transfer-encoding")

	switch {
	case hasLength && hasEncoding:
		return status.ErrInvalidHeader
	case hasEncoding:
		values := p.request.Headers.Values("transfer-encoding")
		if len(values) != 1 || values[0] != "chunked" {
			return status.ErrUnsupportedTransferEncoding
		}

		return p.readChunkedBody()
	case hasLength:
		values := p.request.Headers.Values("content-length")
		length, err := p.parseContentLength(values[len(values)-1])
		if err != nil {
			return err
		}

		if length == 0 {
			return nil
		}

		return p.readFixedBody(length)
	default:
		return nil
	}
}

func (p *Parser) parseContentLength(value string) (int, error) {
	if len(value) == 0 {
		return 0, status.ErrInvalidHeader
	}

	var length int
	for i := 0; i < len(value); i++ {
		char := value[i]
		if char < '0' || char > '9' {
			return 0, status.ErrInvalidHeader
		}

		length = length*10 + int(char-'0')
		if length > p.cfg.MaxBodySize {
			return 0, status.ErrContentTooLarge
		}
	}

	return length, nil
}

func (p *Parser) readFixedBody(length int) error {
	body := make([]byte, 0, length)

	for len(body) < length {
		if len(p.pending) == 0 {
			data, err := p.pull()
			if err != nil {
				return err
			}

			p.pending = data
		}

		take := min(length-len(body), len(p.pending))
		body = append(body, p.pending[:take]...)
		p.pending = p.pending[take:]
	}

	p.request.Body = body
	return nil
}

func (p *Parser) readChunkedBody() error {
	var body []byte

	for {
		line, err := p.pullLine(maxChunkSizeLine, status.ErrInvalidChunkEncoding)
		if err != nil {
			return err
		}

		sizeLine, err := trimLine(line, status.ErrInvalidChunkEncoding)
		if err != nil {
			return err
		}

		size, err := p.parseChunkSize(sizeLine)
		if err != nil {
			return err
		}

		if len(body)+size > p.cfg.MaxBodySize {
			return status.ErrContentTooLarge
		}

		if size == 0 {
			break
		}

		if body, err = p.appendExactly(body, size); err != nil {
			return err
		}

		if err = p.expectCRLF(); err != nil {
			return err
		}
	}

	p.request.Body = body
	return p.readTrailers()
}

func (p *Parser) parseChunkSize(line []byte) (int, error) {
	if len(line) == 0 {
		return 0, status.ErrInvalidChunkEncoding
	}

	var size int
	for _, char := range line {
		digit := hexconv.Parse(char)
		if digit == hexconv.Invalid {
			return 0, status.ErrInvalidChunkEncoding
		}

		size = size<<4 | int(digit)
		if size > p.cfg.MaxBodySize {
			return 0, status.ErrContentTooLarge
		}
	}

	return size, nil
}

func (p *Parser) appendExactly(body []byte, n int) ([]byte, error) {
	for n > 0 {
		if len(p.pending) == 0 {
			data, err := p.pull()
			if err != nil {
				return nil, err
			}

			p.pending = data
		}

		take := min(n, len(p.pending))
		body = append(body, p.pending[:take]...)
		p.pending = p.pending[take:]
		n -= take
	}

	return body, nil
}

func (p *Parser) expectCRLF() error {
	for _, want := range []byte("\r\n") {
		if len(p.pending) == 0 {
			data, err := p.pull()
			if err != nil {
				return err
			}

			p.pending = data
		}

		if p.pending[0] != want {
			return status.ErrInvalidChunkEncoding
		}

		p.pending = p.pending[1:]
	}

	return nil
}

func (p *Parser) readTrailers() error {
	headroom := p.cfg.MaxHeaderSize

	for {
		line, err := p.pullLine(headroom, status.ErrHeaderTooLarge)
		if err != nil {
			return err
		}

		headroom -= len(line)
		trailer, err := trimLine(line, status.ErrInvalidHeader)
		if err != nil {
			return err
		}

		if len(trailer) == 0 {
			return nil
		}

		if err = p.parseHeaderLine(trailer, p.request.Trailers); err != nil {
			return err
		}
	}
}

func (p *Parser) intern(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}

	if !p.arena.Append(b...) {
		return "", status.ErrHeaderTooLarge
	}

	return uf.B2S(p.arena.Finish()), nil
}
