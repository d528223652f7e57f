package http1

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/Sc1pex/httc/config"
	"github.com/Sc1pex/httc/http"
	"github.com/Sc1pex/httc/http/status"
	"github.com/Sc1pex/httc/transport"
	"github.com/Sc1pex/httc/transport/dummy"
	"github.com/dchest/uniuri"
	"github.com/stretchr/testify/require"
)

func newParser(src transport.Reader) *Parser {
	return New(src, config.Default())
}

func parseOne(t *testing.T, raw string) *http.Request {
	t.Helper()
	request, err := newParser(dummy.NewStringReader(raw)).Next()
	require.NoError(t, err)
	return request
}

func TestParseGET(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		request := parseOne(t, "GET /ping HTTP/1.1\r\nHost: x\r\n\r\n")
		require.Equal(t, "GET", request.Method)
		require.Equal(t, []string{"ping"}, request.URI.Segments)
		require.Equal(t, "x", request.Headers.Value("host"))
		require.Empty(t, request.Body)
	})

	t.Run("root path without headers", func(t *testing.T) {
		request := parseOne(t, "GET / HTTP/1.1\r\n\r\n")
		require.Equal(t, "GET", request.Method)
		require.Empty(t, request.URI.Segments)
	})

	t.Run("byte by byte", func(t *testing.T) {
		raw := "GET /greet/world?name=John%20Doe HTTP/1.1\r\nAccept: */*\r\nX-Empty:\r\n\r\n"
		parser := newParser(dummy.NewByteByByteReader(raw))
		request, err := parser.Next()
		require.NoError(t, err)
		require.Equal(t, "GET", request.Method)
		require.Equal(t, []string{"greet", "world"}, request.URI.Segments)
		name, found := request.URI.QueryParam("name")
		require.True(t, found)
		require.Equal(t, "John Doe", name)
		require.Equal(t, "*/*", request.Headers.Value("accept"))
		value, found := request.Headers.Get("x-empty")
		require.True(t, found)
		require.Empty(t, value)
	})

	t.Run("header case and order preserved", func(t *testing.T) {
		request := parseOne(t, "GET / HTTP/1.1\r\nX-Tag: one\r\nx-tag: two\r\n\r\n")
		require.Equal(t, []string{"one", "two"}, request.Headers.Values("X-TAG"))
		require.Equal(t, []string{"X-Tag", "x-tag"}, request.Headers.Keys())
	})

	t.Run("OWS around header values", func(t *testing.T) {
		request := parseOne(t, "GET / HTTP/1.1\r\nHost: \t spaced out \t\r\n\r\n")
		require.Equal(t, "spaced out", request.Headers.Value("host"))
	})

	t.Run("leading CRLFs are tolerated", func(t *testing.T) {
		request := parseOne(t, "\r\n\r\nGET /late HTTP/1.1\r\n\r\n")
		require.Equal(t, []string{"late"}, request.URI.Segments)
	})

	t.Run("percent-encoded path segments", func(t *testing.T) {
		request := parseOne(t, "GET /a%20dir/b%2Fc HTTP/1.1\r\n\r\n")
		require.Equal(t, []string{"a dir", "b/c"}, request.URI.Segments)
	})
}

func TestParsePipelined(t *testing.T) {
	t.Run("single pull", func(t *testing.T) {
		parser := newParser(dummy.NewStringReader(
			"GET /first HTTP/1.1\r\n\r\nGET /second HTTP/1.1\r\n\r\nGET /third HTTP/1.1\r\n\r\n"))

		for _, expected := range []string{"first", "second", "third"} {
			request, err := parser.Next()
			require.NoError(t, err)
			require.Equal(t, []string{expected}, request.URI.Segments)
		}

		_, err := parser.Next()
		require.Equal(t, io.EOF, err)
	})

	t.Run("request boundary inside a chunk", func(t *testing.T) {
		parser := newParser(dummy.NewReader(
			[]byte("POST /upload HTTP/1.1\r\nContent-Length: 5\r\n\r\nhell"),
			[]byte("oGET /after HTTP/1.1\r\n\r\n"),
		))

		request, err := parser.Next()
		require.NoError(t, err)
		require.Equal(t, "hello", string(request.Body))

		request, err = parser.Next()
		require.NoError(t, err)
		require.Equal(t, []string{"after"}, request.URI.Segments)
	})
}

func TestParseFixedBody(t *testing.T) {
	t.Run("in one piece", func(t *testing.T) {
		request := parseOne(t, "POST /u HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello world")
		require.Equal(t, "hello world", string(request.Body))
	})

	t.Run("split across pulls", func(t *testing.T) {
		parser := newParser(dummy.NewByteByByteReader(
			"POST /u HTTP/1.1\r\nContent-Length: 5\r\n\r\n12345"))
		request, err := parser.Next()
		require.NoError(t, err)
		require.Equal(t, "12345", string(request.Body))
	})

	t.Run("zero length", func(t *testing.T) {
		request := parseOne(t, "POST /u HTTP/1.1\r\nContent-Length: 0\r\n\r\n")
		require.Empty(t, request.Body)
	})

	t.Run("duplicate content-length takes the last", func(t *testing.T) {
		request := parseOne(t,
			"POST /u HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 4\r\n\r\nfour")
		require.Equal(t, "four", string(request.Body))
	})
}

func TestParseChunkedBody(t *testing.T) {
	raw := "POST /u HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nHello\r\n7\r\n, World\r\n0\r\n\r\n"

	t.Run("in one piece", func(t *testing.T) {
		request := parseOne(t, raw)
		require.Equal(t, "Hello, World", string(request.Body))
		require.True(t, request.Trailers.Empty())
	})

	t.Run("byte by byte", func(t *testing.T) {
		parser := newParser(dummy.NewByteByByteReader(raw))
		request, err := parser.Next()
		require.NoError(t, err)
		require.Equal(t, "Hello, World", string(request.Body))
	})

	t.Run("arbitrary chunk split round-trips", func(t *testing.T) {
		body := "The quick brown fox jumps over the lazy dog"
		var framed strings.Builder
		for i := 0; i < len(body); i += 7 {
			chunk := body[i:min(i+7, len(body))]
			fmt.Fprintf(&framed, "%x\r\n%s\r\n", len(chunk), chunk)
		}
		framed.WriteString("0\r\n\r\n")

		request := parseOne(t,
			"POST /u HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"+framed.String())
		require.Equal(t, body, string(request.Body))
	})

	t.Run("uppercase hex size", func(t *testing.T) {
		request := parseOne(t,
			"POST /u HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nA\r\n0123456789\r\n0\r\n\r\n")
		require.Equal(t, "0123456789", string(request.Body))
	})

	t.Run("trailers", func(t *testing.T) {
		request := parseOne(t,
			"POST /u HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"+
				"3\r\nabc\r\n0\r\nChecksum: 900150983cd24fb0\r\nX-Done: yes\r\n\r\n")
		require.Equal(t, "abc", string(request.Body))
		require.Equal(t, "900150983cd24fb0", request.Trailers.Value("checksum"))
		require.Equal(t, "yes", request.Trailers.Value("x-done"))
	})

	t.Run("pipelined request after chunked", func(t *testing.T) {
		parser := newParser(dummy.NewStringReader(raw + "GET /next HTTP/1.1\r\n\r\n"))
		request, err := parser.Next()
		require.NoError(t, err)
		require.Equal(t, "Hello, World", string(request.Body))

		request, err = parser.Next()
		require.NoError(t, err)
		require.Equal(t, []string{"next"}, request.URI.Segments)
	})
}

func TestParseCookies(t *testing.T) {
	t.Run("single header", func(t *testing.T) {
		request := parseOne(t, "GET / HTTP/1.1\r\nCookie: a=1; b=2\r\n\r\n")
		require.Equal(t, "1", request.Cookies.Value("a"))
		require.Equal(t, "2", request.Cookies.Value("b"))
	})

	t.Run("whitespace around separators", func(t *testing.T) {
		request := parseOne(t, "GET / HTTP/1.1\r\nCookie: a=1 ;  b=2 \r\n\r\n")
		require.Equal(t, "1", request.Cookies.Value("a"))
		require.Equal(t, "2", request.Cookies.Value("b"))
	})

	t.Run("multiple headers aggregate", func(t *testing.T) {
		request := parseOne(t, "GET / HTTP/1.1\r\nCookie: a=1\r\nCookie: b=2\r\n\r\n")
		require.Equal(t, 2, request.Cookies.Len())
	})
}

func TestParseErrors(t *testing.T) {
	expect := func(t *testing.T, raw string, expected error) {
		t.Helper()
		_, err := newParser(dummy.NewStringReader(raw)).Next()
		require.Equal(t, expected, err)
	}

	t.Run("request line", func(t *testing.T) {
		expect(t, "GET /\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, "GET / HTTP/1.0\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, "GET / HTTP/2\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, "GET  / HTTP/1.1\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, "GE T / HTTP/1.1\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, " GET / HTTP/1.1\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, "GET x/y HTTP/1.1\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, "GET /a%2x HTTP/1.1\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, "GET /a/*/b HTTP/1.1\r\n\r\n", status.ErrInvalidRequestLine)
		expect(t, "GET / HTTP/1.1\n\r\n", status.ErrInvalidRequestLine)
	})

	t.Run("headers", func(t *testing.T) {
		expect(t, "GET / HTTP/1.1\r\nNoColonHere\r\n\r\n", status.ErrInvalidHeader)
		expect(t, "GET / HTTP/1.1\r\nBad Name: v\r\n\r\n", status.ErrInvalidHeader)
		expect(t, "GET / HTTP/1.1\r\nName : v\r\n\r\n", status.ErrInvalidHeader)
		expect(t, "GET / HTTP/1.1\r\n: v\r\n\r\n", status.ErrInvalidHeader)
		expect(t, "GET / HTTP/1.1\r\nName: bad\x00value\r\n\r\n", status.ErrInvalidHeader)
		expect(t, "GET / HTTP/1.1\r\nHost: x\nBare: lf\r\n\r\n", status.ErrInvalidHeader)
	})

	t.Run("framing conflicts", func(t *testing.T) {
		expect(t,
			"POST / HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n",
			status.ErrInvalidHeader)
		expect(t, "POST / HTTP/1.1\r\nContent-Length: five\r\n\r\n", status.ErrInvalidHeader)
		expect(t, "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", status.ErrInvalidHeader)
	})

	t.Run("unsupported transfer encodings", func(t *testing.T) {
		expect(t, "POST / HTTP/1.1\r\nTransfer-Encoding: gzip\r\n\r\n",
			status.ErrUnsupportedTransferEncoding)
		expect(t, "POST / HTTP/1.1\r\nTransfer-Encoding: gzip, chunked\r\n\r\n",
			status.ErrUnsupportedTransferEncoding)
		// the comparison is exact, case included
		expect(t, "POST / HTTP/1.1\r\nTransfer-Encoding: Chunked\r\n\r\n",
			status.ErrUnsupportedTransferEncoding)
	})

	t.Run("chunk encoding", func(t *testing.T) {
		prefix := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"
		expect(t, prefix+"zz\r\nhello\r\n0\r\n\r\n", status.ErrInvalidChunkEncoding)
		expect(t, prefix+"\r\nhello\r\n0\r\n\r\n", status.ErrInvalidChunkEncoding)
		expect(t, prefix+"5\r\nhelloXX0\r\n\r\n", status.ErrInvalidChunkEncoding)
	})
}

func TestParseLimits(t *testing.T) {
	small := config.Fill(config.Config{MaxHeaderSize: 1024, MaxBodySize: 64})

	t.Run("many small headers overflow", func(t *testing.T) {
		var raw strings.Builder
		raw.WriteString("GET / HTTP/1.1\r\n")
		for i := 0; i < 200; i++ {
			fmt.Fprintf(&raw, "H%d: v\r\n", i)
		}
		raw.WriteString("\r\n")

		_, err := New(dummy.NewStringReader(raw.String()), small).Next()
		require.Equal(t, status.ErrHeaderTooLarge, err)
	})

	t.Run("one huge header overflows", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nX-Data: " + uniuri.NewLen(2048) + "\r\n\r\n"
		_, err := New(dummy.NewStringReader(raw), small).Next()
		require.Equal(t, status.ErrHeaderTooLarge, err)
	})

	t.Run("endless request line overflows", func(t *testing.T) {
		raw := "GET /" + uniuri.NewLen(4096)
		_, err := New(dummy.NewStringReader(raw), small).Next()
		require.Equal(t, status.ErrHeaderTooLarge, err)
	})

	t.Run("declared body too large", func(t *testing.T) {
		raw := "POST / HTTP/1.1\r\nContent-Length: 65\r\n\r\n"
		_, err := New(dummy.NewStringReader(raw), small).Next()
		require.Equal(t, status.ErrContentTooLarge, err)
	})

	t.Run("chunked body overflows cumulatively", func(t *testing.T) {
		var raw strings.Builder
		raw.WriteString("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n")
		for i := 0; i < 5; i++ {
			raw.WriteString("14\r\n" + strings.Repeat("a", 20) + "\r\n")
		}
		raw.WriteString("0\r\n\r\n")

		_, err := New(dummy.NewStringReader(raw.String()), small).Next()
		require.Equal(t, status.ErrContentTooLarge, err)
	})
}

func TestParseEndOfStream(t *testing.T) {
	t.Run("empty source", func(t *testing.T) {
		_, err := newParser(dummy.NewReader()).Next()
		require.Equal(t, io.EOF, err)
	})

	t.Run("source closed mid-request", func(t *testing.T) {
		_, err := newParser(dummy.NewStringReader("GET / HT")).Next()
		require.Equal(t, io.EOF, err)
	})

	t.Run("source closed mid-body", func(t *testing.T) {
		_, err := newParser(dummy.NewStringReader(
			"POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nhalf")).Next()
		require.Equal(t, io.EOF, err)
	})

	t.Run("timeout propagates", func(t *testing.T) {
		src := dummy.NewStringReader("GET / HT").FailWith(transport.ErrTimeout)
		_, err := newParser(src).Next()
		require.Equal(t, transport.ErrTimeout, err)
	})
}
