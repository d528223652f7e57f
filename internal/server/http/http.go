package http

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/Sc1pex/httc/config"
	"github.com/Sc1pex/httc/http"
	"github.com/Sc1pex/httc/http/method"
	"github.com/Sc1pex/httc/http/status"
	"github.com/Sc1pex/httc/internal/parser/http1"
	"github.com/Sc1pex/httc/router"
	"github.com/Sc1pex/httc/transport"
)

// Server drives the request-response loop of a single connection: parse,
// dispatch, finalize, repeat. A response is fully transmitted before the
// next request is parsed, so responses leave in request order.
type Server struct {
	router   *router.Router
	cfg      *config.Config
	defaults []http.DefaultHeader
}

func NewServer(r *router.Router, cfg *config.Config) *Server {
	return &Server{
		router:   r,
		cfg:      cfg,
		defaults: http.ProcessDefaultHeaders(cfg.DefaultHeaders),
	}
}

// ServeConn serves the connection until the peer disconnects, a request
// fails to parse, or a handler fails. The connection is closed on every
// exit path.
func (s *Server) ServeConn(conn net.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	reader := transport.NewSocketReader(conn, s.cfg.RequestTimeout, s.cfg.NET.ReadBufferSize)
	writer := transport.NewSocketWriter(conn)
	parser := http1.New(reader, s.cfg)

	for {
		if reader.Arm() != nil {
			return
		}

		request, err := parser.Next()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, transport.ErrTimeout):
			// a finished or deadline-expired peer gets no response
			return
		default:
			if httpErr, ok := err.(status.HTTPError); ok {
				_ = http.FromStatus(writer, httpErr.Code).Send()
			}

			return
		}

		request.Remote = conn.RemoteAddr()
		response := http.NewResponse(writer, s.defaults)
		if request.Method == method.HEAD {
			response.MarkHead()
		}

		if err = s.dispatch(request, response); err != nil {
			if !response.Committed() {
				_ = http.FromStatus(writer, status.InternalServerError).Send()
			}

			return
		}

		if response.Send() != nil {
			return
		}
	}
}

// dispatch runs the router, converting a handler panic into an error so a
// misbehaving handler takes down its connection, not the server.
func (s *Server) dispatch(request *http.Request, response *http.Response) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("handler panicked: %v", recovered)
		}
	}()

	return s.router.Handle(request, response)
}
