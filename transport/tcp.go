package transport

import (
	"errors"
	"io"
	"net"
	"time"
)

// SocketReader pulls from a TCP connection through a fixed scratch buffer.
// The per-request deadline is armed by the connection driver; an expired
// deadline cancels the in-flight read and surfaces ErrTimeout.
type SocketReader struct {
	conn    net.Conn
	buff    []byte
	timeout time.Duration
}

func NewSocketReader(conn net.Conn, timeout time.Duration, buffSize int) *SocketReader {
	return &SocketReader{
		conn:    conn,
		buff:    make([]byte, buffSize),
		timeout: timeout,
	}
}

// Arm sets the absolute deadline for the request about to be read. All the
// pulls belonging to the request share it.
func (s *SocketReader) Arm() error {
	return s.conn.SetReadDeadline(time.Now().Add(s.timeout))
}

func (s *SocketReader) Pull() ([]byte, error) {
	for {
		n, err := s.conn.Read(s.buff)
		if n > 0 {
			// a piece arrived together with an error; the error will
			// resurface on the next pull
			return s.buff[:n], nil
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, net.ErrClosed):
			return nil, ErrClosed
		default:
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, ErrTimeout
			}

			return nil, err
		}
	}
}

// SocketWriter transmits buffers over a TCP connection via a single writev
// where possible.
type SocketWriter struct {
	conn net.Conn
}

func NewSocketWriter(conn net.Conn) *SocketWriter {
	return &SocketWriter{conn: conn}
}

func (s *SocketWriter) Write(buffers net.Buffers) error {
	_, err := buffers.WriteTo(s.conn)
	return err
}
