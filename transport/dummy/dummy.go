// Package dummy provides in-memory transport implementations for tests:
// readers replaying prepared chunks and a writer recording emissions.
package dummy

import (
	"net"

	"github.com/Sc1pex/httc/transport"
)

var _ transport.Reader = new(Reader)

// Reader replays prepared chunks, one per Pull. Once they run out it
// reports the source closed, or the error set via FailWith.
type Reader struct {
	chunks  [][]byte
	pointer int
	err     error
}

func NewReader(chunks ...[]byte) *Reader {
	return &Reader{
		chunks: chunks,
		err:    transport.ErrClosed,
	}
}

// NewStringReader yields the whole string in a single pull.
func NewStringReader(data string) *Reader {
	return NewReader([]byte(data))
}

// NewByteByByteReader yields the string one byte at a time, exercising the
// consumer's incremental paths.
func NewByteByByteReader(data string) *Reader {
	chunks := make([][]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		chunks = append(chunks, []byte{data[i]})
	}

	return NewReader(chunks...)
}

// FailWith replaces the error reported once the chunks are exhausted.
func (r *Reader) FailWith(err error) *Reader {
	r.err = err
	return r
}

func (r *Reader) Pull() ([]byte, error) {
	for r.pointer < len(r.chunks) {
		chunk := r.chunks[r.pointer]
		r.pointer++

		if len(chunk) > 0 {
			return chunk, nil
		}
	}

	return nil, r.err
}

var _ transport.Writer = new(Writer)

// Writer records everything written into it along with the number of write
// calls, so tests can assert both content and atomicity.
type Writer struct {
	Data   []byte
	Writes int
}

func NewWriter() *Writer {
	return new(Writer)
}

func (w *Writer) Write(buffers net.Buffers) error {
	for _, buff := range buffers {
		w.Data = append(w.Data, buff...)
	}

	w.Writes++
	return nil
}

func (w *Writer) String() string {
	return string(w.Data)
}
