// Package capture records raw lockstep datagrams to a msgpack stream so a
// session can be decoded and inspected after the fact.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Direction tells whether a datagram was sent or received.
type Direction uint8

const (
	Outgoing Direction = iota + 1
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "out"
	case Incoming:
		return "in"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Record is one captured datagram.
type Record struct {
	Session   string    `msgpack:"s"`
	Seq       uint64    `msgpack:"n"`
	Time      time.Time `msgpack:"t"`
	Direction Direction `msgpack:"d"`
	Data      []byte    `msgpack:"b"`
}

// SessionID parses the session the record belongs to.
func (r *Record) SessionID() (uuid.UUID, error) {
	return uuid.Parse(r.Session)
}

// Writer appends records to a stream. It is safe for concurrent use: the
// link sends and receives on different goroutines.
type Writer struct {
	mu      sync.Mutex
	session string
	seq     uint64
	buf     *bufio.Writer
	enc     *msgpack.Encoder
	closer  io.Closer
}

// NewWriter returns a writer tagging every record with session.
func NewWriter(w io.Writer, session uuid.UUID) *Writer {
	buf := bufio.NewWriter(w)
	return &Writer{
		session: session.String(),
		buf:     buf,
		enc:     msgpack.NewEncoder(buf),
	}
}

// Create opens path for appending and returns a writer on it.
func Create(path string, session uuid.UUID) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	w := NewWriter(f, session)
	w.closer = f
	return w, nil
}

// Write records one datagram. data is copied by the encoder before return.
func (w *Writer) Write(dir Direction, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	rec := Record{
		Session:   w.session,
		Seq:       w.seq,
		Time:      time.Now(),
		Direction: dir,
		Data:      data,
	}
	if err := w.enc.Encode(&rec); err != nil {
		return fmt.Errorf("encode capture record %d: %w", rec.Seq, err)
	}
	return nil
}

// Flush writes buffered records to the underlying stream.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// Close flushes and closes the file opened by Create.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return err
}

// Reader reads records back in the order they were written.
type Reader struct {
	dec *msgpack.Decoder
}

// NewReader returns a reader over a capture stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: msgpack.NewDecoder(bufio.NewReader(r))}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode capture record: %w", err)
	}
	return &rec, nil
}

// ReadAll returns every record left in the stream.
func (r *Reader) ReadAll() ([]*Record, error) {
	var out []*Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
