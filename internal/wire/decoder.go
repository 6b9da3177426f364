package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrUnterminated is returned when a NUL-terminated string runs past its limit
// or the end of the buffer.
var ErrUnterminated = errors.New("wire: unterminated string")

// Decoder reads binary values from a byte buffer. Every read is bounds
// checked and fails with io.ErrUnexpectedEOF instead of reading past the end.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Position returns the current read offset.
func (d *Decoder) Position() int {
	return d.pos
}

func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes and returns a copy that is safe to retain.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	copy(b, d.buf[d.pos:d.pos+n])
	d.pos += n
	return b, nil
}

// ReadBool reads a single byte; any non-zero value is true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (d *Decoder) ReadUint16() (uint16, error) {
	if d.Remaining() < 2 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

func (d *Decoder) ReadFloat32() (float32, error) {
	v, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadCString reads a NUL-terminated string of at most max bytes (terminator
// excluded). The terminator is consumed.
func (d *Decoder) ReadCString(max int) (string, error) {
	rest := d.buf[d.pos:]
	if len(rest) > max+1 {
		rest = rest[:max+1]
	}
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		if len(d.buf)-d.pos <= max {
			return "", io.ErrUnexpectedEOF
		}
		return "", ErrUnterminated
	}
	s := string(rest[:i])
	d.pos += i + 1
	return s, nil
}
