// Package netcmd defines the lockstep command model: the closed set of
// command kinds, their payloads, the per-kind field codec and the shared
// header codec (full and small encodings).
//
// The package is pure data and codec logic. It performs no I/O, keeps no
// global state and never logs.
package netcmd

import (
	"bytes"
	"reflect"
	"slices"
	"time"

	"github.com/1ureka/lockstep/internal/wire"
)

// Header is the part every command shares. Relay is not here: it belongs to
// the CommandRef, since the same command can go out with different masks.
type Header struct {
	Timestamp      time.Time // local only, never serialized
	ExecutionFrame uint32
	PlayerID       uint8
	ID             uint16 // meaningful only for kinds where Kind.NeedsID is true
}

// Body is the kind-specific payload. The set of implementations is closed:
// the unexported methods keep other packages from adding variants.
type Body interface {
	Kind() Kind
	payloadSize() int
	encodePayload(e *wire.Encoder)
}

// Command is one unit exchanged between peers.
type Command struct {
	Header
	Body Body
}

// New returns a command with the given header values and body, timestamped now.
func New(frame uint32, player uint8, id uint16, body Body) *Command {
	return &Command{
		Header: Header{
			Timestamp:      time.Now(),
			ExecutionFrame: frame,
			PlayerID:       player,
			ID:             id,
		},
		Body: body,
	}
}

// Kind returns the command's variant.
func (c *Command) Kind() Kind {
	if c == nil || c.Body == nil {
		return KindNone
	}
	return c.Body.Kind()
}

// SortKey orders commands within one frame. Acknowledgements sort by the id
// of the command they acknowledge.
func (c *Command) SortKey() int64 {
	if a, ok := c.Body.(Acknowledgement); ok {
		return int64(a.Info().CommandID)
	}
	return int64(c.ID)
}

// Meaningful returns a copy of the header with the fields the kind does not
// carry zeroed, which is what a decoder reconstructs.
func (c *Command) Meaningful() Header {
	fields := c.Kind().Fields()
	h := Header{}
	if fields.Has(UseFrame) {
		h.ExecutionFrame = c.ExecutionFrame
	}
	if fields.Has(UsePlayer) {
		h.PlayerID = c.PlayerID
	}
	if fields.Has(UseID) {
		h.ID = c.ID
	}
	return h
}

// Equal reports whether two commands carry the same kind, the same
// meaningful header fields and the same payload. Timestamps are ignored.
func (c *Command) Equal(o *Command) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Kind() != o.Kind() {
		return false
	}
	if c.Meaningful() != o.Meaningful() {
		return false
	}
	return bodyEqual(c.Body, o.Body)
}

// bodyEqual compares payloads the way the wire sees them: a nil slice and
// an empty one encode alike.
func bodyEqual(a, b Body) bool {
	switch x := a.(type) {
	case *GameCommand:
		y, ok := b.(*GameCommand)
		return ok && x.MessageType == y.MessageType && slices.Equal(x.Args, y.Args)
	case *File:
		y, ok := b.(*File)
		return ok && x.Filename == y.Filename && bytes.Equal(x.Data, y.Data)
	case *Wrapper:
		y, ok := b.(*Wrapper)
		return ok && x.WrappedCommandID == y.WrappedCommandID &&
			x.ChunkNumber == y.ChunkNumber && x.NumChunks == y.NumChunks &&
			x.TotalDataLength == y.TotalDataLength && x.DataOffset == y.DataOffset &&
			bytes.Equal(x.Data, y.Data)
	}
	return reflect.DeepEqual(a, b)
}

// Clone returns a copy of the command sharing no mutable payload memory.
func (c *Command) Clone() *Command {
	out := *c
	out.Body = cloneBody(c.Body)
	return &out
}

// SortForExecution orders commands by execution frame and then sort key,
// keeping arrival order for ties.
func SortForExecution(cmds []*Command) {
	slices.SortStableFunc(cmds, func(a, b *Command) int {
		switch {
		case a.ExecutionFrame < b.ExecutionFrame:
			return -1
		case a.ExecutionFrame > b.ExecutionFrame:
			return 1
		}
		ka, kb := a.SortKey(), b.SortKey()
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})
}
