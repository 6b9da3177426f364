package netcmd

import "github.com/1ureka/lockstep/internal/wire"

// Field tags. Every header field on the wire is a tag byte followed by a
// fixed-width value; the data section starts with TagData and a repeated
// command is the lone TagRepeat byte.
const (
	TagType   byte = 'T'
	TagRelay  byte = 'R'
	TagFrame  byte = 'F'
	TagPlayer byte = 'P'
	TagID     byte = 'C'
	TagData   byte = 'D'
	TagRepeat byte = 'Z'
)

// Encoded sizes of the tagged header fields, tag byte included.
const (
	TypeFieldSize   = 1 + 1
	RelayFieldSize  = 1 + 1
	FrameFieldSize  = 1 + 4
	PlayerFieldSize = 1 + 1
	IDFieldSize     = 1 + 2
	DataMarkerSize  = 1
	RepeatSize      = 1
)

// HeaderSize returns the bytes taken by the selected header fields plus the
// data marker.
func HeaderSize(sel FieldSelect) int {
	n := DataMarkerSize
	if sel.Has(UseType) {
		n += TypeFieldSize
	}
	if sel.Has(UseRelay) {
		n += RelayFieldSize
	}
	if sel.Has(UseFrame) {
		n += FrameFieldSize
	}
	if sel.Has(UsePlayer) {
		n += PlayerFieldSize
	}
	if sel.Has(UseID) {
		n += IDFieldSize
	}
	return n
}

// PreferredSelect returns the header fields this command's kind carries.
// A small encoding never writes a field outside this set.
func (c *Command) PreferredSelect() FieldSelect {
	return c.Kind().Fields()
}

// PayloadSize returns the size of the data section after the 'D' marker.
func (c *Command) PayloadSize() int {
	return c.Body.payloadSize()
}

// FullSize returns the size of the full encoding: every field of the kind's
// table, the data marker and the payload.
func (c *Command) FullSize() int {
	return HeaderSize(c.PreferredSelect()) + c.PayloadSize()
}

// SmallSize returns the size of the encoding that writes only the fields in
// sel (restricted to the kind's table).
func (c *Command) SmallSize(sel FieldSelect) int {
	return HeaderSize(sel&c.PreferredSelect()) + c.PayloadSize()
}

// AppendFull appends the full encoding of c with the given relay mask.
// The result is self-contained: it decodes correctly from a fresh state.
func (c *Command) AppendFull(dst []byte, relay uint8) []byte {
	return c.AppendSmall(dst, relay, c.PreferredSelect())
}

// AppendSmall appends c writing only the header fields in sel. Fields are
// always emitted in the canonical order type, relay, frame, player, id.
func (c *Command) AppendSmall(dst []byte, relay uint8, sel FieldSelect) []byte {
	sel &= c.PreferredSelect()
	e := wire.NewEncoder(dst)
	if sel.Has(UseType) {
		e.WriteByte(TagType)
		e.WriteByte(byte(c.Kind()))
	}
	if sel.Has(UseRelay) {
		e.WriteByte(TagRelay)
		e.WriteByte(relay)
	}
	if sel.Has(UseFrame) {
		e.WriteByte(TagFrame)
		e.WriteUint32(c.ExecutionFrame)
	}
	if sel.Has(UsePlayer) {
		e.WriteByte(TagPlayer)
		e.WriteByte(c.PlayerID)
	}
	if sel.Has(UseID) {
		e.WriteByte(TagID)
		e.WriteUint16(c.ID)
	}
	e.WriteByte(TagData)
	c.Body.encodePayload(e)
	return e.Bytes()
}

// EncodeFull returns the full encoding of the command behind ref.
func EncodeFull(ref *CommandRef) []byte {
	cmd := ref.Command()
	return cmd.AppendFull(make([]byte, 0, cmd.FullSize()), ref.Relay())
}
