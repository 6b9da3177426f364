package protocol

import (
	"time"

	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/wire"
)

// Decode parses a packet into its commands, in wire order.
func Decode(data []byte) ([]*netcmd.Command, error) {
	var out []*netcmd.Command
	err := walk(data, func(cmd *netcmd.Command, _ uint8) {
		out = append(out, cmd)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeRefs parses a packet into command refs carrying the relay mask each
// command was sent with. The caller owns one reference to each.
func DecodeRefs(data []byte) ([]*netcmd.CommandRef, error) {
	var out []*netcmd.CommandRef
	err := walk(data, func(cmd *netcmd.Command, relay uint8) {
		out = append(out, netcmd.NewCommandRef(cmd, relay))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walk runs the packet parser from a fresh state, calling emit for every
// decoded command. Any error aborts the whole packet.
func walk(data []byte, emit func(*netcmd.Command, uint8)) error {
	d := wire.NewDecoder(data)
	s := NewState()
	var prev *netcmd.Command
	pending := -1 // offset of the first header field not yet followed by data

	for !d.EOF() {
		off := d.Position()
		tag, _ := d.ReadByte()
		if pending < 0 && tag != netcmd.TagData && tag != netcmd.TagRepeat {
			pending = off
		}

		switch tag {
		case netcmd.TagType:
			v, err := d.ReadByte()
			if err != nil {
				return netcmd.Malformed(off, err, "type field")
			}
			k := netcmd.Kind(v)
			if !k.Valid() {
				return netcmd.UnknownType(off+1, v)
			}
			s.Kind = k

		case netcmd.TagRelay:
			v, err := d.ReadByte()
			if err != nil {
				return netcmd.Malformed(off, err, "relay field")
			}
			s.Relay = v

		case netcmd.TagFrame:
			v, err := d.ReadUint32()
			if err != nil {
				return netcmd.Malformed(off, err, "frame field")
			}
			s.Frame = v

		case netcmd.TagPlayer:
			v, err := d.ReadByte()
			if err != nil {
				return netcmd.Malformed(off, err, "player field")
			}
			s.Player = v

		case netcmd.TagID:
			v, err := d.ReadUint16()
			if err != nil {
				return netcmd.Malformed(off, err, "id field")
			}
			s.LastID = v - 1

		case netcmd.TagData:
			if s.Kind == netcmd.KindNone {
				return netcmd.Malformed(off, nil, "data before any type field")
			}
			hdr := s.header()
			body, err := netcmd.DecodeBody(s.Kind, d)
			if err != nil {
				return err
			}
			prev = &netcmd.Command{Header: hdr, Body: body}
			prev.Timestamp = time.Now()
			emit(prev, s.relayOf(s.Kind))
			pending = -1

		case netcmd.TagRepeat:
			if pending >= 0 {
				return netcmd.Malformed(off, nil, "repeat after header fields")
			}
			if prev == nil {
				return netcmd.Malformed(off, nil, "repeat without a previous command")
			}
			next := nextRepeat(prev)
			if next == nil {
				return netcmd.Malformed(off, nil, "%s cannot be repeated", prev.Kind())
			}
			next.Timestamp = time.Now()
			s.applyRepeat(next)
			prev = next
			emit(prev, s.relayOf(prev.Kind()))

		default:
			return netcmd.Malformed(off, nil, "unknown tag 0x%02x", tag)
		}
	}

	if pending >= 0 {
		return netcmd.Malformed(pending, nil, "header fields without data")
	}
	return nil
}
