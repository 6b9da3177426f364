// Package protocol builds and parses lockstep packets: sequences of commands
// in the tagged header format, compressed against a per-packet shadow state,
// plus the chunking of commands too large for one packet.
package protocol

import "github.com/1ureka/lockstep/internal/netcmd"

// MaxPacketSize is the default packet capacity in bytes.
const MaxPacketSize = 476

// Packet accumulates encoded commands up to a fixed capacity.
//
// A Packet is not safe for concurrent use.
type Packet struct {
	buf     []byte
	max     int
	state   State
	last    *netcmd.CommandRef // retained while it is the last command written
	count   int
	repeats int
}

// NewPacket returns an empty packet with the default capacity.
func NewPacket() *Packet {
	return NewPacketSize(MaxPacketSize)
}

// NewPacketSize returns an empty packet holding at most size bytes.
// A non-positive size selects MaxPacketSize.
func NewPacketSize(size int) *Packet {
	if size <= 0 {
		size = MaxPacketSize
	}
	return &Packet{
		buf:   make([]byte, 0, size),
		max:   size,
		state: NewState(),
	}
}

// AddCommand appends the command behind ref, as a repeat when the previous
// command allows it and otherwise as a small encoding against the shadow
// state. It returns false and leaves the packet untouched when the encoded
// command does not fit.
func (p *Packet) AddCommand(ref *netcmd.CommandRef) bool {
	cmd := ref.Command()
	if cmd == nil || cmd.Body == nil || !cmd.Kind().Valid() {
		return false
	}
	relay := ref.Relay()

	if canRepeat(p.last, cmd, relay) {
		if len(p.buf)+netcmd.RepeatSize > p.max {
			return false
		}
		p.buf = append(p.buf, netcmd.TagRepeat)
		p.state.applyRepeat(cmd)
		p.repeats++
		p.setLast(ref)
		return true
	}

	sel := p.state.Select(cmd, relay)
	if len(p.buf)+cmd.SmallSize(sel) > p.max {
		return false
	}
	p.buf = cmd.AppendSmall(p.buf, relay, sel)
	p.state.Apply(cmd, relay, sel)
	p.setLast(ref)
	return true
}

func (p *Packet) setLast(ref *netcmd.CommandRef) {
	ref.Retain()
	if p.last != nil {
		p.last.Release()
	}
	p.last = ref
	p.count++
}

// Reset empties the packet for reuse and drops its hold on the last command.
func (p *Packet) Reset() {
	if p.last != nil {
		p.last.Release()
		p.last = nil
	}
	p.buf = p.buf[:0]
	p.state = NewState()
	p.count = 0
	p.repeats = 0
}

// Bytes returns the encoded packet. The slice is only valid until the next
// AddCommand or Reset.
func (p *Packet) Bytes() []byte {
	return p.buf
}

// Len returns the encoded size in bytes.
func (p *Packet) Len() int {
	return len(p.buf)
}

// Cap returns the packet capacity in bytes.
func (p *Packet) Cap() int {
	return p.max
}

// Remaining returns the number of bytes still free.
func (p *Packet) Remaining() int {
	return p.max - len(p.buf)
}

// NumCommands returns the number of commands in the packet.
func (p *Packet) NumCommands() int {
	return p.count
}

// Repeats returns how many of the commands were written as a repeat.
func (p *Packet) Repeats() int {
	return p.repeats
}

// Empty reports whether no command has been added.
func (p *Packet) Empty() bool {
	return p.count == 0
}
