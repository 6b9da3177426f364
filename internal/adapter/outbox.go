package adapter

import (
	"bytes"
	"errors"

	"github.com/1ureka/lockstep/internal/metrics"
	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/protocol"
	"github.com/1ureka/lockstep/internal/util"
)

// Datagram is one sealed packet ready for the link.
type Datagram struct {
	Data     []byte
	Commands int // commands and repeats encoded in Data
}

// Outbox packs queued commands into packets of at most max bytes. A command
// that does not fit an empty packet is split into a wrapper series.
//
// An Outbox is not safe for concurrent use.
type Outbox struct {
	max   int
	ids   protocol.IDSource
	pkt   *protocol.Packet
	ready []Datagram
	rec   *metrics.Recorder
}

// NewOutbox returns an outbox filling packets of max bytes. Wrapper ids for
// oversized commands come from ids.
func NewOutbox(max int, ids protocol.IDSource, rec *metrics.Recorder) *Outbox {
	if max <= 0 {
		max = protocol.MaxPacketSize
	}
	return &Outbox{
		max: max,
		ids: ids,
		pkt: protocol.NewPacketSize(max),
		rec: rec,
	}
}

// Queue encodes the command behind ref into the current packet, sealing it
// and starting a new one when it is full. The outbox retains what it needs;
// the caller keeps its own reference.
func (o *Outbox) Queue(ref *netcmd.CommandRef) error {
	if err := netcmd.Validate(ref.Command().Body); err != nil {
		return err
	}
	if o.add(ref) {
		return nil
	}
	if !o.pkt.Empty() {
		o.seal()
		if o.add(ref) {
			return nil
		}
	}

	cmd := ref.Command()
	packets, err := protocol.Split(ref, o.ids, o.max)
	if err != nil {
		if errors.Is(err, netcmd.ErrPreconditionViolation) {
			util.LogError("refusing to send %s #%d (%d bytes): %v", cmd.Kind(), cmd.ID, cmd.FullSize(), err)
		}
		return err
	}
	for _, p := range packets {
		o.ready = append(o.ready, Datagram{Data: bytes.Clone(p.Bytes()), Commands: p.NumCommands()})
		p.Reset()
	}
	o.rec.Chunks(len(packets))
	o.rec.CommandEncoded(cmd.Kind(), metrics.EncodingChunk)
	util.LogFields("command split", "kind", cmd.Kind(), "id", cmd.ID, "size", cmd.FullSize(), "chunks", len(packets))
	return nil
}

func (o *Outbox) add(ref *netcmd.CommandRef) bool {
	repeats := o.pkt.Repeats()
	if !o.pkt.AddCommand(ref) {
		return false
	}
	encoding := metrics.EncodingSmall
	if o.pkt.Repeats() > repeats {
		encoding = metrics.EncodingRepeat
	}
	o.rec.CommandEncoded(ref.Command().Kind(), encoding)
	return true
}

func (o *Outbox) seal() {
	o.ready = append(o.ready, Datagram{Data: bytes.Clone(o.pkt.Bytes()), Commands: o.pkt.NumCommands()})
	o.pkt.Reset()
}

// Pending is the number of commands in the packet being filled.
func (o *Outbox) Pending() int {
	return o.pkt.NumCommands()
}

// Flush seals the current packet and returns every datagram ready to send,
// in queue order.
func (o *Outbox) Flush() []Datagram {
	if !o.pkt.Empty() {
		o.seal()
	}
	out := o.ready
	o.ready = nil
	return out
}

// Reset drops everything queued and not yet flushed.
func (o *Outbox) Reset() {
	o.pkt.Reset()
	o.ready = nil
}
