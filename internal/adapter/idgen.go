package adapter

import "sync/atomic"

// IDGen is the per-peer command id counter. It is shared by the frame loop
// and callers issuing commands, so all operations are atomic.
//
// Ids are 16 bits on the wire and wrap silently.
type IDGen struct {
	val atomic.Uint32
}

// NewIDGen returns a generator whose first NextID is start+1.
func NewIDGen(start uint16) *IDGen {
	g := &IDGen{}
	g.val.Store(uint32(start))
	return g
}

// NextID returns the next command id.
func (g *IDGen) NextID() uint16 {
	return uint16(g.val.Add(1))
}
