package transport

import (
	"math"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/lockstep/internal/protocol"
)

// DefaultICEServers are the STUN servers used when ChannelOptions names none.
// No TURN: peers are expected to reach each other directly.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// channelLabel names the DataChannel carrying lockstep packets.
const channelLabel = "lockstep"

// ChannelOptions shape the DataChannel carrying lockstep packets.
type ChannelOptions struct {
	// ICEServers lists STUN/TURN URLs; empty means DefaultICEServers.
	ICEServers []string
	// MaxRetransmits caps SCTP retransmissions of one datagram. Negative
	// keeps the channel fully reliable, which the session needs unless the
	// peers drive FrameResendRequest themselves.
	MaxRetransmits int
	// MaxDatagram is the largest datagram Send accepts. Both peers build
	// packets against the same limit; 0 means protocol.MaxPacketSize.
	MaxDatagram int
}

// DefaultChannelOptions returns a reliable channel for standard-size packets.
func DefaultChannelOptions() ChannelOptions {
	return ChannelOptions{MaxRetransmits: -1, MaxDatagram: protocol.MaxPacketSize}
}

func (o ChannelOptions) iceServers() []string {
	if len(o.ICEServers) == 0 {
		return DefaultICEServers
	}
	return o.ICEServers
}

func (o ChannelOptions) maxDatagram() int {
	if o.MaxDatagram <= 0 {
		return protocol.MaxPacketSize
	}
	return o.MaxDatagram
}

// channelInit builds the DataChannel parameters. The channel is always
// pre-negotiated with ID 0, so both sides create it independently, and
// unordered: commands carry their execution frame and chunks their offset,
// so the receiver restores order itself.
func (o ChannelOptions) channelInit() *webrtc.DataChannelInit {
	ordered := false
	negotiated := true
	id := uint16(0)

	init := &webrtc.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &id,
	}
	if o.MaxRetransmits >= 0 {
		n := uint16(min(o.MaxRetransmits, math.MaxUint16))
		init.MaxRetransmits = &n
	}
	return init
}

func newPeerConnection(opts ChannelOptions) (*webrtc.PeerConnection, error) {
	config := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: opts.iceServers()},
		},
	}
	return webrtc.NewPeerConnection(config)
}

func newDataChannel(pc *webrtc.PeerConnection, opts ChannelOptions) (*webrtc.DataChannel, error) {
	return pc.CreateDataChannel(channelLabel, opts.channelInit())
}
