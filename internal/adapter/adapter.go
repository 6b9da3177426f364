// Package adapter runs a lockstep session over a ready link. It packs
// outgoing commands into packets, reassembles chunked commands, acknowledges
// what it receives and drives the frame clock.
package adapter

import (
	"context"
	"time"

	"github.com/1ureka/lockstep/internal/capture"
	"github.com/1ureka/lockstep/internal/metrics"
	"github.com/1ureka/lockstep/internal/netcmd"
)

// Link is a datagram path to the remote peer. *transport.Transport and
// *transport.Pipe implement it.
type Link interface {
	Send(data []byte) error
	OnDatagram(fn func([]byte))
	Done() <-chan struct{}
}

// Tap observes every datagram crossing the link. *capture.Writer implements it.
type Tap interface {
	Write(dir capture.Direction, data []byte) error
}

// Options configures a Session. Zero values select defaults.
type Options struct {
	PlayerID      uint8
	MaxPacketSize int
	FrameInterval time.Duration
	RunAhead      uint32 // frames between issuing a command and executing it
	Relay         uint8  // relay mask written on every outgoing command
	Metrics       *metrics.Recorder
	Tap           Tap

	// OnCommand receives every remote command, in execution order per
	// packet. It runs on the session loop and must not block.
	OnCommand func(*netcmd.Command)
}

// Run starts a session on link and blocks until link or ctx is done.
func Run(ctx context.Context, link Link, opts Options) error {
	return NewSession(ctx, link, opts).Run()
}
