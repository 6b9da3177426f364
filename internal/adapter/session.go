package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/1ureka/lockstep/internal/capture"
	"github.com/1ureka/lockstep/internal/metrics"
	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/util"
)

const (
	inboxBufferSize      = 64 // datagrams waiting for the session loop
	defaultFrameInterval = time.Second / 30
	chunkTTL             = 10 * time.Second
)

// Session holds the state of one peer-to-peer lockstep link.
//
// Issue and Say may be called from any goroutine. Everything received is
// handled on the goroutine running Run.
type Session struct {
	opts Options
	link Link
	ids  *IDGen

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	inbox chan []byte
	in    *Inbox // owned by Run

	mu     sync.Mutex
	out    *Outbox
	frame  uint32
	issued uint16 // commands issued for the frame being announced next
}

// NewSession prepares a session and starts buffering datagrams from link.
// Nothing is sent until Run starts.
func NewSession(parentCtx context.Context, link Link, opts Options) *Session {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaultFrameInterval
	}
	ctx, cancel := context.WithCancel(parentCtx)
	ids := NewIDGen(0)
	s := &Session{
		opts:   opts,
		link:   link,
		ids:    ids,
		ctx:    ctx,
		cancel: cancel,
		inbox:  make(chan []byte, inboxBufferSize),
		in:     NewInbox(opts.Metrics),
		out:    NewOutbox(opts.MaxPacketSize, ids, opts.Metrics),
	}
	link.OnDatagram(s.enqueue)
	return s
}

// enqueue runs on the link's receive goroutine.
func (s *Session) enqueue(data []byte) {
	select {
	case s.inbox <- data:
	default:
		util.LogWarning("[player %d] inbox full, dropping %d-byte packet", s.opts.PlayerID, len(data))
	}
}

// Frame returns the current logic frame.
func (s *Session) Frame() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Issue queues a local command for execution RunAhead frames from now. The
// command goes out with the next frame tick.
func (s *Session) Issue(body netcmd.Body) (*netcmd.Command, error) {
	if err := netcmd.Validate(body); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := body.Kind()
	var id uint16
	if k.NeedsID() {
		id = s.ids.NextID()
	}
	cmd := netcmd.New(s.frame+s.opts.RunAhead, s.opts.PlayerID, id, body)
	ref := netcmd.NewCommandRef(cmd, s.opts.Relay)
	defer ref.Release()

	if err := s.out.Queue(ref); err != nil {
		return nil, err
	}
	if countsTowardFrame(k) {
		s.issued++
	}
	return cmd, nil
}

// Say issues a chat line addressed to every player.
func (s *Session) Say(text string) error {
	_, err := s.Issue(&netcmd.Chat{Text: text, PlayerMask: -1})
	return err
}

// countsTowardFrame reports whether k is scheduled on a frame and therefore
// announced in that frame's FrameInfo.
func countsTowardFrame(k netcmd.Kind) bool {
	return k != netcmd.KindFrameInfo && k.Fields().Has(netcmd.UseFrame)
}

// needsAck reports whether a received command is acknowledged. Wrapper
// chunks are not: the reassembled command is.
func needsAck(k netcmd.Kind) bool {
	return k.NeedsID() && k != netcmd.KindWrapper
}

// Run drives the frame clock and handles inbound datagrams until the link
// closes or the session context is cancelled.
func (s *Session) Run() error {
	defer s.cleanup()

	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()
	expire := time.NewTicker(chunkTTL)
	defer expire.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick()

		case data := <-s.inbox:
			s.receive(data)

		case <-expire.C:
			s.in.Expire(chunkTTL)

		case <-s.link.Done():
			return nil

		case <-s.ctx.Done():
			return nil
		}
	}
}

// Close stops Run.
func (s *Session) Close() {
	s.cancel()
}

// tick announces the frame that just closed for issuing, advances the clock
// and sends everything queued.
func (s *Session) tick() {
	s.mu.Lock()
	info := netcmd.New(s.frame+s.opts.RunAhead, s.opts.PlayerID, s.ids.NextID(),
		&netcmd.FrameInfo{CommandCount: s.issued})
	ref := netcmd.NewCommandRef(info, s.opts.Relay)
	if err := s.out.Queue(ref); err != nil {
		util.LogError("[player %d] failed to queue frame info: %v", s.opts.PlayerID, err)
	}
	ref.Release()
	s.frame++
	s.issued = 0
	s.mu.Unlock()

	s.flush()
}

// flush sends every sealed datagram. The outbox lock is not held while
// sending, since Send may block on backpressure.
func (s *Session) flush() {
	s.mu.Lock()
	datagrams := s.out.Flush()
	s.mu.Unlock()

	for _, d := range datagrams {
		if err := s.link.Send(d.Data); err != nil {
			util.LogDebug("[player %d] send failed: %v", s.opts.PlayerID, err)
			return
		}
		util.Stats.AddSent(len(d.Data), d.Commands)
		s.opts.Metrics.Packet(metrics.Sent, len(d.Data))
		s.tap(capture.Outgoing, d.Data)
	}
}

func (s *Session) receive(data []byte) {
	s.tap(capture.Incoming, data)

	cmds, err := s.in.Feed(data)
	if err != nil {
		util.Stats.AddDecodeError()
		util.LogWarning("[player %d] dropping %d-byte packet: %v", s.opts.PlayerID, len(data), err)
		return
	}
	util.Stats.AddRecv(len(data), len(cmds))
	s.opts.Metrics.Packet(metrics.Received, len(data))

	s.mu.Lock()
	for _, cmd := range cmds {
		if !needsAck(cmd.Kind()) {
			continue
		}
		ack := netcmd.NewAck(netcmd.KindAckBoth, netcmd.AckInfo{
			CommandID:        cmd.ID,
			OriginalPlayerID: cmd.PlayerID,
		})
		ref := netcmd.NewCommandRef(netcmd.New(0, s.opts.PlayerID, 0, ack), s.opts.Relay)
		if err := s.out.Queue(ref); err != nil {
			util.LogError("[player %d] failed to queue ack for %d: %v", s.opts.PlayerID, cmd.ID, err)
		}
		ref.Release()
	}
	s.mu.Unlock()

	if s.opts.OnCommand != nil {
		for _, cmd := range cmds {
			s.opts.OnCommand(cmd)
		}
	}
}

func (s *Session) tap(dir capture.Direction, data []byte) {
	if s.opts.Tap == nil {
		return
	}
	if err := s.opts.Tap.Write(dir, data); err != nil {
		util.LogWarning("capture write failed: %v", err)
	}
}

// cleanup runs once, whichever way Run exits: it sends what is still queued
// while the link may still be up.
func (s *Session) cleanup() {
	s.closeOnce.Do(func() {
		select {
		case <-s.link.Done():
		default:
			s.flush()
		}
		s.cancel()
		util.LogDebug("[player %d] session closed at frame %d", s.opts.PlayerID, s.Frame())
	})
}
