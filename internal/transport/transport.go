// Package transport carries lockstep packets between two peers over a
// WebRTC DataChannel.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/1ureka/lockstep/internal/util"
)

// TracerName is the OpenTelemetry tracer used for send and receive spans.
const TracerName = "github.com/1ureka/lockstep/internal/transport"

// ErrDatagramTooLarge is returned by Send for a datagram over the channel's
// MaxDatagram.
var ErrDatagramTooLarge = errors.New("transport: datagram exceeds the packet size limit")

// Transport wraps a single PeerConnection + DataChannel pair: signaling
// exchange, datagram sending with backpressure and datagram receiving.
//
// Its lifecycle is governed by the DataChannel state and the context passed
// at construction time. The PeerConnection state is recorded but does not
// drive open/close decisions.
type Transport struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	sender      *sender
	maxDatagram int
	openSignal  chan struct{}
	tracer      trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	pcState webrtc.PeerConnectionState
}

// NewTransport creates a Transport backed by a new PeerConnection and a
// pre-negotiated DataChannel. The caller performs signaling through the
// exposed methods (CreateOffer / CreateAnswer / ...) and then uses Send and
// OnDatagram.
//
// The Transport is alive as long as the DataChannel is open and ctx has not
// been cancelled.
func NewTransport(ctx context.Context, opts ChannelOptions) (*Transport, error) {
	pc, err := newPeerConnection(opts)
	if err != nil {
		return nil, err
	}

	dc, err := newDataChannel(pc, opts)
	if err != nil {
		pc.Close()
		return nil, err
	}

	tCtx, tCancel := context.WithCancel(ctx)

	t := &Transport{
		pc:          pc,
		dc:          dc,
		maxDatagram: opts.maxDatagram(),
		openSignal:  make(chan struct{}),
		tracer:      otel.Tracer(TracerName),
		ctx:         tCtx,
		cancel:      tCancel,
		pcState:     webrtc.PeerConnectionStateNew,
	}

	var openOnce sync.Once
	dc.OnOpen(func() {
		openOnce.Do(func() { close(t.openSignal) })
	})

	dc.OnClose(func() {
		util.LogInfo("DataChannel closed")
		tCancel()
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		t.mu.Lock()
		t.pcState = state
		t.mu.Unlock()
	})

	t.sender = newSender(tCtx, dc, t.openSignal, t.tracer)

	return t, nil
}

// Ready returns a channel that is closed when the DataChannel is open.
func (t *Transport) Ready() <-chan struct{} {
	return t.openSignal
}

// Done returns a channel that is closed when the Transport is shut down
// (DataChannel closed or parent context cancelled).
func (t *Transport) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Close shuts down the DataChannel and PeerConnection.
func (t *Transport) Close() error {
	t.cancel()
	return errors.Join(t.dc.Close(), t.pc.Close())
}

// ConnectionState returns the last observed PeerConnection state.
func (t *Transport) ConnectionState() webrtc.PeerConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pcState
}

// CreateOffer generates an SDP offer.
func (t *Transport) CreateOffer() (webrtc.SessionDescription, error) {
	return t.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (t *Transport) CreateAnswer() (webrtc.SessionDescription, error) {
	return t.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (t *Transport) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetLocalDescription(sdp)
}

// SetRemoteDescription applies the remote SDP.
func (t *Transport) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return t.pc.SetRemoteDescription(sdp)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (t *Transport) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	t.pc.OnICECandidate(fn)
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (t *Transport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(candidate)
}

// Send enqueues one encoded packet. The slice must not be modified after
// the call.
func (t *Transport) Send(data []byte) error {
	if len(data) > t.maxDatagram {
		return fmt.Errorf("%w: %d > %d bytes", ErrDatagramTooLarge, len(data), t.maxDatagram)
	}
	return t.sender.send(t.ctx, data)
}

// OnDatagram registers a callback invoked for every inbound DataChannel
// message, inside a receive span.
func (t *Transport) OnDatagram(fn func([]byte)) {
	t.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		_, span := t.tracer.Start(t.ctx, "lockstep.receive",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(attribute.Int("lockstep.bytes", len(msg.Data))),
		)
		defer span.End()
		fn(msg.Data)
	})
}
