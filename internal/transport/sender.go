package transport

import (
	"context"

	"github.com/pion/webrtc/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/1ureka/lockstep/internal/util"
)

const (
	highWaterMark  = 256 * 1024 // pause sending when bufferedAmount exceeds this
	lowWaterMark   = 64 * 1024  // resume sending when bufferedAmount drops below this
	sendBufferSize = 64         // outgoing datagram channel capacity
)

// sender serializes all writes to a single DataChannel, adding an open gate
// and backpressure control.
type sender struct {
	inbox       chan []byte
	drainSignal chan struct{}
	tracer      trace.Tracer
}

// newSender wires the backpressure callbacks on dc and starts the loop.
// The loop exits when ctx is cancelled.
func newSender(ctx context.Context, dc *webrtc.DataChannel, openSignal <-chan struct{}, tracer trace.Tracer) *sender {
	s := &sender{
		inbox:       make(chan []byte, sendBufferSize),
		drainSignal: make(chan struct{}, 1),
		tracer:      tracer,
	}

	dc.SetBufferedAmountLowThreshold(uint64(lowWaterMark))
	dc.OnBufferedAmountLow(func() {
		select {
		case s.drainSignal <- struct{}{}:
		default:
		}
	})

	go s.loop(ctx, dc, openSignal)

	return s
}

func (s *sender) loop(ctx context.Context, dc *webrtc.DataChannel, openSignal <-chan struct{}) {
	select {
	case <-openSignal:
	case <-ctx.Done():
		return
	}

	for {
		select {
		case data := <-s.inbox:
			if dc.BufferedAmount() > uint64(highWaterMark) {
				select {
				case <-s.drainSignal:
				case <-ctx.Done():
					return
				}
			}

			_, span := s.tracer.Start(ctx, "lockstep.send",
				trace.WithSpanKind(trace.SpanKindProducer),
				trace.WithAttributes(attribute.Int("lockstep.bytes", len(data))),
			)
			err := dc.Send(data)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.End()
				util.LogError("failed to send %d-byte packet: %v", len(data), err)
				return
			}
			span.SetStatus(codes.Ok, "")
			span.End()

		case <-ctx.Done():
			return
		}
	}
}

// send enqueues a datagram. It blocks while the buffer is full and gives up
// with ctx's error once ctx is cancelled.
func (s *sender) send(ctx context.Context, data []byte) error {
	select {
	case s.inbox <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
