package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send on a closed pipe.
var ErrClosed = errors.New("transport: pipe closed")

// Pipe is one end of an in-memory link with the same Send / OnDatagram /
// Done surface as Transport. Used for local sessions and tests.
type Pipe struct {
	peer *Pipe
	in   chan []byte

	mu sync.Mutex
	fn func([]byte)

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewPipe returns two connected ends. Closing either end, or cancelling
// ctx, closes both.
func NewPipe(ctx context.Context) (*Pipe, *Pipe) {
	ctx, cancel := context.WithCancel(ctx)
	a := &Pipe{in: make(chan []byte, sendBufferSize), ctx: ctx, cancel: cancel}
	b := &Pipe{in: make(chan []byte, sendBufferSize), ctx: ctx, cancel: cancel}
	a.peer, b.peer = b, a
	go a.deliver()
	go b.deliver()
	return a, b
}

func (p *Pipe) deliver() {
	for {
		select {
		case data := <-p.in:
			p.mu.Lock()
			fn := p.fn
			p.mu.Unlock()
			if fn != nil {
				fn(data)
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Send hands data to the other end, blocking while its buffer is full.
func (p *Pipe) Send(data []byte) error {
	select {
	case p.peer.in <- data:
		return nil
	case <-p.ctx.Done():
		return ErrClosed
	}
}

// OnDatagram sets the callback for data sent by the other end. Datagrams
// arriving before a callback is set are dropped.
func (p *Pipe) OnDatagram(fn func([]byte)) {
	p.mu.Lock()
	p.fn = fn
	p.mu.Unlock()
}

// Done is closed once the pipe is closed.
func (p *Pipe) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Close closes both ends.
func (p *Pipe) Close() error {
	p.once.Do(p.cancel)
	return nil
}
