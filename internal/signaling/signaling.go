// Package signaling runs the WebSocket handshake that opens the lockstep
// DataChannel between two peers. All WebSocket and SDP/ICE details are
// internal; callers receive a ready Transport plus the session identity.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/lockstep/internal/protocol"
	"github.com/1ureka/lockstep/internal/transport"
	"github.com/1ureka/lockstep/internal/util"
)

// PINLength is the number of digits in the host's join PIN.
const PINLength = 6

// Result is an established link.
type Result struct {
	Transport    *transport.Transport
	Session      uuid.UUID // chosen by the host, shared by both peers
	RemotePlayer uint8
}

// Announce is called once the host listens, with what a client needs to join.
type Announce func(port int, pin string)

var (
	// ErrPlayerConflict means both peers claimed the same player id. Ids
	// key acknowledgements and chunk series, so they must differ.
	ErrPlayerConflict = errors.New("signaling: peer uses our player id")
	// ErrPacketSizeMismatch means the peers build packets against
	// different size limits.
	ErrPacketSizeMismatch = errors.New("signaling: peer uses a different packet size")
)

// Options describe the local peer.
type Options struct {
	Player  uint8
	Channel transport.ChannelOptions
}

func (o Options) maxPacket() int {
	if o.Channel.MaxDatagram <= 0 {
		return protocol.MaxPacketSize
	}
	return o.Channel.MaxDatagram
}

// checkPeer verifies the remote hello is compatible with opts.
func checkPeer(opts Options, hello message) error {
	if hello.Player == opts.Player {
		return fmt.Errorf("%w: %d", ErrPlayerConflict, hello.Player)
	}
	if hello.MaxPacket != opts.maxPacket() {
		return fmt.Errorf("%w: %d, ours %d", ErrPacketSizeMismatch, hello.MaxPacket, opts.maxPacket())
	}
	return nil
}

// Host runs the host side of the handshake:
//  1. listen on port and announce it with a fresh PIN
//  2. wait for the client to connect
//  3. exchange hellos, then SDP/ICE
//  4. check the client's hello against opts
//  5. return once the DataChannel is open
//
// The WebSocket is closed before Host returns.
func Host(ctx context.Context, port int, opts Options, announce Announce) (*Result, error) {
	pin := generatePIN(PINLength)
	srv := newServer(pin)
	bound, err := srv.start(port)
	if err != nil {
		return nil, err
	}
	defer srv.close()
	announce(bound, pin)

	wsConn, err := srv.waitForClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for client: %w", err)
	}
	defer wsConn.Close()
	util.LogInfo("client connected from %s", wsConn.RemoteAddr())

	tr, err := transport.NewTransport(ctx, opts.Channel)
	if err != nil {
		return nil, fmt.Errorf("failed to create Transport: %w", err)
	}
	session := uuid.New()
	s, hello, errCh := exchange(tr, wsConn)

	if err := s.sendHello(session.String(), opts); err != nil {
		tr.Close()
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}
	if err := s.sendOffer(); err != nil {
		tr.Close()
		return nil, fmt.Errorf("failed to send Offer: %w", err)
	}

	peer, err := waitHello(ctx, hello, errCh)
	if err != nil {
		tr.Close()
		return nil, err
	}
	if err := checkPeer(opts, peer); err != nil {
		tr.Close()
		return nil, err
	}
	if err := waitReady(ctx, tr, errCh); err != nil {
		return nil, err
	}
	return &Result{Transport: tr, Session: session, RemotePlayer: peer.Player}, nil
}

// Join runs the client side of the handshake against the host at wsURL
// (which carries the PIN as a query parameter). The client answers the
// host's hello even when the two are incompatible, so the host reports the
// same error.
func Join(ctx context.Context, wsURL string, opts Options) (*Result, error) {
	wsConn, err := connect(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer wsConn.Close()
	util.LogInfo("WS connected: %s", wsURL)

	tr, err := transport.NewTransport(ctx, opts.Channel)
	if err != nil {
		return nil, fmt.Errorf("failed to create Transport: %w", err)
	}
	s, hello, errCh := exchange(tr, wsConn)

	peer, err := waitHello(ctx, hello, errCh)
	if err != nil {
		tr.Close()
		return nil, err
	}
	session, err := uuid.Parse(peer.Session)
	if err != nil {
		tr.Close()
		return nil, fmt.Errorf("host sent invalid session id %q: %w", peer.Session, err)
	}
	if err := s.sendHello("", opts); err != nil {
		tr.Close()
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}
	if err := checkPeer(opts, peer); err != nil {
		tr.Close()
		return nil, err
	}

	if err := waitReady(ctx, tr, errCh); err != nil {
		return nil, err
	}
	return &Result{Transport: tr, Session: session, RemotePlayer: peer.Player}, nil
}

// exchange wires ICE forwarding and starts the receiver loop. The loop exits
// when wsConn is closed.
func exchange(tr *transport.Transport, wsConn *websocket.Conn) (*sender, <-chan message, <-chan error) {
	s := &sender{tr: tr, conn: wsConn}
	r := &receiver{tr: tr, conn: wsConn, sender: s, hello: make(chan message, 1)}

	tr.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil {
			data, _ := json.Marshal(c.ToJSON())
			// best-effort: a lost candidate only narrows the choice of paths
			_ = s.sendCandidate(string(data))
		}
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.watch()
	}()
	return s, r.hello, errCh
}

func waitHello(ctx context.Context, hello <-chan message, errCh <-chan error) (message, error) {
	select {
	case msg := <-hello:
		return msg, nil
	case err := <-errCh:
		return message{}, fmt.Errorf("signaling failed: %w", err)
	case <-ctx.Done():
		return message{}, ctx.Err()
	}
}

// waitReady waits for the DataChannel and closes tr on failure.
func waitReady(ctx context.Context, tr *transport.Transport, errCh <-chan error) error {
	select {
	case <-tr.Ready():
		util.LogSuccess("WebRTC DataChannel established, closing WS")
		return nil

	case err := <-errCh:
		tr.Close()
		return fmt.Errorf("signaling failed: %w", err)

	case <-ctx.Done():
		tr.Close()
		return ctx.Err()
	}
}
