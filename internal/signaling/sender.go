package signaling

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/1ureka/lockstep/internal/transport"
)

// sender serializes outgoing signaling messages on the WebSocket. ICE
// callbacks and the receiver loop both write, hence the mutex.
type sender struct {
	tr   *transport.Transport
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *sender) send(msg message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// sendHello introduces the local peer: its player id and the packet size
// it builds against. The host also assigns the session id.
func (s *sender) sendHello(session string, opts Options) error {
	return s.send(message{
		Type:      msgTypeHello,
		Session:   session,
		Player:    opts.Player,
		MaxPacket: opts.maxPacket(),
	})
}

// sendOffer creates an SDP offer, applies it locally and sends it.
func (s *sender) sendOffer() error {
	offer, err := s.tr.CreateOffer()
	if err != nil {
		return err
	}
	if err := s.tr.SetLocalDescription(offer); err != nil {
		return err
	}
	return s.send(message{Type: msgTypeOffer, SDP: offer.SDP})
}

// sendAnswer creates an SDP answer, applies it locally and sends it.
func (s *sender) sendAnswer() error {
	answer, err := s.tr.CreateAnswer()
	if err != nil {
		return err
	}
	if err := s.tr.SetLocalDescription(answer); err != nil {
		return err
	}
	return s.send(message{Type: msgTypeAnswer, SDP: answer.SDP})
}

func (s *sender) sendCandidate(candidate string) error {
	return s.send(message{Type: msgTypeCandidate, Candidate: candidate})
}
