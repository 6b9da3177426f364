package netcmd

import (
	"bytes"
	"fmt"
	"reflect"
	"slices"

	"github.com/1ureka/lockstep/internal/wire"
)

// payloadDecoder is implemented by every Body.
type payloadDecoder interface {
	Body
	decodePayload(d *wire.Decoder) error
}

// Validate reports whether body encodes without loss. Bodies with no
// constraints always pass.
func Validate(body Body) error {
	v, ok := body.(interface{ Validate() error })
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%s: %w", body.Kind(), err)
	}
	return nil
}

// newBody returns a zero body for k, or nil when k is outside the set.
func newBody(k Kind) payloadDecoder {
	switch k {
	case KindGameCommand:
		return &GameCommand{}
	case KindAckBoth:
		return &AckBoth{}
	case KindAckStage1:
		return &AckStage1{}
	case KindAckStage2:
		return &AckStage2{}
	case KindFrameInfo:
		return &FrameInfo{}
	case KindPlayerLeave:
		return &PlayerLeave{}
	case KindRunAheadMetrics:
		return &RunAheadMetrics{}
	case KindRunAhead:
		return &RunAhead{}
	case KindDestroyPlayer:
		return &DestroyPlayer{}
	case KindKeepAlive:
		return &KeepAlive{}
	case KindDisconnectKeepAlive:
		return &DisconnectKeepAlive{}
	case KindDisconnectPlayer:
		return &DisconnectPlayer{}
	case KindPacketRouterQuery:
		return &PacketRouterQuery{}
	case KindPacketRouterAck:
		return &PacketRouterAck{}
	case KindDisconnectChat:
		return &DisconnectChat{}
	case KindChat:
		return &Chat{}
	case KindDisconnectVote:
		return &DisconnectVote{}
	case KindProgress:
		return &Progress{}
	case KindWrapper:
		return &Wrapper{}
	case KindFile:
		return &File{}
	case KindFileAnnounce:
		return &FileAnnounce{}
	case KindFileProgress:
		return &FileProgress{}
	case KindDisconnectFrame:
		return &DisconnectFrame{}
	case KindDisconnectScreenOff:
		return &DisconnectScreenOff{}
	case KindFrameResendRequest:
		return &FrameResendRequest{}
	case KindLoadComplete:
		return &LoadComplete{}
	case KindTimeOutGameStart:
		return &TimeOutGameStart{}
	}
	return nil
}

// DecodeBody reads the payload of a kind-k command from d. Running out of
// bytes or an inconsistent payload yields ErrMalformedPacket; a kind outside
// the closed set yields ErrUnknownCommandType.
func DecodeBody(k Kind, d *wire.Decoder) (Body, error) {
	start := d.Position()
	b := newBody(k)
	if b == nil {
		return nil, UnknownType(start, uint8(k))
	}
	if err := b.decodePayload(d); err != nil {
		return nil, Malformed(start, err, "%s payload", k)
	}
	return b, nil
}

// cloneBody deep-copies the byte and argument slices of a body.
func cloneBody(b Body) Body {
	switch v := b.(type) {
	case nil:
		return nil
	case *GameCommand:
		c := *v
		c.Args = slices.Clone(v.Args)
		return &c
	case *Wrapper:
		c := *v
		c.Data = bytes.Clone(v.Data)
		return &c
	case *File:
		c := *v
		c.Data = bytes.Clone(v.Data)
		return &c
	}
	// every other body is a flat value
	nb := newBody(b.Kind())
	if nb == nil {
		return b
	}
	reflect.ValueOf(nb).Elem().Set(reflect.ValueOf(b).Elem())
	return nb
}
