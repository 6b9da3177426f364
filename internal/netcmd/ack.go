package netcmd

import "github.com/1ureka/lockstep/internal/wire"

// AckInfo is the payload shared by the three acknowledgement kinds.
type AckInfo struct {
	CommandID        uint16 // id of the command being acknowledged
	OriginalPlayerID uint8  // player that issued it
}

// Info returns the acknowledgement payload.
func (a *AckInfo) Info() AckInfo { return *a }

// SetInfo replaces the acknowledgement payload.
func (a *AckInfo) SetInfo(i AckInfo) { *a = i }

func (a *AckInfo) payloadSize() int { return 2 + 1 }

func (a *AckInfo) encodePayload(e *wire.Encoder) {
	e.WriteUint16(a.CommandID)
	e.WriteByte(a.OriginalPlayerID)
}

func (a *AckInfo) decodePayload(d *wire.Decoder) (err error) {
	if a.CommandID, err = d.ReadUint16(); err != nil {
		return err
	}
	a.OriginalPlayerID, err = d.ReadByte()
	return err
}

// Acknowledgement is implemented by *AckBoth, *AckStage1 and *AckStage2.
type Acknowledgement interface {
	Body
	Info() AckInfo
	SetInfo(AckInfo)
}

// AckBoth acknowledges both delivery stages at once.
type AckBoth struct{ AckInfo }

// AckStage1 acknowledges that a command reached the relay.
type AckStage1 struct{ AckInfo }

// AckStage2 acknowledges that a command reached every destination.
type AckStage2 struct{ AckInfo }

func (*AckBoth) Kind() Kind   { return KindAckBoth }
func (*AckStage1) Kind() Kind { return KindAckStage1 }
func (*AckStage2) Kind() Kind { return KindAckStage2 }

// NewAck returns the acknowledgement body of kind k, or nil when k is
// not an ack kind.
func NewAck(k Kind, info AckInfo) Acknowledgement {
	switch k {
	case KindAckBoth:
		return &AckBoth{info}
	case KindAckStage1:
		return &AckStage1{info}
	case KindAckStage2:
		return &AckStage2{info}
	}
	return nil
}
