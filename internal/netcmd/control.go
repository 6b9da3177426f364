package netcmd

import "github.com/1ureka/lockstep/internal/wire"

// FrameInfo closes a frame for one player: CommandCount is how many commands
// that player issued for the frame.
type FrameInfo struct {
	CommandCount uint16
}

func (*FrameInfo) Kind() Kind                      { return KindFrameInfo }
func (*FrameInfo) payloadSize() int                { return 2 }
func (b *FrameInfo) encodePayload(e *wire.Encoder) { e.WriteUint16(b.CommandCount) }

func (b *FrameInfo) decodePayload(d *wire.Decoder) (err error) {
	b.CommandCount, err = d.ReadUint16()
	return err
}

// PlayerLeave announces that a player left the game.
type PlayerLeave struct {
	LeavingPlayerID uint8
}

func (*PlayerLeave) Kind() Kind                      { return KindPlayerLeave }
func (*PlayerLeave) payloadSize() int                { return 1 }
func (b *PlayerLeave) encodePayload(e *wire.Encoder) { e.WriteByte(b.LeavingPlayerID) }

func (b *PlayerLeave) decodePayload(d *wire.Decoder) (err error) {
	b.LeavingPlayerID, err = d.ReadByte()
	return err
}

// RunAheadMetrics reports a player's measured latency and frame rate.
type RunAheadMetrics struct {
	AverageLatency float32 // seconds
	AverageFPS     uint16
}

func (*RunAheadMetrics) Kind() Kind       { return KindRunAheadMetrics }
func (*RunAheadMetrics) payloadSize() int { return 4 + 2 }

func (b *RunAheadMetrics) encodePayload(e *wire.Encoder) {
	e.WriteFloat32(b.AverageLatency)
	e.WriteUint16(b.AverageFPS)
}

func (b *RunAheadMetrics) decodePayload(d *wire.Decoder) (err error) {
	if b.AverageLatency, err = d.ReadFloat32(); err != nil {
		return err
	}
	b.AverageFPS, err = d.ReadUint16()
	return err
}

// RunAhead changes the number of frames commands are scheduled ahead.
type RunAhead struct {
	Frames    uint16
	FrameRate uint8
}

func (*RunAhead) Kind() Kind       { return KindRunAhead }
func (*RunAhead) payloadSize() int { return 2 + 1 }

func (b *RunAhead) encodePayload(e *wire.Encoder) {
	e.WriteUint16(b.Frames)
	e.WriteByte(b.FrameRate)
}

func (b *RunAhead) decodePayload(d *wire.Decoder) (err error) {
	if b.Frames, err = d.ReadUint16(); err != nil {
		return err
	}
	b.FrameRate, err = d.ReadByte()
	return err
}

type DestroyPlayer struct {
	PlayerIndex uint32
}

func (*DestroyPlayer) Kind() Kind                      { return KindDestroyPlayer }
func (*DestroyPlayer) payloadSize() int                { return 4 }
func (b *DestroyPlayer) encodePayload(e *wire.Encoder) { e.WriteUint32(b.PlayerIndex) }

func (b *DestroyPlayer) decodePayload(d *wire.Decoder) (err error) {
	b.PlayerIndex, err = d.ReadUint32()
	return err
}

// DisconnectPlayer announces that slot was dropped at DisconnectFrame.
type DisconnectPlayer struct {
	Slot            uint8
	DisconnectFrame uint32
}

func (*DisconnectPlayer) Kind() Kind       { return KindDisconnectPlayer }
func (*DisconnectPlayer) payloadSize() int { return 1 + 4 }

func (b *DisconnectPlayer) encodePayload(e *wire.Encoder) {
	e.WriteByte(b.Slot)
	e.WriteUint32(b.DisconnectFrame)
}

func (b *DisconnectPlayer) decodePayload(d *wire.Decoder) (err error) {
	if b.Slot, err = d.ReadByte(); err != nil {
		return err
	}
	b.DisconnectFrame, err = d.ReadUint32()
	return err
}

// DisconnectVote is a vote to drop slot, cast at VoteFrame.
type DisconnectVote struct {
	Slot      uint8
	VoteFrame uint32
}

func (*DisconnectVote) Kind() Kind       { return KindDisconnectVote }
func (*DisconnectVote) payloadSize() int { return 1 + 4 }

func (b *DisconnectVote) encodePayload(e *wire.Encoder) {
	e.WriteByte(b.Slot)
	e.WriteUint32(b.VoteFrame)
}

func (b *DisconnectVote) decodePayload(d *wire.Decoder) (err error) {
	if b.Slot, err = d.ReadByte(); err != nil {
		return err
	}
	b.VoteFrame, err = d.ReadUint32()
	return err
}

// Progress reports map load progress in percent.
type Progress struct {
	Percentage uint8
}

func (*Progress) Kind() Kind                      { return KindProgress }
func (*Progress) payloadSize() int                { return 1 }
func (b *Progress) encodePayload(e *wire.Encoder) { e.WriteByte(b.Percentage) }

func (b *Progress) decodePayload(d *wire.Decoder) (err error) {
	b.Percentage, err = d.ReadByte()
	return err
}

type DisconnectFrame struct {
	Frame uint32
}

func (*DisconnectFrame) Kind() Kind                      { return KindDisconnectFrame }
func (*DisconnectFrame) payloadSize() int                { return 4 }
func (b *DisconnectFrame) encodePayload(e *wire.Encoder) { e.WriteUint32(b.Frame) }

func (b *DisconnectFrame) decodePayload(d *wire.Decoder) (err error) {
	b.Frame, err = d.ReadUint32()
	return err
}

type DisconnectScreenOff struct {
	NewFrame uint32
}

func (*DisconnectScreenOff) Kind() Kind                      { return KindDisconnectScreenOff }
func (*DisconnectScreenOff) payloadSize() int                { return 4 }
func (b *DisconnectScreenOff) encodePayload(e *wire.Encoder) { e.WriteUint32(b.NewFrame) }

func (b *DisconnectScreenOff) decodePayload(d *wire.Decoder) (err error) {
	b.NewFrame, err = d.ReadUint32()
	return err
}

// FrameResendRequest asks peers to resend everything from FrameToResend on.
type FrameResendRequest struct {
	FrameToResend uint32
}

func (*FrameResendRequest) Kind() Kind                      { return KindFrameResendRequest }
func (*FrameResendRequest) payloadSize() int                { return 4 }
func (b *FrameResendRequest) encodePayload(e *wire.Encoder) { e.WriteUint32(b.FrameToResend) }

func (b *FrameResendRequest) decodePayload(d *wire.Decoder) (err error) {
	b.FrameToResend, err = d.ReadUint32()
	return err
}

// empty is embedded by the kinds whose payload is empty.
type empty struct{}

func (empty) payloadSize() int                  { return 0 }
func (empty) encodePayload(*wire.Encoder)       {}
func (empty) decodePayload(*wire.Decoder) error { return nil }

type KeepAlive struct{ empty }
type DisconnectKeepAlive struct{ empty }
type PacketRouterQuery struct{ empty }
type PacketRouterAck struct{ empty }
type LoadComplete struct{ empty }
type TimeOutGameStart struct{ empty }

func (*KeepAlive) Kind() Kind           { return KindKeepAlive }
func (*DisconnectKeepAlive) Kind() Kind { return KindDisconnectKeepAlive }
func (*PacketRouterQuery) Kind() Kind   { return KindPacketRouterQuery }
func (*PacketRouterAck) Kind() Kind     { return KindPacketRouterAck }
func (*LoadComplete) Kind() Kind        { return KindLoadComplete }
func (*TimeOutGameStart) Kind() Kind    { return KindTimeOutGameStart }
