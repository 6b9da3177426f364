package netcmd

import (
	"errors"

	"github.com/1ureka/lockstep/internal/wire"
)

// WrapperOverhead is the size of the Wrapper payload with no data bytes.
const WrapperOverhead = 2 + 5*4

var (
	errChunkNumber = errors.New("chunk number out of range")
	errChunkCount  = errors.New("more chunks than data bytes")
	errChunkRange  = errors.New("chunk exceeds total data length")
)

// Wrapper carries one chunk of the full encoding of a command that did not
// fit in a single packet. Every chunk of a series shares WrappedCommandID,
// NumChunks and TotalDataLength.
type Wrapper struct {
	WrappedCommandID uint16
	ChunkNumber      uint32
	NumChunks        uint32
	TotalDataLength  uint32
	DataOffset       uint32
	Data             []byte
}

func (*Wrapper) Kind() Kind { return KindWrapper }

func (b *Wrapper) payloadSize() int { return WrapperOverhead + len(b.Data) }

func (b *Wrapper) encodePayload(e *wire.Encoder) {
	e.WriteUint16(b.WrappedCommandID)
	e.WriteUint32(b.ChunkNumber)
	e.WriteUint32(b.NumChunks)
	e.WriteUint32(b.TotalDataLength)
	e.WriteUint32(uint32(len(b.Data)))
	e.WriteUint32(b.DataOffset)
	e.WriteBytes(b.Data)
}

func (b *Wrapper) decodePayload(d *wire.Decoder) (err error) {
	if b.WrappedCommandID, err = d.ReadUint16(); err != nil {
		return err
	}
	if b.ChunkNumber, err = d.ReadUint32(); err != nil {
		return err
	}
	if b.NumChunks, err = d.ReadUint32(); err != nil {
		return err
	}
	if b.TotalDataLength, err = d.ReadUint32(); err != nil {
		return err
	}
	n, err := d.ReadUint32()
	if err != nil {
		return err
	}
	if b.DataOffset, err = d.ReadUint32(); err != nil {
		return err
	}
	if b.ChunkNumber >= b.NumChunks {
		return errChunkNumber
	}
	if b.NumChunks > max(b.TotalDataLength, 1) {
		return errChunkCount
	}
	if uint64(b.DataOffset)+uint64(n) > uint64(b.TotalDataLength) {
		return errChunkRange
	}
	b.Data, err = readData(d, int(n))
	return err
}

// End returns the offset one past the last byte this chunk covers.
func (b *Wrapper) End() uint32 {
	return b.DataOffset + uint32(len(b.Data))
}
