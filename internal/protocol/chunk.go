package protocol

import "github.com/1ureka/lockstep/internal/netcmd"

// IDSource hands out fresh command ids for wrapper commands.
type IDSource interface {
	NextID() uint16
}

// Chunk is one (offset, length) slice of a chunked blob.
type Chunk struct {
	Offset int
	Length int
}

// ChunkOverhead is the full encoding of a Wrapper with no data bytes: the
// space every chunk loses to its own header and chunk metadata.
func ChunkOverhead() int {
	empty := &netcmd.Command{Body: &netcmd.Wrapper{}}
	return empty.FullSize()
}

// ChunkLayout partitions [0,total) into consecutive chunks of chunkSize bytes,
// the last one possibly shorter.
func ChunkLayout(total, chunkSize int) []Chunk {
	if total <= 0 || chunkSize <= 0 {
		return nil
	}
	out := make([]Chunk, 0, (total+chunkSize-1)/chunkSize)
	for off := 0; off < total; off += chunkSize {
		out = append(out, Chunk{Offset: off, Length: min(chunkSize, total-off)})
	}
	return out
}

// Split wraps the full encoding of the command behind ref into a series of
// Wrapper commands, one per packet of at most maxPacketSize bytes. Each
// wrapper takes a fresh id from ids and the player and relay of the source.
//
// Only commands that carry an id can be split: the id is how receivers tie
// the chunks back together.
func Split(ref *netcmd.CommandRef, ids IDSource, maxPacketSize int) ([]*Packet, error) {
	cmd := ref.Command()
	if !cmd.Kind().NeedsID() {
		return nil, netcmd.Precondition("cannot split %s: kind carries no id", cmd.Kind())
	}
	if maxPacketSize <= 0 {
		maxPacketSize = MaxPacketSize
	}
	chunkSize := maxPacketSize - ChunkOverhead()
	if chunkSize <= 0 {
		return nil, netcmd.Precondition("packet size %d cannot hold a wrapper", maxPacketSize)
	}

	blob := netcmd.EncodeFull(ref)
	layout := ChunkLayout(len(blob), chunkSize)
	packets := make([]*Packet, 0, len(layout))
	for i, c := range layout {
		w := &netcmd.Wrapper{
			WrappedCommandID: cmd.ID,
			ChunkNumber:      uint32(i),
			NumChunks:        uint32(len(layout)),
			TotalDataLength:  uint32(len(blob)),
			DataOffset:       uint32(c.Offset),
			Data:             blob[c.Offset : c.Offset+c.Length],
		}
		wref := netcmd.NewCommandRef(netcmd.New(0, cmd.PlayerID, ids.NextID(), w), ref.Relay())
		p := NewPacketSize(maxPacketSize)
		ok := p.AddCommand(wref)
		wref.Release()
		if !ok {
			for _, done := range packets {
				done.Reset()
			}
			return nil, netcmd.Precondition("chunk %d of %d does not fit in %d bytes", i, len(layout), maxPacketSize)
		}
		packets = append(packets, p)
	}
	return packets, nil
}
