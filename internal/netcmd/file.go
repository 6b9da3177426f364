package netcmd

import (
	"strings"

	"github.com/1ureka/lockstep/internal/wire"
)

// MaxFilenameLen bounds filenames carried by File and FileAnnounce,
// terminator excluded.
const MaxFilenameLen = 255

// clampFilename cuts s at the first NUL and at MaxFilenameLen bytes.
func clampFilename(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) > MaxFilenameLen {
		return s[:MaxFilenameLen]
	}
	return s
}

// File carries a whole file in one command. Large files travel inside
// Wrapper chunks.
type File struct {
	Filename string
	Data     []byte
}

func (*File) Kind() Kind { return KindFile }

func (b *File) payloadSize() int {
	return len(clampFilename(b.Filename)) + 1 + 4 + len(b.Data)
}

func (b *File) encodePayload(e *wire.Encoder) {
	e.WriteCString(clampFilename(b.Filename))
	e.WriteUint32(uint32(len(b.Data)))
	e.WriteBytes(b.Data)
}

func (b *File) decodePayload(d *wire.Decoder) (err error) {
	if b.Filename, err = d.ReadCString(MaxFilenameLen); err != nil {
		return err
	}
	n, err := d.ReadUint32()
	if err != nil {
		return err
	}
	b.Data, err = readData(d, int(n))
	return err
}

// FileAnnounce tells the players in PlayerMask that FileID is about to be sent.
type FileAnnounce struct {
	Filename   string
	FileID     uint16
	PlayerMask uint8
}

func (*FileAnnounce) Kind() Kind { return KindFileAnnounce }

func (b *FileAnnounce) payloadSize() int {
	return len(clampFilename(b.Filename)) + 1 + 2 + 1
}

func (b *FileAnnounce) encodePayload(e *wire.Encoder) {
	e.WriteCString(clampFilename(b.Filename))
	e.WriteUint16(b.FileID)
	e.WriteByte(b.PlayerMask)
}

func (b *FileAnnounce) decodePayload(d *wire.Decoder) (err error) {
	if b.Filename, err = d.ReadCString(MaxFilenameLen); err != nil {
		return err
	}
	if b.FileID, err = d.ReadUint16(); err != nil {
		return err
	}
	b.PlayerMask, err = d.ReadByte()
	return err
}

// FileProgress reports how far the receiver got with FileID.
type FileProgress struct {
	FileID   uint16
	Progress int32
}

func (*FileProgress) Kind() Kind       { return KindFileProgress }
func (*FileProgress) payloadSize() int { return 2 + 4 }

func (b *FileProgress) encodePayload(e *wire.Encoder) {
	e.WriteUint16(b.FileID)
	e.WriteInt32(b.Progress)
}

func (b *FileProgress) decodePayload(d *wire.Decoder) (err error) {
	if b.FileID, err = d.ReadUint16(); err != nil {
		return err
	}
	b.Progress, err = d.ReadInt32()
	return err
}

// readData reads n raw bytes; zero-length data decodes as nil.
func readData(d *wire.Decoder, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	return d.ReadBytes(n)
}
