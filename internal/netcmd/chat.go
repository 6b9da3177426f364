package netcmd

import (
	"golang.org/x/text/encoding/unicode"

	"github.com/1ureka/lockstep/internal/wire"
)

// MaxTextUnits is the most UTF-16 code units a chat line can carry; the
// length prefix is a single byte.
const MaxTextUnits = 255

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encodeText converts s to UTF-16LE, truncated to MaxTextUnits code units
// without splitting a surrogate pair.
func encodeText(s string) []byte {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil
	}
	if len(b) > 2*MaxTextUnits {
		b = b[:2*MaxTextUnits]
		// drop a dangling high surrogate
		if hi := uint16(b[len(b)-2]) | uint16(b[len(b)-1])<<8; hi >= 0xD800 && hi < 0xDC00 {
			b = b[:len(b)-2]
		}
	}
	return b
}

// TruncateText returns s as it will read after a round trip through a chat
// payload.
func TruncateText(s string) string {
	out, err := decodeText(encodeText(s))
	if err != nil {
		return ""
	}
	return out
}

func decodeText(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func writeText(e *wire.Encoder, s string) {
	b := encodeText(s)
	e.WriteByte(uint8(len(b) / 2))
	e.WriteBytes(b)
}

func readText(d *wire.Decoder) (string, error) {
	n, err := d.ReadByte()
	if err != nil {
		return "", err
	}
	b, err := d.ReadBytes(2 * int(n))
	if err != nil {
		return "", err
	}
	return decodeText(b)
}

// Chat is an in-game chat line addressed to the players in PlayerMask.
type Chat struct {
	Text       string
	PlayerMask int32
}

func (*Chat) Kind() Kind { return KindChat }

func (b *Chat) payloadSize() int { return 1 + len(encodeText(b.Text)) + 4 }

func (b *Chat) encodePayload(e *wire.Encoder) {
	writeText(e, b.Text)
	e.WriteInt32(b.PlayerMask)
}

func (b *Chat) decodePayload(d *wire.Decoder) (err error) {
	if b.Text, err = readText(d); err != nil {
		return err
	}
	b.PlayerMask, err = d.ReadInt32()
	return err
}

// DisconnectChat is a chat line sent from the disconnect screen.
type DisconnectChat struct {
	Text string
}

func (*DisconnectChat) Kind() Kind                      { return KindDisconnectChat }
func (b *DisconnectChat) payloadSize() int              { return 1 + len(encodeText(b.Text)) }
func (b *DisconnectChat) encodePayload(e *wire.Encoder) { writeText(e, b.Text) }

func (b *DisconnectChat) decodePayload(d *wire.Decoder) (err error) {
	b.Text, err = readText(d)
	return err
}
