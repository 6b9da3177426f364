package protocol

import (
	"errors"
	"testing"

	"github.com/1ureka/lockstep/internal/netcmd"
)

// TestDecodeErrors verifies malformed packets are rejected with the right class.
func TestDecodeErrors(t *testing.T) {
	keepAlive := []byte{'T', byte(netcmd.KindKeepAlive), 'P', 1, 'D'}
	ack := []byte{'T', byte(netcmd.KindAckBoth), 'D', 5, 0, 2}

	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{"unknown tag", []byte{'X'}, netcmd.ErrMalformedPacket},
		{"unknown tag after a command", append(append([]byte{}, keepAlive...), 0x00), netcmd.ErrMalformedPacket},
		{"type out of range", []byte{'T', 200, 'D'}, netcmd.ErrUnknownCommandType},
		{"type is the unset marker", []byte{'T', 0xFF, 'D'}, netcmd.ErrUnknownCommandType},
		{"header without data", []byte{'T', byte(netcmd.KindKeepAlive)}, netcmd.ErrMalformedPacket},
		{"trailing header fields", append(append([]byte{}, keepAlive...), 'R', 1), netcmd.ErrMalformedPacket},
		{"truncated frame field", []byte{'F', 1, 2}, netcmd.ErrMalformedPacket},
		{"truncated id field", []byte{'C', 1}, netcmd.ErrMalformedPacket},
		{"missing type value", []byte{'T'}, netcmd.ErrMalformedPacket},
		{"data before type", []byte{'D'}, netcmd.ErrMalformedPacket},
		{"repeat first", []byte{'Z'}, netcmd.ErrMalformedPacket},
		{"repeat of a keep-alive", append(append([]byte{}, keepAlive...), 'Z'), netcmd.ErrMalformedPacket},
		{"repeat after header fields", append(append([]byte{}, ack...), 'R', 1, 'Z'), netcmd.ErrMalformedPacket},
		{"truncated payload", []byte{'T', byte(netcmd.KindFrameInfo), 'D', 1}, netcmd.ErrMalformedPacket},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmds, err := Decode(tc.data)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if cmds != nil {
				t.Errorf("got %d commands alongside the error", len(cmds))
			}
			var pe *netcmd.ProtocolError
			if !errors.As(err, &pe) {
				t.Errorf("err %T is not a *ProtocolError", err)
			}
		})
	}
}

// TestDecodeDefaults verifies the documented starting state of the parser.
func TestDecodeDefaults(t *testing.T) {
	data := []byte{'T', byte(netcmd.KindFrameInfo), 'D', 0, 0}
	for i := 0; i < 2; i++ {
		refs, err := DecodeRefs(data)
		if err != nil {
			t.Fatalf("DecodeRefs failed: %v", err)
		}
		cmd := refs[0].Command()
		if cmd.ExecutionFrame != 0 || cmd.PlayerID != 0 || cmd.ID != 1 || refs[0].Relay() != 0 {
			t.Fatalf("decoded frame %d player %d id %d relay %d, want 0/0/1/0",
				cmd.ExecutionFrame, cmd.PlayerID, cmd.ID, refs[0].Relay())
		}
	}
}

// TestDecodeIDSequence verifies ids continue from the last 'C' field.
func TestDecodeIDSequence(t *testing.T) {
	data := []byte{
		'T', byte(netcmd.KindLoadComplete), 'C', 0xFF, 0xFF, 'D',
		'D',
		'T', byte(netcmd.KindKeepAlive), 'D',
		'T', byte(netcmd.KindLoadComplete), 'D',
	}
	cmds, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []uint16{0xFFFF, 0, 0, 1}
	for i, cmd := range cmds {
		if cmd.ID != want[i] {
			t.Errorf("command %d (%s): id %d, want %d", i, cmd.Kind(), cmd.ID, want[i])
		}
	}
}

// TestDecodeEmpty verifies an empty packet carries no commands.
func TestDecodeEmpty(t *testing.T) {
	cmds, err := Decode(nil)
	if err != nil || len(cmds) != 0 {
		t.Fatalf("Decode(nil) = %v, %v", cmds, err)
	}
}

// TestDecodeErrorOffset verifies errors point at the offending byte.
func TestDecodeErrorOffset(t *testing.T) {
	data := []byte{'T', byte(netcmd.KindKeepAlive), 'D', 'Q'}
	_, err := Decode(data)
	var pe *netcmd.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if pe.Offset != 3 {
		t.Errorf("Offset = %d, want 3", pe.Offset)
	}
}
