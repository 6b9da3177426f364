package protocol

import (
	"errors"
	"testing"

	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/netcmd/netcmdtest"
)

// FuzzDecode tests that decoding arbitrary bytes doesn't panic and that every
// failure is a classified protocol error.
func FuzzDecode(f *testing.F) {
	// Seed with a packet of every kind and a few repeat runs
	p := NewPacketSize(4096)
	for _, cmd := range netcmdtest.Commands() {
		p.AddCommand(netcmd.NewCommandRef(cmd, 1))
	}
	f.Add(append([]byte(nil), p.Bytes()...))
	p.Reset()

	for i := 0; i < 4; i++ {
		p.AddCommand(netcmd.NewCommandRef(netcmd.New(uint32(10+i), 1, uint16(3+i), &netcmd.FrameInfo{}), 2))
	}
	f.Add(append([]byte(nil), p.Bytes()...))
	p.Reset()

	f.Add([]byte{'Z'})
	f.Add([]byte{'T', 0xFF, 'D'})

	f.Fuzz(func(t *testing.T, data []byte) {
		cmds, err := Decode(data)
		if err != nil {
			var pe *netcmd.ProtocolError
			if !errors.As(err, &pe) {
				t.Fatalf("unclassified error %T: %v", err, err)
			}
			return
		}
		// Whatever decodes must encode again.
		out := NewPacketSize(len(data)*16 + 64)
		for _, cmd := range cmds {
			if !out.AddCommand(netcmd.NewCommandRef(cmd, 0)) {
				t.Fatalf("re-encoding %s failed", cmd.Kind())
			}
		}
		out.Reset()
	})
}
