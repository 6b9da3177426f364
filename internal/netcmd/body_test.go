package netcmd_test

import (
	"errors"
	"testing"

	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/netcmd/netcmdtest"
	"github.com/1ureka/lockstep/internal/wire"
)

// TestSampleBodiesCoverEveryKind keeps the shared samples in sync with Kinds.
func TestSampleBodiesCoverEveryKind(t *testing.T) {
	bodies := netcmdtest.Bodies()
	if len(bodies) != len(netcmd.Kinds()) {
		t.Fatalf("got %d sample bodies, want %d", len(bodies), len(netcmd.Kinds()))
	}
	for i, b := range bodies {
		if b.Kind() != netcmd.Kind(i) {
			t.Errorf("sample %d has kind %s", i, b.Kind())
		}
	}
}

// TestPayloadRoundTrip encodes every kind and decodes its payload back.
func TestPayloadRoundTrip(t *testing.T) {
	for _, cmd := range netcmdtest.Commands() {
		t.Run(cmd.Kind().String(), func(t *testing.T) {
			full := cmd.AppendFull(nil, 1)

			// Skip the header; the payload starts right after it.
			hdr := netcmd.HeaderSize(cmd.PreferredSelect())
			if full[hdr-1] != netcmd.TagData {
				t.Fatalf("byte before payload = %q, want 'D'", full[hdr-1])
			}
			if len(full)-hdr != cmd.PayloadSize() {
				t.Fatalf("payload is %d bytes, PayloadSize says %d", len(full)-hdr, cmd.PayloadSize())
			}

			d := wire.NewDecoder(full[hdr:])
			body, err := netcmd.DecodeBody(cmd.Kind(), d)
			if err != nil {
				t.Fatalf("DecodeBody failed: %v", err)
			}
			if !d.EOF() {
				t.Errorf("%d bytes left after payload", d.Remaining())
			}
			decoded := &netcmd.Command{Header: cmd.Meaningful(), Body: body}
			if !cmd.Equal(decoded) {
				t.Errorf("decoded %+v, want %+v", body, cmd.Body)
			}
		})
	}
}

// TestDecodeBodyTruncated verifies every truncation of a payload is rejected.
func TestDecodeBodyTruncated(t *testing.T) {
	for _, cmd := range netcmdtest.Commands() {
		payload := cmd.AppendFull(nil, 0)[netcmd.HeaderSize(cmd.PreferredSelect()):]
		for n := 0; n < len(payload); n++ {
			_, err := netcmd.DecodeBody(cmd.Kind(), wire.NewDecoder(payload[:n]))
			if !errors.Is(err, netcmd.ErrMalformedPacket) {
				t.Errorf("%s truncated to %d: err = %v, want ErrMalformedPacket", cmd.Kind(), n, err)
			}
		}
	}
}

// TestEncodeFullUsesRefRelay verifies EncodeFull writes the relay of the ref.
func TestEncodeFullUsesRefRelay(t *testing.T) {
	cmd := netcmd.New(1, 2, 3, &netcmd.KeepAlive{})
	ref := netcmd.NewCommandRef(cmd, 0x05)
	other := ref.WithRelay(0x0A)
	defer ref.Release()
	defer other.Release()

	a, b := netcmd.EncodeFull(ref), netcmd.EncodeFull(other)
	if a[3] != 0x05 || b[3] != 0x0A {
		t.Fatalf("relay bytes = %#x/%#x, want 0x05/0x0a", a[3], b[3])
	}
}
