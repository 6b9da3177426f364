package protocol

import (
	"bytes"
	"testing"

	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/netcmd/netcmdtest"
)

// decodeOne decodes data and fails unless it holds exactly one command.
func decodeOne(t *testing.T, data []byte) *netcmd.CommandRef {
	t.Helper()
	refs, err := DecodeRefs(data)
	if err != nil {
		t.Fatalf("DecodeRefs failed: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("decoded %d commands, want 1", len(refs))
	}
	return refs[0]
}

// sentRelay is the relay a receiver sees for cmd sent with relay: zero for
// kinds without a relay field.
func sentRelay(cmd *netcmd.Command, relay uint8) uint8 {
	if !cmd.Kind().Fields().Has(netcmd.UseRelay) {
		return 0
	}
	return relay
}

// TestFullRoundTrip verifies decode(encodeFull(c)) == c for every kind.
func TestFullRoundTrip(t *testing.T) {
	for _, cmd := range netcmdtest.Commands() {
		t.Run(cmd.Kind().String(), func(t *testing.T) {
			ref := netcmd.NewCommandRef(cmd, 0x2A)
			got := decodeOne(t, netcmd.EncodeFull(ref))
			if !cmd.Equal(got.Command()) {
				t.Errorf("decoded %+v, want %+v", got.Command(), cmd)
			}
			if want := sentRelay(cmd, 0x2A); got.Relay() != want {
				t.Errorf("relay = %#x, want %#x", got.Relay(), want)
			}
		})
	}
}

// TestSmallRoundTrip verifies decode(encodeSmall(c, sel)) == c for every
// selection that honors the forcing rules against a fresh state.
func TestSmallRoundTrip(t *testing.T) {
	for _, cmd := range netcmdtest.Commands() {
		t.Run(cmd.Kind().String(), func(t *testing.T) {
			for _, relay := range []uint8{0, 0x81} {
				s := NewState()
				required := s.Select(cmd, relay)
				for extra := netcmd.FieldSelect(0); extra <= netcmd.SelectAll; extra++ {
					sel := required | extra
					if sel.Has(netcmd.UsePlayer) {
						sel |= netcmd.UseID
					}
					data := cmd.AppendSmall(nil, relay, sel)
					got := decodeOne(t, data)
					if !cmd.Equal(got.Command()) || got.Relay() != sentRelay(cmd, relay) {
						t.Fatalf("sel %s relay %#x: decoded %+v (relay %#x), want %+v",
							sel, relay, got.Command(), got.Relay(), cmd)
					}
					if len(data) > cmd.FullSize() {
						t.Fatalf("sel %s: small encoding %d bytes larger than full %d", sel, len(data), cmd.FullSize())
					}
				}
			}
		})
	}
}

// TestPacketMixedStream packs every kind into one packet with varying relays.
func TestPacketMixedStream(t *testing.T) {
	cmds := netcmdtest.Commands()
	p := NewPacketSize(4096)
	defer p.Reset()

	for i, cmd := range cmds {
		ref := netcmd.NewCommandRef(cmd, uint8(i%3))
		if !p.AddCommand(ref) {
			t.Fatalf("AddCommand(%s) = false", cmd.Kind())
		}
		ref.Release()
	}
	if p.NumCommands() != len(cmds) {
		t.Fatalf("NumCommands = %d, want %d", p.NumCommands(), len(cmds))
	}

	refs, err := DecodeRefs(p.Bytes())
	if err != nil {
		t.Fatalf("DecodeRefs failed: %v", err)
	}
	if len(refs) != len(cmds) {
		t.Fatalf("decoded %d commands, want %d", len(refs), len(cmds))
	}
	for i, ref := range refs {
		if !cmds[i].Equal(ref.Command()) {
			t.Errorf("command %d (%s): decoded %+v, want %+v", i, cmds[i].Kind(), ref.Command(), cmds[i])
		}
		if want := sentRelay(cmds[i], uint8(i%3)); ref.Relay() != want {
			t.Errorf("command %d: relay %d, want %d", i, ref.Relay(), want)
		}
	}
}

// TestSmallEncodingLosesNothing verifies the second of two commands decodes
// to the same header whether it was written small or full.
func TestSmallEncodingLosesNothing(t *testing.T) {
	testCases := []struct {
		name string
		a, b *netcmd.Command
	}{
		{
			name: "same player next id",
			a:    netcmd.New(30, 1, 5, &netcmd.GameCommand{MessageType: 1}),
			b:    netcmd.New(30, 1, 6, &netcmd.GameCommand{MessageType: 2}),
		},
		{
			name: "player change",
			a:    netcmd.New(30, 1, 5, &netcmd.GameCommand{MessageType: 1}),
			b:    netcmd.New(30, 2, 6, &netcmd.GameCommand{MessageType: 2}),
		},
		{
			name: "id gap",
			a:    netcmd.New(30, 1, 5, &netcmd.GameCommand{MessageType: 1}),
			b:    netcmd.New(31, 1, 9, &netcmd.Chat{Text: "x"}),
		},
		{
			name: "ack between id kinds",
			a:    netcmd.New(30, 1, 5, &netcmd.AckBoth{AckInfo: netcmd.AckInfo{CommandID: 77, OriginalPlayerID: 3}}),
			b:    netcmd.New(30, 1, 6, &netcmd.FrameInfo{CommandCount: 4}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			refA := netcmd.NewCommandRef(tc.a, 1)
			refB := netcmd.NewCommandRef(tc.b, 1)

			p := NewPacket()
			p.AddCommand(refA)
			prefix := bytes.Clone(p.Bytes())
			if !p.AddCommand(refB) {
				t.Fatal("AddCommand(b) = false")
			}
			small := bytes.Clone(p.Bytes())
			full := tc.b.AppendFull(prefix, 1)
			p.Reset()

			if len(small) > len(full) {
				t.Errorf("small packet %d bytes, full packet %d bytes", len(small), len(full))
			}
			fromSmall, err := Decode(small)
			if err != nil {
				t.Fatalf("Decode(small) failed: %v", err)
			}
			fromFull, err := Decode(full)
			if err != nil {
				t.Fatalf("Decode(full) failed: %v", err)
			}
			if !fromSmall[1].Equal(fromFull[1]) || !fromSmall[1].Equal(tc.b) {
				t.Errorf("small %+v, full %+v, want %+v", fromSmall[1], fromFull[1], tc.b)
			}
		})
	}
}

// TestFrameInfoRepeat verifies a run of empty frame markers costs one byte each.
func TestFrameInfoRepeat(t *testing.T) {
	const n = 10
	p := NewPacket()
	defer p.Reset()

	var first *netcmd.Command
	for i := 0; i < n; i++ {
		cmd := netcmd.New(uint32(50+i), 3, uint16(7+i), &netcmd.FrameInfo{})
		if first == nil {
			first = cmd
		}
		ref := netcmd.NewCommandRef(cmd, 0x0F)
		if !p.AddCommand(ref) {
			t.Fatalf("AddCommand %d = false", i)
		}
		ref.Release()
	}

	if want := first.FullSize() + (n - 1); p.Len() != want {
		t.Fatalf("packet is %d bytes, want %d", p.Len(), want)
	}
	if p.Repeats() != n-1 {
		t.Errorf("Repeats = %d, want %d", p.Repeats(), n-1)
	}

	cmds, err := Decode(p.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(cmds) != n {
		t.Fatalf("decoded %d commands, want %d", len(cmds), n)
	}
	for i, cmd := range cmds {
		if cmd.ExecutionFrame != uint32(50+i) || cmd.ID != uint16(7+i) || cmd.PlayerID != 3 {
			t.Errorf("command %d: frame %d id %d player %d", i, cmd.ExecutionFrame, cmd.ID, cmd.PlayerID)
		}
		if cmd.Body.(*netcmd.FrameInfo).CommandCount != 0 {
			t.Errorf("command %d: CommandCount = %d, want 0", i, cmd.Body.(*netcmd.FrameInfo).CommandCount)
		}
	}
}

// TestAckRepeat encodes two consecutive stage-1 acks; the second is one byte.
func TestAckRepeat(t *testing.T) {
	first := netcmd.New(0, 1, 0, &netcmd.AckStage1{AckInfo: netcmd.AckInfo{CommandID: 5, OriginalPlayerID: 2}})
	second := netcmd.New(0, 1, 0, &netcmd.AckStage1{AckInfo: netcmd.AckInfo{CommandID: 6, OriginalPlayerID: 2}})

	p := NewPacket()
	defer p.Reset()
	p.AddCommand(netcmd.NewCommandRef(first, 4))
	before := p.Len()
	p.AddCommand(netcmd.NewCommandRef(second, 4))

	if p.Len() != before+1 || p.Bytes()[before] != netcmd.TagRepeat {
		t.Fatalf("second ack took %d bytes, want a single 'Z'", p.Len()-before)
	}

	cmds, err := Decode(p.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("decoded %d commands, want 2", len(cmds))
	}
	for i, want := range []uint16{5, 6} {
		ack, ok := cmds[i].Body.(*netcmd.AckStage1)
		if !ok {
			t.Fatalf("command %d is %s, want AckStage1", i, cmds[i].Kind())
		}
		if ack.CommandID != want || ack.OriginalPlayerID != 2 {
			t.Errorf("command %d: %+v, want id %d", i, ack.AckInfo, want)
		}
	}
}

// TestRepeatNotEligible verifies near misses fall back to a small encoding.
func TestRepeatNotEligible(t *testing.T) {
	ack := func(kind netcmd.Kind, player uint8, id uint16, orig uint8) *netcmd.Command {
		return netcmd.New(0, player, 0, netcmd.NewAck(kind, netcmd.AckInfo{CommandID: id, OriginalPlayerID: orig}))
	}
	frame := func(frame uint32, player uint8, id uint16, count uint16) *netcmd.Command {
		return netcmd.New(frame, player, id, &netcmd.FrameInfo{CommandCount: count})
	}

	testCases := []struct {
		name           string
		a, b           *netcmd.Command
		relayA, relayB uint8
	}{
		{"ack relay differs", ack(netcmd.KindAckBoth, 1, 5, 2), ack(netcmd.KindAckBoth, 1, 6, 2), 1, 2},
		{"ack kind differs", ack(netcmd.KindAckBoth, 1, 5, 2), ack(netcmd.KindAckStage2, 1, 6, 2), 1, 1},
		{"ack origin differs", ack(netcmd.KindAckBoth, 1, 5, 2), ack(netcmd.KindAckBoth, 1, 6, 3), 1, 1},
		{"ack id gap", ack(netcmd.KindAckBoth, 1, 5, 2), ack(netcmd.KindAckBoth, 1, 7, 2), 1, 1},
		{"ack player differs", ack(netcmd.KindAckBoth, 1, 5, 2), ack(netcmd.KindAckBoth, 4, 6, 2), 1, 1},
		{"frame count set", frame(10, 1, 3, 0), frame(11, 1, 4, 2), 1, 1},
		{"frame gap", frame(10, 1, 3, 0), frame(12, 1, 4, 0), 1, 1},
		{"frame id gap", frame(10, 1, 3, 0), frame(11, 1, 5, 0), 1, 1},
		{"frame relay differs", frame(10, 1, 3, 0), frame(11, 1, 4, 0), 1, 3},
		{"frame player differs", frame(10, 1, 3, 0), frame(11, 2, 4, 0), 1, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPacket()
			defer p.Reset()
			p.AddCommand(netcmd.NewCommandRef(tc.a, tc.relayA))
			p.AddCommand(netcmd.NewCommandRef(tc.b, tc.relayB))
			if p.Repeats() != 0 {
				t.Fatal("second command was written as a repeat")
			}

			refs, err := DecodeRefs(p.Bytes())
			if err != nil {
				t.Fatalf("DecodeRefs failed: %v", err)
			}
			if len(refs) != 2 || !refs[1].Command().Equal(tc.b) || refs[1].Relay() != sentRelay(tc.b, tc.relayB) {
				t.Fatalf("decoded %+v, want %+v", refs, tc.b)
			}
		})
	}
}

// TestCapacity verifies AddCommand never grows the packet past its capacity
// and leaves it untouched when a command does not fit.
func TestCapacity(t *testing.T) {
	p := NewPacketSize(64)
	defer p.Reset()

	added := 0
	for i := 0; i < 100; i++ {
		cmd := netcmd.New(uint32(i), 1, uint16(i+1), &netcmd.Chat{Text: "hello there", PlayerMask: -1})
		ref := netcmd.NewCommandRef(cmd, 0)
		before := bytes.Clone(p.Bytes())
		ok := p.AddCommand(ref)
		ref.Release()
		if p.Len() > p.Cap() {
			t.Fatalf("packet grew to %d bytes, capacity %d", p.Len(), p.Cap())
		}
		if !ok {
			if !bytes.Equal(p.Bytes(), before) {
				t.Fatal("failed AddCommand changed the buffer")
			}
			break
		}
		added++
	}
	if added == 0 || added == 100 {
		t.Fatalf("added %d commands, want the packet to fill up", added)
	}
	if p.NumCommands() != added {
		t.Errorf("NumCommands = %d, want %d", p.NumCommands(), added)
	}
	if p.Remaining() != p.Cap()-p.Len() {
		t.Errorf("Remaining = %d", p.Remaining())
	}

	cmds, err := Decode(p.Bytes())
	if err != nil || len(cmds) != added {
		t.Fatalf("Decode = %d commands, %v; want %d", len(cmds), err, added)
	}
}

// TestCapacityRepeat verifies a repeat byte is refused on a full packet.
func TestCapacityRepeat(t *testing.T) {
	first := netcmd.New(10, 1, 2, &netcmd.FrameInfo{})
	p := NewPacketSize(first.FullSize())
	defer p.Reset()

	if !p.AddCommand(netcmd.NewCommandRef(first, 1)) {
		t.Fatal("first command did not fit an exactly sized packet")
	}
	if p.AddCommand(netcmd.NewCommandRef(netcmd.New(11, 1, 3, &netcmd.FrameInfo{}), 1)) {
		t.Fatal("repeat accepted past capacity")
	}
	if p.Len() != first.FullSize() || p.NumCommands() != 1 {
		t.Errorf("packet changed: %d bytes, %d commands", p.Len(), p.NumCommands())
	}
}

// TestPacketHoldsLastRef verifies the packet keeps exactly the last command alive.
func TestPacketHoldsLastRef(t *testing.T) {
	released := map[uint16]bool{}
	newRef := func(id uint16) *netcmd.CommandRef {
		cmd := netcmd.New(1, 1, id, &netcmd.GameCommand{})
		return netcmd.NewCommandRefWithRelease(cmd, 0, func(c *netcmd.Command) {
			released[c.ID] = true
		})
	}

	p := NewPacket()
	a, b := newRef(1), newRef(2)
	p.AddCommand(a)
	a.Release()
	if released[1] {
		t.Fatal("last command released while the packet still holds it")
	}
	p.AddCommand(b)
	b.Release()
	if !released[1] {
		t.Error("previous command not released once replaced")
	}
	if released[2] {
		t.Error("last command released early")
	}

	p.Reset()
	if !released[2] {
		t.Error("Reset did not release the last command")
	}
	if p.Len() != 0 || p.NumCommands() != 0 || !p.Empty() {
		t.Errorf("Reset left %d bytes, %d commands", p.Len(), p.NumCommands())
	}
}

// TestResetRestartsShadowState verifies a reused packet encodes like a new one.
func TestResetRestartsShadowState(t *testing.T) {
	cmd := netcmd.New(5, 2, 40, &netcmd.GameCommand{MessageType: 3})

	fresh := NewPacket()
	fresh.AddCommand(netcmd.NewCommandRef(cmd, 1))

	reused := NewPacket()
	reused.AddCommand(netcmd.NewCommandRef(netcmd.New(5, 2, 39, &netcmd.GameCommand{}), 1))
	reused.Reset()
	reused.AddCommand(netcmd.NewCommandRef(cmd, 1))

	if !bytes.Equal(fresh.Bytes(), reused.Bytes()) {
		t.Errorf("reused packet % x, fresh packet % x", reused.Bytes(), fresh.Bytes())
	}
}
