package protocol

import "github.com/1ureka/lockstep/internal/netcmd"

// State is the shadow header both ends keep while walking one packet: the
// values a small encoding may omit because the previous command already
// carried them. The builder and the parser start every packet from
// NewState and apply the same updates, so they never diverge.
type State struct {
	Kind   netcmd.Kind
	Relay  uint8
	Frame  uint32
	Player uint8
	LastID uint16 // the next id-carrying command without a 'C' field gets LastID+1
}

// NewState returns the state at the start of a packet.
func NewState() State {
	return State{Kind: netcmd.KindNone}
}

// Select returns the header fields cmd needs on top of the shadow state.
func (s *State) Select(cmd *netcmd.Command, relay uint8) netcmd.FieldSelect {
	var sel netcmd.FieldSelect
	if cmd.Kind() != s.Kind {
		sel |= netcmd.UseType
	}
	if relay != s.Relay {
		sel |= netcmd.UseRelay
	}
	if cmd.ExecutionFrame != s.Frame {
		sel |= netcmd.UseFrame
	}
	if cmd.PlayerID != s.Player {
		sel |= netcmd.UsePlayer | netcmd.UseID
	}
	if s.LastID+1 != cmd.ID {
		sel |= netcmd.UseID
	}
	return sel & cmd.PreferredSelect()
}

// Apply records that cmd was written with the fields in sel.
func (s *State) Apply(cmd *netcmd.Command, relay uint8, sel netcmd.FieldSelect) {
	if sel.Has(netcmd.UseType) {
		s.Kind = cmd.Kind()
	}
	if sel.Has(netcmd.UseRelay) {
		s.Relay = relay
	}
	if sel.Has(netcmd.UseFrame) {
		s.Frame = cmd.ExecutionFrame
	}
	if sel.Has(netcmd.UsePlayer) {
		s.Player = cmd.PlayerID
	}
	if cmd.Kind().NeedsID() {
		s.LastID = cmd.ID
	}
}

// header reconstructs the header of a command of the current kind from the
// shadow state, consuming one id when the kind carries one.
func (s *State) header() netcmd.Header {
	fields := s.Kind.Fields()
	var h netcmd.Header
	if fields.Has(netcmd.UseFrame) {
		h.ExecutionFrame = s.Frame
	}
	if fields.Has(netcmd.UsePlayer) {
		h.PlayerID = s.Player
	}
	if s.Kind.NeedsID() {
		s.LastID++
		h.ID = s.LastID
	}
	return h
}

// relayOf returns the relay a command of kind k decodes with. Kinds without
// a relay field never carry one, so they report zero.
func (s *State) relayOf(k netcmd.Kind) uint8 {
	if !k.Fields().Has(netcmd.UseRelay) {
		return 0
	}
	return s.Relay
}

// applyRepeat records that cmd was written as a repeat of the previous command.
func (s *State) applyRepeat(cmd *netcmd.Command) {
	if cmd.Kind().Fields().Has(netcmd.UseFrame) {
		s.Frame = cmd.ExecutionFrame
	}
	if cmd.Kind().NeedsID() {
		s.LastID = cmd.ID
	}
}
