package protocol

import "github.com/1ureka/lockstep/internal/netcmd"

// canRepeat reports whether cmd can be written as a lone 'Z' after prev.
// The parser rebuilds a repeated command by copying prev and stepping it
// with nextRepeat, so every field not stepped there must match exactly.
func canRepeat(prev *netcmd.CommandRef, cmd *netcmd.Command, relay uint8) bool {
	if prev == nil || prev.Relay() != relay {
		return false
	}
	p := prev.Command()
	if p.Kind() != cmd.Kind() || p.PlayerID != cmd.PlayerID {
		return false
	}

	switch body := cmd.Body.(type) {
	case netcmd.Acknowledgement:
		last := p.Body.(netcmd.Acknowledgement).Info()
		cur := body.Info()
		return cur.OriginalPlayerID == last.OriginalPlayerID && cur.CommandID == last.CommandID+1
	case *netcmd.FrameInfo:
		return body.CommandCount == 0 &&
			cmd.ExecutionFrame == p.ExecutionFrame+1 &&
			cmd.ID == p.ID+1
	}
	return false
}

// nextRepeat builds the command a 'Z' stands for, given the previous one.
// It returns nil when prev cannot be repeated.
func nextRepeat(prev *netcmd.Command) *netcmd.Command {
	switch prev.Body.(type) {
	case netcmd.Acknowledgement:
		next := prev.Clone()
		ack := next.Body.(netcmd.Acknowledgement)
		info := ack.Info()
		info.CommandID++
		ack.SetInfo(info)
		return next
	case *netcmd.FrameInfo:
		next := prev.Clone()
		next.ExecutionFrame++
		next.ID++
		next.Body.(*netcmd.FrameInfo).CommandCount = 0
		return next
	}
	return nil
}
