package adapter

import (
	"time"

	"github.com/1ureka/lockstep/internal/metrics"
	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/protocol"
	"github.com/1ureka/lockstep/internal/util"
)

// Inbox decodes incoming datagrams, resolves wrapper chunks into the
// commands they carry and hands back the result in execution order.
//
// An Inbox is not safe for concurrent use.
type Inbox struct {
	reasm *Reassembler
	rec   *metrics.Recorder
}

// NewInbox returns an inbox with an empty reassembler.
func NewInbox(rec *metrics.Recorder) *Inbox {
	return &Inbox{reasm: NewReassembler(), rec: rec}
}

// Feed decodes one datagram. A malformed datagram is rejected as a whole;
// a bad chunk series only loses that series.
func (in *Inbox) Feed(data []byte) ([]*netcmd.Command, error) {
	cmds, err := protocol.Decode(data)
	if err != nil {
		in.rec.DecodeError(err)
		return nil, err
	}

	out := make([]*netcmd.Command, 0, len(cmds))
	for _, cmd := range cmds {
		w, ok := cmd.Body.(*netcmd.Wrapper)
		if !ok {
			out = append(out, cmd)
			continue
		}
		blob, err := in.reasm.Feed(cmd.PlayerID, w)
		if err != nil {
			in.rec.DecodeError(err)
			util.LogWarning("[%d/%d] chunk rejected: %v", cmd.PlayerID, w.WrappedCommandID, err)
			continue
		}
		if blob == nil {
			continue
		}
		inner, err := protocol.Decode(blob)
		if err != nil {
			in.rec.DecodeError(err)
			util.LogWarning("[%d/%d] reassembled command rejected: %v", cmd.PlayerID, w.WrappedCommandID, err)
			continue
		}
		in.rec.Reassembled()
		util.LogFields("series reassembled", "player", cmd.PlayerID, "id", w.WrappedCommandID, "bytes", len(blob))
		out = append(out, inner...)
	}
	in.rec.Pending(in.reasm.Pending())

	netcmd.SortForExecution(out)
	return out, nil
}

// Expire drops stale chunk series, see Reassembler.Expire.
func (in *Inbox) Expire(ttl time.Duration) int {
	n := in.reasm.Expire(ttl)
	in.rec.Pending(in.reasm.Pending())
	return n
}
