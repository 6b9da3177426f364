package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// Stats is the process-wide traffic counter for the lockstep link.
var Stats = &stats{}

type stats struct {
	PacketsSent  atomic.Int64
	PacketsRecv  atomic.Int64
	BytesSent    atomic.Int64 // datagram bytes handed to the DataChannel
	BytesRecv    atomic.Int64
	CommandsSent atomic.Int64
	CommandsRecv atomic.Int64
	DecodeErrors atomic.Int64
}

// AddSent records one outgoing packet of n bytes carrying cmds commands.
func (s *stats) AddSent(n, cmds int) {
	s.PacketsSent.Add(1)
	s.BytesSent.Add(int64(n))
	s.CommandsSent.Add(int64(cmds))
}

// AddRecv records one incoming packet of n bytes carrying cmds commands.
func (s *stats) AddRecv(n, cmds int) {
	s.PacketsRecv.Add(1)
	s.BytesRecv.Add(int64(n))
	s.CommandsRecv.Add(int64(cmds))
}

func (s *stats) AddDecodeError() { s.DecodeErrors.Add(1) }

type snapshot struct {
	sent, recv, cmdsOut, cmdsIn, errs int64
}

func (s *stats) snapshot() snapshot {
	return snapshot{
		sent:    s.BytesSent.Load(),
		recv:    s.BytesRecv.Load(),
		cmdsOut: s.CommandsSent.Load(),
		cmdsIn:  s.CommandsRecv.Load(),
		errs:    s.DecodeErrors.Load(),
	}
}

// StartStatsReporter logs link throughput every interval while there is
// traffic. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		prev := Stats.snapshot()
		secs := interval.Seconds()
		for {
			select {
			case <-ticker.C:
				cur := Stats.snapshot()
				outS := float64(cur.sent-prev.sent) / secs
				inS := float64(cur.recv-prev.recv) / secs
				cmdOut := cur.cmdsOut - prev.cmdsOut
				cmdIn := cur.cmdsIn - prev.cmdsIn
				errs := cur.errs - prev.errs

				if cmdOut > 0 || cmdIn > 0 || errs > 0 {
					pterm.DefaultLogger.Info(formatStats(inS, outS, cmdIn, cmdOut, errs))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes renders a byte count in exactly 8 characters,
// e.g. "99.0   B", " 1.5 KiB".
func formatBytes(b float64) string {
	unitIdx := 0

	// keeps "100.0 KiB" from taking 9 chars
	for b > 99 && unitIdx < len(byteUnits)-1 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

func formatStats(inS, outS float64, cmdIn, cmdOut, errs int64) string {
	line := fmt.Sprintf("In: %s/s | Out: %s/s | Cmd: %3d↓ %3d↑",
		formatBytes(inS),
		formatBytes(outS),
		cmdIn,
		cmdOut,
	)
	if errs > 0 {
		line += fmt.Sprintf(" | Bad: %d", errs)
	}
	return line
}
