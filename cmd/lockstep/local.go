package main

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/lockstep/internal/adapter"
	"github.com/1ureka/lockstep/internal/config"
	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/transport"
	"github.com/1ureka/lockstep/internal/util"
)

func localCmd() *cobra.Command {
	cfg := config.Default()
	var (
		duration time.Duration
		fileSize int
	)

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run two peers in-process and report the traffic",
		Long: `Run two lockstep peers connected by an in-memory pipe. Player 0 issues
a stream of game orders, a chat line and a file; both sides acknowledge
what they receive. Useful for checking packet sizes and compression.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Role = config.RoleHost
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runLocal(cmd.Context(), cfg, duration, fileSize)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "How long to run")
	cmd.Flags().IntVar(&fileSize, "file-size", 4096, "Size of the file sent mid-run (0 skips it)")
	cmd.Flags().IntVar(&cfg.MaxPacketSize, "max-packet", cfg.MaxPacketSize, "Maximum packet size in bytes")
	cmd.Flags().IntVar(&cfg.FrameRate, "frame-rate", cfg.FrameRate, "Logic frames per second")

	return cmd
}

func runLocal(parent context.Context, cfg config.Config, duration time.Duration, fileSize int) error {
	ctx, cancel := context.WithTimeout(parent, duration)
	defer cancel()

	a, b := transport.NewPipe(ctx)
	defer a.Close()

	var mu sync.Mutex
	received := map[netcmd.Kind]int{}
	count := func(cmd *netcmd.Command) {
		mu.Lock()
		received[cmd.Kind()]++
		mu.Unlock()
	}

	opts := adapter.Options{
		MaxPacketSize: cfg.MaxPacketSize,
		FrameInterval: cfg.FrameInterval(),
		RunAhead:      uint32(cfg.RunAhead),
		OnCommand:     count,
	}
	p0 := adapter.NewSession(ctx, a, opts)
	opts.PlayerID = 1
	p1 := adapter.NewSession(ctx, b, opts)

	var wg sync.WaitGroup
	for _, s := range []*adapter.Session{p0, p1} {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Run()
		}()
	}

	start := time.Now()
	ticker := time.NewTicker(cfg.FrameInterval())
	defer ticker.Stop()
	sentFile := fileSize <= 0
	for done := false; !done; {
		select {
		case <-ticker.C:
			frame := p0.Frame()
			order := &netcmd.GameCommand{MessageType: 1001, Args: []netcmd.Arg{
				netcmd.ObjectIDArg(frame % 64),
				netcmd.LocationArg(netcmd.Coord3D{X: float32(frame), Y: 12.5}),
			}}
			if _, err := p0.Issue(order); err != nil {
				return err
			}
			if frame%10 == 0 {
				if err := p0.Say(fmt.Sprintf("frame %d", frame)); err != nil {
					return err
				}
			}
			if !sentFile && time.Since(start) > duration/2 {
				sentFile = true
				data := bytes.Repeat([]byte{0xA5}, fileSize)
				if _, err := p0.Issue(&netcmd.File{Filename: "local.bin", Data: data}); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			done = true
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	data := pterm.TableData{{"Kind", "Received"}}
	for _, k := range netcmd.Kinds() {
		if n := received[k]; n > 0 {
			data = append(data, []string{k.String(), fmt.Sprint(n)})
		}
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	util.LogInfo("%d packets / %d bytes sent for %d commands",
		util.Stats.PacketsSent.Load(), util.Stats.BytesSent.Load(), util.Stats.CommandsSent.Load())
	return nil
}
