package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/lockstep/internal/adapter"
	"github.com/1ureka/lockstep/internal/capture"
	"github.com/1ureka/lockstep/internal/config"
	"github.com/1ureka/lockstep/internal/metrics"
	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/signaling"
	"github.com/1ureka/lockstep/internal/transport"
	"github.com/1ureka/lockstep/internal/util"
)

func peerCmd() *cobra.Command {
	cfg := config.Default()
	var playerID int

	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Link with another peer and run a lockstep session",
		Long: `Link with another peer over WebRTC and run a lockstep session.

One side runs "peer host" and shares the printed port and PIN; the other
runs "peer join". Once linked, lines typed on stdin are sent as chat and
"/file <path>" sends a file (chunked when needed).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Root().PersistentPreRun != nil {
				cmd.Root().PersistentPreRun(cmd, args)
			}
			if playerID < 0 || playerID > 255 {
				return fmt.Errorf("invalid player id %d", playerID)
			}
			cfg.PlayerID = uint8(playerID)
			cfg.Debug, _ = cmd.Flags().GetBool("debug")
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.IntVar(&playerID, "player", 0, "Local player id (0~255)")
	flags.IntVar(&cfg.MaxPacketSize, "max-packet", cfg.MaxPacketSize, "Maximum packet size in bytes")
	flags.StringSliceVar(&cfg.ICEServers, "stun", nil, "STUN/TURN server URLs (default: public Google STUN)")
	flags.IntVar(&cfg.Retransmits, "max-retransmits", cfg.Retransmits, "Retransmissions per datagram before it is dropped (-1: fully reliable)")
	flags.IntVar(&cfg.FrameRate, "frame-rate", cfg.FrameRate, "Logic frames per second")
	flags.IntVar(&cfg.RunAhead, "run-ahead", cfg.RunAhead, "Frames between issuing and executing a command")
	flags.StringVar(&cfg.CapturePath, "capture", "", "Append every datagram to this capture file")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve /metrics on this address")
	flags.DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "Traffic report interval (0 disables)")

	host := &cobra.Command{
		Use:   "host",
		Short: "Wait for a peer to join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Role = config.RoleHost
			if err := cfg.Validate(); err != nil {
				return err
			}
			printTitle()
			res, err := signaling.Host(cmd.Context(), cfg.Port, linkOptions(cfg), announce)
			if err != nil {
				return fmt.Errorf("failed to establish link: %w", err)
			}
			return runPeer(cmd.Context(), cfg, res)
		},
	}
	host.Flags().IntVar(&cfg.Port, "port", 0, "Signaling port (0 picks a free one)")

	join := &cobra.Command{
		Use:   "join [ws-url]",
		Short: "Join a hosting peer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printTitle()
			var raw string
			if len(args) == 1 {
				raw = args[0]
			}
			wsURL, err := resolveJoinURL(raw)
			if err != nil {
				return err
			}
			cfg.Role = config.RoleClient
			cfg.WSURL = wsURL
			if err := cfg.Validate(); err != nil {
				return err
			}
			res, err := signaling.Join(cmd.Context(), cfg.WSURL, linkOptions(cfg))
			if err != nil {
				return fmt.Errorf("failed to establish link: %w", err)
			}
			return runPeer(cmd.Context(), cfg, res)
		},
	}

	cmd.AddCommand(host, join)
	return cmd
}

// linkOptions describes the local peer to the signaling handshake.
func linkOptions(cfg config.Config) signaling.Options {
	return signaling.Options{
		Player: cfg.PlayerID,
		Channel: transport.ChannelOptions{
			ICEServers:     cfg.ICEServers,
			MaxRetransmits: cfg.Retransmits,
			MaxDatagram:    cfg.MaxPacketSize,
		},
	}
}

// announce prints what the joining peer needs.
func announce(port int, pin string) {
	pterm.DefaultBox.WithTitle("Signaling").Println(fmt.Sprintf(
		"Port : %d\nPIN  : %s\n\nForward this port if needed, then run on the other peer:\n  lockstep peer join ws://<host>:%d/ws?pin=%s",
		port, pin, port, pin))
	pterm.Println()
	util.LogInfo("waiting for the other peer...")
}

// resolveJoinURL normalizes raw, prompting for the URL and PIN when missing.
func resolveJoinURL(raw string) (string, error) {
	if raw == "" {
		raw = askURL()
	}
	wsURL, err := normalizeWSURL(raw)
	if err != nil {
		return "", err
	}
	if !hasPIN(wsURL) {
		wsURL = withPIN(wsURL, askPIN())
	}
	return wsURL, nil
}

// runPeer runs the session on an established link until either side leaves.
func runPeer(ctx context.Context, cfg config.Config, res *signaling.Result) error {
	defer res.Transport.Close()

	opts := adapter.Options{
		PlayerID:      cfg.PlayerID,
		MaxPacketSize: cfg.MaxPacketSize,
		FrameInterval: cfg.FrameInterval(),
		RunAhead:      uint32(cfg.RunAhead),
		OnCommand:     printRemote,
	}

	if cfg.CapturePath != "" {
		w, err := capture.Create(cfg.CapturePath, res.Session)
		if err != nil {
			return err
		}
		defer w.Close()
		opts.Tap = w
		util.LogInfo("capturing datagrams to %s", cfg.CapturePath)
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts.Metrics = metrics.New(
			metrics.WithRegistry(reg),
			metrics.WithConstLabels(prometheus.Labels{"player": strconv.Itoa(int(cfg.PlayerID))}),
		)
		go func() {
			if err := serveHTTP(ctx, cfg.MetricsAddr, newRouter(reg, opts.Metrics)); err != nil {
				util.LogError("metrics server: %v", err)
			}
		}()
		util.LogInfo("metrics on http://%s/metrics", cfg.MetricsAddr)
	}

	if cfg.StatsInterval > 0 {
		util.StartStatsReporter(ctx, cfg.StatsInterval)
	}

	session := adapter.NewSession(ctx, res.Transport, opts)
	go readInput(session, os.Stdin)

	util.LogSuccess("session %s linked with player %d", res.Session, res.RemotePlayer)
	err := session.Run()
	util.LogInfo("session closed at frame %d", session.Frame())
	return err
}

// printRemote shows remote commands a user cares about. Frame bookkeeping
// only shows up in debug logs.
func printRemote(cmd *netcmd.Command) {
	switch b := cmd.Body.(type) {
	case *netcmd.Chat:
		pterm.Printf("%s %s\n", pterm.Cyan(fmt.Sprintf("[player %d]", cmd.PlayerID)), b.Text)
	case *netcmd.File:
		util.LogSuccess("player %d sent %s (%d bytes)", cmd.PlayerID, b.Filename, len(b.Data))
	default:
		util.LogFields("remote command", "kind", cmd.Kind(), "frame", cmd.ExecutionFrame,
			"player", cmd.PlayerID, "id", cmd.ID, "detail", describe(cmd.Body))
	}
}

// readInput turns stdin lines into chat or file commands until EOF.
func readInput(s *adapter.Session, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := issueLine(s, line); err != nil {
			util.LogWarning("%v", err)
		}
	}
}

func issueLine(s *adapter.Session, line string) error {
	path, ok := strings.CutPrefix(line, "/file ")
	if !ok {
		return s.Say(line)
	}
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return err
	}
	cmd, err := s.Issue(&netcmd.File{Filename: filepath.Base(path), Data: data})
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", path, err)
	}
	util.LogInfo("queued %s as command %d (%d bytes encoded)", path, cmd.ID, cmd.FullSize())
	return nil
}

// askURL prompts for the host's signaling URL until a valid one is entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Signaling URL (e.g. ws://203.0.113.7:40123/ws)").
			Show()

		if _, err := normalizeWSURL(raw); err == nil {
			pterm.Println()
			return raw
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL")
	}
}

// askPIN prompts for the numeric PIN shown by the host.
func askPIN() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("PIN").
			Show()

		pin := strings.TrimSpace(raw)
		if len(pin) == signaling.PINLength && strings.Trim(pin, "0123456789") == "" {
			pterm.Println()
			return pin
		}

		pterm.Println()
		util.LogWarning("invalid PIN: must be %d digits", signaling.PINLength)
	}
}
