// Lockstep: CLI for the lockstep command protocol.
//
// It links two peers over a WebRTC DataChannel (signaling over WebSocket)
// and runs a lockstep session between them, and it ships offline tools to
// inspect packets, captures and the chunk layout of large commands.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/lockstep/internal/util"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "lockstep",
		Short: "Peer-to-peer lockstep command link",
		Long: `Lockstep exchanges RTS lockstep commands between two peers.

Commands are packed into small packets with delta-encoded headers,
repeated frame announcements and acknowledgements collapse to a
single byte, and anything too large for one packet is chunked.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				util.EnableDebug()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		peerCmd(),
		localCmd(),
		inspectCmd(),
		splitCmd(),
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

// printTitle prints the product line shown by interactive commands.
func printTitle() {
	pterm.Info.Println("Lockstep v" + version)
	pterm.Println()
}
