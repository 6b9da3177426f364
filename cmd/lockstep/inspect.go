package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/lockstep/internal/capture"
	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/protocol"
)

func inspectCmd() *cobra.Command {
	var capturePath string

	cmd := &cobra.Command{
		Use:   "inspect [hex-packet...]",
		Short: "Decode packets given as hex or recorded in a capture file",
		Example: `  lockstep inspect 540944
  lockstep inspect --capture session.cap`,
		Args: func(cmd *cobra.Command, args []string) error {
			if capturePath == "" && len(args) == 0 {
				return errors.New("give at least one hex packet or --capture")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if capturePath != "" {
				return inspectCapture(out, capturePath)
			}
			for i, arg := range args {
				data, err := parseHex(arg)
				if err != nil {
					return err
				}
				if err := inspectPacket(out, data); err != nil {
					return fmt.Errorf("packet %d: %w", i, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&capturePath, "capture", "", "Capture file written by peer --capture")

	return cmd
}

func inspectPacket(w io.Writer, data []byte) error {
	refs, err := protocol.DecodeRefs(data)
	if err != nil {
		return err
	}
	defer release(refs)
	return renderCommands(w, refs)
}

func release(refs []*netcmd.CommandRef) {
	for _, r := range refs {
		r.Release()
	}
}

// inspectCapture prints every record of a capture. Undecodable records are
// reported and skipped.
func inspectCapture(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := capture.NewReader(f)
	var records, bad int
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		records++

		fmt.Fprintf(w, "%s #%d %s %s %d bytes\n",
			pterm.Gray(rec.Time.Format("15:04:05.000")), rec.Seq, rec.Direction, rec.Session, len(rec.Data))
		if err := inspectPacket(w, rec.Data); err != nil {
			bad++
			fmt.Fprintf(w, "  %s %v\n", pterm.Red("undecodable:"), err)
		}
	}
	fmt.Fprintf(w, "%d records, %d undecodable\n", records, bad)
	return nil
}
