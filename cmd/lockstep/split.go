package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/lockstep/internal/adapter"
	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/protocol"
)

func splitCmd() *cobra.Command {
	var (
		size      int
		maxPacket int
		player    uint8
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Show how a file command of a given size is chunked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSplit(cmd.OutOrStdout(), size, maxPacket, player)
		},
	}

	cmd.Flags().IntVar(&size, "size", 2000, "File payload size in bytes")
	cmd.Flags().IntVar(&maxPacket, "max-packet", protocol.MaxPacketSize, "Maximum packet size in bytes")
	cmd.Flags().Uint8Var(&player, "player", 0, "Sending player id")

	return cmd
}

func showSplit(w io.Writer, size, maxPacket int, player uint8) error {
	if size < 0 {
		return fmt.Errorf("invalid size %d", size)
	}
	file := netcmd.New(0, player, 1, &netcmd.File{Filename: "split.bin", Data: make([]byte, size)})
	ref := netcmd.NewCommandRef(file, 0)
	defer ref.Release()

	packets, err := protocol.Split(ref, adapter.NewIDGen(1), maxPacket)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "command: %d bytes encoded, %d-byte packets, %d bytes of overhead per chunk\n",
		file.FullSize(), maxPacket, protocol.ChunkOverhead())

	data := pterm.TableData{{"Chunk", "Wrapper ID", "Offset", "Length", "Packet"}}
	for i, p := range packets {
		refs, err := protocol.DecodeRefs(p.Bytes())
		if err != nil {
			return err
		}
		wrapper := refs[0].Command()
		body := wrapper.Body.(*netcmd.Wrapper)
		data = append(data, []string{
			strconv.Itoa(i),
			strconv.Itoa(int(wrapper.ID)),
			strconv.Itoa(int(body.DataOffset)),
			strconv.Itoa(len(body.Data)),
			strconv.Itoa(p.Len()),
		})
		release(refs)
		p.Reset()
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}
