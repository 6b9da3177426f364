package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/lockstep/internal/netcmd"
)

// commandView is the JSON and table rendering of one decoded command.
type commandView struct {
	Kind   string  `json:"kind"`
	Frame  *uint32 `json:"frame,omitempty"`
	Player uint8   `json:"player"`
	ID     *uint16 `json:"id,omitempty"`
	Relay  uint8   `json:"relay"`
	Detail string  `json:"detail,omitempty"`
}

func viewOf(ref *netcmd.CommandRef) commandView {
	cmd := ref.Command()
	fields := cmd.Kind().Fields()
	v := commandView{
		Kind:   cmd.Kind().String(),
		Player: cmd.PlayerID,
		Relay:  ref.Relay(),
		Detail: describe(cmd.Body),
	}
	if fields.Has(netcmd.UseFrame) {
		frame := cmd.ExecutionFrame
		v.Frame = &frame
	}
	if fields.Has(netcmd.UseID) {
		id := cmd.ID
		v.ID = &id
	}
	return v
}

// describe summarises a payload on one line.
func describe(body netcmd.Body) string {
	switch b := body.(type) {
	case *netcmd.GameCommand:
		types := make([]string, len(b.Args))
		for i, a := range b.Args {
			types[i] = a.Type.String()
		}
		return fmt.Sprintf("message %d (%s)", b.MessageType, strings.Join(types, ","))
	case netcmd.Acknowledgement:
		return fmt.Sprintf("ack #%d from player %d", b.Info().CommandID, b.Info().OriginalPlayerID)
	case *netcmd.FrameInfo:
		return fmt.Sprintf("%d commands", b.CommandCount)
	case *netcmd.Chat:
		return fmt.Sprintf("%q to %#x", b.Text, uint32(b.PlayerMask))
	case *netcmd.DisconnectChat:
		return strconv.Quote(b.Text)
	case *netcmd.File:
		return fmt.Sprintf("%s (%d bytes)", b.Filename, len(b.Data))
	case *netcmd.FileAnnounce:
		return fmt.Sprintf("%s as file %d to %#x", b.Filename, b.FileID, b.PlayerMask)
	case *netcmd.Wrapper:
		return fmt.Sprintf("chunk %d/%d of #%d [%d,+%d) of %d",
			b.ChunkNumber+1, b.NumChunks, b.WrappedCommandID, b.DataOffset, len(b.Data), b.TotalDataLength)
	case *netcmd.KeepAlive, *netcmd.DisconnectKeepAlive, *netcmd.PacketRouterQuery,
		*netcmd.PacketRouterAck, *netcmd.LoadComplete, *netcmd.TimeOutGameStart:
		return ""
	}
	return strings.Trim(strings.TrimPrefix(fmt.Sprintf("%+v", body), "&"), "{}")
}

func optional[T uint16 | uint32](v *T) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatUint(uint64(*v), 10)
}

// renderCommands writes a table of decoded commands.
func renderCommands(w io.Writer, refs []*netcmd.CommandRef) error {
	data := pterm.TableData{{"#", "Kind", "Frame", "Player", "ID", "Relay", "Detail"}}
	for i, ref := range refs {
		v := viewOf(ref)
		data = append(data, []string{
			strconv.Itoa(i),
			v.Kind,
			optional(v.Frame),
			strconv.Itoa(int(v.Player)),
			optional(v.ID),
			fmt.Sprintf("%#04x", v.Relay),
			v.Detail,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(w).Render()
}

// parseHex accepts a packet written as hex, tolerating whitespace, colons
// and a 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", "\n", "", "\t", "", ":", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex packet: %w", err)
	}
	return data, nil
}

// normalizeWSURL validates a signaling URL and points it at /ws, keeping the
// query (which carries the PIN).
func normalizeWSURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}
	out := fmt.Sprintf("%s://%s/ws", scheme, u.Host)
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out, nil
}

// withPIN sets the pin query parameter on a normalized URL.
func withPIN(wsURL, pin string) string {
	u, err := url.Parse(wsURL)
	if err != nil {
		return wsURL
	}
	q := u.Query()
	q.Set("pin", pin)
	u.RawQuery = q.Encode()
	return u.String()
}

func hasPIN(wsURL string) bool {
	u, err := url.Parse(wsURL)
	return err == nil && u.Query().Get("pin") != ""
}
