// Package netcmdtest provides populated commands of every kind for tests.
package netcmdtest

import "github.com/1ureka/lockstep/internal/netcmd"

// Bodies returns one populated body per kind, in wire order. Every call
// returns fresh values.
func Bodies() []netcmd.Body {
	return []netcmd.Body{
		&netcmd.GameCommand{MessageType: 1049, Args: []netcmd.Arg{
			netcmd.IntArg(-7), netcmd.IntArg(3), netcmd.RealArg(1.5), netcmd.BoolArg(true),
			netcmd.ObjectIDArg(42), netcmd.LocationArg(netcmd.Coord3D{X: 1, Y: 2, Z: 3}),
			netcmd.PixelRegionArg(netcmd.IRegion2D{Hi: netcmd.ICoord2D{X: 640, Y: 480}}),
			netcmd.WideCharArg('x'),
		}},
		&netcmd.AckBoth{AckInfo: netcmd.AckInfo{CommandID: 10, OriginalPlayerID: 2}},
		&netcmd.AckStage1{AckInfo: netcmd.AckInfo{CommandID: 11, OriginalPlayerID: 3}},
		&netcmd.AckStage2{AckInfo: netcmd.AckInfo{CommandID: 12, OriginalPlayerID: 4}},
		&netcmd.FrameInfo{CommandCount: 3},
		&netcmd.PlayerLeave{LeavingPlayerID: 5},
		&netcmd.RunAheadMetrics{AverageLatency: 0.125, AverageFPS: 30},
		&netcmd.RunAhead{Frames: 20, FrameRate: 30},
		&netcmd.DestroyPlayer{PlayerIndex: 6},
		&netcmd.KeepAlive{},
		&netcmd.DisconnectKeepAlive{},
		&netcmd.DisconnectPlayer{Slot: 2, DisconnectFrame: 900},
		&netcmd.PacketRouterQuery{},
		&netcmd.PacketRouterAck{},
		&netcmd.DisconnectChat{Text: "brb"},
		&netcmd.Chat{Text: "gl hf 🎮", PlayerMask: 0x0F},
		&netcmd.DisconnectVote{Slot: 1, VoteFrame: 901},
		&netcmd.Progress{Percentage: 77},
		&netcmd.Wrapper{WrappedCommandID: 9, ChunkNumber: 1, NumChunks: 2, TotalDataLength: 8, DataOffset: 4, Data: []byte{1, 2, 3, 4}},
		&netcmd.File{Filename: "maps/alpine.map", Data: []byte("terrain")},
		&netcmd.FileAnnounce{Filename: "maps/alpine.map", FileID: 3, PlayerMask: 0x06},
		&netcmd.FileProgress{FileID: 3, Progress: 55},
		&netcmd.DisconnectFrame{Frame: 902},
		&netcmd.DisconnectScreenOff{NewFrame: 903},
		&netcmd.FrameResendRequest{FrameToResend: 880},
		&netcmd.LoadComplete{},
		&netcmd.TimeOutGameStart{},
	}
}

// Commands wraps Bodies in commands with varied headers: frames advance,
// players alternate and ids grow by one for every kind that carries one.
func Commands() []*netcmd.Command {
	var out []*netcmd.Command
	id := uint16(100)
	for i, b := range Bodies() {
		var cmdID uint16
		if b.Kind().NeedsID() {
			id++
			cmdID = id
		}
		out = append(out, netcmd.New(uint32(1000+i/3), uint8(i%2), cmdID, b))
	}
	return out
}
