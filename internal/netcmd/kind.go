package netcmd

import "fmt"

// Kind identifies a command variant. The numeric values are the type byte
// written after the 'T' tag and must never be renumbered.
type Kind uint8

const (
	KindGameCommand Kind = iota
	KindAckBoth
	KindAckStage1
	KindAckStage2
	KindFrameInfo
	KindPlayerLeave
	KindRunAheadMetrics
	KindRunAhead
	KindDestroyPlayer
	KindKeepAlive
	KindDisconnectKeepAlive
	KindDisconnectPlayer
	KindPacketRouterQuery
	KindPacketRouterAck
	KindDisconnectChat
	KindChat
	KindDisconnectVote
	KindProgress
	KindWrapper
	KindFile
	KindFileAnnounce
	KindFileProgress
	KindDisconnectFrame
	KindDisconnectScreenOff
	KindFrameResendRequest
	KindLoadComplete
	KindTimeOutGameStart

	numKinds
)

// KindNone is the shadow-state value before any type byte has been written
// or read. It is never a valid command kind.
const KindNone Kind = 0xFF

type kindInfo struct {
	name    string
	needsID bool
	fields  FieldSelect
}

// Header fields each kind carries. This table is part of the wire contract:
// peers must agree on it byte for byte, so it is spelled out per kind rather
// than derived.
var kindTable = [numKinds]kindInfo{
	KindGameCommand:         {"GameCommand", true, UseType | UseRelay | UseFrame | UsePlayer | UseID},
	KindAckBoth:             {"AckBoth", false, UseType | UsePlayer},
	KindAckStage1:           {"AckStage1", false, UseType | UsePlayer},
	KindAckStage2:           {"AckStage2", false, UseType | UsePlayer},
	KindFrameInfo:           {"FrameInfo", true, UseType | UseRelay | UseFrame | UsePlayer | UseID},
	KindPlayerLeave:         {"PlayerLeave", true, UseType | UseRelay | UseFrame | UsePlayer | UseID},
	KindRunAheadMetrics:     {"RunAheadMetrics", true, UseType | UseRelay | UsePlayer | UseID},
	KindRunAhead:            {"RunAhead", true, UseType | UseRelay | UseFrame | UsePlayer | UseID},
	KindDestroyPlayer:       {"DestroyPlayer", true, UseType | UseRelay | UseFrame | UsePlayer | UseID},
	KindKeepAlive:           {"KeepAlive", false, UseType | UseRelay | UsePlayer},
	KindDisconnectKeepAlive: {"DisconnectKeepAlive", false, UseType | UseRelay | UsePlayer},
	KindDisconnectPlayer:    {"DisconnectPlayer", true, UseType | UseRelay | UsePlayer | UseID},
	KindPacketRouterQuery:   {"PacketRouterQuery", false, UseType | UseRelay | UsePlayer},
	KindPacketRouterAck:     {"PacketRouterAck", false, UseType | UseRelay | UsePlayer},
	KindDisconnectChat:      {"DisconnectChat", false, UseType | UseRelay | UsePlayer},
	KindChat:                {"Chat", true, UseType | UseRelay | UseFrame | UsePlayer | UseID},
	KindDisconnectVote:      {"DisconnectVote", true, UseType | UseRelay | UsePlayer | UseID},
	KindProgress:            {"Progress", false, UseType | UseRelay | UsePlayer},
	KindWrapper:             {"Wrapper", true, UseType | UseRelay | UsePlayer | UseID},
	KindFile:                {"File", true, UseType | UseRelay | UsePlayer | UseID},
	KindFileAnnounce:        {"FileAnnounce", true, UseType | UseRelay | UsePlayer | UseID},
	KindFileProgress:        {"FileProgress", true, UseType | UseRelay | UsePlayer | UseID},
	KindDisconnectFrame:     {"DisconnectFrame", true, UseType | UseRelay | UsePlayer | UseID},
	KindDisconnectScreenOff: {"DisconnectScreenOff", true, UseType | UseRelay | UsePlayer | UseID},
	KindFrameResendRequest:  {"FrameResendRequest", true, UseType | UseRelay | UsePlayer | UseID},
	KindLoadComplete:        {"LoadComplete", true, UseType | UseRelay | UsePlayer | UseID},
	KindTimeOutGameStart:    {"TimeOutGameStart", true, UseType | UseRelay | UsePlayer | UseID},
}

// Kinds returns every valid kind in wire order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k is inside the closed set of command kinds.
func (k Kind) Valid() bool {
	return k < numKinds
}

// NeedsID reports whether commands of this kind carry a unique sequence id.
func (k Kind) NeedsID() bool {
	return k.Valid() && kindTable[k].needsID
}

// Fields returns the header fields this kind carries on the wire.
func (k Kind) Fields() FieldSelect {
	if !k.Valid() {
		return 0
	}
	return kindTable[k].fields
}

// IsAck reports whether k is one of the three acknowledgement kinds.
func (k Kind) IsAck() bool {
	return k == KindAckBoth || k == KindAckStage1 || k == KindAckStage2
}

func (k Kind) String() string {
	if k == KindNone {
		return "None"
	}
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindTable[k].name
}
