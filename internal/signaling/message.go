package signaling

// messageType identifies the kind of signaling message.
type messageType string

const (
	msgTypeHello     messageType = "hello"
	msgTypeOffer     messageType = "offer"
	msgTypeAnswer    messageType = "answer"
	msgTypeCandidate messageType = "candidate"
)

// message is the JSON structure exchanged over the WebSocket during signaling.
type message struct {
	Type      messageType `json:"type"`
	Session   string      `json:"session,omitempty"`    // hello: host-assigned session id
	Player    uint8       `json:"player,omitempty"`     // hello: sender's player id
	MaxPacket int         `json:"max_packet,omitempty"` // hello: sender's packet size limit
	SDP       string      `json:"sdp,omitempty"`
	Candidate string      `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
}
