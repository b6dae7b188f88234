// Package transport defines the contract between the BBS core and the
// underlying mesh transport: authenticated point-to-point links that
// carry small MDU-bounded packets and chunked bulk transfers, plus the
// event stream a connection produces. The core never sees anything of
// the wire beyond this.
package transport

import "errors"

// MDU is the maximum payload deliverable in a single small-reply unit.
// Anything larger must travel as a bulk transfer.
const MDU = 431

// ErrOversize is returned by Send when the payload exceeds the MDU.
var ErrOversize = errors.New("payload exceeds MDU")

// Liveness probe tokens exchanged over the small-reply channel.
var (
	ProbeRequest  = []byte("PING")
	ProbeResponse = []byte("PONG")
)

// Control lines are out-of-band markers the client must never display
// as conversational text. No legitimate reply begins with "CTRL ".
const (
	ControlClear       = "CTRL CLS"
	ControlAreaPrefix  = "CTRL AREA "
	ControlBoardPrefix = "CTRL BOARD "
	ControlRoomPrefix  = "CTRL ROOM "
)

type EventType int

const (
	EventConnected EventType = iota
	EventIdentified
	EventPacket
	EventBulkStarted
	EventBulkConcluded
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventIdentified:
		return "identified"
	case EventPacket:
		return "packet"
	case EventBulkStarted:
		return "bulk started"
	case EventBulkConcluded:
		return "bulk concluded"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one occurrence on a link, consumed by a single dispatch loop
// rather than ad hoc callbacks. Data holds the packet payload for
// EventPacket and the fully reassembled payload for EventBulkConcluded
// (nil when the transfer carried no data).
type Event struct {
	Type EventType
	Link Link
	Data []byte
}

// Link is an established point-to-point session with a remote identity.
type Link interface {
	// Send delivers a single transport unit of at most MDU bytes.
	Send(data []byte) error
	// SendBulk delivers a payload of any size as a chunked transfer.
	SendBulk(data []byte) error
	// RemoteHash is the peer's identity hash, empty until identified.
	RemoteHash() string
	// LocalHash is the identity hash of this end of the link.
	LocalHash() string
	Teardown()
}
