package bbs

import (
	"log"

	"meshbbs/internal/transport"
)

// Replier delivers replies over a link, choosing between the small
// packet channel and the bulk channel.
type Replier struct{}

// Small sends a reply over the packet channel. A payload addressed to
// the server's own identity is dropped rather than echoed back through
// the transport. Payloads over the MDU fall back to a bulk transfer.
func (Replier) Small(link transport.Link, text string) {
	if link.RemoteHash() == link.LocalHash() {
		log.Printf("[bbs] dropped reply addressed to self (%s)", link.LocalHash())
		return
	}
	data := []byte(text)
	if len(data) > transport.MDU {
		if err := link.SendBulk(data); err != nil {
			log.Printf("[bbs] error sending bulk fallback reply: %v", err)
		}
		return
	}
	if err := link.Send(data); err != nil {
		log.Printf("[bbs] error sending reply: %v", err)
	}
}

// Bulk sends a reply of any size as a chunked transfer.
func (Replier) Bulk(link transport.Link, text string) {
	if link.RemoteHash() == link.LocalHash() {
		log.Printf("[bbs] dropped bulk reply addressed to self (%s)", link.LocalHash())
		return
	}
	if err := link.SendBulk([]byte(text)); err != nil {
		log.Printf("[bbs] error sending bulk reply: %v", err)
	}
}

func (r Replier) ClearScreen(link transport.Link) {
	r.control(link, transport.ControlClear)
}

func (r Replier) AreaChanged(link transport.Link, area Area) {
	r.control(link, transport.ControlAreaPrefix+area.String())
}

func (r Replier) BoardChanged(link transport.Link, board string) {
	r.control(link, transport.ControlBoardPrefix+board)
}

func (r Replier) RoomChanged(link transport.Link, room string) {
	r.control(link, transport.ControlRoomPrefix+room)
}

func (Replier) control(link transport.Link, line string) {
	if err := link.Send([]byte(line)); err != nil {
		log.Printf("[bbs] error sending control line: %v", err)
	}
}
