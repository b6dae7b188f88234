package bbs

import (
	"fmt"
	"sort"
	"strings"

	"meshbbs/internal/transport"
)

// chatRoom holds the members of one ephemeral room. Rooms are created
// on first join and deleted when the last member leaves; nothing about
// them is persisted.
type chatRoom struct {
	name    string
	members map[string]transport.Link
}

// ChatManager tracks live chat rooms. It is only touched from the
// dispatch goroutine, so it carries no lock of its own.
type ChatManager struct {
	rooms   map[string]*chatRoom
	replier Replier
}

func NewChatManager(replier Replier) *ChatManager {
	return &ChatManager{rooms: make(map[string]*chatRoom), replier: replier}
}

// Join adds the user to a room, creating it on demand, and announces
// the arrival to the other members.
func (c *ChatManager) Join(hash, display, room string, link transport.Link) {
	r, ok := c.rooms[room]
	if !ok {
		r = &chatRoom{name: room, members: make(map[string]transport.Link)}
		c.rooms[room] = r
	}
	r.members[hash] = link
	c.broadcast(r, fmt.Sprintf("%s has joined the room.", display), hash)
}

// Leave removes the user from their room, announces the departure, and
// deletes the room if it is now empty. Returns false when the user was
// not in any room.
func (c *ChatManager) Leave(hash, display, room string) bool {
	r, ok := c.rooms[room]
	if !ok {
		return false
	}
	if _, member := r.members[hash]; !member {
		return false
	}
	delete(r.members, hash)
	c.broadcast(r, fmt.Sprintf("%s has left the room.", display), hash)
	if len(r.members) == 0 {
		delete(c.rooms, room)
	}
	return true
}

// Say broadcasts a chat line to every other member and echoes it back
// to the sender marked as their own.
func (c *ChatManager) Say(hash, display, room, text string, link transport.Link) {
	r, ok := c.rooms[room]
	if !ok {
		c.replier.Small(link, "ERROR: Chat room not found.")
		return
	}
	c.broadcast(r, fmt.Sprintf("%s: %s", display, text), hash)
	c.replier.Small(link, fmt.Sprintf("[%s] (You): %s", room, text))
}

// List renders the open rooms with their member counts.
func (c *ChatManager) List() string {
	if len(c.rooms) == 0 {
		return "No chat rooms are currently open.\n\n /join <room_name> to create a new room."
	}
	names := make([]string, 0, len(c.rooms))
	for name := range c.rooms {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available Chat Rooms:\n")
	for _, name := range names {
		n := len(c.rooms[name].members)
		plural := "s"
		if n == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, "  - %s (%d participant%s)\n", name, n, plural)
	}
	return b.String()
}

func (c *ChatManager) broadcast(r *chatRoom, message, sender string) {
	for hash, link := range r.members {
		if hash == sender {
			continue
		}
		c.replier.Small(link, fmt.Sprintf("[%s] %s", r.name, message))
	}
}
