package bbs

import (
	"context"
	"fmt"
	"strings"
)

// handleChat routes chat-area input. Slash commands are control; any
// other non-empty line is a message to the current room.
func (s *Server) handleChat(ctx context.Context, sess *Session, line string) {
	cmd, rest := splitCommand(line)
	if cmd == "" {
		s.replier.Small(sess.Link, "UNKNOWN COMMAND\n")
		return
	}

	switch cmd {
	case "/?", "/help":
		s.chatHelp(sess)
	case "/b", "/back":
		s.chatBack(ctx, sess)
	case "/j", "/join":
		s.chatJoin(ctx, sess, rest)
	case "/l", "/leave":
		s.chatLeave(ctx, sess)
	case "/list":
		s.replier.Small(sess.Link, s.chat.List())
	default:
		s.chatSay(ctx, sess, line)
	}
}

func (s *Server) chatHelp(sess *Session) {
	help := "Available Chat Commands:\n" +
		"  /? - Show this help screen\n" +
		"  /back - Return to the main menu\n" +
		"  /join <room_name> - Join a chat room\n" +
		"  /leave - Leave the current chat room\n" +
		"  /list - List available chat rooms\n" +
		"  Any other text is sent to your current room.\n"
	s.replier.Bulk(sess.Link, help)
}

func (s *Server) chatBack(ctx context.Context, sess *Session) {
	if sess.CurrentRoom != "" {
		s.chat.Leave(sess.Hash, s.display(ctx, sess.Hash), sess.CurrentRoom)
		sess.CurrentRoom = ""
		s.replier.RoomChanged(sess.Link, "")
	}
	s.returnToMainMenu(sess)
}

func (s *Server) chatJoin(ctx context.Context, sess *Session, rest string) {
	room := strings.TrimSpace(rest)
	if room == "" {
		s.replier.Small(sess.Link, "Usage: /JOIN <room_name>")
		return
	}
	display := s.display(ctx, sess.Hash)
	if sess.CurrentRoom != "" {
		s.chat.Leave(sess.Hash, display, sess.CurrentRoom)
	}
	s.chat.Join(sess.Hash, display, room, sess.Link)
	sess.CurrentRoom = room
	s.replier.RoomChanged(sess.Link, room)
	s.replier.Small(sess.Link, fmt.Sprintf("Joined room: %s", room))
}

func (s *Server) chatLeave(ctx context.Context, sess *Session) {
	if sess.CurrentRoom == "" {
		s.replier.Small(sess.Link, "You are not in a chat room.")
		return
	}
	room := sess.CurrentRoom
	s.chat.Leave(sess.Hash, s.display(ctx, sess.Hash), room)
	sess.CurrentRoom = ""
	s.replier.RoomChanged(sess.Link, "")
	s.replier.Small(sess.Link, fmt.Sprintf("Left room: %s", room))
}

func (s *Server) chatSay(ctx context.Context, sess *Session, text string) {
	if sess.CurrentRoom == "" {
		s.replier.Small(sess.Link, "You are not in a chat room.")
		return
	}
	s.chat.Say(sess.Hash, s.display(ctx, sess.Hash), sess.CurrentRoom, strings.TrimSpace(text), sess.Link)
}
