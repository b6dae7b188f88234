package bbs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meshbbs/internal/db"
)

const mainMenuText = "Main Menu: [?] Help [h] Hello [n] Name [d] Destination [b] Boards Area [j] Chat Area [lo] Log Out"

const boardsMenuText = "Boards Menu: [?] Help [b] Back [lb] List Boards [cb] Change Board [p] Post Message [lm] List Messages"

const chatMenuText = "Chat: [/?] Help [/b] Back [/join] Join Room [/leave] Leave Room [/list] List Rooms"

func (s *Server) handleMainMenu(ctx context.Context, sess *Session, line string) {
	cmd, rest := splitCommand(line)
	if cmd == "" {
		s.replier.Small(sess.Link, "UNKNOWN COMMAND\n")
		return
	}

	switch cmd {
	case "?", "help":
		s.mainMenuHelp(ctx, sess)
	case "h", "hello":
		s.mainMenuHello(ctx, sess)
	case "n", "name":
		s.mainMenuName(ctx, sess, rest)
	case "d", "destination":
		s.mainMenuDestination(ctx, sess, rest)
	case "b", "boards":
		s.enterBoards(ctx, sess)
	case "j", "join":
		s.enterChat(sess)
	case "lo", "logout":
		s.replier.Small(sess.Link, "You have been logged out. Goodbye!\n")
		sess.Link.Teardown()
	case "lu", "listusers":
		s.mainMenuListUsers(ctx, sess)
	case "a", "admin":
		s.mainMenuAdmin(ctx, sess, rest)
	default:
		s.replier.Small(sess.Link, "UNKNOWN COMMAND. Use '?' for help.")
	}
}

func (s *Server) mainMenuHelp(ctx context.Context, sess *Session) {
	reply := "You are in the main menu.\n\n" +
		"Available Commands:\n" +
		"  ?  | help               - Show this help text\n" +
		"  h  | hello              - Check authorization\n" +
		"  n  | name <name>        - Set display name\n" +
		"  d  | destination <addr> - Set notification address\n" +
		"  b  | boards             - Switch to boards area\n" +
		"  j  | join               - Switch to chat area\n" +
		"  lo | logout             - Log out"
	if s.isAdmin(ctx, sess.Hash) {
		reply += "\n\nAdmin Commands:\n" +
			"  lu | listusers         - List all users\n" +
			"  a  | admin <user_hash> - Assign admin rights to a user"
	}
	s.replier.Bulk(sess.Link, reply)
}

func (s *Server) mainMenuHello(ctx context.Context, sess *Session) {
	u, err := s.store.GetUser(ctx, sess.Hash)
	if err != nil {
		s.replier.Small(sess.Link, "[ERROR] User not found.")
		return
	}
	reply := fmt.Sprintf("Hello, %s.", u.Display())
	if u.IsAdmin {
		reply += "\nYou have ADMIN rights."
	}
	s.replier.Small(sess.Link, reply)
}

func (s *Server) mainMenuName(ctx context.Context, sess *Session, rest string) {
	name := strings.TrimSpace(rest)
	if name == "" {
		s.replier.Small(sess.Link, "NAME command requires a non-empty name.")
		return
	}
	taken, err := s.store.IsNameTaken(ctx, name, sess.Hash)
	if err != nil {
		s.replier.Small(sess.Link, "Error setting display name.")
		return
	}
	if taken {
		s.replier.Small(sess.Link, fmt.Sprintf("ERROR: The name '%s' is already taken.", name))
		return
	}
	if err := s.store.SetUserName(ctx, sess.Hash, name); err != nil {
		s.replier.Small(sess.Link, "Error setting display name.")
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("Your display name is now set to '%s'.", name))
}

func (s *Server) mainMenuDestination(ctx context.Context, sess *Session, rest string) {
	addr := strings.TrimSpace(rest)
	if addr == "" {
		s.replier.Small(sess.Link, "Usage: DESTINATION <address>")
		return
	}
	if err := s.store.SetNotifyAddr(ctx, sess.Hash, addr); err != nil {
		s.replier.Small(sess.Link, "Error setting notification address.")
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("Your notification address is now set to '%s'.", addr))
}

// enterBoards switches the session into the boards area. Re-entering
// while already there only refreshes the status line.
func (s *Server) enterBoards(ctx context.Context, sess *Session) {
	if sess.Area != AreaBoards {
		s.replier.ClearScreen(sess.Link)
		s.replier.Bulk(sess.Link, boardsMenuText)
		sess.Area = AreaBoards
	} else {
		s.replier.Small(sess.Link, "You are already in the boards area.")
	}
	s.replier.AreaChanged(sess.Link, AreaBoards)
	s.replier.BoardChanged(sess.Link, sess.CurrentBoard)
	_ = ctx
}

// enterChat switches the session into the chat area.
func (s *Server) enterChat(sess *Session) {
	s.replier.ClearScreen(sess.Link)
	s.replier.Bulk(sess.Link, chatMenuText)
	sess.Area = AreaChat
	s.replier.AreaChanged(sess.Link, AreaChat)
}

// returnToMainMenu is shared by the boards and chat back commands.
func (s *Server) returnToMainMenu(sess *Session) {
	s.replier.ClearScreen(sess.Link)
	sess.Area = AreaMainMenu
	banner := fmt.Sprintf("Welcome to %s\n%s", s.name, mainMenuText)
	s.replier.Bulk(sess.Link, banner)
	s.replier.AreaChanged(sess.Link, AreaMainMenu)
}

func (s *Server) mainMenuListUsers(ctx context.Context, sess *Session) {
	if !s.isAdmin(ctx, sess.Hash) {
		s.replier.Small(sess.Link, "ERROR: Only admins can list users.")
		return
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.replier.Small(sess.Link, "Error listing users.")
		return
	}
	if len(users) == 0 {
		s.replier.Bulk(sess.Link, "No users found.")
		return
	}
	var b strings.Builder
	b.WriteString("Users:\n")
	for _, u := range users {
		name := u.Name
		if name == "" {
			name = "N/A"
		}
		admin := ""
		if u.IsAdmin {
			admin = " (Admin)"
		}
		fmt.Fprintf(&b, "- %s | %s%s\n", u.HashHex, name, admin)
	}
	s.replier.Bulk(sess.Link, b.String())
}

func (s *Server) mainMenuAdmin(ctx context.Context, sess *Session, rest string) {
	if !s.isAdmin(ctx, sess.Hash) {
		s.replier.Small(sess.Link, "ERROR: Only admins can assign admin rights.")
		return
	}
	target := strings.TrimSpace(rest)
	if target == "" {
		s.replier.Small(sess.Link, "Usage: ADMIN <user_hash>")
		return
	}
	u, err := s.store.GetUser(ctx, target)
	if errors.Is(err, db.ErrNotFound) {
		s.replier.Small(sess.Link, "ERROR: User does not exist.")
		return
	}
	if err != nil {
		s.replier.Small(sess.Link, "Error assigning admin rights.")
		return
	}
	if err := s.store.SetAdmin(ctx, target, true); err != nil {
		s.replier.Small(sess.Link, "Error assigning admin rights.")
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("User %s has been granted admin rights.", u.Display()))
}
