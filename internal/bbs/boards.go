package bbs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"meshbbs/internal/db"
)

const pageSize = 10

func (s *Server) handleBoards(ctx context.Context, sess *Session, line string) {
	cmd, rest := splitCommand(line)
	if cmd == "" {
		s.replier.Small(sess.Link, "UNKNOWN COMMAND\n")
		return
	}

	switch cmd {
	case "?", "help":
		s.boardsHelp(ctx, sess)
	case "b", "back":
		s.returnToMainMenu(sess)
	case "j", "join":
		s.enterChat(sess)
	case "lb", "listboards":
		s.boardsList(ctx, sess)
	case "cb", "changeboard":
		s.boardsChange(ctx, sess, rest)
	case "w", "watch":
		s.boardsWatch(ctx, sess, rest)
	case "uw", "unwatch":
		s.boardsUnwatch(ctx, sess, rest)
	case "wl", "watchlist":
		s.boardsWatchlist(ctx, sess)
	case "p", "post":
		s.boardsPost(ctx, sess, rest)
	case "lm", "listmessages":
		s.boardsListMessages(ctx, sess, rest, sess.Page)
	case "lu", "listunread":
		s.boardsListUnread(ctx, sess)
	case ">", "next":
		s.boardsNextPage(ctx, sess)
	case "<", "prev":
		s.boardsPrevPage(ctx, sess)
	case "r", "read":
		s.boardsRead(ctx, sess, rest)
	case "re", "reply":
		s.boardsReply(ctx, sess, rest)
	case "nb", "newboard":
		s.boardsNew(ctx, sess, rest)
	case "db", "deleteboard":
		s.boardsDelete(ctx, sess, rest)
	default:
		s.replier.Small(sess.Link, fmt.Sprintf("Unknown command: %s in board area.", cmd))
	}
}

func (s *Server) boardsHelp(ctx context.Context, sess *Session) {
	reply := "You are in the message boards area.\n\n" +
		"Available Commands:\n" +
		"  ?  | help                           - Show this help text\n" +
		"  b  | back                           - Return to main menu\n" +
		"  lb | listboards                     - List all boards\n" +
		"  cb | changeboard <boardname>        - Switch to a board (so you can post/list by default)\n" +
		"  w  | watch <boardname>              - Add a board to your watchlist\n" +
		"  uw | unwatch <boardname>            - Remove a board from your watchlist\n" +
		"  wl | watchlist                      - List boards you are watching\n" +
		"  p  | post <topic> | <text>          - Post a message to your current board\n" +
		"  lm | listmessages [boardname]       - List messages in 'boardname' or your current board\n" +
		"  lu | listunread                     - List unread messages in your current board\n" +
		"  >  | next                           - Go to the next page of messages\n" +
		"  <  | prev                           - Go to the previous page of messages\n" +
		"  r  | read <message_id>              - Read a message by ID\n" +
		"  re | reply <message_id> | <content> - Reply to a message by ID\n"
	if s.isAdmin(ctx, sess.Hash) {
		reply += "\n\nAdmin Commands:\n" +
			"  nb | newboard <name>          - Create a new board\n" +
			"  db | deleteboard <boardname>  - Delete a board\n"
	}
	s.replier.Bulk(sess.Link, reply)
}

func (s *Server) boardsList(ctx context.Context, sess *Session) {
	names, err := s.store.ListBoards(ctx)
	if err != nil {
		s.replier.Small(sess.Link, "Error listing boards.")
		return
	}
	if len(names) == 0 {
		s.replier.Bulk(sess.Link, "No boards exist.")
		return
	}
	s.replier.Bulk(sess.Link, "All Boards:\n"+strings.Join(names, "\n")+"\n")
}

func (s *Server) boardsChange(ctx context.Context, sess *Session, rest string) {
	board := strings.TrimSpace(rest)
	if board == "" {
		s.replier.Small(sess.Link, "Usage: CHANGEBOARD <board_name>")
		return
	}
	exists, err := s.store.BoardExists(ctx, board)
	if err != nil {
		s.replier.Small(sess.Link, "Error changing board.")
		return
	}
	if !exists {
		var reply string
		if sess.CurrentBoard != "" {
			reply = fmt.Sprintf("ERROR: Board '%s' does not exist. You are still in board '%s'", board, sess.CurrentBoard)
		} else {
			reply = fmt.Sprintf("ERROR: Board '%s' does not exist. You are not currently in any board.", board)
		}
		s.replier.Small(sess.Link, reply)
		return
	}
	var reply string
	if sess.CurrentBoard == board {
		reply = fmt.Sprintf("You are already in board '%s'", board)
	} else {
		sess.CurrentBoard = board
		sess.Page = 1
		reply = fmt.Sprintf("You have joined board '%s'", board) +
			"\n\nCommands: 'lm' to list messages, 'lu' to list unread messages."
	}
	s.replier.BoardChanged(sess.Link, board)
	s.replier.Small(sess.Link, reply)
}

func (s *Server) boardsWatch(ctx context.Context, sess *Session, rest string) {
	board := strings.TrimSpace(rest)
	if board == "" {
		s.replier.Small(sess.Link, "Usage: WATCH <board_name>")
		return
	}
	u, err := s.store.GetUser(ctx, sess.Hash)
	if err != nil {
		s.replier.Small(sess.Link, "[ERROR] User not found.")
		return
	}
	if u.NotifyAddr == "" {
		s.replier.Small(sess.Link, "You cannot watch a board without a notification address set. Go back to the main menu and use the 'destination' command to set one.")
		return
	}
	err = s.store.Watch(ctx, sess.Hash, board)
	if errors.Is(err, db.ErrBoardNotFound) {
		s.replier.Small(sess.Link, fmt.Sprintf("Board '%s' does not exist.", board))
		return
	}
	if err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error adding board '%s' to watchlist.", board))
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("Board '%s' added to your watchlist.", board))
}

func (s *Server) boardsUnwatch(ctx context.Context, sess *Session, rest string) {
	board := strings.TrimSpace(rest)
	if board == "" {
		s.replier.Small(sess.Link, "Usage: UNWATCH <board_name>")
		return
	}
	err := s.store.Unwatch(ctx, sess.Hash, board)
	if errors.Is(err, db.ErrBoardNotFound) {
		s.replier.Small(sess.Link, fmt.Sprintf("Board '%s' does not exist.", board))
		return
	}
	if err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error removing board '%s' from watchlist.", board))
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("Board '%s' removed from your watchlist.", board))
}

func (s *Server) boardsWatchlist(ctx context.Context, sess *Session) {
	watched, err := s.store.Watchlist(ctx, sess.Hash)
	if err != nil {
		s.replier.Small(sess.Link, "Error retrieving your watchlist.")
		return
	}
	if len(watched) == 0 {
		s.replier.Small(sess.Link, "You are not watching any boards.")
		return
	}
	s.replier.Small(sess.Link, "Your watchlist:\n"+strings.Join(watched, "\n"))
}

func (s *Server) boardsPost(ctx context.Context, sess *Session, rest string) {
	text := strings.TrimSpace(rest)
	if text == "" {
		s.replier.Small(sess.Link, "Usage: POST <topic> | <message content>")
		return
	}
	if !strings.Contains(text, "|") {
		s.replier.Small(sess.Link, "ERROR: Please use '|' to separate the topic and content.\nExample: POST My Topic | This is the message content.")
		return
	}
	parts := strings.SplitN(text, "|", 2)
	topic := strings.TrimSpace(parts[0])
	content := strings.TrimSpace(parts[1])
	if topic == "" {
		s.replier.Small(sess.Link, "ERROR: Topic cannot be empty.")
		return
	}
	if content == "" {
		s.replier.Small(sess.Link, "ERROR: Message content cannot be empty.")
		return
	}
	if sess.CurrentBoard == "" {
		s.replier.Small(sess.Link, "You are not in a board area.")
		return
	}
	author := s.display(ctx, sess.Hash)
	_, err := s.store.PostMessage(ctx, sess.CurrentBoard, author, sess.Hash, topic, content, nil)
	if err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error posting to board '%s'.", sess.CurrentBoard))
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("Posted to board '%s': [%s] %s", sess.CurrentBoard, topic, content))
	s.notify.PostCreated(ctx, sess.CurrentBoard, topic, content, author)
}

func formatTimestamp(secs int64) string {
	return time.Unix(secs, 0).Format("2006-01-02 15:04:05")
}

// boardsListMessages renders one page of the board's top-level
// messages, newest first.
func (s *Server) boardsListMessages(ctx context.Context, sess *Session, rest string, page int) {
	board := strings.TrimSpace(rest)
	if board == "" {
		board = sess.CurrentBoard
		if board == "" {
			s.replier.Small(sess.Link, "You are not in any board. Use CHANGEBOARD <board> first.")
			return
		}
	}
	msgs, total, err := s.store.ListMessages(ctx, board, page, pageSize)
	if errors.Is(err, db.ErrBoardNotFound) {
		s.replier.Small(sess.Link, fmt.Sprintf("ERROR: Board '%s' does not exist.", board))
		return
	}
	if err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error listing messages for board '%s'.", board))
		return
	}
	if len(msgs) == 0 {
		s.replier.Bulk(sess.Link, fmt.Sprintf("No messages found in board '%s'.", board))
		return
	}
	totalPages := (total + pageSize - 1) / pageSize
	var b strings.Builder
	fmt.Fprintf(&b, "Messages in board '%s' (Page %d/%d):", board, page, totalPages)
	for _, m := range msgs {
		fmt.Fprintf(&b, "\n[%d] %s | %s | %s (%d replies)", m.ID, formatTimestamp(m.Timestamp), m.Author, m.Topic, m.ReplyCount)
	}
	b.WriteString("\n\nCommands: 'r <id>' to read a message, < (prev) || > (next) for navigation.")
	s.replier.Bulk(sess.Link, b.String())
}

func (s *Server) boardsListUnread(ctx context.Context, sess *Session) {
	if sess.CurrentBoard == "" {
		s.replier.Small(sess.Link, "You are not in any board. Use CHANGEBOARD <board> first.")
		return
	}
	msgs, err := s.store.ListUnread(ctx, sess.CurrentBoard, sess.Hash)
	if err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error listing unread messages for board '%s'.", sess.CurrentBoard))
		return
	}
	if len(msgs) == 0 {
		s.replier.Bulk(sess.Link, fmt.Sprintf("No unread messages in board '%s'.", sess.CurrentBoard))
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Unread messages in board '%s':", sess.CurrentBoard)
	for _, m := range msgs {
		fmt.Fprintf(&b, "\n[%d] %s | %s | %s", m.ID, formatTimestamp(m.Timestamp), m.Author, m.Topic)
	}
	s.replier.Bulk(sess.Link, b.String())
}

func (s *Server) boardsNextPage(ctx context.Context, sess *Session) {
	if sess.CurrentBoard == "" {
		s.replier.Small(sess.Link, "You are not in any board. Use CHANGEBOARD <board> first.")
		return
	}
	msgs, _, err := s.store.ListMessages(ctx, sess.CurrentBoard, sess.Page+1, pageSize)
	if err != nil || len(msgs) == 0 {
		s.replier.Small(sess.Link, "You are already on the last page.")
		return
	}
	sess.Page++
	s.boardsListMessages(ctx, sess, sess.CurrentBoard, sess.Page)
}

func (s *Server) boardsPrevPage(ctx context.Context, sess *Session) {
	if sess.CurrentBoard == "" {
		s.replier.Small(sess.Link, "You are not in any board. Use CHANGEBOARD <board> first.")
		return
	}
	if sess.Page <= 1 {
		s.replier.Small(sess.Link, "You are already on the first page.")
		return
	}
	sess.Page--
	s.boardsListMessages(ctx, sess, sess.CurrentBoard, sess.Page)
}

// boardsRead renders a message with its reply thread and records a
// read marker for the session's user.
func (s *Server) boardsRead(ctx context.Context, sess *Session, rest string) {
	idStr := strings.TrimSpace(rest)
	if idStr == "" {
		s.replier.Small(sess.Link, "Usage: READ <message_id>")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.replier.Small(sess.Link, "Usage: READ <message_id>")
		return
	}
	m, err := s.store.GetMessage(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		s.replier.Bulk(sess.Link, fmt.Sprintf("Message ID %d not found.", id))
		return
	}
	if err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error reading message ID %d.", id))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n----- Message %d -----\n", m.ID)
	fmt.Fprintf(&b, "Timestamp: %s\n", formatTimestamp(m.Timestamp))
	fmt.Fprintf(&b, "Author: %s\n", m.Author)
	fmt.Fprintf(&b, "Topic: %s\n\n", m.Topic)
	fmt.Fprintf(&b, "%s\n", m.Content)

	replies, err := s.store.ListReplies(ctx, m.ID)
	if err == nil && len(replies) > 0 {
		b.WriteString("\nReplies:\n")
		for _, r := range replies {
			fmt.Fprintf(&b, "  [%d] %s | %s: %s\n", r.ID, formatTimestamp(r.Timestamp), r.Author, r.Content)
		}
	}
	b.WriteString("\nTo reply, use: reply <message_id> | <content>")

	// A failed read marker should not block rendering the message.
	_ = s.store.MarkRead(ctx, sess.Hash, m.ID)
	s.replier.Bulk(sess.Link, b.String())
}

func (s *Server) boardsReply(ctx context.Context, sess *Session, rest string) {
	if !strings.Contains(rest, "|") {
		s.replier.Small(sess.Link, "Usage: REPLY <message_id> | <content>")
		return
	}
	parts := strings.SplitN(rest, "|", 2)
	idStr := strings.TrimSpace(parts[0])
	content := strings.TrimSpace(parts[1])
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.replier.Small(sess.Link, "Usage: REPLY <message_id> | <content>")
		return
	}
	if content == "" {
		s.replier.Small(sess.Link, "ERROR: Reply content cannot be empty.")
		return
	}
	parent, err := s.store.GetMessage(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		s.replier.Small(sess.Link, fmt.Sprintf("Message ID %d not found.", id))
		return
	}
	if err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error replying to message ID %d.", id))
		return
	}
	if sess.CurrentBoard == "" {
		s.replier.Small(sess.Link, "You are not in a board area.")
		return
	}
	author := s.display(ctx, sess.Hash)
	topic := "Re: " + parent.Topic
	if _, err := s.store.PostMessage(ctx, sess.CurrentBoard, author, sess.Hash, topic, content, &parent.ID); err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error replying to message ID %d.", id))
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("Reply posted to message ID %d.", id))

	// No notification for replying to your own post.
	if parent.AuthorHash == sess.Hash {
		return
	}
	s.notify.ReplyCreated(ctx, parent, topic, content, author)
}

func (s *Server) boardsNew(ctx context.Context, sess *Session, rest string) {
	if !s.isAdmin(ctx, sess.Hash) {
		s.replier.Small(sess.Link, "ERROR: Only admins can create boards.")
		return
	}
	board := strings.TrimSpace(rest)
	if board == "" {
		s.replier.Small(sess.Link, "Usage: NEWBOARD <board_name>")
		return
	}
	err := s.store.CreateBoard(ctx, board)
	if errors.Is(err, db.ErrInvalidName) {
		s.replier.Small(sess.Link, "ERROR: Invalid board name. Must be alphanumeric and 3-20 characters long.")
		return
	}
	// An existing board of the same name is fine; the outcome is the
	// same either way.
	if err != nil && !errors.Is(err, db.ErrAlreadyExists) {
		s.replier.Small(sess.Link, fmt.Sprintf("Error creating board '%s'.", board))
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("Board '%s' is ready.", board))
}

func (s *Server) boardsDelete(ctx context.Context, sess *Session, rest string) {
	if !s.isAdmin(ctx, sess.Hash) {
		s.replier.Small(sess.Link, "ERROR: Only admins can delete boards.")
		return
	}
	board := strings.TrimSpace(rest)
	if board == "" {
		s.replier.Small(sess.Link, "Usage: DELETEBOARD <board_name>")
		return
	}
	err := s.store.DeleteBoard(ctx, board)
	if errors.Is(err, db.ErrBoardNotFound) {
		s.replier.Small(sess.Link, fmt.Sprintf("Board '%s' does not exist.", board))
		return
	}
	if err != nil {
		s.replier.Small(sess.Link, fmt.Sprintf("Error deleting board '%s'.", board))
		return
	}
	s.replier.Small(sess.Link, fmt.Sprintf("Board '%s' has been deleted.", board))
}
