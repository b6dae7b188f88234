package bbs

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// boardFixture connects an admin, creates a board, and joins it.
func boardFixture(t *testing.T) (*Server, *fakeLink) {
	t.Helper()
	srv, store := newTestServer(t, nil)
	if err := store.SetAdmin(context.Background(), "hash-alice", true); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	link := connect(t, srv, "hash-alice")
	send(srv, link, "b")
	send(srv, link, "nb general")
	if got := lastSent(t, link); got != "Board 'general' is ready." {
		t.Fatalf("newboard reply: got %q", got)
	}
	send(srv, link, "cb general")
	return srv, link
}

func TestChangeBoard(t *testing.T) {
	srv, link := boardFixture(t)

	if got := lastSent(t, link); !strings.HasPrefix(got, "You have joined board 'general'") {
		t.Fatalf("join reply: got %q", got)
	}

	// The status control line precedes the textual confirmation.
	joined := false
	for _, p := range link.sent {
		if p == "CTRL BOARD general" {
			joined = true
		}
	}
	if !joined {
		t.Fatalf("expected board control line, sent: %v", link.sent)
	}

	send(srv, link, "cb general")
	if got := lastSent(t, link); got != "You are already in board 'general'" {
		t.Fatalf("re-join reply: got %q", got)
	}

	send(srv, link, "cb nosuch")
	if got := lastSent(t, link); got != "ERROR: Board 'nosuch' does not exist. You are still in board 'general'" {
		t.Fatalf("missing board reply: got %q", got)
	}
}

func TestPostValidation(t *testing.T) {
	srv, link := boardFixture(t)

	send(srv, link, "p")
	if got := lastSent(t, link); got != "Usage: POST <topic> | <message content>" {
		t.Fatalf("empty post: got %q", got)
	}
	send(srv, link, "p no separator here")
	if got := lastSent(t, link); !strings.HasPrefix(got, "ERROR: Please use '|'") {
		t.Fatalf("missing separator: got %q", got)
	}
	send(srv, link, "p | only content")
	if got := lastSent(t, link); got != "ERROR: Topic cannot be empty." {
		t.Fatalf("empty topic: got %q", got)
	}
	send(srv, link, "p Topic |")
	if got := lastSent(t, link); got != "ERROR: Message content cannot be empty." {
		t.Fatalf("empty content: got %q", got)
	}

	send(srv, link, "p Hello | first post")
	if got := lastSent(t, link); got != "Posted to board 'general': [Hello] first post" {
		t.Fatalf("post ack: got %q", got)
	}
}

func TestListAndReadMessages(t *testing.T) {
	srv, link := boardFixture(t)

	send(srv, link, "p Hello | first post")
	send(srv, link, "lm")
	listing := lastBulk(t, link)
	if !strings.Contains(listing, "Messages in board 'general' (Page 1/1):") {
		t.Fatalf("listing header: got %q", listing)
	}
	if !strings.Contains(listing, "Hello") || !strings.Contains(listing, "(0 replies)") {
		t.Fatalf("listing row: got %q", listing)
	}

	send(srv, link, "r 1")
	body := lastBulk(t, link)
	for _, want := range []string{"----- Message 1 -----", "Topic: Hello", "first post", "To reply, use: reply"} {
		if !strings.Contains(body, want) {
			t.Fatalf("read output missing %q: %q", want, body)
		}
	}

	// Reading marked it read.
	send(srv, link, "lu")
	if got := lastBulk(t, link); got != "No unread messages in board 'general'." {
		t.Fatalf("unread after read: got %q", got)
	}

	send(srv, link, "r 99")
	if got := lastBulk(t, link); got != "Message ID 99 not found." {
		t.Fatalf("read missing: got %q", got)
	}
}

func TestReplyThreading(t *testing.T) {
	srv, link := boardFixture(t)

	send(srv, link, "p Hello | first post")
	send(srv, link, "re 1 | a reply")
	if got := lastSent(t, link); got != "Reply posted to message ID 1." {
		t.Fatalf("reply ack: got %q", got)
	}

	send(srv, link, "lm")
	if got := lastBulk(t, link); !strings.Contains(got, "(1 replies)") {
		t.Fatalf("reply count in listing: got %q", got)
	}

	send(srv, link, "r 1")
	body := lastBulk(t, link)
	if !strings.Contains(body, "Replies:") || !strings.Contains(body, "a reply") {
		t.Fatalf("thread rendering: got %q", body)
	}

	send(srv, link, "re 99 | nobody home")
	if got := lastSent(t, link); got != "Message ID 99 not found." {
		t.Fatalf("reply to missing: got %q", got)
	}
	send(srv, link, "re 1 |")
	if got := lastSent(t, link); got != "ERROR: Reply content cannot be empty." {
		t.Fatalf("empty reply: got %q", got)
	}
	send(srv, link, "re not-a-number | text")
	if got := lastSent(t, link); got != "Usage: REPLY <message_id> | <content>" {
		t.Fatalf("bad id: got %q", got)
	}
}

func TestPageNavigation(t *testing.T) {
	srv, link := boardFixture(t)

	for i := 1; i <= 15; i++ {
		send(srv, link, fmt.Sprintf("p Topic %d | body", i))
	}

	send(srv, link, "<")
	if got := lastSent(t, link); got != "You are already on the first page." {
		t.Fatalf("prev on first page: got %q", got)
	}

	send(srv, link, ">")
	if got := lastBulk(t, link); !strings.Contains(got, "(Page 2/2)") {
		t.Fatalf("next page listing: got %q", got)
	}

	send(srv, link, ">")
	if got := lastSent(t, link); got != "You are already on the last page." {
		t.Fatalf("next past end: got %q", got)
	}

	send(srv, link, "<")
	if got := lastBulk(t, link); !strings.Contains(got, "(Page 1/2)") {
		t.Fatalf("back to first page: got %q", got)
	}
}

func TestDeleteBoardCommand(t *testing.T) {
	srv, link := boardFixture(t)

	send(srv, link, "db nosuch")
	if got := lastSent(t, link); got != "Board 'nosuch' does not exist." {
		t.Fatalf("delete missing: got %q", got)
	}
	send(srv, link, "db general")
	if got := lastSent(t, link); got != "Board 'general' has been deleted." {
		t.Fatalf("delete reply: got %q", got)
	}
	send(srv, link, "lb")
	if got := lastBulk(t, link); got != "No boards exist." {
		t.Fatalf("list after delete: got %q", got)
	}
}

func TestBoardAdminGating(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	link := connect(t, srv, "hash-bob")
	send(srv, link, "b")

	send(srv, link, "nb general")
	if got := lastSent(t, link); got != "ERROR: Only admins can create boards." {
		t.Fatalf("non-admin newboard: got %q", got)
	}
	send(srv, link, "db general")
	if got := lastSent(t, link); got != "ERROR: Only admins can delete boards." {
		t.Fatalf("non-admin deleteboard: got %q", got)
	}
}

func TestInvalidBoardNameRejected(t *testing.T) {
	srv, link := boardFixture(t)

	send(srv, link, "nb ab")
	if got := lastSent(t, link); got != "ERROR: Invalid board name. Must be alphanumeric and 3-20 characters long." {
		t.Fatalf("short name: got %q", got)
	}
}
