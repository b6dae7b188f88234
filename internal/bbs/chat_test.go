package bbs

import (
	"context"
	"strings"
	"testing"

	"meshbbs/internal/transport"
)

func enterChatArea(t *testing.T, srv *Server, link *fakeLink) {
	t.Helper()
	send(srv, link, "j")
	found := false
	for _, p := range link.sent {
		if p == transport.ControlAreaPrefix+"Chat" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected chat area control line, sent: %v", link.sent)
	}
}

func TestChatJoinAndBroadcast(t *testing.T) {
	srv, store := newTestServer(t, nil)
	ctx := context.Background()

	alice := connect(t, srv, "hash-alice")
	bob := connect(t, srv, "hash-bob")
	if err := store.SetUserName(ctx, "hash-alice", "alice"); err != nil {
		t.Fatalf("name alice: %v", err)
	}
	if err := store.SetUserName(ctx, "hash-bob", "bob"); err != nil {
		t.Fatalf("name bob: %v", err)
	}

	enterChatArea(t, srv, alice)
	enterChatArea(t, srv, bob)

	send(srv, alice, "/join lounge")
	if got := lastSent(t, alice); got != "Joined room: lounge" {
		t.Fatalf("join reply: got %q", got)
	}

	send(srv, bob, "/j lounge")
	// Alice sees bob arrive.
	arrival := lastSent(t, alice)
	if arrival != "[lounge] bob has joined the room." {
		t.Fatalf("arrival notice: got %q", arrival)
	}

	send(srv, alice, "hello everyone")
	if got := lastSent(t, bob); got != "[lounge] alice: hello everyone" {
		t.Fatalf("broadcast to bob: got %q", got)
	}
	// The sender gets an echo, not the broadcast.
	if got := lastSent(t, alice); got != "[lounge] (You): hello everyone" {
		t.Fatalf("sender echo: got %q", got)
	}
}

func TestChatLeaveAndEmptyRoomRemoval(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	alice := connect(t, srv, "hash-alice")
	bob := connect(t, srv, "hash-bob")
	enterChatArea(t, srv, alice)
	enterChatArea(t, srv, bob)
	send(srv, alice, "/join lounge")
	send(srv, bob, "/join lounge")

	send(srv, bob, "/leave")
	if got := lastSent(t, bob); got != "Left room: lounge" {
		t.Fatalf("leave reply: got %q", got)
	}
	if got := lastSent(t, alice); !strings.Contains(got, "has left the room.") {
		t.Fatalf("departure notice: got %q", got)
	}

	send(srv, bob, "/leave")
	if got := lastSent(t, bob); got != "You are not in a chat room." {
		t.Fatalf("double leave: got %q", got)
	}

	// Last member out deletes the room.
	send(srv, alice, "/leave")
	send(srv, alice, "/list")
	if got := lastSent(t, alice); !strings.Contains(got, "No chat rooms are currently open.") {
		t.Fatalf("room list after emptying: got %q", got)
	}
}

func TestChatListRooms(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	alice := connect(t, srv, "hash-alice")
	enterChatArea(t, srv, alice)

	send(srv, alice, "/list")
	if got := lastSent(t, alice); !strings.Contains(got, "No chat rooms are currently open.") {
		t.Fatalf("empty list: got %q", got)
	}

	send(srv, alice, "/join lounge")
	send(srv, alice, "/list")
	if got := lastSent(t, alice); !strings.Contains(got, "- lounge (1 participant)") {
		t.Fatalf("room list: got %q", got)
	}
}

func TestChatMessageOutsideRoom(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	alice := connect(t, srv, "hash-alice")
	enterChatArea(t, srv, alice)

	send(srv, alice, "anyone there?")
	if got := lastSent(t, alice); got != "You are not in a chat room." {
		t.Fatalf("chat outside room: got %q", got)
	}
}

func TestChatJoinSwitchesRooms(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	alice := connect(t, srv, "hash-alice")
	bob := connect(t, srv, "hash-bob")
	enterChatArea(t, srv, alice)
	enterChatArea(t, srv, bob)
	send(srv, alice, "/join first")
	send(srv, bob, "/join first")

	send(srv, bob, "/join second")
	// Alice sees bob leave the first room.
	if got := lastSent(t, alice); !strings.Contains(got, "has left the room.") {
		t.Fatalf("departure on switch: got %q", got)
	}
	if got := lastSent(t, bob); got != "Joined room: second" {
		t.Fatalf("switch reply: got %q", got)
	}
}

func TestReconnectLeavesRoom(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	alice := connect(t, srv, "hash-alice")
	bob := connect(t, srv, "hash-bob")
	enterChatArea(t, srv, alice)
	enterChatArea(t, srv, bob)
	send(srv, alice, "/join lounge")
	send(srv, bob, "/join lounge")

	// Alice reconnects on a fresh link while still in the room. Her old
	// membership must not linger on the dead link.
	connect(t, srv, "hash-alice")
	if got := lastSent(t, bob); !strings.Contains(got, "has left the room.") {
		t.Fatalf("departure on reconnect: got %q", got)
	}
	send(srv, bob, "/list")
	if got := lastSent(t, bob); !strings.Contains(got, "- lounge (1 participant)") {
		t.Fatalf("room list after reconnect: got %q", got)
	}

	// The old link's eventual close is a no-op, not a second departure.
	before := len(bob.sent)
	srv.dispatch(context.Background(), transport.Event{Type: transport.EventClosed, Link: alice})
	if len(bob.sent) != before {
		t.Fatalf("stale link close broadcast again: %v", bob.sent[before:])
	}
}

func TestDisconnectLeavesRoom(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	alice := connect(t, srv, "hash-alice")
	bob := connect(t, srv, "hash-bob")
	enterChatArea(t, srv, alice)
	enterChatArea(t, srv, bob)
	send(srv, alice, "/join lounge")
	send(srv, bob, "/join lounge")

	srv.dispatch(context.Background(), transport.Event{Type: transport.EventClosed, Link: bob})
	if got := lastSent(t, alice); !strings.Contains(got, "has left the room.") {
		t.Fatalf("departure on disconnect: got %q", got)
	}

	// The dead session no longer routes commands.
	before := len(bob.sent)
	send(srv, bob, "?")
	if len(bob.sent) != before {
		t.Fatalf("expected no replies after disconnect")
	}
}
