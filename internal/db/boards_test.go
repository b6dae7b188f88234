package db

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestCreateListAndDeleteBoards(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "boards.db")

	if err := store.CreateBoard(ctx, "general"); err != nil {
		t.Fatalf("create board: %v", err)
	}
	if err := store.CreateBoard(ctx, "hamradio"); err != nil {
		t.Fatalf("create second board: %v", err)
	}

	if err := store.CreateBoard(ctx, "general"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate create: got %v, want ErrAlreadyExists", err)
	}

	names, err := store.ListBoards(ctx)
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	if !slices.Equal(names, []string{"general", "hamradio"}) {
		t.Fatalf("unexpected board list: %v", names)
	}

	exists, err := store.BoardExists(ctx, "general")
	if err != nil {
		t.Fatalf("board exists: %v", err)
	}
	if !exists {
		t.Fatalf("expected board 'general' to exist")
	}

	if err := store.DeleteBoard(ctx, "general"); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if err := store.DeleteBoard(ctx, "general"); !errors.Is(err, ErrBoardNotFound) {
		t.Fatalf("delete missing board: got %v, want ErrBoardNotFound", err)
	}
}

func TestBoardNameValidation(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "names.db")

	for _, name := range []string{"ab", "", "has space", "toolongboardname12345", "semi;colon"} {
		if err := store.CreateBoard(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("create %q: got %v, want ErrInvalidName", name, err)
		}
	}
	for _, name := range []string{"abc", "Board42", "12345678901234567890"} {
		if err := store.CreateBoard(ctx, name); err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
	}
}

func TestDeleteBoardCascades(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "cascade.db")

	if err := store.CreateBoard(ctx, "doomed"); err != nil {
		t.Fatalf("create board: %v", err)
	}
	id, err := store.PostMessage(ctx, "doomed", "alice", "hash-alice", "Hi", "first", nil)
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	if _, err := store.PostMessage(ctx, "doomed", "bob", "hash-bob", "Re: Hi", "reply", &id); err != nil {
		t.Fatalf("post reply: %v", err)
	}
	if err := store.MarkRead(ctx, "hash-bob", id); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := store.Watch(ctx, "hash-bob", "doomed"); err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := store.DeleteBoard(ctx, "doomed"); err != nil {
		t.Fatalf("delete board: %v", err)
	}

	for _, table := range []string{"messages", "read_messages", "watched_boards"} {
		n, err := store.countRows(ctx, table)
		if err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Fatalf("expected %s to be empty after cascade, got %d rows", table, n)
		}
	}
}

func TestWatchlistLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, "watch.db")

	if err := store.CreateBoard(ctx, "general"); err != nil {
		t.Fatalf("create board: %v", err)
	}

	if err := store.Watch(ctx, "hash-a", "nosuch"); !errors.Is(err, ErrBoardNotFound) {
		t.Fatalf("watch missing board: got %v, want ErrBoardNotFound", err)
	}

	if err := store.Watch(ctx, "hash-a", "general"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	// Watching again must not error or duplicate.
	if err := store.Watch(ctx, "hash-a", "general"); err != nil {
		t.Fatalf("repeat watch: %v", err)
	}

	watched, err := store.Watchlist(ctx, "hash-a")
	if err != nil {
		t.Fatalf("watchlist: %v", err)
	}
	if !slices.Equal(watched, []string{"general"}) {
		t.Fatalf("unexpected watchlist: %v", watched)
	}

	watchers, err := store.ListWatchers(ctx, "general")
	if err != nil {
		t.Fatalf("list watchers: %v", err)
	}
	if !slices.Equal(watchers, []string{"hash-a"}) {
		t.Fatalf("unexpected watchers: %v", watchers)
	}

	if err := store.Unwatch(ctx, "hash-a", "general"); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	// Unwatching a board that is not watched is a no-op.
	if err := store.Unwatch(ctx, "hash-a", "general"); err != nil {
		t.Fatalf("repeat unwatch: %v", err)
	}

	watched, err = store.Watchlist(ctx, "hash-a")
	if err != nil {
		t.Fatalf("watchlist after unwatch: %v", err)
	}
	if len(watched) != 0 {
		t.Fatalf("expected empty watchlist, got %v", watched)
	}
}
