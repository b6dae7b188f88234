package client

import "testing"

func TestReceiverDeliversPayload(t *testing.T) {
	var lines []string
	r := NewReceiver(func(text string) { lines = append(lines, text) }, nil)

	r.Started()
	if !r.Receiving() {
		t.Fatalf("expected receiving state after start")
	}
	r.Concluded([]byte("All Boards:\ngeneral"))
	if r.Receiving() {
		t.Fatalf("expected receiving state cleared after conclusion")
	}
	if len(lines) != 1 || lines[0] != "All Boards:\ngeneral" {
		t.Fatalf("delivered lines: %v", lines)
	}
}

func TestReceiverEmptyPayloadNotice(t *testing.T) {
	var lines []string
	r := NewReceiver(func(text string) { lines = append(lines, text) }, nil)

	r.Started()
	r.Concluded(nil)
	if len(lines) != 1 || lines[0] != "Received empty response from server." {
		t.Fatalf("expected empty-response notice, got %v", lines)
	}
}

func TestReceiverBoardJoinFallback(t *testing.T) {
	var boards []string
	r := NewReceiver(func(string) {}, func(board string) { boards = append(boards, board) })

	r.Started()
	r.Concluded([]byte("You have joined board 'general'\n\nCommands: ..."))
	if len(boards) != 1 || boards[0] != "general" {
		t.Fatalf("board fallback: got %v", boards)
	}

	r.Started()
	r.Concluded([]byte("No messages found in board 'general'."))
	if len(boards) != 1 {
		t.Fatalf("unexpected extra board change: %v", boards)
	}
}
