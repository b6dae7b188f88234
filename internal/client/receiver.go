package client

import (
	"regexp"
	"sync"
)

// Board-join confirmations arrive as reply text, not control lines, on
// servers that predate the CTRL BOARD marker. The receiver falls back
// to matching the confirmation wording.
var boardJoinedPattern = regexp.MustCompile(`You have joined board '(.+)'`)

// Receiver tracks an in-flight bulk reply. While a transfer is running
// the controller refuses new command submissions.
type Receiver struct {
	mu        sync.Mutex
	receiving bool

	onLine  func(text string)
	onBoard func(board string)
}

func NewReceiver(onLine func(string), onBoard func(string)) *Receiver {
	return &Receiver{onLine: onLine, onBoard: onBoard}
}

func (r *Receiver) Receiving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.receiving
}

func (r *Receiver) Started() {
	r.mu.Lock()
	r.receiving = true
	r.mu.Unlock()
}

// Concluded delivers the reassembled reply. An empty payload still
// produces a visible notice so the user knows the transfer ended.
func (r *Receiver) Concluded(data []byte) {
	r.mu.Lock()
	r.receiving = false
	r.mu.Unlock()

	if len(data) == 0 {
		if r.onLine != nil {
			r.onLine("Received empty response from server.")
		}
		return
	}

	text := string(data)
	if m := boardJoinedPattern.FindStringSubmatch(text); m != nil && r.onBoard != nil {
		r.onBoard(m[1])
	}
	if r.onLine != nil {
		r.onLine(text)
	}
}
