package meshws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"meshbbs/internal/client"
	"meshbbs/internal/transport"
)

// announcePayload is the JSON a server attaches to its announcements.
type announcePayload struct {
	ServerName string `json:"server_name"`
}

// Network holds the client's view of reachable servers: destination
// hashes mapped to dial URLs, plus display names learned from
// announcements. Paths are configured with AddPath; a real routing mesh
// would discover them.
type Network struct {
	localHash string

	mu      sync.Mutex
	paths   map[string]string // dest hash -> ws URL
	names   map[string]string // dest hash -> announced server name
	waiters map[string][]chan struct{}
}

func NewNetwork(localHash string) *Network {
	return &Network{
		localHash: localHash,
		paths:     make(map[string]string),
		names:     make(map[string]string),
		waiters:   make(map[string][]chan struct{}),
	}
}

// AddPath records how to reach dest and wakes any AwaitPath callers.
func (n *Network) AddPath(dest, url string) {
	n.mu.Lock()
	n.paths[dest] = url
	waiters := n.waiters[dest]
	delete(n.waiters, dest)
	n.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
}

func (n *Network) HasPath(dest string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.paths[dest]
	return ok
}

// AwaitPath blocks until a path to dest is known or ctx ends.
func (n *Network) AwaitPath(ctx context.Context, dest string) error {
	n.mu.Lock()
	if _, ok := n.paths[dest]; ok {
		n.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	n.waiters[dest] = append(n.waiters[dest], w)
	n.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecallIdentity reports whether dest's identity is known. On this wire
// a known path implies a recallable identity.
func (n *Network) RecallIdentity(dest string) bool {
	return n.HasPath(dest)
}

// ServerName returns the display name a server announced, falling back
// to its raw destination hash before the first announcement arrives.
func (n *Network) ServerName(dest string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if name, ok := n.names[dest]; ok && name != "" {
		return name
	}
	return dest
}

// Open dials dest and returns the link before it is active; callers
// wait for activation with AwaitActive.
func (n *Network) Open(dest string) (client.Link, error) {
	n.mu.Lock()
	url := n.paths[dest]
	n.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	cl := &clientLink{
		events: make(chan transport.Event, 64),
		active: make(chan struct{}),
	}
	cl.wsLink = newWSLink(conn, n.localHash, func(ev transport.Event) {
		cl.events <- ev
		if ev.Type == transport.EventClosed {
			close(cl.events)
		}
	})
	cl.wsLink.onAnnounce = func(data []byte) {
		var p announcePayload
		if err := json.Unmarshal(data, &p); err == nil && p.ServerName != "" {
			n.mu.Lock()
			n.names[dest] = p.ServerName
			n.mu.Unlock()
		}
		cl.activeOnce.Do(func() { close(cl.active) })
	}

	go cl.writePump()
	go cl.readLoop()
	return cl, nil
}

// clientLink is the outbound end of a link. The first announcement from
// the server marks the link active.
type clientLink struct {
	*wsLink
	events     chan transport.Event
	active     chan struct{}
	activeOnce sync.Once
}

func (l *clientLink) AwaitActive(ctx context.Context) error {
	select {
	case <-l.active:
		return nil
	case <-l.done:
		return errLinkDown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Identify proves the local identity to the server.
func (l *clientLink) Identify() error {
	return l.enqueue(frame{Type: frameIdentify, Hash: l.localHash})
}

func (l *clientLink) Events() <-chan transport.Event {
	return l.events
}
