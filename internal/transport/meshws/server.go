package meshws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"meshbbs/internal/transport"
)

// Server accepts mesh links over websocket and feeds their events into
// a single channel consumed by the BBS dispatch loop.
type Server struct {
	localHash string
	appData   []byte
	interval  time.Duration

	upgrader websocket.Upgrader
	events   chan transport.Event

	mu    sync.Mutex
	links map[*wsLink]struct{}
}

// NewServer builds a link acceptor. appData is the announcement payload
// broadcast to connected peers; interval 0 disables the periodic
// announcer (an announce is still sent to each peer on connect).
func NewServer(localHash string, appData []byte, interval time.Duration) *Server {
	return &Server{
		localHash: localHash,
		appData:   appData,
		interval:  interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		events: make(chan transport.Event, 64),
		links:  make(map[*wsLink]struct{}),
	}
}

func (s *Server) Events() <-chan transport.Event {
	return s.events
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}

		l := newWSLink(conn, s.localHash, func(ev transport.Event) {
			s.events <- ev
		})
		s.mu.Lock()
		s.links[l] = struct{}{}
		s.mu.Unlock()

		go l.writePump()

		// The peer learns who it reached before anything else.
		_ = l.enqueue(frame{Type: frameAnnounce, Hash: s.localHash, Data: s.appData})

		s.events <- transport.Event{Type: transport.EventConnected, Link: l}
		l.readLoop()

		s.mu.Lock()
		delete(s.links, l)
		s.mu.Unlock()
	}
}

// Announce re-broadcasts the announcement payload to every connected
// peer. Announces travel as link frames; there is no separate broadcast
// medium on this wire.
func (s *Server) Announce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for l := range s.links {
		_ = l.enqueue(frame{Type: frameAnnounce, Hash: s.localHash, Data: s.appData})
	}
}

// Run announces on the configured interval until the context ends.
func (s *Server) Run(ctx context.Context) {
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Announce()
		}
	}
}
