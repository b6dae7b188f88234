// Package bbs implements the board system itself: per-link sessions,
// the command routers for the main menu, boards, and chat areas, reply
// delivery, and watch notifications. All command handling runs on a
// single dispatch goroutine fed by the transport event stream.
package bbs

import (
	"sync"

	"meshbbs/internal/transport"
)

// Area is the command context a session is in. Each area has its own
// command set.
type Area int

const (
	AreaMainMenu Area = iota
	AreaBoards
	AreaChat
)

// String is the display form sent in area control lines.
func (a Area) String() string {
	switch a {
	case AreaMainMenu:
		return "Main Menu"
	case AreaBoards:
		return "Message Boards"
	case AreaChat:
		return "Chat"
	default:
		return "Unknown"
	}
}

// Session is the per-link state of an identified user. Sessions are
// not persisted; a reconnecting user starts back at the main menu.
type Session struct {
	Hash         string
	Area         Area
	CurrentBoard string
	CurrentRoom  string
	Page         int
	Link         transport.Link
}

// Sessions tracks the live session for each identified user.
type Sessions struct {
	mu     sync.Mutex
	byHash map[string]*Session
	byLink map[transport.Link]*Session
}

func NewSessions() *Sessions {
	return &Sessions{
		byHash: make(map[string]*Session),
		byLink: make(map[transport.Link]*Session),
	}
}

// Start registers a session for an identified link, replacing any
// previous session for the same identity. The displaced session is
// returned so the caller can clean up its area state; its link will
// never be found by End again.
func (s *Sessions) Start(hash string, link transport.Link) (sess, displaced *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byHash[hash]; ok {
		delete(s.byLink, old.Link)
		displaced = old
	}
	sess = &Session{Hash: hash, Area: AreaMainMenu, Page: 1, Link: link}
	s.byHash[hash] = sess
	s.byLink[link] = sess
	return sess, displaced
}

func (s *Sessions) ByLink(link transport.Link) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byLink[link]
	return sess, ok
}

func (s *Sessions) ByHash(hash string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byHash[hash]
	return sess, ok
}

// End removes the session bound to a link and returns it, if any.
func (s *Sessions) End(link transport.Link) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byLink[link]
	if !ok {
		return nil, false
	}
	delete(s.byLink, link)
	if cur, ok := s.byHash[sess.Hash]; ok && cur == sess {
		delete(s.byHash, sess.Hash)
	}
	return sess, true
}
