package bbs

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"meshbbs/internal/db"
	"meshbbs/internal/transport"
)

// Server is the BBS core. It consumes the transport event stream on a
// single goroutine; every command handler runs there, so handler state
// (sessions in flight, chat rooms) needs no further synchronization.
type Server struct {
	name     string
	store    *db.Store
	sessions *Sessions
	replier  Replier
	notify   *Dispatcher
	chat     *ChatManager
}

func NewServer(name string, store *db.Store, sender Sender) *Server {
	s := &Server{
		name:     name,
		store:    store,
		sessions: NewSessions(),
	}
	s.notify = NewDispatcher(store, sender)
	s.chat = NewChatManager(s.replier)
	return s
}

// Run dispatches transport events until the context ends or the event
// channel closes.
func (s *Server) Run(ctx context.Context, events <-chan transport.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.dispatch(ctx, ev)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, ev transport.Event) {
	switch ev.Type {
	case transport.EventConnected:
		log.Printf("[server] client link established")
	case transport.EventIdentified:
		s.onIdentified(ctx, ev.Link)
	case transport.EventPacket:
		s.onPacket(ctx, ev.Link, ev.Data)
	case transport.EventClosed:
		s.onClosed(ev.Link)
	}
}

// onIdentified creates the user record on first contact, starts a
// fresh session at the main menu, and sends the welcome banner.
func (s *Server) onIdentified(ctx context.Context, link transport.Link) {
	hash := link.RemoteHash()
	u, created, err := s.store.EnsureUser(ctx, hash)
	if err != nil {
		log.Printf("[server] error ensuring user %s: %v", hash, err)
		return
	}
	if created {
		log.Printf("[server] added new user %s", db.PrettyHash(hash))
	}

	_, displaced := s.sessions.Start(hash, link)
	if displaced != nil && displaced.CurrentRoom != "" {
		s.chat.Leave(displaced.Hash, u.Display(), displaced.CurrentRoom)
	}
	log.Printf("[server] remote identified as %s", db.PrettyHash(hash))

	welcome := fmt.Sprintf("Welcome, %s to the %s BBS!\n", u.Display(), s.name)
	reply := welcome + "You are at the main menu. Use '?' for help."
	s.replier.AreaChanged(link, AreaMainMenu)
	s.replier.Small(link, reply)
}

// onPacket answers liveness probes directly and routes everything else
// to the command handler for the session's area. Packets from links
// that never identified are dropped.
func (s *Server) onPacket(ctx context.Context, link transport.Link, data []byte) {
	sess, ok := s.sessions.ByLink(link)
	if !ok {
		log.Printf("[server] received data from an unidentified peer")
		return
	}

	if bytes.Equal(data, transport.ProbeRequest) {
		if err := link.Send(transport.ProbeResponse); err != nil {
			log.Printf("[server] error sending probe response: %v", err)
		}
		return
	}

	line := strings.TrimSpace(string(data))
	switch sess.Area {
	case AreaMainMenu:
		s.handleMainMenu(ctx, sess, line)
	case AreaBoards:
		s.handleBoards(ctx, sess, line)
	case AreaChat:
		s.handleChat(ctx, sess, line)
	default:
		s.replier.Small(link, "ERROR: Unknown area.")
	}
}

// onClosed ends the session and removes the user from any chat room.
func (s *Server) onClosed(link transport.Link) {
	sess, ok := s.sessions.End(link)
	if !ok {
		return
	}
	if sess.CurrentRoom != "" {
		display := s.display(context.Background(), sess.Hash)
		s.chat.Leave(sess.Hash, display, sess.CurrentRoom)
	}
	log.Printf("[server] client %s disconnected", db.PrettyHash(sess.Hash))
}

// splitCommand separates the command word from its argument remainder.
// The command word is case-insensitive; the remainder is not.
func splitCommand(line string) (cmd, rest string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:i]), strings.TrimSpace(line[i+1:])
}

func (s *Server) display(ctx context.Context, hash string) string {
	u, err := s.store.GetUser(ctx, hash)
	if err != nil {
		return db.PrettyHash(hash)
	}
	return u.Display()
}

func (s *Server) isAdmin(ctx context.Context, hash string) bool {
	u, err := s.store.GetUser(ctx, hash)
	return err == nil && u.IsAdmin
}

// NotifyWait blocks until outstanding watch notifications drain. Used
// during shutdown.
func (s *Server) NotifyWait() {
	s.notify.Wait()
}
