// Package meshws carries the mesh link protocol over websockets: framed
// MDU-bounded packets, chunked bulk transfers with reassembly, an
// identify step, and server announcements. It is a stand-in wire, not a
// routing mesh; the BBS core only ever sees the transport interfaces.
package meshws

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"meshbbs/internal/transport"
)

const (
	frameIdentify  = "identify"
	frameAnnounce  = "announce"
	framePacket    = "packet"
	frameBulkStart = "bulk_start"
	frameBulkChunk = "bulk_chunk"
	frameBulkEnd   = "bulk_end"
)

type frame struct {
	Type string `json:"type"`
	Hash string `json:"hash,omitempty"`
	Data []byte `json:"data,omitempty"`
	ID   string `json:"id,omitempty"`
	Size int    `json:"size,omitempty"`
}

const (
	writeTimeout  = 5 * time.Second
	outQueueDepth = 64
)

var errLinkDown = errors.New("link is down")

// wsLink is the shared link core behind both ends of a connection. The
// reader goroutine owns event emission; the writer goroutine owns the
// socket writes.
type wsLink struct {
	conn      *websocket.Conn
	out       chan frame
	done      chan struct{}
	closeOnce sync.Once

	localHash string

	mu         sync.Mutex
	remoteHash string
	bulk       map[string]*bytes.Buffer

	emit       func(transport.Event)
	onAnnounce func(data []byte)
}

func newWSLink(conn *websocket.Conn, localHash string, emit func(transport.Event)) *wsLink {
	return &wsLink{
		conn:      conn,
		out:       make(chan frame, outQueueDepth),
		done:      make(chan struct{}),
		localHash: localHash,
		bulk:      make(map[string]*bytes.Buffer),
		emit:      emit,
	}
}

func (l *wsLink) Send(data []byte) error {
	if len(data) > transport.MDU {
		return transport.ErrOversize
	}
	return l.enqueue(frame{Type: framePacket, Data: data})
}

func (l *wsLink) SendBulk(data []byte) error {
	id := uuid.NewString()
	if err := l.enqueue(frame{Type: frameBulkStart, ID: id, Size: len(data)}); err != nil {
		return err
	}
	for off := 0; off < len(data); off += transport.MDU {
		end := off + transport.MDU
		if end > len(data) {
			end = len(data)
		}
		if err := l.enqueue(frame{Type: frameBulkChunk, ID: id, Data: data[off:end]}); err != nil {
			return err
		}
	}
	return l.enqueue(frame{Type: frameBulkEnd, ID: id})
}

func (l *wsLink) RemoteHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remoteHash
}

func (l *wsLink) LocalHash() string {
	return l.localHash
}

func (l *wsLink) Teardown() {
	l.closeOnce.Do(func() {
		close(l.done)
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = l.conn.Close()
	})
}

func (l *wsLink) enqueue(f frame) error {
	select {
	case l.out <- f:
		return nil
	case <-l.done:
		return errLinkDown
	}
}

func (l *wsLink) writePump() {
	for {
		select {
		case <-l.done:
			return
		case f := <-l.out:
			b, err := json.Marshal(f)
			if err != nil {
				continue
			}
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := l.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				l.Teardown()
				return
			}
		}
	}
}

// readLoop blocks until the connection fails or is torn down, emitting
// one EventClosed on the way out.
func (l *wsLink) readLoop() {
	for {
		_, msg, err := l.conn.ReadMessage()
		if err != nil {
			break
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			continue
		}
		l.handleFrame(f)
	}
	l.Teardown()
	l.emit(transport.Event{Type: transport.EventClosed, Link: l})
}

func (l *wsLink) handleFrame(f frame) {
	switch f.Type {
	case frameIdentify:
		l.mu.Lock()
		l.remoteHash = f.Hash
		l.mu.Unlock()
		l.emit(transport.Event{Type: transport.EventIdentified, Link: l})
	case frameAnnounce:
		if l.onAnnounce != nil {
			l.onAnnounce(f.Data)
		}
	case framePacket:
		l.emit(transport.Event{Type: transport.EventPacket, Link: l, Data: f.Data})
	case frameBulkStart:
		l.mu.Lock()
		l.bulk[f.ID] = &bytes.Buffer{}
		l.mu.Unlock()
		l.emit(transport.Event{Type: transport.EventBulkStarted, Link: l})
	case frameBulkChunk:
		l.mu.Lock()
		if buf, ok := l.bulk[f.ID]; ok {
			buf.Write(f.Data)
		}
		l.mu.Unlock()
	case frameBulkEnd:
		l.mu.Lock()
		buf, ok := l.bulk[f.ID]
		delete(l.bulk, f.ID)
		l.mu.Unlock()
		if !ok {
			return
		}
		l.emit(transport.Event{Type: transport.EventBulkConcluded, Link: l, Data: buf.Bytes()})
	}
}
