// Package client implements the link-lifecycle controller: connection
// establishment with bounded waits, a heartbeat sender, a liveness
// monitor that tears down a silently-dead session, and reception of
// bulk replies.
package client

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"meshbbs/internal/transport"
)

var (
	ErrPathTimeout     = errors.New("timed out waiting for a path to the server")
	ErrIdentityUnknown = errors.New("could not recall the server identity")
	ErrLinkTimeout     = errors.New("timed out waiting for the link to become active")
	ErrNotActive       = errors.New("link is not active")
	ErrBusyReceiving   = errors.New("busy receiving a bulk reply")
)

// Network is the slice of the mesh the controller needs: path
// resolution, identity recall, and link establishment.
type Network interface {
	// AwaitPath blocks until a path to dest is known or ctx ends.
	AwaitPath(ctx context.Context, dest string) error
	// RecallIdentity reports whether dest's public identity is known.
	RecallIdentity(dest string) bool
	Open(dest string) (Link, error)
}

// Link is the client's view of an outbound link.
type Link interface {
	// AwaitActive blocks until the link reports active or ctx ends.
	AwaitActive(ctx context.Context) error
	// Identify proves the local identity to the remote.
	Identify() error
	Send(data []byte) error
	Events() <-chan transport.Event
	Teardown()
}

type State int

const (
	StateDisconnected State = iota
	StatePathResolving
	StateLinking
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StatePathResolving:
		return "path resolving"
	case StateLinking:
		return "linking"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Config struct {
	PathTimeout   time.Duration // default 15s
	LinkTimeout   time.Duration // default 10s
	PingInterval  time.Duration // default 10s
	PingTimeout   time.Duration // default 15s
	CheckInterval time.Duration // default 1s
}

func (c *Config) withDefaults() {
	if c.PathTimeout <= 0 {
		c.PathTimeout = 15 * time.Second
	}
	if c.LinkTimeout <= 0 {
		c.LinkTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 10 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 15 * time.Second
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Second
	}
}

// Handlers are the controller's outputs. All are optional; they are
// invoked from the controller's read loop.
type Handlers struct {
	OnLine         func(text string)
	OnClearScreen  func()
	OnAreaChanged  func(area string)
	OnBoardChanged func(board string)
	OnRoomChanged  func(room string)
	OnRTT          func(rtt time.Duration)
	// OnDisconnected fires exactly once per connection, regardless of
	// whether the close came from the user, the remote, or the monitor.
	OnDisconnected func()
}

type Controller struct {
	net      Network
	cfg      Config
	handlers Handlers
	recv     *Receiver

	mu           sync.Mutex
	state        State
	link         Link
	lastPingSent time.Time
	lastPongSeen time.Time
	rtt          time.Duration

	done       chan struct{}
	notifyOnce *sync.Once
}

func New(net Network, cfg Config, handlers Handlers) *Controller {
	cfg.withDefaults()
	c := &Controller{
		net:      net,
		cfg:      cfg,
		handlers: handlers,
		state:    StateDisconnected,
	}
	c.recv = NewReceiver(handlers.OnLine, handlers.OnBoardChanged)
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RTT is the most recent probe round-trip time, zero before the first
// response.
func (c *Controller) RTT() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rtt
}

// Connect resolves a path, opens a link, waits for activation,
// identifies, and starts the heartbeat and liveness loops. On any
// failure the connection attempt is aborted cleanly.
func (c *Controller) Connect(ctx context.Context, dest string) error {
	c.setState(StatePathResolving)

	pathCtx, cancel := context.WithTimeout(ctx, c.cfg.PathTimeout)
	err := c.net.AwaitPath(pathCtx, dest)
	cancel()
	if err != nil {
		c.setState(StateDisconnected)
		// A caller-initiated abort is not a timeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrPathTimeout
	}

	if !c.net.RecallIdentity(dest) {
		c.setState(StateDisconnected)
		return ErrIdentityUnknown
	}

	c.setState(StateLinking)
	link, err := c.net.Open(dest)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	linkCtx, cancel := context.WithTimeout(ctx, c.cfg.LinkTimeout)
	err = link.AwaitActive(linkCtx)
	cancel()
	if err != nil {
		link.Teardown()
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLinkTimeout
	}

	if err := link.Identify(); err != nil {
		link.Teardown()
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	c.state = StateActive
	c.link = link
	c.lastPingSent = time.Time{}
	c.lastPongSeen = time.Time{}
	c.rtt = 0
	c.done = make(chan struct{})
	c.notifyOnce = &sync.Once{}
	done := c.done
	c.mu.Unlock()

	go c.heartbeat(link, done)
	go c.monitor(done)
	go c.readLoop(link)
	return nil
}

// Send submits one command line. Submission is refused while a bulk
// reply is being received, so a keystroke cannot interleave with a
// large incoming transfer.
func (c *Controller) Send(line string) error {
	if c.recv.Receiving() {
		return ErrBusyReceiving
	}
	c.mu.Lock()
	link := c.link
	active := c.state == StateActive
	c.mu.Unlock()
	if !active || link == nil {
		return ErrNotActive
	}
	return link.Send([]byte(line))
}

// Close tears the link down on explicit user quit.
func (c *Controller) Close() {
	c.teardown()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// teardown stops both background loops, closes the link, and reports
// the disconnect exactly once.
func (c *Controller) teardown() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	link := c.link
	c.link = nil
	done := c.done
	once := c.notifyOnce
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if link != nil {
		link.Teardown()
	}
	if once != nil && c.handlers.OnDisconnected != nil {
		once.Do(c.handlers.OnDisconnected)
	}
}

// heartbeat sends a liveness probe on a fixed interval while the link
// is active.
func (c *Controller) heartbeat(link Link, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.lastPingSent = time.Now()
			c.mu.Unlock()
			if err := link.Send(transport.ProbeRequest); err != nil {
				log.Printf("[client] error sending probe: %v", err)
			}
		}
	}
}

// monitor force-closes the link when a probe response has been seen
// before but none has arrived within the timeout window.
func (c *Controller) monitor(done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			seen := c.lastPongSeen
			c.mu.Unlock()
			if !seen.IsZero() && time.Since(seen) > c.cfg.PingTimeout {
				log.Printf("[client] no probe response within %v, tearing link down", c.cfg.PingTimeout)
				c.teardown()
				return
			}
		}
	}
}

func (c *Controller) readLoop(link Link) {
	for ev := range link.Events() {
		switch ev.Type {
		case transport.EventPacket:
			c.handlePacket(ev.Data)
		case transport.EventBulkStarted:
			c.recv.Started()
		case transport.EventBulkConcluded:
			c.recv.Concluded(ev.Data)
		case transport.EventClosed:
			c.teardown()
			return
		}
	}
}

func (c *Controller) handlePacket(data []byte) {
	if bytes.Equal(data, transport.ProbeResponse) {
		c.mu.Lock()
		c.lastPongSeen = time.Now()
		if !c.lastPingSent.IsZero() {
			c.rtt = c.lastPongSeen.Sub(c.lastPingSent)
		}
		rtt := c.rtt
		c.mu.Unlock()
		if c.handlers.OnRTT != nil {
			c.handlers.OnRTT(rtt)
		}
		return
	}

	text := string(data)
	switch {
	case text == transport.ControlClear:
		if c.handlers.OnClearScreen != nil {
			c.handlers.OnClearScreen()
		}
	case strings.HasPrefix(text, transport.ControlAreaPrefix):
		area := strings.TrimSpace(strings.TrimPrefix(text, transport.ControlAreaPrefix))
		if c.handlers.OnAreaChanged != nil {
			c.handlers.OnAreaChanged(area)
		}
	case strings.HasPrefix(text, transport.ControlBoardPrefix):
		board := strings.TrimSpace(strings.TrimPrefix(text, transport.ControlBoardPrefix))
		if c.handlers.OnBoardChanged != nil {
			c.handlers.OnBoardChanged(board)
		}
	case strings.HasPrefix(text, transport.ControlRoomPrefix):
		room := strings.TrimSpace(strings.TrimPrefix(text, transport.ControlRoomPrefix))
		if c.handlers.OnRoomChanged != nil {
			c.handlers.OnRoomChanged(room)
		}
	default:
		if c.handlers.OnLine != nil {
			c.handlers.OnLine(text)
		}
	}
}
