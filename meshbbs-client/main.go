package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"meshbbs/internal/cli/config"
	"meshbbs/internal/cli/output"
	"meshbbs/internal/client"
	"meshbbs/internal/db"
	"meshbbs/internal/identity"
	"meshbbs/internal/transport/meshws"
)

// status mirrors the control lines the server sends so the client can
// render a status bar without parsing reply text.
type status struct {
	mu     sync.Mutex
	server string
	area   string
	board  string
	room   string
	rtt    time.Duration
}

func (s *status) bar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	place := s.board
	if s.area == "Chat" {
		place = s.room
	}
	rtt := ""
	if s.rtt > 0 {
		rtt = s.rtt.Round(time.Millisecond).String()
	}
	output.StatusBar(s.server, s.area, place, rtt)
}

func defaultIdentityPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "client_identity.key"
	}
	return filepath.Join(home, ".meshbbs", "client_identity.key")
}

func main() {
	var (
		serverURL    = flag.String("url", "", "server websocket URL (e.g. ws://host:8780/link)")
		serverHash   = flag.String("server-hash", "", "server identity hash")
		identityFile = flag.String("identity", defaultIdentityPath(), "path to client identity file")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load client config: %v", err)
	}
	url, hash := *serverURL, *serverHash
	if url == "" || hash == "" {
		saved, ok := cfg.Default()
		if !ok {
			output.Error("No saved server. Use -url and -server-hash to connect.")
			os.Exit(1)
		}
		if url == "" {
			url = saved.URL
		}
		if hash == "" {
			hash = saved.Hash
		}
	}

	ident, err := identity.LoadOrCreate(*identityFile)
	if err != nil {
		log.Fatalf("load identity: %v", err)
	}
	output.Status("Your identity hash is %s", db.PrettyHash(ident.Hash()))

	network := meshws.NewNetwork(ident.Hash())
	network.AddPath(hash, url)

	st := &status{server: hash, area: "Connecting"}
	done := make(chan struct{})

	ctrl := client.New(network, client.Config{}, client.Handlers{
		OnLine:        output.Line,
		OnClearScreen: output.Clear,
		OnAreaChanged: func(area string) {
			st.mu.Lock()
			st.area = area
			st.mu.Unlock()
			st.bar()
		},
		OnBoardChanged: func(board string) {
			st.mu.Lock()
			st.board = board
			st.mu.Unlock()
			st.bar()
		},
		OnRoomChanged: func(room string) {
			st.mu.Lock()
			st.room = room
			st.mu.Unlock()
			st.bar()
		},
		OnRTT: func(rtt time.Duration) {
			st.mu.Lock()
			st.rtt = rtt
			st.mu.Unlock()
		},
		OnDisconnected: func() {
			output.Status("Disconnected from server.")
			close(done)
		},
	})

	output.Status("Connecting to %s ...", url)
	if err := ctrl.Connect(context.Background(), hash); err != nil {
		output.Error("Connection failed: %v", err)
		os.Exit(1)
	}

	st.mu.Lock()
	st.server = network.ServerName(hash)
	st.mu.Unlock()
	output.Status("Connected to %s.", network.ServerName(hash))

	cfg.Remember(hash, url)
	if err := config.Save(cfg); err != nil {
		output.Error("Could not save server to config: %v", err)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				ctrl.Close()
				<-done
				return
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			switch strings.ToLower(trimmed) {
			case "q", "quit", "exit":
				ctrl.Close()
				<-done
				return
			}
			if err := ctrl.Send(trimmed); err != nil {
				if errors.Is(err, client.ErrBusyReceiving) {
					output.Status("Busy receiving a reply, try again in a moment.")
					continue
				}
				output.Error("Send failed: %v", err)
				if errors.Is(err, client.ErrNotActive) {
					return
				}
			}
		}
	}
}
