package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meshbbs/internal/bbs"
	"meshbbs/internal/config"
	"meshbbs/internal/db"
	"meshbbs/internal/identity"
	"meshbbs/internal/notify"
	"meshbbs/internal/transport/meshws"
)

const serverVersion = "0.1.0-dev"

func main() {
	var (
		configPath = flag.String("config", "server_config.yaml", "path to server configuration file")
		adminHash  = flag.String("admin-hash", "", "grant admin rights to this identity hash at startup")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	if err := store.ApplyMigrations(); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	ident, err := identity.LoadOrCreate(cfg.IdentityFile)
	if err != nil {
		log.Fatalf("load identity: %v", err)
	}
	log.Printf("[server] %s v%s running, identity hash %s", cfg.ServerName, serverVersion, db.PrettyHash(ident.Hash()))

	if *adminHash != "" {
		if err := store.EnsureAdmin(context.Background(), *adminHash); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		log.Printf("[server] bootstrap admin %s granted", db.PrettyHash(*adminHash))
	}

	appData, err := json.Marshal(map[string]string{"server_name": cfg.ServerName})
	if err != nil {
		log.Fatalf("encode announce payload: %v", err)
	}
	acceptor := meshws.NewServer(ident.Hash(), appData, time.Duration(cfg.AnnounceInterval)*time.Second)

	core := bbs.NewServer(cfg.ServerName, store, notify.NewWebhookSender())

	ctx, cancel := context.WithCancel(context.Background())
	go core.Run(ctx, acceptor.Events())
	go acceptor.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/link", acceptor.Handler())

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
		cancel()
		core.NotifyWait()
	}()

	log.Printf("[server] listening on %s", server.Addr)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	<-shutdownDone
}
