package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/AbheyTiwari/RTC/internal/app"
	httpx "github.com/AbheyTiwari/RTC/internal/http"
	"github.com/AbheyTiwari/RTC/internal/presence"
	"github.com/AbheyTiwari/RTC/internal/relay"
	store "github.com/AbheyTiwari/RTC/internal/store"
	"github.com/AbheyTiwari/RTC/pkg/auth"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres connection + migrations
	pg, err := store.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("postgres connect", "err", err)
		log.Fatal(err)
	}
	defer pg.Close()
	if err := store.RunMigrations(ctx, pg, logger); err != nil {
		logger.Error("migrations", "err", err)
		log.Fatal(err)
	}

	// Redis-backed live presence
	pres, err := presence.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("redis connect", "err", err)
		log.Fatal(err)
	}
	defer pres.Close()

	// Room admission tickets
	tickets := auth.New(cfg.TicketSecret, cfg.TicketTTL)

	// Signaling relay
	hub := relay.NewHub(logger, relay.NewRegistry(logger), pres, tickets)

	// HTTP + WS router
	api := &httpx.MeetingsAPI{DB: pg, Presence: pres, Tickets: tickets}
	router := httpx.NewRouter(cfg, logger, hub, api)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
