package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskdeck.org/internal/board"
	"taskdeck.org/internal/httpapi"
	"taskdeck.org/internal/obs"
	"taskdeck.org/internal/store/pg"
)

// Overridden at build time via -ldflags.
var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	addr := os.Getenv("TASKDECK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	// Postgres when a DSN is set, in-memory otherwise (local development).
	var (
		boards board.Service
		probe  httpapi.ReadyProbe
		store  *pg.Store
	)
	if dsn := os.Getenv("TASKDECK_PG_DSN"); dsn != "" {
		var err error
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		boards = store
		probe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		log.Printf("TASKDECK_PG_DSN not set, using in-memory board store")
		boards = board.NewInMemory()
	}

	api := httpapi.New(probe, version, boards)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting taskdeck-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	log.Println("Stopped")
}
