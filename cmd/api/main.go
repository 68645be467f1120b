package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watchpost.org/internal/auth"
	"watchpost.org/internal/event"
	"watchpost.org/internal/httpapi"
	"watchpost.org/internal/obs"
	"watchpost.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		userStore  auth.UserStore
		eventStore event.Store
		probe      httpapi.ReadyProbe
	)

	if dsn := os.Getenv("WATCHPOST_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		userStore = store.Users()
		eventStore = store
		probe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		// No DSN configured: run on in-memory stores. Useful for local
		// development and demos; nothing survives a restart.
		users := auth.NewInMemoryUsers()
		userStore = users
		eventStore = event.NewInMemory(func(ctx context.Context, userID string) (event.OwnerSummary, bool) {
			u, err := users.Find(ctx, userID)
			if err != nil {
				return event.OwnerSummary{}, false
			}
			return event.OwnerSummary{
				ID:       u.ID,
				Email:    u.Email,
				Name:     u.Name,
				TeamName: u.TeamName,
			}, true
		})
		log.Println("WATCHPOST_PG_DSN is empty, using in-memory stores")
	}

	authsvc := auth.NewService(userStore)
	events := event.NewService(eventStore)

	api := httpapi.New(probe, version, authsvc, events)

	addr := os.Getenv("WATCHPOST_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting watchpost-api %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}
