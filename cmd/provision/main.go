package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"watchpost.org/internal/auth"
	"watchpost.org/internal/store/pg"
)

// provision creates user accounts out of band. There is no
// self-registration endpoint; accounts are handed out by organizers.
func main() {
	log.SetFlags(0)
	var (
		dsn      = flag.String("dsn", os.Getenv("WATCHPOST_PG_DSN"), "PostgreSQL DSN")
		email    = flag.String("email", "", "account email (unique)")
		password = flag.String("password", "", "initial password")
		name     = flag.String("name", "", "display name (optional)")
		team     = flag.String("team", "", "team name (optional)")
		role     = flag.String("role", string(auth.RoleParticipant), "participant or admin")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or WATCHPOST_PG_DSN")
	}
	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}
	parsedRole, err := auth.ParseRole(*role)
	if err != nil {
		log.Fatalf("invalid role: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	svc := auth.NewService(store.Users())
	user, err := svc.Provision(ctx, *email, *password, *name, *team, parsedRole)
	if err != nil {
		log.Fatalf("provision: %v", err)
	}
	log.Printf("created %s user %s (%s)", user.Role, user.Email, user.ID)
}
