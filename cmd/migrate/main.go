package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"taskdeck.org/internal/migrate"
)

func main() {
	var (
		dsn           = flag.String("dsn", os.Getenv("TASKDECK_PG_DSN"), "Postgres DSN (defaults to TASKDECK_PG_DSN)")
		migrationsDir = flag.String("migrations", "migrations", "directory with *.up.sql / *.down.sql files")
		seedsDir      = flag.String("seeds", "seeds", "directory with seed *.sql files")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("dsn is required (flag -dsn or TASKDECK_PG_DSN)")
	}
	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgr := migrate.NewManager(db, *migrationsDir, *seedsDir)

	switch cmd {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var applied []string
		applied, err = mgr.Status(ctx)
		if err == nil {
			if len(applied) == 0 {
				fmt.Println("no migrations applied")
			}
			for _, name := range applied {
				fmt.Println(name)
			}
		}
	default:
		log.Fatalf("unknown command %q (want up|down|seed|status)", cmd)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}
