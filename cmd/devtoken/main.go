// Command devtoken mints a signed bearer token for local development.
// Requires TASKDECK_AUTH_SECRET, the same secret the API validates against.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"taskdeck.org/internal/auth"
)

func main() {
	var (
		user  = flag.String("user", "", "subject user id (required)")
		email = flag.String("email", "", "email claim")
		name  = flag.String("name", "", "display name claim")
		ttl   = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	if *user == "" {
		log.Fatal("-user is required")
	}

	token, err := auth.GenerateToken(*user, *email, *name, *ttl)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Println(token)
}
