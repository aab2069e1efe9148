// Command issue-token mints an operator token for the match API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/playmatatu/gravpool/internal/config"
	"github.com/playmatatu/gravpool/internal/middleware"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if cfg.JWTSecret == "change-me-in-production" {
		fmt.Fprintln(os.Stderr, "WARNING: using the default JWT secret. Set JWT_SECRET in production!")
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
