package main

import (
	"fmt"
	"os"
	"time"

	"github.com/arnavshah/timesheet-grid-go/pkg/auth"
	"github.com/arnavshah/timesheet-grid-go/pkg/config"
	"github.com/arnavshah/timesheet-grid-go/pkg/handlers"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: tokengen <username> [ttl]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	secret := cfg.JWTSecret
	if secret == "" {
		secret = handlers.DevSecret
	}

	issuer := auth.NewIssuer(secret)
	if len(os.Args) > 2 {
		ttl, err := time.ParseDuration(os.Args[2])
		if err != nil || ttl <= 0 {
			fmt.Printf("Error: invalid ttl %q\n", os.Args[2])
			os.Exit(1)
		}
		issuer.TTL = ttl
	}

	token, err := issuer.CreateToken(os.Args[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Token for %s (valid %s):\n%s\n", os.Args[1], issuer.TTL, token)
}
