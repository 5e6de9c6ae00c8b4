package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/lapstuen/badminton-signup-sub001/pkg/auth"
	"github.com/lapstuen/badminton-signup-sub001/pkg/config"
)

// mktoken mints an access token for poking the API from the command line;
// there is no identity provider in this deployment, membership is managed
// by the group admin.
func main() {
	sub := flag.String("sub", "", "user id (required)")
	role := flag.String("role", "PLAYER", "role claim: PLAYER or ADMIN")
	name := flag.String("name", "", "display name")
	flag.Parse()
	if *sub == "" {
		log.Fatal("-sub is required")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	tok, err := auth.CreateAccessToken(*sub, *role, *name, time.Duration(cfg.JWTExpireMin)*time.Minute)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tok)
}
