// Command devtoken mints a customer access token for local development.
// Tokens are normally issued by the identity service; this signs one
// with the JWT_SECRET the server verifies against.
//
//	devtoken -user 42
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/iliyamo/intercity-reservation/internal/config"
	"github.com/iliyamo/intercity-reservation/internal/utils"
)

func main() {
	var (
		userID uint64
		role   string
		ttl    int
	)
	flag.Uint64Var(&userID, "user", 0, "customer id placed in the sub claim (required)")
	flag.StringVar(&role, "role", utils.RoleCustomer, "role claim")
	flag.IntVar(&ttl, "ttl", 0, "lifetime in minutes (default ACCESS_TOKEN_TTL_MIN)")
	flag.Parse()

	if userID == 0 {
		flag.Usage()
		os.Exit(2)
	}
	config.LoadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("missing required env var: JWT_SECRET")
	}
	if ttl <= 0 {
		ttl = config.AccessTTL()
	}
	tok, err := utils.NewAccessToken(secret, userID, role, ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format("2006-01-02 15:04:05 MST"))
}
