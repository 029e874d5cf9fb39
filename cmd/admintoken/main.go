// Command admintoken mints an operator token for GET /v1/sessions/{customerId}.
//
//	ADMIN_JWT_SECRET=... go run ./cmd/admintoken -sub ops@reformante.co -ttl 8h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/reformante/cotizador-whatsapp-go/internal/config"
	"github.com/reformante/cotizador-whatsapp-go/internal/service"
)

func main() {
	_ = config.LoadDotEnv(".env")

	sub := flag.String("sub", "", "operator identifier (required)")
	ttl := flag.Duration("ttl", 8*time.Hour, "token lifetime")
	flag.Parse()

	auth := service.NewAdminAuth(config.Load().AdminJWTSecret)
	if auth == nil {
		fmt.Fprintln(os.Stderr, "ADMIN_JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := auth.Issue(*sub, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
