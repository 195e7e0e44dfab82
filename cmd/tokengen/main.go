// Command tokengen issues a signed bearer token for the admin API or the
// prediction ingest client.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Dosada05/prediction-league/middleware"
	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "", "token subject, e.g. ingest-worker")
	role := flag.String("role", middleware.RoleIngest, "admin or ingest")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET_KEY environment variable is not set")
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}
	if *role != middleware.RoleAdmin && *role != middleware.RoleIngest {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	token, err := middleware.IssueToken(secret, *subject, *role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
