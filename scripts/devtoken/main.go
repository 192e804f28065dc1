package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/service"
	"github.com/haperez86/EduPay/pkg/config"
)

// devtoken mints a bearer token for local testing against the API.
func main() {
	var (
		userID string
		role   string
		branch string
	)

	flag.StringVar(&userID, "user", "dev-user", "User ID placed in the token subject")
	flag.StringVar(&role, "role", string(models.RoleSuperAdmin), "Role: SUPER_ADMIN, ADMIN or STUDENT")
	flag.StringVar(&branch, "branch", "", "Branch ID for branch-bound admins")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	actor := models.Actor{UserID: userID, Role: models.UserRole(strings.ToUpper(role))}
	if branch != "" {
		actor.BranchID = &branch
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
	})
	token, expiresAt, err := tokens.Issue(actor)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
}
