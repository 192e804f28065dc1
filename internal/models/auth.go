package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	BranchID *string  `json:"branch_id,omitempty"`
	Email    string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the caller identity used by services.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	actor := Actor{UserID: c.UserID, Role: c.Role}
	if c.BranchID != nil && *c.BranchID != "" {
		branch := *c.BranchID
		actor.BranchID = &branch
	}
	return actor
}
