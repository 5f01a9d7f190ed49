package jwt

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Platform roles carried in access tokens. The engine only reads them;
// role management lives in the platform.
const (
	RoleCandidate = "candidate"
	RoleReviewer  = "reviewer"
)

// Claims are the access-token claims issued by the AssessHub platform.
// UserID may be absent on older tokens, in which case validation falls
// back to the registered Subject claim.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// IsReviewer reports whether the token belongs to a platform reviewer.
func (c *Claims) IsReviewer() bool {
	return c.Role == RoleReviewer
}
