package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	MemberID  uuid.UUID
	IsAdmin   bool
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. Session
// issuance itself lives outside this service; these claims are only parsed.
type AccessTokenClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	CompanyID uuid.UUID `json:"company_id"`
	MemberID  uuid.UUID `json:"member_id"`
	IsAdmin   bool      `json:"is_admin"`
	jwt.RegisteredClaims
}
