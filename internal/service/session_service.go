package service

import (
	"fmt"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTSessionService implements ports.SessionVerifier for HS256 session
// tokens minted by the identity provider. Generate exists for the
// provider side of the contract and for tests; the engine itself only
// validates.
type JWTSessionService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTSessionService creates a new JWTSessionService.
func NewJWTSessionService(secret string, expiry time.Duration, issuer string) *JWTSessionService {
	return &JWTSessionService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate creates a signed session token for the given account.
func (s *JWTSessionService) Generate(accountID uuid.UUID, role domain.AccountRole) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":  accountID.String(),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a session token, returning its claims.
func (s *JWTSessionService) Validate(tokenString string) (*ports.SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}
	accountID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid account ID in session token: %w", err)
	}

	role, _ := claims["role"].(string)
	switch domain.AccountRole(role) {
	case domain.RoleClient, domain.RoleMerchant, domain.RoleAdmin:
	default:
		return nil, fmt.Errorf("unknown role %q in session token", role)
	}

	return &ports.SessionClaims{
		AccountID: accountID,
		Role:      domain.AccountRole(role),
	}, nil
}
