package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

// defaultTTL applies when no access token TTL is configured.
const defaultTTL = 60 * time.Minute

// Claims extends the JWT registered claims with the caller's house scope.
type Claims struct {
	jwt.RegisteredClaims
	Role       tenancy.Role `json:"role"`
	House      string       `json:"house"`
	Name       string       `json:"name,omitempty"`
	Authorized bool         `json:"authorized"`
}

// Principal returns the identity carried by the token.
func (c *Claims) Principal() *tenancy.Principal {
	return &tenancy.Principal{
		UserID:      c.Subject,
		Role:        c.Role,
		HouseName:   c.House,
		Authorized:  c.Authorized,
		DisplayName: c.Name,
	}
}

// GenerateAccessToken creates a signed HS256 access token for p.
//
// Parameters:
//   - p: The principal to encode; UserID, Role and HouseName are required
//   - secret: HMAC signing key
//   - ttl: Token lifetime; zero or negative uses the default of one hour
//
// Returns:
//   - string: The signed token
//   - time.Time: When the token expires
//   - error: If the principal is incomplete or signing fails
func GenerateAccessToken(p *tenancy.Principal, secret string, ttl time.Duration) (string, time.Time, error) {
	if p == nil || p.UserID == "" || p.HouseName == "" || !p.Role.IsValid() {
		return "", time.Time{}, fmt.Errorf("%w: incomplete principal", ErrTokenInvalid)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	now := time.Now()
	expires := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
		Role:       p.Role,
		House:      p.HouseName,
		Name:       p.DisplayName,
		Authorized: p.Authorized || p.Role == tenancy.RoleAdmin,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates an access token and returns the principal it carries.
// Only HS256 is accepted; subject, a valid role and a house are required.
func ParseToken(tokenString, secret string) (*tenancy.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	switch {
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("%w: missing or unknown role", ErrTokenInvalid)
	case claims.House == "":
		return nil, fmt.Errorf("%w: missing house", ErrTokenInvalid)
	}
	return claims.Principal(), nil
}
