package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campus-chat/internal/models"
	apperrors "campus-chat/pkg/errors"
)

// Claims carried by identity-provider tokens. The subject is the user id.
type Claims struct {
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens issued by the identity provider and
// extracts the session identity. This service never issues production
// tokens; Mint exists for tests and local tooling.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the caller's identity.
func (v *Verifier) Verify(token string) (models.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return models.Identity{}, apperrors.ErrInvalidToken
	}

	role := models.Role(claims.Role)
	if role != models.RoleLecturer && role != models.RoleStudent {
		return models.Identity{}, fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidToken, claims.Role)
	}

	return models.Identity{
		ID:          claims.Subject,
		DisplayName: claims.DisplayName,
		Role:        role,
	}, nil
}

// Mint signs a token for the given identity, valid for ttl.
func (v *Verifier) Mint(ident models.Identity, ttl time.Duration) (string, error) {
	claims := &Claims{
		DisplayName: ident.DisplayName,
		Role:        string(ident.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
