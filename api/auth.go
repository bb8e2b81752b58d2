package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/garnizeh/marketplace/pkg/models"
)

// Claims is the token payload issued by the identity provider. The subject
// is the stable user id.
type Claims struct {
	Role  models.Role `json:"role"`
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for id. It backs local development and
// the admin CLI; production tokens come from the identity provider.
func IssueToken(secret string, id models.Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" || !id.Role.Valid() {
		return "", fmt.Errorf("identity needs a user id and a valid role")
	}
	now := time.Now()
	claims := Claims{
		Role:  id.Role,
		Name:  id.Name,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns the identity it asserts.
func ParseToken(secret, tokenString string) (models.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return models.Identity{}, errors.New("token has no subject")
	}
	if !claims.Role.Valid() {
		return models.Identity{}, fmt.Errorf("token role %q is not valid", claims.Role)
	}
	return models.Identity{UserID: claims.Subject, Role: claims.Role, Name: claims.Name, Email: claims.Email}, nil
}

// IdentityFrom returns the identity stored by the JWT middleware.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(CtxIdentity).(models.Identity)
	return id, ok
}

// RequireRole rejects requests whose identity has none of roles.
func RequireRole(roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok || !slices.Contains(roles, id.Role) {
				writeError(w, models.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
