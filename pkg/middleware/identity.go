package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/logger"
	"cinebook/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

const identityKey contextKey = "identity"

// Claims issued by the identity provider. Subject carries the user id.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity validates an HS256 bearer token and stores the caller's identity in
// the request context. Requests without a valid token get 401.
func Identity(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				_ = apperrors.WriteError(w, apperrors.Unauthorized("missing bearer token"))
				return
			}

			identity, err := ParseToken(strings.TrimSpace(raw), key)
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = apperrors.WriteError(w, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func ParseToken(raw string, key []byte) (model.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Identity{}, err
	}
	if !token.Valid {
		return model.Identity{}, errors.New("token is not valid")
	}
	if claims.Subject == "" {
		return model.Identity{}, errors.New("token has no subject")
	}

	role := claims.Role
	if role == "" {
		role = model.RoleUser
	}
	return model.Identity{UserID: claims.Subject, Role: role, Email: claims.Email}, nil
}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok
}
