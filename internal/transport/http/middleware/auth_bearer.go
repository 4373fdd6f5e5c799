package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/fraternet/notify-service/internal/transport/http/errors"
	logctx "github.com/fraternet/notify-service/pkg/log"
)

// BearerJWT требует Authorization: Bearer <JWT>, подписанный HS256 секретом secret.
// Если issuer не пуст, проверяется и iss. Пустой secret отключает проверку.
func BearerJWT(secret, issuer string) Middleware {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		key := []byte(secret)
		opts := []jwt.ParserOption{
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(5 * time.Second),
		}
		if issuer != "" {
			opts = append(opts, jwt.WithIssuer(issuer))
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				logctx.From(r.Context()).Warn("auth_missing_bearer", slog.String("path", r.URL.Path))
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			}

			_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
				func(*jwt.Token) (any, error) { return key, nil }, opts...)
			if err != nil {
				logctx.From(r.Context()).Warn("auth_invalid_token",
					slog.String("path", r.URL.Path),
					slog.String("err", err.Error()),
				)
				apierrors.WriteError(w, r, apierrors.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearer достаёт токен из заголовка Authorization.
func bearer(auth string) (string, bool) {
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}

	token := strings.TrimSpace(auth[len(prefix):])
	return token, token != ""
}
