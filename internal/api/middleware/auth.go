package middleware

import (
	"net/http"
	"strings"

	"pumpstrategy/pkg/crypto"
)

// TokenAuth проверяет заголовок Authorization: Bearer <token> против bcrypt хеша.
//
// Пустой tokenHash отключает проверку (локальный запуск без API_TOKEN_HASH).
// Без заголовка или с неверным токеном отвечает 401.
func TokenAuth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokenHash == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok || !crypto.TokenMatches(token, tokenHash) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="pumpstrategy"`)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","code":"UNAUTHORIZED"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}
