// internal/httpserver/identity.go
//
// Anonymous player identity.
// Every browser gets a stable player ID carried in a signed (HS256) cookie, so
// a round can only be driven by the player who started it and a new round
// replaces that player's previous one.

package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	playerCookieName = "astromatch_player"
	playerTokenTTL   = 180 * 24 * time.Hour
)

// ctxPlayerKey is the context key type for the player ID.
type ctxPlayerKey struct{}

// withPlayer resolves (or issues) the player ID and stores it in the request context.
func (s *Server) withPlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.playerFromRequest(r)
		if id == "" {
			id = uuid.NewString()
			if err := s.setPlayerCookie(w, id); err != nil {
				writeError(w, http.StatusInternalServerError, "identity_failed", "")
				return
			}
		}
		ctx := context.WithValue(r.Context(), ctxPlayerKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// playerID returns the ID placed by withPlayer.
func playerID(r *http.Request) string {
	id, _ := r.Context().Value(ctxPlayerKey{}).(string)
	return id
}

// playerFromRequest returns the subject of a valid player token, or "".
func (s *Server) playerFromRequest(r *http.Request) string {
	tok := bearerOrCookie(r)
	if tok == "" {
		return ""
	}
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Server.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return ""
	}
	return claims.Subject
}

// signPlayerToken creates an HS256 token whose subject is the player ID.
func (s *Server) signPlayerToken(id string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(playerTokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString([]byte(s.cfg.Server.JWTSecret))
	return ss, exp, err
}

// setPlayerCookie writes the signed player cookie with appropriate security attributes.
func (s *Server) setPlayerCookie(w http.ResponseWriter, id string) error {
	tok, exp, err := s.signPlayerToken(id)
	if err != nil {
		return err
	}
	secure := s.cfg.Server.Production
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for cross-site clients when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    tok,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
	return nil
}

// bearerOrCookie extracts a token from the Authorization header or the player cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(playerCookieName); err == nil {
		return c.Value
	}
	return ""
}
