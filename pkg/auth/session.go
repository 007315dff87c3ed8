package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kerbaras/mdhold/pkg/mangadex"
)

// SessionLifetime is how long MangaDex keeps a session token valid.
const SessionLifetime = 15 * time.Minute

// Session is an authenticated MangaDex session.
type Session struct {
	SessionToken string
	RefreshToken string
	ExpiresAt    time.Time
}

// ExpiresWithin reports whether the session is expired, or will be within d.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !now.Add(d).Before(s.ExpiresAt)
}

func newSession(pair *mangadex.TokenPair, refresh string, issued time.Time) *Session {
	if pair.Refresh != "" {
		refresh = pair.Refresh
	}
	return &Session{
		SessionToken: pair.Session,
		RefreshToken: refresh,
		ExpiresAt:    sessionExpiry(pair.Session, issued),
	}
}

// sessionExpiry reads the exp claim of the session JWT. The signature is not
// checked; the token came straight from the server and is only inspected.
func sessionExpiry(token string, issued time.Time) time.Time {
	fallback := issued.Add(SessionLifetime)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fallback
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	return exp.Time
}
