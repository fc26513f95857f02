package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// setSessionCookies installs both credential cookies: the opaque token for
// the session lifetime and the signed token for its own short TTL. Both are
// HttpOnly and SameSite=Lax; the browser never needs script access to them.
func (s *Server) setSessionCookies(c *gin.Context, token, signed string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.setJWTCookie(c, signed)
}

// setJWTCookie replaces only the signed-token cookie, used when a slow-path
// validation succeeds and the fast path should start working again.
func (s *Server) setJWTCookie(c *gin.Context, signed string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.cfg.SessionJWTCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.sessions.SessionJWTTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookies expires both cookies.
func (s *Server) clearSessionCookies(c *gin.Context) {
	for _, name := range []string{s.cfg.SessionCookieName, s.cfg.SessionJWTCookieName} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
