package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/blockdeals/blockdeals/internal/config"
	"github.com/blockdeals/blockdeals/internal/models"
	"github.com/blockdeals/blockdeals/internal/repository"
	"github.com/blockdeals/blockdeals/internal/security"
)

const sessionContextKey = "current_session"

// Session resolves the signed session cookie into the server-side session
// record and makes it available to handlers. Requests without a valid
// cookie carry an empty session; handlers that need authorization check
// the flags (or re-verify) themselves.
func Session(cfg *config.AppConfig, sessions *repository.SessionRepository, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(cfg.Session.CookieName)
		if err != nil || cookie == "" {
			c.Next()
			return
		}

		claims, err := security.ParseSessionToken(cookie, cfg.Session.CookieSecret)
		if err != nil {
			log.Debug().Err(err).Msg("rejecting malformed session cookie")
			c.Next()
			return
		}

		session, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			// Expired or deleted server side; treat as anonymous.
			c.Next()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// CurrentSession returns the session attached by the middleware, or an
// empty session for anonymous visitors.
func CurrentSession(c *gin.Context) models.Session {
	if v, ok := c.Get(sessionContextKey); ok {
		if session, ok := v.(models.Session); ok {
			return session
		}
	}
	return models.Session{}
}
