package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/blockdeals/blockdeals/internal/middleware"
	"github.com/blockdeals/blockdeals/internal/service"
)

// OAuthCallback completes the identity flow: the identity service sends
// the browser back here with a bearer token, which gets verified before a
// session exists at all.
func (h HandlerSet) OAuthCallback(c *gin.Context) {
	token := c.Query("access_token")
	username := c.Query("username")
	expiresIn, _ := strconv.Atoi(c.Query("expires_in"))

	if token == "" || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login_failed"})
		return
	}

	result, err := h.auth.HandleCallback(c.Request.Context(), token, username, expiresIn)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login_failed"})
		return
	}

	h.setSessionCookie(c, result.Cookie, expiresIn)
	c.Redirect(http.StatusFound, "/")
}

// Reverify re-runs the identity check for the current session.
func (h HandlerSet) Reverify(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	if _, err := h.auth.Reverify(c.Request.Context(), sess); err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "login_failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification_failed"})
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// Logout drops the server-side session and expires the cookie.
func (h HandlerSet) Logout(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	if err := h.auth.Logout(c.Request.Context(), sess.ID); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
	}

	h.setSessionCookie(c, "", -1)
	c.Redirect(http.StatusFound, "/")
}

func (h HandlerSet) setSessionCookie(c *gin.Context, value string, maxAge int) {
	if maxAge == 0 {
		maxAge = int(h.cfg.Session.TTL.Seconds())
	}
	c.SetCookie(
		h.cfg.Session.CookieName,
		value,
		maxAge,
		"/",
		"",
		h.cfg.Session.CookieSecure,
		true,
	)
}
