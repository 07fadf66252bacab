package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blockdeals/blockdeals/internal/middleware"
	"github.com/blockdeals/blockdeals/internal/models"
	"github.com/blockdeals/blockdeals/internal/repository"
	"github.com/blockdeals/blockdeals/internal/service"
)

// SubmitDeal handles the deal submission form. Authorization is always
// re-verified against the identity service inside the service layer, never
// taken from the session flags.
func (h HandlerSet) SubmitDeal(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	var form models.DealForm
	if err := c.ShouldBind(&form); err != nil {
		h.flashAndReturn(c, sess, "Sorry but there was an error trying to post your deal: "+err.Error())
		return
	}

	redirectURL, err := h.deals.Submit(c.Request.Context(), sess, form)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "login_failed"})
			return
		}
		// Validation and publish failures both come back to the form with
		// the cause attached.
		h.flashAndReturn(c, sess, "Sorry but there was an error trying to post your deal: "+err.Error())
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// SubmitPage gates the submission form: both session flags must be set or
// the visitor goes back to the home page.
func (h HandlerSet) SubmitPage(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if !sess.LoggedIn || !sess.Authorized {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": sess.Username,
		"flash":    h.popFlash(c, sess),
	})
}

// UpdateImage patches image_url on an existing deal, last write wins.
func (h HandlerSet) UpdateImage(c *gin.Context) {
	permlink := c.Param("permlink")
	imageURL := c.PostForm("image_url")

	if imageURL != "" {
		if err := h.deals.UpdateImage(c.Request.Context(), permlink, imageURL); err != nil {
			h.log.Error().Err(err).Str("permlink", permlink).Msg("image patch failed")
		}
	}

	c.Redirect(http.StatusFound, "/")
}

// DealByPermlink serves a single stored deal; this is the redirect target
// for locally stubbed permlinks.
func (h HandlerSet) DealByPermlink(c *gin.Context) {
	deal, err := h.deals.GetByPermlink(c.Request.Context(), c.Param("permlink"))
	if err != nil {
		if errors.Is(err, repository.ErrDealNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "deal_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// flashAndReturn stores a flash message on the session (when there is one)
// and sends the browser back to the submission form.
func (h HandlerSet) flashAndReturn(c *gin.Context, sess models.Session, message string) {
	if sess.ID != "" {
		sess.Flash = message
		if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
			h.log.Error().Err(err).Msg("failed to store flash message")
		}
	}
	c.Redirect(http.StatusFound, "/submit")
}

// popFlash returns and clears the pending flash message, if any.
func (h HandlerSet) popFlash(c *gin.Context, sess models.Session) string {
	if sess.ID == "" || sess.Flash == "" {
		return ""
	}
	flash := sess.Flash
	sess.Flash = ""
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		h.log.Error().Err(err).Msg("failed to clear flash message")
	}
	return flash
}
