package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blockdeals/blockdeals/internal/middleware"
	"github.com/blockdeals/blockdeals/internal/models"
)

// Index lists all active deals together with the active brand set; read
// only display glue over the deal store.
func (h HandlerSet) Index(c *gin.Context) {
	sess := middleware.CurrentSession(c)

	deals, err := h.deals.ListActive(c.Request.Context(), models.DealFilter{})
	if err != nil {
		h.log.Error().Err(err).Msg("listing deals failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing_failed"})
		return
	}

	brands, err := h.deals.ActiveBrands(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listing brands failed")
		brands = nil
	}

	if sess.Username != "" {
		h.log.Info().
			Str("username", sess.Username).
			Bool("logged_in", sess.LoggedIn).
			Bool("authorized", sess.Authorized).
			Msg("index visit")
	} else {
		h.log.Debug().Msg("anonymous visit")
	}

	c.JSON(http.StatusOK, gin.H{
		"deals":  deals,
		"brands": brands,
		"flash":  h.popFlash(c, sess),
	})
}

// Countries returns the distinct country codes of stored deals.
func (h HandlerSet) Countries(c *gin.Context) {
	countries, err := h.deals.ActiveCountryCodes(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listing countries failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing_failed"})
		return
	}
	c.JSON(http.StatusOK, countries)
}

// CountryDeals lists active deals for one country.
func (h HandlerSet) CountryDeals(c *gin.Context) {
	h.filteredDeals(c, models.DealFilter{CountryCode: c.Param("country")})
}

// BrandDeals lists active deals for one brand.
func (h HandlerSet) BrandDeals(c *gin.Context) {
	h.filteredDeals(c, models.DealFilter{Brand: c.Param("brand")})
}

func (h HandlerSet) filteredDeals(c *gin.Context, filter models.DealFilter) {
	deals, err := h.deals.ListActive(c.Request.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("listing deals failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": deals})
}
