package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nordvolt/voltra/internal/market"
)

// ListSpotPrices returns stored day-ahead quotes for a bidding zone within
// [from, to).
func (s *Server) ListSpotPrices(c *gin.Context) {
	area, err := market.ParsePriceArea(c.DefaultQuery("area", string(market.PriceAreaDK1)))
	if err != nil {
		AbortWithError(c, newValidationError("area", "invalid_area", "invalid price area"))
		return
	}

	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil || from == nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "from is required"))
		return
	}

	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil || to == nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "to is required"))
		return
	}

	resp, err := s.spotPriceSvc.ListRange(c.Request.Context(), area, from.UTC(), to.UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
