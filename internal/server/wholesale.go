package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) wholesaleRangeQuery(c *gin.Context) (gridArea string, from, to time.Time, ok bool) {
	gridArea = strings.TrimSpace(c.Query("grid_area"))
	if gridArea == "" {
		AbortWithError(c, newValidationError("grid_area", "invalid_grid_area", "grid_area is required"))
		return "", time.Time{}, time.Time{}, false
	}

	fromAt, err := parseOptionalTime(c.Query("from"), false)
	if err != nil || fromAt == nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "from is required"))
		return "", time.Time{}, time.Time{}, false
	}

	toAt, err := parseOptionalTime(c.Query("to"), true)
	if err != nil || toAt == nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "to is required"))
		return "", time.Time{}, time.Time{}, false
	}

	return gridArea, fromAt.UTC(), toAt.UTC(), true
}

// ListAggregatedSeries returns DataHub's grid-area totals stored for
// reconciliation.
func (s *Server) ListAggregatedSeries(c *gin.Context) {
	gridArea, from, to, ok := s.wholesaleRangeQuery(c)
	if !ok {
		return
	}

	resp, err := s.wholesaleSvc.ListAggregated(c.Request.Context(), gridArea, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListWholesaleSettlements returns DataHub's own monetary aggregates stored
// for reconciliation against locally produced settlements.
func (s *Server) ListWholesaleSettlements(c *gin.Context) {
	gridArea, from, to, ok := s.wholesaleRangeQuery(c)
	if !ok {
		return
	}

	resp, err := s.wholesaleSvc.ListWholesale(c.Request.Context(), gridArea, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
