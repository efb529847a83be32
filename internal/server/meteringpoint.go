package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nordvolt/voltra/internal/market"
	supplydomain "github.com/nordvolt/voltra/internal/supply/domain"
	timeseriesdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
)

// GetMeteringPointByGSRN returns stored master data together with the
// supply in force right now, when one exists.
func (s *Server) GetMeteringPointByGSRN(c *gin.Context) {
	gsrn, err := market.ParseGSRN(c.Param("gsrn"))
	if err != nil {
		AbortWithError(c, newValidationError("gsrn", "invalid_gsrn", "invalid gsrn"))
		return
	}

	mp, err := s.meteringPointSvc.GetByGSRN(c.Request.Context(), gsrn.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	supply, err := s.supplySvc.ActiveAt(c.Request.Context(), mp.ID, s.clock.Now().UTC())
	if err != nil && !errors.Is(err, supplydomain.ErrNoActiveSupply) {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"metering_point": mp,
		"active_supply":  supply,
	}})
}

// ListTimeSeriesVersions returns every stored version for a metering point
// and period, oldest version first, so operators can trace how corrected
// meter data arrived.
func (s *Server) ListTimeSeriesVersions(c *gin.Context) {
	gsrn, err := market.ParseGSRN(c.Param("gsrn"))
	if err != nil {
		AbortWithError(c, newValidationError("gsrn", "invalid_gsrn", "invalid gsrn"))
		return
	}

	periodStart, err := parseOptionalTime(c.Query("period_start"), false)
	if err != nil || periodStart == nil {
		AbortWithError(c, newValidationError("period_start", "invalid_period_start", "period_start is required"))
		return
	}

	mp, err := s.meteringPointSvc.GetByGSRN(c.Request.Context(), gsrn.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	versions, err := s.timeSeriesSvc.Versions(c.Request.Context(), mp.ID, periodStart.UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	includeObservations := strings.EqualFold(strings.TrimSpace(c.Query("include")), "observations")
	if !includeObservations {
		c.JSON(http.StatusOK, gin.H{"data": versions})
		return
	}

	out := make([]timeSeriesWithObservations, 0, len(versions))
	for i := range versions {
		observations, err := s.timeSeriesSvc.Observations(c.Request.Context(), versions[i].ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		out = append(out, timeSeriesWithObservations{Series: versions[i], Observations: observations})
	}

	c.JSON(http.StatusOK, gin.H{"data": out})
}

type timeSeriesWithObservations struct {
	Series       timeseriesdomain.TimeSeries    `json:"series"`
	Observations []timeseriesdomain.Observation `json:"observations"`
}
