package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	settlementdomain "github.com/nordvolt/voltra/internal/settlement/domain"
	"github.com/nordvolt/voltra/pkg/db/pagination"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

// ListSettlements serves the filtered settlement index. Results page by
// cursor so the invoicing system can walk a large backlog without offset
// drift while the worker keeps inserting.
func (s *Server) ListSettlements(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status          string `form:"status"`
		MeteringPointID string `form:"metering_point_id"`
		IsCorrection    string `form:"is_correction"`
		PeriodFrom      string `form:"period_from"`
		PeriodTo        string `form:"period_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := settlementdomain.ListFilter{
		Status: strings.TrimSpace(query.Status),
	}

	meteringPointID, err := parseOptionalInt64(query.MeteringPointID)
	if err != nil {
		AbortWithError(c, newValidationError("metering_point_id", "invalid_metering_point_id", "invalid metering_point_id"))
		return
	}
	if meteringPointID != nil {
		filter.MeteringPointID = *meteringPointID
	}

	isCorrection, err := parseOptionalBool(query.IsCorrection)
	if err != nil {
		AbortWithError(c, newValidationError("is_correction", "invalid_is_correction", "invalid is_correction"))
		return
	}
	filter.IsCorrection = isCorrection

	periodFrom, err := parseOptionalTime(query.PeriodFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("period_from", "invalid_period_from", "invalid period_from"))
		return
	}
	if periodFrom != nil {
		filter.PeriodFrom = periodFrom.UTC()
	}

	periodTo, err := parseOptionalTime(query.PeriodTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("period_to", "invalid_period_to", "invalid period_to"))
		return
	}
	if periodTo != nil {
		filter.PeriodTo = periodTo.UTC()
	}

	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	if token := strings.TrimSpace(query.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			AbortWithError(c, newValidationError("page_token", "invalid_page_token", "invalid page_token"))
			return
		}
		filter.CursorID = cursor.ID
	}

	// Fetch one extra row to learn whether another page exists.
	filter.Limit = pageSize + 1

	settlements, err := s.settlementSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageInfo := pagination.PageInfo{}
	if len(settlements) > pageSize {
		settlements = settlements[:pageSize]
		pageInfo.HasMore = true
	}
	if len(settlements) > 0 {
		last := settlements[len(settlements)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: last.ID})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		pageInfo.NextPageToken = token
	}

	c.JSON(http.StatusOK, gin.H{"data": settlements, "page_info": pageInfo})
}

// ListPendingSettlements returns Calculated settlements with lines, oldest
// first, for the invoicing system to drain.
func (s *Server) ListPendingSettlements(c *gin.Context) {
	limit, offset, err := parseLimitOffset(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)
	if err != nil {
		AbortWithError(c, newValidationError("limit", err.Error(), "invalid paging parameters"))
		return
	}

	resp, err := s.settlementSvc.Pending(c.Request.Context(), limit, offset)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListCorrectionSettlements returns correction settlements with lines,
// newest first.
func (s *Server) ListCorrectionSettlements(c *gin.Context) {
	limit, offset, err := parseLimitOffset(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)
	if err != nil {
		AbortWithError(c, newValidationError("limit", err.Error(), "invalid paging parameters"))
		return
	}

	resp, err := s.settlementSvc.Corrections(c.Request.Context(), limit, offset)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSettlementByID(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid settlement id"))
		return
	}

	resp, err := s.settlementSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type invoiceSettlementRequest struct {
	InvoiceRef string `json:"invoice_ref"`
}

// InvoiceSettlement records that the invoicing system billed a settlement.
// Repeating the call conflicts: the row is no longer Calculated.
func (s *Server) InvoiceSettlement(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid settlement id"))
		return
	}

	var req invoiceSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settlementSvc.Invoice(c.Request.Context(), id, req.InvoiceRef, s.clock.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListIssues(c *gin.Context) {
	limit, offset, err := parseLimitOffset(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)
	if err != nil {
		AbortWithError(c, newValidationError("limit", err.Error(), "invalid paging parameters"))
		return
	}

	filter := settlementdomain.IssueFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}

	meteringPointID, err := parseOptionalInt64(c.Query("metering_point_id"))
	if err != nil {
		AbortWithError(c, newValidationError("metering_point_id", "invalid_metering_point_id", "invalid metering_point_id"))
		return
	}
	if meteringPointID != nil {
		filter.MeteringPointID = *meteringPointID
	}

	resp, err := s.settlementSvc.Issues(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DismissIssue closes an Open issue by operator decision, for gaps that
// will never be priced, such as a metering point leaving the portfolio.
func (s *Server) DismissIssue(c *gin.Context) {
	id, err := parsePathID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid issue id"))
		return
	}

	resp, err := s.settlementSvc.DismissIssue(c.Request.Context(), id, s.clock.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
