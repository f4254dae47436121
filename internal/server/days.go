package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
)

type closeShiftRequest struct {
	ClosedBy     string `json:"closed_by"`
	CashboxCount *int64 `json:"cashbox_count"`
}

func (s *Server) GetDayAggregate(c *gin.Context) {
	sellerID, err := parseOptionalSnowflakeID(c.Query("seller_id"))
	if err != nil {
		AbortWithError(c, newValidationError("seller_id", "invalid_seller_id", "invalid seller_id"))
		return
	}

	resp, err := s.aggregates.GetDayAggregate(c.Request.Context(), c.Param("day"), sellerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDaySummary(c *gin.Context) {
	resp, err := s.shiftClose.DaySummary(c.Request.Context(), c.Param("day"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDayMotivation(c *gin.Context) {
	resp, err := s.motivation.ComputeDay(c.Request.Context(), c.Param("day"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CloseShift(c *gin.Context) {
	var req closeShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	closedBy := strings.TrimSpace(req.ClosedBy)
	if closedBy == "" {
		closedBy = operatorFromContext(c)
	}

	resp, err := s.shiftClose.CloseShift(c.Request.Context(), shiftclosedomain.CloseShiftRequest{
		BusinessDay:  c.Param("day"),
		ClosedBy:     closedBy,
		CashboxCount: req.CashboxCount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSnapshot(c *gin.Context) {
	resp, err := s.shiftClose.GetSnapshot(c.Request.Context(), c.Param("day"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSnapshots(c *gin.Context) {
	var query struct {
		From string `form:"from"`
		To   string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, to := dayRange(query.From, query.To)
	resp, err := s.shiftClose.ListSnapshots(c.Request.Context(), from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
