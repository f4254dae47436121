package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
)

type completeSlotRequest struct {
	BusinessDay string `json:"business_day"`
}

func (s *Server) PostEntry(c *gin.Context) {
	var req ledgerdomain.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.IdempotencyKey == nil {
		if key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)); key != "" {
			req.IdempotencyKey = &key
		}
	}

	resp, err := s.ledgerSvc.PostEntry(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RecordPresale(c *gin.Context) {
	var req ledgerdomain.RecordPresaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.RecordPresale(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CompleteSlot(c *gin.Context) {
	var req completeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.RecordSlotCompletion(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.BusinessDay))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isLedgerValidationError(err error) bool {
	switch err {
	case ledgerdomain.ErrInvalidKind,
		ledgerdomain.ErrInvalidType,
		ledgerdomain.ErrInvalidMethod,
		ledgerdomain.ErrMethodMismatch,
		ledgerdomain.ErrInvalidAmount,
		ledgerdomain.ErrInvalidSplit,
		ledgerdomain.ErrInvalidSeller,
		ledgerdomain.ErrInvalidPresale,
		ledgerdomain.ErrPresaleDayMismatch,
		ledgerdomain.ErrInvalidSlot,
		ledgerdomain.ErrInvalidBoatType:
		return true
	default:
		return false
	}
}
