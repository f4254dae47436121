package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetWeeklySummary(c *gin.Context) {
	resp, err := s.payoutRoll.WeeklySummary(c.Request.Context(), strings.TrimSpace(c.Param("week")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSeasonSummary(c *gin.Context) {
	resp, err := s.payoutRoll.SeasonSummary(c.Request.Context(), strings.TrimSpace(c.Param("season")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
