package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
)

type createStaffRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Zone string `json:"zone"`
}

type moveZoneRequest struct {
	Zone string `json:"zone"`
}

func (s *Server) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.staffSvc.Create(c.Request.Context(), staffdomain.CreateStaffRequest{
		Name: strings.TrimSpace(req.Name),
		Role: staffdomain.Role(strings.ToUpper(strings.TrimSpace(req.Role))),
		Zone: strings.TrimSpace(req.Zone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetStaff(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, staffdomain.ErrInvalidStaff)
		return
	}

	resp, err := s.staffSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MoveStaffZone(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, staffdomain.ErrInvalidStaff)
		return
	}
	var req moveZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.staffSvc.MoveToZone(c.Request.Context(), id, strings.TrimSpace(req.Zone)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func isStaffValidationError(err error) bool {
	switch err {
	case staffdomain.ErrInvalidRole,
		staffdomain.ErrInvalidName,
		staffdomain.ErrInvalidZone,
		staffdomain.ErrInvalidStaff:
		return true
	default:
		return false
	}
}
