package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/shiftledger/internal/observability/logger"
)

const (
	HeaderOperator       = "X-Operator"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// Operator tags the request context with the person at the counter.
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if operator := strings.TrimSpace(c.GetHeader(HeaderOperator)); operator != "" {
			c.Request = c.Request.WithContext(obslogger.WithOperator(c.Request.Context(), operator))
		}
		c.Next()
	}
}

func operatorFromContext(c *gin.Context) string {
	return obslogger.OperatorFromContext(c.Request.Context())
}
