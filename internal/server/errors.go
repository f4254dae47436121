package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shiftledger/internal/businessday"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	staffdomain "github.com/smallbiznis/shiftledger/internal/staff/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type        string            `json:"type"`
	Code        string            `json:"code,omitempty"`
	Message     string            `json:"message"`
	BusinessDay string            `json:"business_day,omitempty"`
	Errors      []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if closed, ok := shiftclosedomain.AsShiftClosed(err); ok {
		return closed.Status(), errorPayload{
			Type:        "shift_closed",
			Code:        closed.Code(),
			Message:     "business day is closed",
			BusinessDay: closed.BusinessDay,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, shiftclosedomain.ErrCloseLockNotHeld):
		return http.StatusConflict, errorPayload{
			Type:    "close_in_progress",
			Message: "business day is being closed",
		}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded on the request log line.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if payload.Code != "" {
		return payload.Type, payload.Code
	}
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, http.StatusText(status)
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, businessday.ErrInvalidDayFormat),
		errors.Is(err, businessday.ErrInvalidWeekID),
		errors.Is(err, businessday.ErrInvalidSeasonID),
		errors.Is(err, shiftclosedomain.ErrInvalidClosedBy),
		errors.Is(err, shiftclosedomain.ErrInvalidCashbox),
		errors.Is(err, shiftclosedomain.ErrInvalidDateRange):
		return true
	case isLedgerValidationError(err),
		isStaffValidationError(err):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, shiftclosedomain.ErrSnapshotNotFound),
		errors.Is(err, ledgerdomain.ErrPresaleNotFound),
		errors.Is(err, staffdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, businessday.ErrInvalidDayFormat):
		return businessday.ErrInvalidDayFormat.Error()
	case errors.Is(err, businessday.ErrInvalidWeekID):
		return businessday.ErrInvalidWeekID.Error()
	case errors.Is(err, businessday.ErrInvalidSeasonID):
		return businessday.ErrInvalidSeasonID.Error()
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if code == businessday.ErrInvalidDayFormat.Error() {
		return "business_day"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case businessday.ErrInvalidDayFormat.Error():
		return "business day must be YYYY-MM-DD"
	default:
		return "invalid value"
	}
}
