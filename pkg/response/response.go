package response

import (
	"errors"
	"net/http"
	"time"

	"cashback-platform/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuccessResponse wraps every successful payload in the standard envelope.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse is the flat error envelope: a machine-readable code plus a
// safe human-readable message, never internal details.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	writeSuccess(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	writeSuccess(c, http.StatusCreated, data)
}

func writeSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: getRequestID(c),
		Timestamp: now(),
	})
}

// Error maps err onto the error envelope. Known *apperror.AppError values
// carry their own code and HTTP status; anything else becomes an opaque 500.
func Error(c *gin.Context, err error) {
	code, message, status := "SYS_000", "Internal server error", http.StatusInternalServerError

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		code, message, status = appErr.Code, appErr.Message, appErr.HTTPStatus
	}

	c.JSON(status, ErrorResponse{
		ErrorCode: code,
		Message:   message,
		RequestID: getRequestID(c),
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// getRequestID retrieves the request ID set by middleware, generating one
// so the envelope is never missing it.
func getRequestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return uuid.New().String()
}
