package respond

import (
	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/shared/telemetry"
)

// ErrorBody is the error object every failed request returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse is the envelope around ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Context keys read when logging a failure. The middleware package sets them.
var logKeys = map[string]string{
	"requestId":  "request_id",
	"userId":     "user_id",
	"stage":      "stage",
	"documentId": "document_id",
	"draftId":    "draft_id",
}

// Error aborts the request with the error envelope. Client errors are logged
// at warn level, server errors at error level.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status": status,
		"code":   code,
		"route":  c.FullPath(),
		"method": c.Request.Method,
	}
	for key, field := range logKeys {
		if v := c.GetString(key); v != "" {
			fields[field] = v
		}
	}
	if status >= 500 {
		fields["message"] = message
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.client_error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}
