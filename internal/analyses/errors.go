package analyses

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/agents"
	"coverletter-backend/internal/llm"
	"coverletter-backend/internal/pipeline"
	"coverletter-backend/internal/shared/server/middleware"
	"coverletter-backend/internal/shared/server/respond"
)

// ErrNotFound is returned when a referenced document or draft is missing.
var ErrNotFound = errors.New("not found")

const (
	ErrorCodeValidation        = "validation_error"
	ErrorCodeNotFound          = "not_found"
	ErrorCodeQuota             = "quota_exceeded"
	ErrorCodeModelUnavailable  = "model_unavailable"
	ErrorCodeModel             = "model_error"
	ErrorCodeMalformedResponse = "malformed_response"
	ErrorCodeTimeout           = "timeout"
	ErrorCodeInternal          = "internal_error"
)

// RespondError maps agent, pipeline and model errors to the HTTP error body.
// Pipeline failures report the halted stage in details.stage.
func RespondError(c *gin.Context, err error) {
	var details gin.H
	var serr *pipeline.StageError
	if errors.As(err, &serr) {
		details = gin.H{"stage": serr.Stage}
		c.Set(middleware.StageKey, serr.Stage)
	}

	var verr *agents.ValidationError
	var merr *agents.ModelError
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, verr.Error(), details)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, err.Error(), details)
	case llm.IsQuota(err):
		respond.Error(c, http.StatusTooManyRequests, ErrorCodeQuota, "model quota exceeded", details)
	case llm.IsMalformed(err):
		respond.Error(c, http.StatusInternalServerError, ErrorCodeMalformedResponse, "model returned an unreadable response", details)
	case llm.IsTransient(err):
		respond.Error(c, http.StatusServiceUnavailable, ErrorCodeModelUnavailable, "model temporarily unavailable", details)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, ErrorCodeTimeout, "request timed out", details)
	case errors.As(err, &merr):
		respond.Error(c, http.StatusBadGateway, ErrorCodeModel, merr.Error(), details)
	default:
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "internal error", details)
	}
}

// BadBody reports an unreadable request body.
func BadBody(c *gin.Context, err error) {
	respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", gin.H{"reason": err.Error()})
}
