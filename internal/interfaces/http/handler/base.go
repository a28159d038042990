package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/infrastructure/logger"
	"github.com/mfgorder/backend/internal/interfaces/http/dto"
	"github.com/mfgorder/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Responder writes the dto envelopes. Ledger handlers embed it.
type Responder struct{}

// requestID prefers the ID set by the request ID middleware over the raw header
func requestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDContextKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDKey)
}

// pathUUID reads a UUID path parameter. A malformed value answers 400 and
// reports false.
func (r *Responder) pathUUID(c *gin.Context, param, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		r.BadRequest(c, "Invalid "+resource+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (r *Responder) bindJSON(c *gin.Context, req any) bool {
	return r.bind(c, req, binding.JSON)
}

func (r *Responder) bindQuery(c *gin.Context, req any) bool {
	return r.bind(c, req, binding.Query)
}

// bind decodes into req and answers the failure itself: 400 with field
// details for validation errors, 413 for an oversized body and 400 for
// anything unparseable.
func (r *Responder) bind(c *gin.Context, req any, b binding.Binding) bool {
	err := c.ShouldBindWith(req, b)
	var (
		verrs    validator.ValidationErrors
		tooLarge *http.MaxBytesError
	)
	switch {
	case err == nil:
		return true
	case errors.As(err, &verrs):
		middleware.HandleValidationError(c, verrs)
	case errors.As(err, &tooLarge):
		r.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
	default:
		r.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, err.Error())
	}
	return false
}

func (r *Responder) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

func (r *Responder) Page(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.Page(data, total, page, pageSize))
}

func (r *Responder) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

// Error answers with an explicit status and API code
func (r *Responder) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.Fail(code, message, requestID(c)))
}

func (r *Responder) BadRequest(c *gin.Context, message string) {
	r.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

func (r *Responder) NotFound(c *gin.Context, message string) {
	r.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Fail answers a service error. Domain errors keep their code and message,
// with the status derived from the code. Anything else is logged and hidden
// behind a generic 500.
func (r *Responder) Fail(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		r.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.GetGinLogger(c).Error("Unhandled service error", zap.Error(err))
	r.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}
