package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mfgorder/backend/internal/interfaces/http/dto"
)

// SetupValidator makes gin's validator name fields after their json tag, or
// the form tag for query parameters.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
		}
		return name
	})
}

// FormatValidationErrors turns validator failures into a validation response.
// Nested fields keep their path, e.g. lines[2].box_count.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details = make([]dto.ValidationDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   fieldPath(fe),
				Message: validationMessage(fe),
			})
		}
	}
	return dto.Invalid("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 validation response for err
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString(RequestIDContextKey)
	if requestID == "" {
		requestID = c.GetHeader(RequestIDKey)
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// fieldPath drops the request struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	if _, path, ok := strings.Cut(fe.Namespace(), "."); ok && path != "" {
		return path
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	param := fe.Param()
	countable := fe.Kind() == reflect.String || fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if countable {
			return "Must contain at least " + param + " items or characters"
		}
		return "Must be at least " + param
	case "max":
		if countable {
			return "Must contain at most " + param + " items or characters"
		}
		return "Must be at most " + param
	case "gt":
		return "Must be greater than " + param
	case "gte":
		return "Must be greater than or equal to " + param
	case "oneof":
		return "Must be one of: " + param
	case "uuid":
		return "Invalid UUID format"
	}
	return "Invalid value"
}
