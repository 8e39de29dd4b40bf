package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// DefaultPageSize page size used when the caller omits one
	DefaultPageSize = 20
	// MaxPageSize upper bound on a single page
	MaxPageSize = 100
)

// ValidateStruct validates struct
func ValidateStruct(obj interface{}) error {
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return BindError(err)
	}
	return nil
}

// BindError converts a gin binding/validation failure into an InvalidParam error
func BindError(err error) *AppError {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return NewError(CodeInvalidParam, strings.Join(messages, "; "))
	}
	return NewErrorWithErr(CodeInvalidParam, "invalid request body", err)
}

// getFieldErrorMessage gets field error message
func getFieldErrorMessage(fieldError validator.FieldError) string {
	field := camelToSnake(fieldError.Field())
	param := fieldError.Param()

	switch fieldError.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s validation failed", field)
	}
}

// camelToSnake converts camelCase to snake_case
func camelToSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prevUpper := s[i-1] >= 'A' && s[i-1] <= 'Z'
			nextLower := i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z'
			if !prevUpper || nextLower {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

// RegisterCustomValidators makes validation messages use json field names
func RegisterCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// ValidateID validates an entity ID path parameter
func ValidateID(id string) (string, error) {
	if id == "" {
		return "", NewError(CodeInvalidParam, "ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", NewError(CodeInvalidParam, "ID must be a valid UUID")
	}
	return id, nil
}

// ParsePage reads page/page_size query values, falling back to defaults
func ParsePage(pageStr, sizeStr string) (int, int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return page, size
}

// ValidatePage validates pagination parameters
func ValidatePage(page, pageSize int) error {
	if page <= 0 {
		return NewError(CodeInvalidParam, "page must be positive")
	}

	if pageSize <= 0 || pageSize > MaxPageSize {
		return NewError(CodeInvalidParam, "pageSize must be between 1 and 100")
	}

	return nil
}
