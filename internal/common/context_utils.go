package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendConflictError sends a conflict error response
func SendConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, CreateErrorResponse("CONFLICT", message, nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// SendServiceError maps a service error onto the response envelope. The
// message of a ServiceError is shown to the caller as is.
func SendServiceError(c echo.Context, err error) error {
	message := MessageOf(err)
	switch {
	case IsNotFound(err):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", message, nil))
	case IsValidation(err):
		return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", message, nil))
	case IsConflict(err):
		return c.JSON(http.StatusConflict, CreateErrorResponse("CONFLICT", message, nil))
	default:
		return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
	}
}

// ValidateUUID validates UUID format with comprehensive checks
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	if strings.TrimSpace(idStr) == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	idStr = strings.TrimSpace(idStr)
	id, err := uuid.Parse(idStr)
	if err != nil || len(idStr) != 36 {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", fieldName)
	}

	return id, nil
}

// ParseOptionalUUID parses a nullable id field; nil and "" both mean no id.
func ParseOptionalUUID(idStr *string, fieldName string) (*uuid.UUID, error) {
	if idStr == nil || strings.TrimSpace(*idStr) == "" {
		return nil, nil
	}
	id, err := ValidateUUID(*idStr, fieldName)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// MaxSearchRunes bounds the search term sent to the database.
const MaxSearchRunes = 100

// SanitizeSearchQuery trims the query and strips LIKE wildcards so user input
// is matched literally. Long input is cut to MaxSearchRunes characters.
func SanitizeSearchQuery(query string) string {
	query = strings.TrimSpace(query)
	replacer := strings.NewReplacer("%", "", "_", "", "\\", "")
	query = replacer.Replace(query)
	if utf8.RuneCountInString(query) > MaxSearchRunes {
		query = string([]rune(query)[:MaxSearchRunes])
	}
	return query
}
