package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"furnistore/internal/common"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs validator/v10 into echo. Field names in errors use
// the json tag.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i any) error {
	return rv.validate.Struct(i)
}

// bindAndValidate decodes the body into dst and validates it. On failure the
// error response has already been written and handled is true.
func bindAndValidate(c echo.Context, dst any) (handled bool, err error) {
	if err := c.Bind(dst); err != nil {
		return true, common.SendClientError(c, "Invalid request format")
	}
	if err := c.Validate(dst); err != nil {
		return true, sendValidationErrors(c, err)
	}
	return false, nil
}

func sendValidationErrors(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.SendClientError(c, err.Error())
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		details[field] = describe(fe)
	}
	return c.JSON(http.StatusBadRequest, common.CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "uuid":
		return "must be a valid UUID"
	default:
		return "failed on " + fe.Tag()
	}
}
