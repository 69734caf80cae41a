package v1

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	errInvalidRequest = "Invalid request"
	errValidation     = "Validation failed"
	errInternal       = "Something went wrong, please try again later"

	codeInvalidRequest = "INVALID_REQUEST"
	codeValidation     = "VALIDATION_ERROR"
	codeRateLimited    = "RATE_LIMITED"
	codeNotFound       = "NOT_FOUND"
	codeStorage        = "STORAGE_ERROR"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// requestValidator returns the shared validator. Field errors are keyed by json tag.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validationFields converts validator errors into a field -> message map.
func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

func validationError(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
		"error":  errValidation,
		"code":   codeValidation,
		"fields": fields,
	})
}

func errorResponse(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

func invalidRequest(c *fiber.Ctx) error {
	return errorResponse(c, http.StatusBadRequest, errInvalidRequest, codeInvalidRequest)
}

func notFound(c *fiber.Ctx, message string) error {
	return errorResponse(c, http.StatusNotFound, message, codeNotFound)
}

func internalError(c *fiber.Ctx) error {
	return errorResponse(c, http.StatusInternalServerError, errInternal, codeStorage)
}
