package intake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JamesPrial/mindful-journal/internal/pathutil"
)

var validate = newValidator()

// newValidator registers segmentlen, which bounds a string in bytes by
// pathutil.MaxSegmentLen.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("segmentlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= pathutil.MaxSegmentLen
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks s against its validate struct tags. Failures wrap
// ErrInvalidInput and read like "type must be at most 250 bytes".
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(messages, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "segmentlen":
		return fmt.Sprintf("%s must be at most %d bytes", field, pathutil.MaxSegmentLen)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
