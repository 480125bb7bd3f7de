package impl

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	domainerrors "accounts/internal/domain/errors"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// inputValidator checks usecase inputs against their validate tags
// and reports every failing field by its JSON name.
type inputValidator struct {
	validate *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(errors.Wrap(err, "failed to register maxbytes validation"))
	}

	return &inputValidator{validate: v}
}

// maxBytes limits the encoded length of a string. bcrypt only accepts passwords up to 72 bytes,
// and the built-in max tag counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}

	return len(fl.Field().String()) <= limit
}

// check returns nil or a VALIDATION_FAILED error with one FieldError per failing field.
func (v *inputValidator) check(input any) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errors.Wrap(err, "failed to validate input")
	}

	fieldErrors := make([]domainerrors.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fieldErrors = append(fieldErrors, domainerrors.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}

	return domainerrors.NewValidationError(fieldErrors)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes long", fe.Param())
	default:
		return "is invalid"
	}
}
