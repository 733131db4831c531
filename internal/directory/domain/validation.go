package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a create request without touching the network. A record
// cannot be created before its identity account exists.
func (u NewUser) Validate() error {
	if strings.TrimSpace(u.FirebaseUID) == "" {
		return ValidationError("user creation requires an identity provider uid")
	}
	return validationFailure(validate.Struct(u))
}

func (u UserUpdate) Validate() error {
	return validationFailure(validate.Struct(u))
}

func validationFailure(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewAPIError(ErrValidationFailure, 0, err.Error(), err)
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return NewAPIError(ErrValidationFailure, 0, strings.Join(messages, "; "), err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	if field != "" {
		field = strings.ToLower(field[:1]) + field[1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
