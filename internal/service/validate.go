package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// reservedUsernames collide with static route roots.
var reservedUsernames = map[string]struct{}{
	"owner":   {},
	"project": {},
	"query":   {},
	"healthz": {},
	"metrics": {},
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if _, reserved := reservedUsernames[strings.ToLower(value)]; reserved {
			return false
		}
		return usernamePattern.MatchString(value)
	})
	return v
}

// check validates input and converts failures into a *ValidationError.
func (s *Service) check(entity string, input any) error {
	errValidate := s.validate.Struct(input)
	if errValidate == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(errValidate, &fieldErrs) {
		return fmt.Errorf("validate %s: %w", entity, errValidate)
	}
	out := &ValidationError{Entity: entity, Violations: make([]Violation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, Violation{
			Property:  fe.Field(),
			Violation: violationMessage(fe),
		})
	}
	return out
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "min":
		return fmt.Sprintf("size must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("size must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("size must be exactly %s", fe.Param())
	case "username":
		return "must start with a letter or digit, contain only letters, digits, '_', '.', '-' and not be a reserved name"
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
