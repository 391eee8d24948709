package env

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

var tagValidator = newTagValidator()

// newTagValidator names fields by their env var so failures point at what to fix.
func newTagValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if key := f.Tag.Get("env"); key != "" {
			return key
		}
		return f.Name
	})
	return v
}

// ErrConstraint is returned when a parsed value breaks its validate tag.
type ErrConstraint struct {
	EnvVar string
	Rule   string
	Value  any
}

func (e ErrConstraint) Error() string {
	return fmt.Sprintf("%s=%v must satisfy %s", e.EnvVar, e.Value, e.Rule)
}

func checkTags(v any) error {
	err := tagValidator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		errs = append(errs, ErrConstraint{EnvVar: fe.Field(), Rule: rule, Value: fe.Value()})
	}
	return errors.Join(errs...)
}

// runValidators calls Validate depth-first so a group's own rules run after the
// groups it contains.
func runValidators(val reflect.Value) error {
	for i := range val.NumField() {
		field := val.Field(i)
		if !field.CanSet() || !isGroup(field.Type()) {
			continue
		}
		if err := runValidators(field); err != nil {
			return err
		}
	}

	if val.CanAddr() {
		if v, ok := val.Addr().Interface().(Validator); ok {
			return v.Validate()
		}
	}
	return nil
}
