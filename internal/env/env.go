// Package env loads configuration structs from environment variables.
//
// Fields opt in with struct tags:
//
//	env:"VAR_NAME"          variable to read
//	default:"value"         used when VAR_NAME is not set at all
//	validate:"gt=0"         go-playground/validator constraint, reported by VAR_NAME
//
// Supported field types are string, bool, signed integers, time.Duration and
// []string (comma separated, blanks dropped). Nested and embedded structs are
// walked recursively. A variable set to the empty string is respected for
// strings and fails to parse for every other kind.
package env

import (
	"fmt"
	"reflect"
)

// Validator is implemented by config structs with cross-field rules.
type Validator interface {
	Validate() error
}

// ErrInvalidValue is returned when a variable cannot be parsed into its field.
type ErrInvalidValue struct {
	Field  string
	EnvVar string
	Value  string
	Err    error
}

func (e ErrInvalidValue) Error() string {
	return fmt.Sprintf("invalid value for %s=%q (field: %s): %v", e.EnvVar, e.Value, e.Field, e.Err)
}

func (e ErrInvalidValue) Unwrap() error { return e.Err }

// ErrNotStructPointer is returned when the target is not a pointer to a struct.
type ErrNotStructPointer struct {
	Type string
}

func (e ErrNotStructPointer) Error() string {
	return fmt.Sprintf("env: argument must be a pointer to struct, got %s", e.Type)
}

// ErrUnsupportedType is returned for a tagged field of a kind the loader cannot set.
type ErrUnsupportedType struct {
	Kind string
}

func (e ErrUnsupportedType) Error() string {
	return "unsupported type: " + e.Kind
}

// Load parses v from the environment and then validates it: validate tags
// first, then every Validator from the innermost struct out to v itself.
func Load(v any) error {
	root, err := structPointer(v)
	if err != nil {
		return err
	}
	if err := decodeStruct(root); err != nil {
		return err
	}
	if err := checkTags(v); err != nil {
		return err
	}
	return runValidators(root)
}

// Parse fills v from the environment without any validation.
func Parse(v any) error {
	root, err := structPointer(v)
	if err != nil {
		return err
	}
	return decodeStruct(root)
}

func structPointer(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, ErrNotStructPointer{Type: fmt.Sprintf("%T", v)}
	}
	return rv.Elem(), nil
}
