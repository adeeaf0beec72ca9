// Package validation checks user input against declared schemas before any
// network call is made.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// PasswordMismatchMessage is reported when a password confirmation differs.
const PasswordMismatchMessage = "The password and confirm password do not match!"

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Error describes the first violated constraint of an input.
type Error struct {
	Schema string
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// Result is the outcome of Validate. When Valid, Input holds a pointer to the
// schema's typed struct (for example *LoginInput); otherwise Field and Reason
// describe the first violation.
type Result struct {
	Valid  bool
	Input  any
	Field  string
	Reason string

	schema string
}

// Err returns nil for a valid result and an *Error otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &Error{Schema: r.schema, Field: r.Field, Reason: r.Reason}
}

func invalid(schema, field, reason string) Result {
	return Result{Field: field, Reason: reason, schema: schema}
}

// Validate checks raw against the named schema. It never panics on malformed
// input; unknown schemas and undecodable values yield an invalid result.
func Validate(schema string, raw map[string]any) Result {
	input := newInput(schema)
	if input == nil {
		return invalid(schema, "", fmt.Sprintf("unknown schema %q", schema))
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           input,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return invalid(schema, "", fmt.Sprintf("build decoder: %v", err))
	}
	if err := decoder.Decode(raw); err != nil {
		return invalid(schema, "", fmt.Sprintf("malformed input: %v", err))
	}

	if n, ok := input.(normalizer); ok {
		n.normalize()
	}

	if err := validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			// Errors come back in field declaration order; first wins.
			fe := fieldErrs[0]
			return invalid(schema, fe.Field(), message(fe))
		}
		return invalid(schema, "", err.Error())
	}

	return Result{Valid: true, Input: input, schema: schema}
}

// ValidateStrings is Validate for plain string form values.
func ValidateStrings(schema string, raw map[string]string) Result {
	m := make(map[string]any, len(raw))
	for k, v := range raw {
		m[k] = v
	}
	return Validate(schema, m)
}

// message renders a human-readable reason for a failed tag.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "min":
		return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
	case "max":
		return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
	case "len":
		return fmt.Sprintf("String must contain exactly %s character(s)", fe.Param())
	case "eqfield":
		return PasswordMismatchMessage
	default:
		return fmt.Sprintf("failed %s constraint", fe.Tag())
	}
}
