// Package validator decodes JSON request bodies and checks them against
// go-playground/validator struct tags. Field errors are keyed by the
// field's JSON name so clients can map them back to their payload.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps the request bodies DecodeAndValidate will read.
const MaxBodyBytes = 1 << 20

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks s against its validate tags. Tag violations come back as
// *ValidationError; anything else (s not being a struct) is returned as-is.
func Validate(s any) error {
	err := validate.Struct(s)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return &ValidationError{Errors: fieldErrs}
	}
	return err
}

// ValidationError lists the fields of a request that failed validation.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), describe(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Fields maps each failing field's JSON name to a readable message.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fe.Field()] = describe(fe)
	}
	return fields
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "numeric":
		return "must be a decimal number"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return fmt.Sprintf("failed on '%s' validation", fe.Tag())
}

// DecodeAndValidate decodes at most MaxBodyBytes of JSON from r into dst
// and validates it. Decode failures are plain errors; validation failures
// are *ValidationError.
func DecodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("decode request body: body is empty")
		}
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.InputOffset() > MaxBodyBytes {
		return fmt.Errorf("decode request body: larger than %d bytes", MaxBodyBytes)
	}
	return Validate(dst)
}
