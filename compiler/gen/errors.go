package gen

import (
	"errors"
	"fmt"
)

// Sentinels the generator's error types unwrap to, so callers can branch
// with errors.Is without holding the concrete type.
var (
	// ErrInvalidSchema marks schema definition errors.
	ErrInvalidSchema = errors.New("prax: invalid schema")
	// ErrInvalidConfig marks generator configuration errors.
	ErrInvalidConfig = errors.New("prax: invalid generator config")
	// ErrGenerationFailed marks failures while emitting code.
	ErrGenerationFailed = errors.New("prax: code generation failed")
)

// SchemaError reports a schema construct the generator cannot express.
type SchemaError struct {
	Model   string // model name
	Field   string // field name, if applicable
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	msg := "prax: schema error"
	if e.Model != "" {
		msg += " on model " + e.Model
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is matches ErrInvalidSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// NewSchemaError builds a SchemaError without a cause.
func NewSchemaError(model, field, message string) *SchemaError {
	return &SchemaError{Model: model, Field: field, Message: message}
}

// ConfigError reports an invalid generator configuration option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("prax: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("prax: config error for %q: %s", e.Option, e.Message)
}

// Is matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
