package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(msgs, "; ")
}

// Validator checks values against JSON Schemas. Compiled schemas are
// cached by their JSON text.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{compiled: make(map[string]*gojsonschema.Schema)}
}

func (v *Validator) Validate(data map[string]interface{}, schema map[string]interface{}) error {
	if len(schema) == 0 {
		// No schema defined, allow any data
		return nil
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	compiled, err := v.compile(schema)
	if err != nil {
		return err
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var validationErrors []ValidationError
		for _, desc := range result.Errors() {
			validationErrors = append(validationErrors, ValidationError{
				Field:   desc.Field(),
				Message: desc.Description(),
			})
		}
		return &ValidationErrors{Errors: validationErrors}
	}

	return nil
}

func (v *Validator) compile(schema map[string]interface{}) (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	key := string(raw)

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.compiled[key]; ok {
		return s, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	v.compiled[key] = s
	return s, nil
}

func IsValidationError(err error) bool {
	var ve *ValidationErrors
	return errors.As(err, &ve)
}

func GetValidationErrors(err error) *ValidationErrors {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// Fail builds a ValidationErrors with one entry.
func Fail(field, message string) *ValidationErrors {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Message: message}}}
}
