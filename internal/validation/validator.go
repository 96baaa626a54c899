// Package validation provides input validation utilities for dataset operations.
// Validators return *errors.DatasetError values so callers can surface them
// directly without reclassifying.
package validation

import (
	"fmt"
	"strings"

	"github.com/paveg/datafilter/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// LengthProvider is implemented by collections whose emptiness matters.
type LengthProvider interface {
	Len() int
}

// FieldProvider is implemented by collections that can report their field union.
type FieldProvider interface {
	Fields() []string
}

// PathValidator validates a file path argument
type PathValidator struct {
	path string
	op   string
}

// NewPathValidator creates a validator for path arguments
func NewPathValidator(path, op string) *PathValidator {
	return &PathValidator{path: path, op: op}
}

// Validate rejects empty and NUL-containing paths
func (v *PathValidator) Validate() error {
	if strings.TrimSpace(v.path) == "" {
		return errors.NewPathError(v.op, v.path, "path cannot be empty")
	}
	if strings.ContainsRune(v.path, 0) {
		return errors.NewPathError(v.op, v.path, "path contains a NUL byte")
	}
	return nil
}

// FieldNameValidator validates a field name argument
type FieldNameValidator struct {
	name string
	op   string
}

// NewFieldNameValidator creates a validator for field names
func NewFieldNameValidator(name, op string) *FieldNameValidator {
	return &FieldNameValidator{name: name, op: op}
}

// Validate rejects blank field names
func (v *FieldNameValidator) Validate() error {
	if strings.TrimSpace(v.name) == "" {
		return errors.NewInvalidArgumentError(v.op, v.name, "field name cannot be empty")
	}
	return nil
}

// FieldExistsValidator checks that a field appears in at least one record
type FieldExistsValidator struct {
	provider FieldProvider
	name     string
	op       string
}

// NewFieldExistsValidator creates a validator for field existence
func NewFieldExistsValidator(provider FieldProvider, name, op string) *FieldExistsValidator {
	return &FieldExistsValidator{provider: provider, name: name, op: op}
}

// Validate checks the field against the provider's field union
func (v *FieldExistsValidator) Validate() error {
	fields := v.provider.Fields()
	for _, f := range fields {
		if f == v.name {
			return nil
		}
	}
	return errors.NewInvalidArgumentError(v.op, v.name, "field does not exist").
		WithHint(fmt.Sprintf("available fields: [%s]", strings.Join(fields, ", ")))
}

// NonEmptyValidator validates operations that need at least one record
type NonEmptyValidator struct {
	provider LengthProvider
	op       string
}

// NewNonEmptyValidator creates a validator for empty dataset checks
func NewNonEmptyValidator(provider LengthProvider, op string) *NonEmptyValidator {
	return &NonEmptyValidator{provider: provider, op: op}
}

// Validate checks if the collection is empty when the operation requires data
func (v *NonEmptyValidator) Validate() error {
	if v.provider.Len() == 0 {
		return errors.NewEmptyDatasetError(v.op)
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{validators: validators}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidatePath is a convenience function for path validation
func ValidatePath(path, op string) error {
	return NewPathValidator(path, op).Validate()
}

// ValidateFieldName is a convenience function for field name validation
func ValidateFieldName(name, op string) error {
	return NewFieldNameValidator(name, op).Validate()
}

// ValidateNotEmpty is a convenience function for empty dataset validation
func ValidateNotEmpty(provider LengthProvider, op string) error {
	return NewNonEmptyValidator(provider, op).Validate()
}
