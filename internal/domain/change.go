package domain

import (
	"encoding/json"
	"fmt"
)

// Change is the typed payload of an event. The set of implementations is
// closed: only this package can add one.
type Change interface {
	Kind() Kind
	change()
}

// Created materializes an employee. A second Created for the same id
// replaces the earlier state.
type Created struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Salary     float64 `json:"salary"`
	Deductions float64 `json:"deductions"`
}

type NameChanged struct {
	Name string `json:"name"`
}

type SalaryChanged struct {
	Salary float64 `json:"salary"`
}

type DeductionsChanged struct {
	Deductions float64 `json:"deductions"`
}

func (Created) Kind() Kind           { return KindCreated }
func (NameChanged) Kind() Kind       { return KindNameChanged }
func (SalaryChanged) Kind() Kind     { return KindSalaryChanged }
func (DeductionsChanged) Kind() Kind { return KindDeductionsChanged }

func (Created) change()           {}
func (NameChanged) change()       {}
func (SalaryChanged) change()     {}
func (DeductionsChanged) change() {}

// Validate applies the write-path rules to the fields the change carries.
func Validate(c Change) error {
	switch c := c.(type) {
	case Created:
		return ValidateEmployee(c.Name, c.Salary, c.Deductions)
	case NameChanged:
		return ValidateName(c.Name)
	case SalaryChanged:
		return ValidateSalary(c.Salary)
	case DeductionsChanged:
		return ValidateDeductions(c.Deductions)
	case nil:
		return ErrInvalidEventKind
	}
	return fmt.Errorf("%w: %T", ErrInvalidEventKind, c)
}

// Encode serializes a change into its stored payload form.
func Encode(c Change) (json.RawMessage, error) {
	if c == nil {
		return nil, ErrInvalidEventKind
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", c.Kind(), err)
	}
	return data, nil
}
