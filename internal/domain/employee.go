package domain

import (
	"math"
	"strings"
	"unicode/utf16"
)

// Employee is the projected state of one employee. It is derived from the
// event log on every read and never stored.
type Employee struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Salary     float64 `json:"salary"`
	Deductions float64 `json:"deductions"`
	NetPay     float64 `json:"netPay"`
}

// Recompute refreshes NetPay from the current salary and deductions.
func (e *Employee) Recompute() {
	e.NetPay = e.Salary - e.Deductions
}

// ValidateName requires at least two characters after trimming. Length is
// counted in UTF-16 code units, the way browser clients count it, so a
// single astral character such as an emoji is long enough.
func ValidateName(name string) error {
	if len(utf16.Encode([]rune(strings.TrimSpace(name)))) < 2 {
		return ErrInvalidName
	}
	return nil
}

func ValidateSalary(salary float64) error {
	if !validAmount(salary) {
		return ErrInvalidSalary
	}
	return nil
}

func ValidateDeductions(deductions float64) error {
	if !validAmount(deductions) {
		return ErrInvalidDeductions
	}
	return nil
}

// ValidateEmployee checks every field of a new employee, reporting the first
// failure in name, salary, deductions order.
func ValidateEmployee(name string, salary, deductions float64) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateSalary(salary); err != nil {
		return err
	}
	return ValidateDeductions(deductions)
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
