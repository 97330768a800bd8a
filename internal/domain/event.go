package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags the variant of an employee event. The string values are the
// tags stored in the event log.
type Kind string

const (
	KindCreated           Kind = "created"
	KindNameChanged       Kind = "updated_name"
	KindSalaryChanged     Kind = "updated_salary"
	KindDeductionsChanged Kind = "updated_deductions"
)

// Kinds lists every kind that may be persisted.
var Kinds = []Kind{KindCreated, KindNameChanged, KindSalaryChanged, KindDeductionsChanged}

// Valid reports whether k is one of the persisted kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCreated, KindNameChanged, KindSalaryChanged, KindDeductionsChanged:
		return true
	}
	return false
}

// ParseKind converts a stored tag into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventKind, s)
	}
	return k, nil
}

// Event is one immutable entry of the employee event log. Seq is assigned by
// the store and is the only ordering used for replay; Timestamp is for audit
// display.
type Event struct {
	Seq        int64           `json:"seq"`
	EmployeeID int64           `json:"employee_id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Decode parses the stored payload into its typed change.
func (e Event) Decode() (Change, error) {
	corrupt := func(err error) error {
		return &CorruptEventError{Seq: e.Seq, Kind: e.Kind, Err: err}
	}

	switch e.Kind {
	case KindCreated:
		var p struct {
			Name       *string  `json:"name"`
			Salary     *float64 `json:"salary"`
			Deductions *float64 `json:"deductions"`
		}
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, corrupt(err)
		}
		if p.Name == nil || p.Salary == nil || p.Deductions == nil {
			return nil, corrupt(fmt.Errorf("created payload requires name, salary and deductions"))
		}
		return Created{ID: e.EmployeeID, Name: *p.Name, Salary: *p.Salary, Deductions: *p.Deductions}, nil

	case KindNameChanged:
		var p struct {
			Name *string `json:"name"`
		}
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, corrupt(err)
		}
		if p.Name == nil {
			return nil, corrupt(fmt.Errorf("missing name"))
		}
		return NameChanged{Name: *p.Name}, nil

	case KindSalaryChanged:
		var p struct {
			Salary *float64 `json:"salary"`
		}
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, corrupt(err)
		}
		if p.Salary == nil {
			return nil, corrupt(fmt.Errorf("missing salary"))
		}
		return SalaryChanged{Salary: *p.Salary}, nil

	case KindDeductionsChanged:
		var p struct {
			Deductions *float64 `json:"deductions"`
		}
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, corrupt(err)
		}
		if p.Deductions == nil {
			return nil, corrupt(fmt.Errorf("missing deductions"))
		}
		return DeductionsChanged{Deductions: *p.Deductions}, nil
	}

	return nil, corrupt(fmt.Errorf("%w: %q", ErrInvalidEventKind, e.Kind))
}
