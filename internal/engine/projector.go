package engine

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
)

// Project folds events into the current state of every employee. Events are
// applied in ascending sequence order regardless of the order they are passed
// in; timestamps play no part. The result is sorted by employee id.
//
// Fold policy:
//   - Created replaces whatever state the id had, so duplicate creates resolve
//     last-created-wins.
//   - An update for an id with no state yet starts from a zero-valued
//     employee (an orphan update) instead of failing.
//
// A corrupt event fails the whole projection; no partial result is returned.
func Project(events []domain.Event) ([]domain.Employee, error) {
	state, err := fold(events)
	if err != nil {
		return nil, err
	}

	employees := make([]domain.Employee, 0, len(state))
	for _, emp := range state {
		employees = append(employees, *emp)
	}
	slices.SortFunc(employees, func(a, b domain.Employee) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return employees, nil
}

// ProjectOne folds events and returns the state of a single employee.
func ProjectOne(events []domain.Event, employeeID int64) (domain.Employee, error) {
	state, err := fold(events)
	if err != nil {
		return domain.Employee{}, err
	}
	emp, ok := state[employeeID]
	if !ok {
		return domain.Employee{}, domain.ErrEmployeeNotFound
	}
	return *emp, nil
}

func fold(events []domain.Event) (map[int64]*domain.Employee, error) {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b domain.Event) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	state := make(map[int64]*domain.Employee)
	for _, e := range ordered {
		if err := apply(state, e); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func apply(state map[int64]*domain.Employee, e domain.Event) error {
	change, err := e.Decode()
	if err != nil {
		return err
	}

	entry := func() *domain.Employee {
		emp, ok := state[e.EmployeeID]
		if !ok {
			emp = &domain.Employee{ID: e.EmployeeID}
			state[e.EmployeeID] = emp
		}
		return emp
	}

	switch c := change.(type) {
	case domain.Created:
		emp := &domain.Employee{
			ID:         e.EmployeeID,
			Name:       c.Name,
			Salary:     c.Salary,
			Deductions: c.Deductions,
		}
		emp.Recompute()
		state[e.EmployeeID] = emp
	case domain.NameChanged:
		emp := entry()
		emp.Name = c.Name
		emp.Recompute()
	case domain.SalaryChanged:
		emp := entry()
		emp.Salary = c.Salary
		emp.Recompute()
	case domain.DeductionsChanged:
		emp := entry()
		emp.Deductions = c.Deductions
		emp.Recompute()
	default:
		return &domain.CorruptEventError{
			Seq:  e.Seq,
			Kind: e.Kind,
			Err:  fmt.Errorf("unhandled change %T", change),
		}
	}
	return nil
}
