package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"github.com/Priya8975/hr-event-ledger/internal/engine"
	"github.com/go-chi/chi/v5"
)

type EmployeeHandler struct {
	ledger *engine.Ledger
	logger *slog.Logger
}

func NewEmployeeHandler(l *engine.Ledger, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{ledger: l, logger: logger}
}

// Fields are pointers so that a missing field can be told apart from zero.
type createEmployeeRequest struct {
	Name       *string  `json:"name"`
	Salary     *float64 `json:"salary"`
	Deductions *float64 `json:"deductions"`
}

// validate checks fields in name, salary, deductions order and treats a
// missing field as invalid.
func (req createEmployeeRequest) validate() error {
	if req.Name == nil {
		return domain.ErrInvalidName
	}
	if err := domain.ValidateName(*req.Name); err != nil {
		return err
	}
	if req.Salary == nil {
		return domain.ErrInvalidSalary
	}
	if err := domain.ValidateSalary(*req.Salary); err != nil {
		return err
	}
	if req.Deductions == nil {
		return domain.ErrInvalidDeductions
	}
	return domain.ValidateDeductions(*req.Deductions)
}

type createEmployeeResponse struct {
	Message    string `json:"message"`
	EmployeeID int64  `json:"employeeId"`
}

type updateNameRequest struct {
	Name *string `json:"name"`
}

type updateSalaryRequest struct {
	Salary *float64 `json:"salary"`
}

type updateDeductionsRequest struct {
	Deductions *float64 `json:"deductions"`
}

var errInvalidEmployeeID = errors.New("invalid employee id")

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.ledger.ListEmployees(r.Context())
	if err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, employees)
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	emp, err := h.ledger.GetEmployee(r.Context(), id)
	if err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

func (h *EmployeeHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	events, err := h.ledger.History(r.Context(), id)
	if err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.ledger.CreateEmployee(r.Context(), *req.Name, *req.Salary, *req.Deductions)
	if err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, createEmployeeResponse{
		Message:    "Employee added successfully",
		EmployeeID: id,
	})
}

func (h *EmployeeHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	var req updateNameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == nil {
		respondError(w, http.StatusBadRequest, domain.ErrInvalidName.Error())
		return
	}

	if err := h.ledger.RenameEmployee(r.Context(), id, *req.Name); err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Name updated successfully"})
}

func (h *EmployeeHandler) UpdateSalary(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	var req updateSalaryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Salary == nil {
		respondError(w, http.StatusBadRequest, domain.ErrInvalidSalary.Error())
		return
	}

	if err := h.ledger.SetSalary(r.Context(), id, *req.Salary); err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Salary updated successfully"})
}

func (h *EmployeeHandler) UpdateDeductions(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	var req updateDeductionsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Deductions == nil {
		respondError(w, http.StatusBadRequest, domain.ErrInvalidDeductions.Error())
		return
	}

	if err := h.ledger.SetDeductions(r.Context(), id, *req.Deductions); err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Deductions updated successfully"})
}

// employeeID parses the {id} path parameter and writes a 400 when it is not
// a positive integer.
func employeeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		respondError(w, http.StatusBadRequest, errInvalidEmployeeID.Error())
		return 0, false
	}
	return id, true
}
