package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondLedgerError maps ledger errors onto HTTP statuses. Storage and
// replay failures are logged and hidden behind a generic message.
func respondLedgerError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		persistence *domain.PersistenceError
		corrupt     *domain.CorruptEventError
	)
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrInvalidEventKind):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEmployeeNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &corrupt):
		logger.Error("event log replay failed", "error", err, "seq", corrupt.Seq)
		respondError(w, http.StatusInternalServerError, "event log is corrupt")
	case errors.As(err, &persistence):
		logger.Error("event log unavailable", "error", err, "op", persistence.Op)
		respondError(w, http.StatusInternalServerError, "event log unavailable")
	default:
		logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes a JSON request body. A value of the wrong JSON type for
// a known field is reported as that field's validation error. Anything
// after the first JSON value makes the body invalid.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(v)
	if err == nil {
		if dec.Decode(&struct{}{}) != io.EOF {
			return errInvalidBody
		}
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch typeErr.Field {
		case "name":
			return domain.ErrInvalidName
		case "salary":
			return domain.ErrInvalidSalary
		case "deductions":
			return domain.ErrInvalidDeductions
		}
	}
	return errInvalidBody
}

var errInvalidBody = errors.New("invalid request body")
