package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/hr-event-ledger/internal/engine"
)

type EventHandler struct {
	ledger *engine.Ledger
	logger *slog.Logger
}

func NewEventHandler(l *engine.Ledger, logger *slog.Logger) *EventHandler {
	return &EventHandler{ledger: l, logger: logger}
}

// List returns the whole event log in sequence order.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.ledger.Events(r.Context())
	if err != nil {
		respondLedgerError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}
