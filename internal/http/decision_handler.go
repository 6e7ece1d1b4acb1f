package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/reservation-system/internal/application"
)

type auditService interface {
	ListDecisions(ctx context.Context, principal application.Principal) ([]application.AuditDecision, error)
}

// DecisionHandler serves the read-only audit ledger.
type DecisionHandler struct {
	service   auditService
	responder responder
	logger    *slog.Logger
}

func NewDecisionHandler(service auditService, logger *slog.Logger) *DecisionHandler {
	base := defaultLogger(logger)
	return &DecisionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DecisionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	decisions, err := h.service.ListDecisions(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]decisionDTO, 0, len(decisions))
	for _, d := range decisions {
		dtos = append(dtos, decisionDTO{
			ID:            d.ID,
			ReservationID: d.ReservationID,
			OwnerID:       d.OwnerID,
			RoomID:        d.RoomID,
			Date:          d.Date.UTC().Format("2006-01-02"),
			StartSlot:     d.StartSlot,
			EndSlot:       d.EndSlot,
			DecidedBy:     d.DecidedBy,
			DecidedAt:     d.DecidedAt.UTC().Format(time.RFC3339Nano),
			Outcome:       string(d.Outcome),
		})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, decisionListResponse{Decisions: dtos})
}

type decisionDTO struct {
	ID            string `json:"id"`
	ReservationID string `json:"reservation_id"`
	OwnerID       string `json:"owner_id"`
	RoomID        string `json:"room_id"`
	Date          string `json:"date"`
	StartSlot     int    `json:"start_slot"`
	EndSlot       int    `json:"end_slot"`
	DecidedBy     string `json:"decided_by"`
	DecidedAt     string `json:"decided_at"`
	Outcome       string `json:"outcome"`
}

type decisionListResponse struct {
	Decisions []decisionDTO `json:"decisions"`
}
