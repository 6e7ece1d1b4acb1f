package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/reservation-system/internal/application"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	CancelReservation(ctx context.Context, principal application.Principal, reservationID string) error
	GetReservation(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	ApproveReservation(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	RejectReservation(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input := application.ReservationInput{
		RoomID:    strings.TrimSpace(req.RoomID),
		RoomName:  strings.TrimSpace(req.RoomName),
		StartSlot: req.StartSlot,
		EndSlot:   req.EndSlot,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		input.Date = date
	}

	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(reservation))
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id, ok := ReservationIDFromContext(r.Context())
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), principal, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id, ok := ReservationIDFromContext(r.Context())
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}

	if err := h.service.CancelReservation(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "Approve")
}

func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "Reject")
}

func (h *ReservationHandler) decide(w http.ResponseWriter, r *http.Request, operation string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	id, ok := ReservationIDFromContext(r.Context())
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}

	var (
		reservation application.Reservation
		err         error
	)
	if operation == "Approve" {
		reservation, err = h.service.ApproveReservation(r.Context(), principal, id)
	} else {
		reservation, err = h.service.RejectReservation(r.Context(), principal, id)
	}
	if err != nil {
		h.log(r.Context(), operation, "reservation_id", id).ErrorContext(r.Context(), "decision failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	params := application.ListReservationsParams{
		Principal:     principal,
		RoomID:        strings.TrimSpace(r.URL.Query().Get("room_id")),
		ExcludeStatus: strings.TrimSpace(r.URL.Query().Get("exclude_status")),
	}

	for _, q := range []struct {
		name   string
		target **time.Time
	}{
		{"from", &params.DateFrom},
		{"to", &params.DateTo},
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(q.name))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		*q.target = &parsed
	}

	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]reservationDTO, 0, len(reservations))
	for _, res := range reservations {
		dtos = append(dtos, toReservationDTO(res))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationListResponse{Reservations: dtos})
}

type reservationRequest struct {
	RoomID    string `json:"room_id,omitempty"`
	RoomName  string `json:"room_name,omitempty"`
	Date      string `json:"date"`
	StartSlot int    `json:"start_slot"`
	EndSlot   int    `json:"end_slot"`
}

type reservationDTO struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	RoomID      string `json:"room_id"`
	Date        string `json:"date"`
	StartSlot   int    `json:"start_slot"`
	EndSlot     int    `json:"end_slot"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

type reservationListResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

func toReservationDTO(res application.Reservation) reservationDTO {
	return reservationDTO{
		ID:          res.ID,
		OwnerID:     res.OwnerID,
		RoomID:      res.RoomID,
		Date:        res.Date.UTC().Format("2006-01-02"),
		StartSlot:   res.StartSlot,
		EndSlot:     res.EndSlot,
		Status:      string(res.Status),
		RequestedAt: res.RequestedAt.UTC().Format(time.RFC3339Nano),
	}
}
