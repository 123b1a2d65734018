package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/workplace-reservations/internal/application"
)

type participantService interface {
	AddParticipants(ctx context.Context, params application.AddParticipantsParams) ([]application.Participant, error)
	Respond(ctx context.Context, params application.RespondParams) (application.Participant, error)
	ListForBooking(ctx context.Context, bookingID string) ([]application.Participant, error)
}

type ParticipantHandler struct {
	service   participantService
	responder responder
}

func NewParticipantHandler(service participantService, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{service: service, responder: newResponder(logger)}
}

func (h *ParticipantHandler) Add(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req addParticipantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	added, err := h.service.AddParticipants(r.Context(), application.AddParticipantsParams{
		Principal: principal,
		BookingID: bookingID,
		Invitees:  req.toInvitees(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, participantsResponse{Participants: toParticipantDTOs(added)})
}

func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	roster, err := h.service.ListForBooking(r.Context(), bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, participantsResponse{Participants: toParticipantDTOs(roster)})
}

func (h *ParticipantHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := ParticipantIDFromContext(r.Context())
	if !ok || strings.TrimSpace(participantID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidParticipantID)
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	participant, err := h.service.Respond(r.Context(), application.RespondParams{
		Principal:     principal,
		ParticipantID: participantID,
		Status:        application.ParticipantStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, participantResponse{Participant: toParticipantDTO(participant)})
}

type addParticipantsRequest struct {
	Invitees []inviteeRequest `json:"invitees"`
}

func (r addParticipantsRequest) toInvitees() []application.InviteeInput {
	invitees := make([]application.InviteeInput, 0, len(r.Invitees))
	for _, invitee := range r.Invitees {
		invitees = append(invitees, application.InviteeInput{
			UserID: strings.TrimSpace(invitee.UserID),
			Role:   application.ParticipantRole(strings.TrimSpace(invitee.Role)),
		})
	}
	if len(invitees) == 0 {
		return nil
	}
	return invitees
}

type respondRequest struct {
	Status string `json:"status"`
}

type participantResponse struct {
	Participant participantDTO `json:"participant"`
}

type participantsResponse struct {
	Participants []participantDTO `json:"participants"`
}

type participantDTO struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toParticipantDTO(participant application.Participant) participantDTO {
	return participantDTO{
		ID:        participant.ID,
		BookingID: participant.BookingID,
		UserID:    participant.UserID,
		Role:      string(participant.Role),
		Status:    string(participant.Status),
		CreatedAt: participant.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: participant.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toParticipantDTOs(participants []application.Participant) []participantDTO {
	if len(participants) == 0 {
		return nil
	}
	out := make([]participantDTO, 0, len(participants))
	for _, participant := range participants {
		out = append(out, toParticipantDTO(participant))
	}
	return out
}
