package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/application"
)

type bookingService interface {
	CreateBooking(ctx context.Context, input application.BookingInput) (application.BookingResult, error)
	GetBooking(ctx context.Context, id string) (application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, []application.ConflictWarning, error)
	DeleteBooking(ctx context.Context, id string) error
}

// BookingHandler serves appointments with leads.
type BookingHandler struct {
	service   bookingService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, loc *time.Location, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{service: service, location: loc, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "lead_id", req.LeadID)
	result, err := h.service.CreateBooking(r.Context(), application.BookingInput{
		LeadID: req.LeadID,
		Title:  req.Title,
		Start:  req.Start,
		End:    req.End,
		Notes:  req.Notes,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", result.Booking.ID).InfoContext(r.Context(), "booking created", "warnings", len(result.Warnings))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createBookingResponse{
		Booking:     toBookingDTO(result.Booking),
		Warnings:    toWarningDTOs(result.Warnings),
		LeadStatus:  result.LeadMove.Lead.Status,
		LeadChanged: !result.LeadMove.NoOp,
	})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	times, vErr := optionalTimeParams(r, h.location, "from", "to")
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	bookings, warnings, err := h.service.ListBookings(r.Context(), application.ListBookingsParams{
		From:   times[0],
		To:     times[1],
		LeadID: r.URL.Query().Get("lead_id"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{
		Bookings: toBookingDTOs(bookings),
		Warnings: toWarningDTOs(warnings),
	})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	if err := h.service.DeleteBooking(r.Context(), bookingID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type bookingRequest struct {
	LeadID string    `json:"lead_id"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Notes  string    `json:"notes"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type createBookingResponse struct {
	Booking     bookingDTO   `json:"booking"`
	Warnings    []warningDTO `json:"warnings"`
	LeadStatus  string       `json:"lead_status"`
	LeadChanged bool         `json:"lead_changed"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
	Warnings []warningDTO `json:"warnings"`
}

type bookingDTO struct {
	ID        string `json:"id"`
	LeadID    string `json:"lead_id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type warningDTO struct {
	BookingID     string `json:"booking_id"`
	ConflictsWith string `json:"conflicts_with"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		ID:        booking.ID,
		LeadID:    booking.LeadID,
		Title:     booking.Title,
		Start:     formatTime(booking.Start),
		End:       formatTime(booking.End),
		Notes:     booking.Notes,
		CreatedAt: formatTime(booking.CreatedAt),
		UpdatedAt: formatTime(booking.UpdatedAt),
	}
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	return out
}

func toWarningDTOs(warnings []application.ConflictWarning) []warningDTO {
	out := make([]warningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, warningDTO{
			BookingID:     warning.BookingID,
			ConflictsWith: warning.ConflictsWith,
			Start:         formatTime(warning.Start),
			End:           formatTime(warning.End),
		})
	}
	return out
}
