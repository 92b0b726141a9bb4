package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/persistence"
	"github.com/example/growth-crm/internal/pipeline"
	"github.com/example/growth-crm/internal/scheduler"
)

// BookingRepository captures the persistence operations needed by the booking service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, params ListBookingsParams) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// BookingService records appointments and keeps the booked lead's stage in step.
type BookingService struct {
	bookings    BookingRepository
	leads       *LeadService
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	cache       *warningCache
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(bookings BookingRepository, leads LeadRepository, registry *pipeline.Registry, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, leads, registry, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, leads LeadRepository, registry *pipeline.Registry, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	logger = defaultLogger(logger)
	return &BookingService{
		bookings:    bookings,
		leads:       NewLeadServiceWithLogger(leads, registry, nil, now, logger),
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
		cache:       newWarningCache(30*time.Second, 128, now),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking stores an appointment, reports overlapping bookings as
// warnings and moves the lead to the booked stage.
func (s *BookingService) CreateBooking(ctx context.Context, input BookingInput) (result BookingResult, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil || s.leads.leads == nil {
		err = fmt.Errorf("booking repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking", "lead_id", input.LeadID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", result.Booking.ID).InfoContext(ctx, "booking created",
			"warnings", len(result.Warnings),
			"lead_moved", !result.LeadMove.NoOp,
		)
	}()

	vErr := &ValidationError{}
	validateBookingInput(input, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var lead Lead
	lead, err = s.leads.leads.GetLead(ctx, input.LeadID)
	if err != nil {
		if errors.Is(mapLeadRepoError(err), ErrNotFound) {
			err = fieldError("lead_id", "lead does not exist")
			return
		}
		err = mapLeadRepoError(err)
		return
	}

	createdAt := s.now()
	booking := Booking{
		ID:        s.idGenerator(),
		LeadID:    lead.ID,
		Title:     strings.TrimSpace(input.Title),
		Start:     input.Start,
		End:       input.End,
		Notes:     input.Notes,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	var warnings []ConflictWarning
	warnings, err = s.detectConflicts(ctx, booking)
	if err != nil {
		return
	}

	var persisted Booking
	persisted, err = s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	storage := s.leads.registry.Storage()
	var move MoveResult
	move, err = s.leads.applyMove(ctx, lead, storage, "", storage.Label(pipeline.StageInProgress))
	if err != nil {
		// The booking must not outlive a failed stage change.
		if rerr := s.bookings.DeleteBooking(ctx, persisted.ID); rerr != nil {
			err = errors.Join(err, fmt.Errorf("roll back booking %s: %w", persisted.ID, rerr))
		}
		return
	}
	s.cache.Invalidate()

	result = BookingResult{Booking: persisted, Warnings: warnings, LeadMove: move}
	return
}

// ListBookings returns bookings ordered by start, with warnings for every
// pair of listed bookings that overlap.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) ([]Booking, []ConflictWarning, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return nil, nil, fmt.Errorf("booking repository not configured")
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		return nil, nil, fieldError("to", "to must be after from")
	}

	bookings, err := s.bookings.ListBookings(ctx, params)
	if err != nil {
		return nil, nil, mapBookingRepoError(err)
	}

	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	key := buildWarningCacheKey(params)
	if warnings, ok := s.cache.Get(key); ok {
		return ordered, warnings, nil
	}
	warnings := detectListConflicts(ordered)
	s.cache.Store(key, warnings)

	return ordered, warnings, nil
}

// GetBooking returns a single booking.
func (s *BookingService) GetBooking(ctx context.Context, id string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	return booking, nil
}

// DeleteBooking removes an appointment. The lead's stage is left unchanged.
func (s *BookingService) DeleteBooking(ctx context.Context, id string) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBooking", "booking_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deleted")
	}()

	if err = s.bookings.DeleteBooking(ctx, id); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.cache.Invalidate()
	return
}

func (s *BookingService) detectConflicts(ctx context.Context, candidate Booking) ([]ConflictWarning, error) {
	from, to := candidate.Start, candidate.End
	existing, err := s.bookings.ListBookings(ctx, ListBookingsParams{From: &from, To: &to})
	if err != nil {
		return nil, mapBookingRepoError(err)
	}

	slots := make([]scheduler.Slot, 0, len(existing))
	for _, booking := range existing {
		slots = append(slots, toSlot(booking))
	}
	return toConflictWarnings(candidate.ID, scheduler.DetectConflicts(slots, toSlot(candidate))), nil
}

func validateBookingInput(input BookingInput, vErr *ValidationError) {
	if strings.TrimSpace(input.LeadID) == "" {
		vErr.add("lead_id", "lead_id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.End.After(input.Start) {
		vErr.add("end", "end must be after start")
	}
}

func toSlot(booking Booking) scheduler.Slot {
	return scheduler.Slot{ID: booking.ID, Start: booking.Start, End: booking.End}
}

func toConflictWarnings(bookingID string, conflicts []scheduler.Conflict) []ConflictWarning {
	if len(conflicts) == 0 {
		return nil
	}
	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warnings = append(warnings, ConflictWarning{
			BookingID:     bookingID,
			ConflictsWith: conflict.WithSlotID,
			Start:         conflict.Start,
			End:           conflict.End,
		})
	}
	return warnings
}

// detectListConflicts reports each overlapping pair once, from the earlier booking.
func detectListConflicts(bookings []Booking) []ConflictWarning {
	if len(bookings) <= 1 {
		return nil
	}

	slots := make([]scheduler.Slot, len(bookings))
	position := make(map[string]int, len(bookings))
	for i, booking := range bookings {
		slots[i] = toSlot(booking)
		position[booking.ID] = i
	}
	overlaps := scheduler.DetectOverlaps(slots)

	var warnings []ConflictWarning
	for i, booking := range bookings {
		later := make([]scheduler.Conflict, 0, len(overlaps[booking.ID]))
		for _, conflict := range overlaps[booking.ID] {
			if position[conflict.WithSlotID] > i {
				later = append(later, conflict)
			}
		}
		warnings = append(warnings, toConflictWarnings(booking.ID, later)...)
	}
	return warnings
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fieldError("lead_id", "lead does not exist")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("end", "end must be after start")
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}
