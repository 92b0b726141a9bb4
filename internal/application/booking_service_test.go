package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/growth-crm/internal/persistence"
)

type bookingRepoStub struct {
	bookings  []Booking
	createErr error
	deleteErr error
	listErr   error
	listCalls int
}

func (r *bookingRepoStub) CreateBooking(ctx context.Context, booking Booking) (Booking, error) {
	if r.createErr != nil {
		return Booking{}, r.createErr
	}
	r.bookings = append(r.bookings, booking)
	return booking, nil
}

func (r *bookingRepoStub) GetBooking(ctx context.Context, id string) (Booking, error) {
	for _, booking := range r.bookings {
		if booking.ID == id {
			return booking, nil
		}
	}
	return Booking{}, persistence.ErrNotFound
}

func (r *bookingRepoStub) ListBookings(ctx context.Context, params ListBookingsParams) ([]Booking, error) {
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []Booking{}
	for _, booking := range r.bookings {
		if params.From != nil && !booking.End.After(*params.From) {
			continue
		}
		if params.To != nil && !booking.Start.Before(*params.To) {
			continue
		}
		if params.LeadID != "" && booking.LeadID != params.LeadID {
			continue
		}
		out = append(out, booking)
	}
	return out, nil
}

func (r *bookingRepoStub) DeleteBooking(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i, booking := range r.bookings {
		if booking.ID == id {
			r.bookings = append(r.bookings[:i], r.bookings[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 4, hour, minute, 0, 0, time.UTC)
}

func TestBookingService_CreateBooking(t *testing.T) {
	t.Run("validates the interval", func(t *testing.T) {
		svc := NewBookingService(&bookingRepoStub{}, newLeadRepoStub(), nil, nil, fixedNow)

		_, err := svc.CreateBooking(context.Background(), BookingInput{LeadID: "lead-1", Title: "Call", Start: at(10, 0), End: at(10, 0)})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["end"] == "" {
			t.Fatalf("expected end validation error, got %v", err)
		}
	})

	t.Run("requires an existing lead", func(t *testing.T) {
		svc := NewBookingService(&bookingRepoStub{}, newLeadRepoStub(), nil, nil, fixedNow)

		_, err := svc.CreateBooking(context.Background(), BookingInput{LeadID: "ghost", Title: "Call", Start: at(10, 0), End: at(11, 0)})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["lead_id"] == "" {
			t.Fatalf("expected lead_id validation error, got %v", err)
		}
	})

	t.Run("warns about overlaps and books the lead", func(t *testing.T) {
		bookings := &bookingRepoStub{bookings: []Booking{
			{ID: "existing-1", LeadID: "lead-2", Start: at(9, 30), End: at(10, 30)},
			{ID: "existing-2", LeadID: "lead-2", Start: at(11, 0), End: at(12, 0)},
		}}
		leads := newLeadRepoStub(Lead{ID: "lead-1", Status: "contacted"})
		svc := NewBookingService(bookings, leads, nil, func() string { return "booking-1" }, fixedNow)

		result, err := svc.CreateBooking(context.Background(), BookingInput{
			LeadID: "lead-1", Title: " Discovery call ", Start: at(10, 0), End: at(11, 0),
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		wantWarnings := []ConflictWarning{{BookingID: "booking-1", ConflictsWith: "existing-1", Start: at(9, 30), End: at(10, 30)}}
		if diff := cmp.Diff(wantWarnings, result.Warnings); diff != "" {
			t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
		}
		if result.Booking.Title != "Discovery call" {
			t.Fatalf("expected trimmed title, got %q", result.Booking.Title)
		}
		if result.LeadMove.NoOp || result.LeadMove.Update.NewStatus != "booked" {
			t.Fatalf("expected lead to move to booked, got %+v", result.LeadMove)
		}
		if leads.leads["lead-1"].Status != "booked" {
			t.Fatalf("expected stored status booked, got %q", leads.leads["lead-1"].Status)
		}
	})

	t.Run("a failed stage change removes the booking", func(t *testing.T) {
		bookings := &bookingRepoStub{}
		leads := newLeadRepoStub(Lead{ID: "lead-1", Status: "new"})
		leads.updateErr = errors.New("disk full")
		svc := NewBookingService(bookings, leads, nil, func() string { return "booking-1" }, fixedNow)

		_, err := svc.CreateBooking(context.Background(), BookingInput{LeadID: "lead-1", Title: "Call", Start: at(10, 0), End: at(11, 0)})
		if err == nil || err.Error() != "disk full" {
			t.Fatalf("expected the status update error, got %v", err)
		}
		if len(bookings.bookings) != 0 {
			t.Fatalf("expected no stored bookings, got %+v", bookings.bookings)
		}
		if leads.leads["lead-1"].Status != "new" {
			t.Fatalf("expected lead status unchanged, got %q", leads.leads["lead-1"].Status)
		}
	})

	t.Run("a failed rollback is reported with the cause", func(t *testing.T) {
		bookings := &bookingRepoStub{deleteErr: errors.New("locked")}
		leads := newLeadRepoStub(Lead{ID: "lead-1", Status: "new"})
		leads.updateErr = errors.New("disk full")
		svc := NewBookingService(bookings, leads, nil, func() string { return "booking-1" }, fixedNow)

		_, err := svc.CreateBooking(context.Background(), BookingInput{LeadID: "lead-1", Title: "Call", Start: at(10, 0), End: at(11, 0)})
		if err == nil || !strings.Contains(err.Error(), "disk full") || !strings.Contains(err.Error(), "roll back booking booking-1: locked") {
			t.Fatalf("expected both errors, got %v", err)
		}
	})

	t.Run("conflict lookup failures store nothing", func(t *testing.T) {
		bookings := &bookingRepoStub{listErr: errors.New("busy")}
		leads := newLeadRepoStub(Lead{ID: "lead-1", Status: "new"})
		svc := NewBookingService(bookings, leads, nil, func() string { return "booking-1" }, fixedNow)

		if _, err := svc.CreateBooking(context.Background(), BookingInput{LeadID: "lead-1", Title: "Call", Start: at(10, 0), End: at(11, 0)}); err == nil {
			t.Fatalf("expected the list error to surface")
		}
		if len(bookings.bookings) != 0 || len(leads.updates) != 0 {
			t.Fatalf("expected no writes, got %+v and %v", bookings.bookings, leads.updates)
		}
	})

	t.Run("already booked leads are left alone", func(t *testing.T) {
		leads := newLeadRepoStub(Lead{ID: "lead-1", Status: "booked"})
		svc := NewBookingService(&bookingRepoStub{}, leads, nil, func() string { return "booking-1" }, fixedNow)

		result, err := svc.CreateBooking(context.Background(), BookingInput{LeadID: "lead-1", Title: "Follow up", Start: at(14, 0), End: at(15, 0)})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !result.LeadMove.NoOp || len(leads.updates) != 0 {
			t.Fatalf("expected no status write, got %+v and %v", result.LeadMove, leads.updates)
		}
	})
}

func TestBookingService_ListBookings(t *testing.T) {
	bookings := &bookingRepoStub{bookings: []Booking{
		{ID: "b", Start: at(10, 0), End: at(11, 0)},
		{ID: "a", Start: at(9, 0), End: at(10, 30)},
		{ID: "c", Start: at(13, 0), End: at(14, 0)},
	}}
	svc := NewBookingService(bookings, newLeadRepoStub(), nil, nil, fixedNow)

	listed, warnings, err := svc.ListBookings(context.Background(), ListBookingsParams{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	var ids []string
	for _, booking := range listed {
		ids = append(ids, booking.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	wantWarnings := []ConflictWarning{{BookingID: "a", ConflictsWith: "b", Start: at(10, 0), End: at(11, 0)}}
	if diff := cmp.Diff(wantWarnings, warnings); diff != "" {
		t.Fatalf("warnings mismatch (-want +got):\n%s", diff)
	}

	// Cached warnings survive until a booking changes.
	bookings.bookings = append(bookings.bookings, Booking{ID: "d", Start: at(13, 30), End: at(15, 0)})
	if _, cached, _ := svc.ListBookings(context.Background(), ListBookingsParams{}); len(cached) != 1 {
		t.Fatalf("expected cached warnings, got %v", cached)
	}
	if err := svc.DeleteBooking(context.Background(), "b"); err != nil {
		t.Fatalf("expected delete to succeed, got %v", err)
	}
	_, fresh, _ := svc.ListBookings(context.Background(), ListBookingsParams{})
	wantFresh := []ConflictWarning{{BookingID: "c", ConflictsWith: "d", Start: at(13, 30), End: at(15, 0)}}
	if diff := cmp.Diff(wantFresh, fresh); diff != "" {
		t.Fatalf("warnings after delete mismatch (-want +got):\n%s", diff)
	}

	from, to := at(12, 0), at(12, 0)
	if _, _, err := svc.ListBookings(context.Background(), ListBookingsParams{From: &from, To: &to}); err == nil {
		t.Fatalf("expected empty range to be rejected")
	}
}

func TestBookingService_DeleteBookingNotFound(t *testing.T) {
	svc := NewBookingService(&bookingRepoStub{}, newLeadRepoStub(), nil, nil, fixedNow)
	if err := svc.DeleteBooking(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
