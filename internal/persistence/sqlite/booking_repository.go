package sqlite

import (
	"context"
	"strings"

	"github.com/example/growth-crm/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBookingRepository returns a repository over pool.
func NewBookingRepository(pool *ConnectionPool, retry *RetryHelper) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  retry,
	}
}

const bookingColumns = `id, lead_id, title, start_time, end_time, notes, created_at, updated_at`

// CreateBooking inserts booking. The lead must exist and End must follow Start.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || !booking.End.After(booking.Start) {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			booking.ID,
			booking.LeadID,
			booking.Title,
			formatTime(booking.Start),
			formatTime(booking.End),
			booking.Notes,
			formatTime(booking.CreatedAt),
			formatTime(booking.UpdatedAt),
		)
		return err
	})
}

// GetBooking returns the booking with id.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// ListBookings returns bookings overlapping [From, To) ordered by start.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.To != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.To))
	}
	if filter.From != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.LeadID != "" {
		conditions = append(conditions, "lead_id = ?")
		args = append(args, filter.LeadID)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	bookings := make([]persistence.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

// DeleteBooking removes the booking with id.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, `DELETE FROM bookings WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking                          persistence.Booking
		start, end, createdAt, updatedAt string
	)
	if err := row.Scan(
		&booking.ID,
		&booking.LeadID,
		&booking.Title,
		&start,
		&end,
		&booking.Notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Booking{}, err
	}

	var err error
	if booking.Start, err = parseTime("start_time", start); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime("end_time", end); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}
