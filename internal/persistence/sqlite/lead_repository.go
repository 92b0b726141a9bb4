package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/persistence"
)

// LeadRepository implements persistence.LeadRepository.
type LeadRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewLeadRepository returns a repository over pool.
func NewLeadRepository(pool *ConnectionPool, retry *RetryHelper) *LeadRepository {
	return &LeadRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  retry,
	}
}

const leadColumns = `id, name, email, phone, company, source, status, notes, created_at, updated_at`

// CreateLead inserts lead. Timestamps must already be set.
func (r *LeadRepository) CreateLead(ctx context.Context, lead persistence.Lead) error {
	if lead.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO leads (` + leadColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			lead.ID,
			lead.Name,
			lead.Email,
			lead.Phone,
			lead.Company,
			lead.Source,
			lead.Status,
			lead.Notes,
			formatTime(lead.CreatedAt),
			formatTime(lead.UpdatedAt),
		)
		return err
	})
}

// GetLead returns the lead with id.
func (r *LeadRepository) GetLead(ctx context.Context, id string) (persistence.Lead, error) {
	if id == "" {
		return persistence.Lead{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if err != nil {
		return persistence.Lead{}, r.mapper.MapError(err)
	}
	return lead, nil
}

// ListLeads returns leads in creation order.
func (r *LeadRepository) ListLeads(ctx context.Context, filter persistence.LeadFilter) ([]persistence.Lead, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		conditions = append(conditions, `(lower(name) LIKE ? ESCAPE '\' OR lower(email) LIKE ? ESCAPE '\' OR lower(company) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	leads := make([]persistence.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return leads, nil
}

// UpdateLeadStatus writes only the status column and updated_at.
func (r *LeadRepository) UpdateLeadStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
			status, formatTime(updatedAt), id,
		)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

// DeleteLead removes the lead and, through the foreign key, its bookings.
func (r *LeadRepository) DeleteLead(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, `DELETE FROM leads WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (persistence.Lead, error) {
	var (
		lead                 persistence.Lead
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.Source,
		&lead.Status,
		&lead.Notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Lead{}, err
	}

	var err error
	if lead.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Lead{}, err
	}
	if lead.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Lead{}, err
	}
	return lead, nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(result rowsAffecter) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
