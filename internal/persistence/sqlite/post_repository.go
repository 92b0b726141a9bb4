package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/persistence"
)

// PostRepository implements persistence.PostRepository.
type PostRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewPostRepository returns a repository over pool.
func NewPostRepository(pool *ConnectionPool, retry *RetryHelper) *PostRepository {
	return &PostRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  retry,
	}
}

const postColumns = `id, series_id, platform, content, scheduled_time, recurring_type, recurring_metadata, status, created_at, updated_at`

// CreatePosts inserts all posts in a single transaction.
func (r *PostRepository) CreatePosts(ctx context.Context, posts []persistence.SocialPost) error {
	if len(posts) == 0 {
		return nil
	}
	for _, post := range posts {
		if post.ID == "" {
			return persistence.ErrConstraintViolation
		}
	}

	query := `INSERT INTO social_posts (` + postColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, query)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, post := range posts {
				status := post.Status
				if status == "" {
					status = persistence.PostStatusScheduled
				}
				recurringType := post.RecurringType
				if recurringType == "" {
					recurringType = "none"
				}
				if _, err := stmt.ExecContext(ctx,
					post.ID,
					post.SeriesID,
					post.Platform,
					post.Content,
					formatTime(post.ScheduledTime),
					recurringType,
					post.RecurringMetadata,
					status,
					formatTime(post.CreatedAt),
					formatTime(post.UpdatedAt),
				); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// GetPost returns the post with id.
func (r *PostRepository) GetPost(ctx context.Context, id string) (persistence.SocialPost, error) {
	if id == "" {
		return persistence.SocialPost{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+postColumns+` FROM social_posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		return persistence.SocialPost{}, r.mapper.MapError(err)
	}
	return post, nil
}

// ListPosts returns posts ordered by scheduled time.
func (r *PostRepository) ListPosts(ctx context.Context, filter persistence.PostFilter) ([]persistence.SocialPost, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.From != nil {
		conditions = append(conditions, "scheduled_time >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "scheduled_time < ?")
		args = append(args, formatTime(*filter.To))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.SeriesID != "" {
		conditions = append(conditions, "series_id = ?")
		args = append(args, filter.SeriesID)
	}

	query := `SELECT ` + postColumns + ` FROM social_posts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY scheduled_time ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	posts := make([]persistence.SocialPost, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return posts, nil
}

// CancelPost marks a single post cancelled.
func (r *PostRepository) CancelPost(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE social_posts SET status = ?, updated_at = ? WHERE id = ?`,
			persistence.PostStatusCancelled, formatTime(at), id,
		)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

// CancelSeries cancels the still scheduled posts of a series and returns how
// many changed. A series with no posts at all is ErrNotFound.
func (r *PostRepository) CancelSeries(ctx context.Context, seriesID string, at time.Time) (int, error) {
	if seriesID == "" {
		return 0, persistence.ErrNotFound
	}

	var cancelled int
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var total int
			if err := r.helper.QueryRowTx(ctx, tx,
				`SELECT COUNT(*) FROM social_posts WHERE series_id = ?`, seriesID,
			).Scan(&total); err != nil {
				return err
			}
			if total == 0 {
				return persistence.ErrNotFound
			}

			result, err := r.helper.ExecTx(ctx, tx,
				`UPDATE social_posts SET status = ?, updated_at = ? WHERE series_id = ? AND status = ?`,
				persistence.PostStatusCancelled, formatTime(at), seriesID, persistence.PostStatusScheduled,
			)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			cancelled = int(n)
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

// MarkDue flags scheduled posts at or before before as due.
func (r *PostRepository) MarkDue(ctx context.Context, before, at time.Time) (int, error) {
	var marked int
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE social_posts SET status = ?, updated_at = ? WHERE status = ? AND scheduled_time <= ?`,
			persistence.PostStatusDue, formatTime(at), persistence.PostStatusScheduled, formatTime(before),
		)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		marked = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

func scanPost(row rowScanner) (persistence.SocialPost, error) {
	var (
		post                                persistence.SocialPost
		scheduledTime, createdAt, updatedAt string
	)
	if err := row.Scan(
		&post.ID,
		&post.SeriesID,
		&post.Platform,
		&post.Content,
		&scheduledTime,
		&post.RecurringType,
		&post.RecurringMetadata,
		&post.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.SocialPost{}, err
	}

	var err error
	if post.ScheduledTime, err = parseTime("scheduled_time", scheduledTime); err != nil {
		return persistence.SocialPost{}, err
	}
	if post.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.SocialPost{}, err
	}
	if post.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.SocialPost{}, err
	}
	return post, nil
}
