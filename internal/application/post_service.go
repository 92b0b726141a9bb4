package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/persistence"
	"github.com/example/growth-crm/internal/recurrence"
)

// Post statuses.
const (
	PostStatusScheduled = "scheduled"
	PostStatusDue       = "due"
	PostStatusCancelled = "cancelled"
)

const maxSeriesSpan = 366 * 24 * time.Hour

var knownPlatforms = map[string]struct{}{
	"facebook":  {},
	"instagram": {},
	"linkedin":  {},
	"twitter":   {},
}

// PostRepository captures the persistence operations needed by the post service.
type PostRepository interface {
	CreatePosts(ctx context.Context, posts []SocialPost) error
	GetPost(ctx context.Context, id string) (SocialPost, error)
	ListPosts(ctx context.Context, params ListPostsParams) ([]SocialPost, error)
	CancelPost(ctx context.Context, id string, at time.Time) error
	CancelSeries(ctx context.Context, seriesID string, at time.Time) (int, error)
	MarkDue(ctx context.Context, before, at time.Time) (int, error)
}

// PostService expands recurrence rules into scheduled posts.
type PostService struct {
	posts       PostRepository
	expander    *recurrence.Expander
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPostService constructs a post service with the provided dependencies.
func NewPostService(posts PostRepository, expander *recurrence.Expander, idGenerator func() string, now func() time.Time) *PostService {
	return NewPostServiceWithLogger(posts, expander, idGenerator, now, nil)
}

// NewPostServiceWithLogger constructs a post service with a specified logger.
// A nil expander evaluates dates in UTC with the default horizon.
func NewPostServiceWithLogger(posts PostRepository, expander *recurrence.Expander, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PostService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if expander == nil {
		expander = recurrence.NewExpander(time.UTC, now)
	}
	return &PostService{
		posts:       posts,
		expander:    expander,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PostService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PostService", operation, attrs...)
}

// PreviewSchedule expands input without persisting anything. Rules that
// cannot produce anything yet, such as a custom rule with no weekdays picked
// or an end date before the start, preview as empty rather than failing.
func (s *PostService) PreviewSchedule(ctx context.Context, input ScheduleInput) (SchedulePreview, error) {
	if s == nil {
		return SchedulePreview{}, fmt.Errorf("PostService is nil")
	}

	rule, vErr := s.buildRule(input)
	if vErr.HasErrors() {
		return SchedulePreview{}, vErr
	}

	occurrences, err := s.occurrences(rule)
	if err != nil {
		return SchedulePreview{}, err
	}
	if occurrences == nil {
		occurrences = []time.Time{}
	}

	s.loggerWith(ctx, "PreviewSchedule", "recurring_type", string(rule.Type)).
		DebugContext(ctx, "schedule previewed", "occurrences", len(occurrences))

	return SchedulePreview{Type: string(rule.Type), Occurrences: occurrences}, nil
}

// SchedulePost stores one post per occurrence of the requested schedule.
// Recurring posts share a generated series identifier.
func (s *PostService) SchedulePost(ctx context.Context, params SchedulePostParams) (result ScheduleResult, err error) {
	if s == nil {
		err = fmt.Errorf("PostService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SchedulePost", "platform", params.Platform)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule post", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("series_id", result.SeriesID).InfoContext(ctx, "post scheduled", "posts", len(result.Posts))
	}()

	vErr := &ValidationError{}
	platform := strings.ToLower(strings.TrimSpace(params.Platform))
	if platform == "" {
		vErr.add("platform", "platform is required")
	} else if _, ok := knownPlatforms[platform]; !ok {
		vErr.add("platform", fmt.Sprintf("unsupported platform %q", params.Platform))
	}
	content := strings.TrimSpace(params.Content)
	if content == "" {
		vErr.add("content", "content is required")
	}

	rule, ruleErr := s.buildRule(params.Schedule)
	vErr.merge(ruleErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var occurrences []time.Time
	occurrences, err = s.occurrences(rule)
	if err != nil {
		return
	}
	if len(occurrences) == 0 {
		err = s.emptyScheduleError(rule)
		return
	}

	createdAt := s.now()
	var metadata *RecurrenceMetadata
	if rule.Type != recurrence.TypeNone {
		result.SeriesID = s.idGenerator()
		metadata = &RecurrenceMetadata{
			TimeOfDay: strings.TrimSpace(rule.TimeOfDay),
			Weekdays:  recurrence.WeekdayNames(rule.Weekdays),
			SeriesID:  result.SeriesID,
		}
		if rule.EndDate != nil {
			metadata.EndDate = rule.EndDate.In(s.expander.Location()).Format(time.DateOnly)
		}
	}

	posts := make([]SocialPost, 0, len(occurrences))
	for _, at := range occurrences {
		posts = append(posts, SocialPost{
			ID:            s.idGenerator(),
			SeriesID:      result.SeriesID,
			Platform:      platform,
			Content:       content,
			ScheduledTime: at,
			RecurringType: string(rule.Type),
			Recurrence:    metadata,
			Status:        PostStatusScheduled,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		})
	}

	if s.posts != nil {
		if err = s.posts.CreatePosts(ctx, posts); err != nil {
			err = mapPostRepoError(err)
			return
		}
	}

	result.Posts = posts
	return
}

// ListPosts returns posts ordered by scheduled time.
func (s *PostService) ListPosts(ctx context.Context, params ListPostsParams) ([]SocialPost, error) {
	if s == nil {
		return nil, fmt.Errorf("PostService is nil")
	}
	if s.posts == nil {
		return nil, fmt.Errorf("post repository not configured")
	}

	params.Status = strings.TrimSpace(params.Status)
	switch params.Status {
	case "", PostStatusScheduled, PostStatusDue, PostStatusCancelled:
	default:
		return nil, fieldError("status", fmt.Sprintf("unknown status %q", params.Status))
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		return nil, fieldError("to", "to must be after from")
	}

	posts, err := s.posts.ListPosts(ctx, params)
	if err != nil {
		return nil, mapPostRepoError(err)
	}
	return posts, nil
}

// GetPost returns a single post.
func (s *PostService) GetPost(ctx context.Context, id string) (SocialPost, error) {
	if s == nil {
		return SocialPost{}, fmt.Errorf("PostService is nil")
	}
	if s.posts == nil {
		return SocialPost{}, fmt.Errorf("post repository not configured")
	}
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return SocialPost{}, mapPostRepoError(err)
	}
	return post, nil
}

// CancelPost cancels a single scheduled post.
func (s *PostService) CancelPost(ctx context.Context, id string) (err error) {
	if s == nil {
		return fmt.Errorf("PostService is nil")
	}
	if s.posts == nil {
		return fmt.Errorf("post repository not configured")
	}

	logger := s.loggerWith(ctx, "CancelPost", "post_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel post", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "post cancelled")
	}()

	if err = s.posts.CancelPost(ctx, id, s.now()); err != nil {
		err = mapPostRepoError(err)
	}
	return
}

// CancelSeries cancels every still scheduled post of a series and reports
// how many were changed.
func (s *PostService) CancelSeries(ctx context.Context, seriesID string) (cancelled int, err error) {
	if s == nil {
		return 0, fmt.Errorf("PostService is nil")
	}
	if s.posts == nil {
		return 0, fmt.Errorf("post repository not configured")
	}

	logger := s.loggerWith(ctx, "CancelSeries", "series_id", seriesID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "series cancelled", "posts", cancelled)
	}()

	cancelled, err = s.posts.CancelSeries(ctx, seriesID, s.now())
	if err != nil {
		err = mapPostRepoError(err)
	}
	return
}

// MarkDuePosts flags scheduled posts whose time has passed as due.
func (s *PostService) MarkDuePosts(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("PostService is nil")
	}
	if s.posts == nil {
		return 0, fmt.Errorf("post repository not configured")
	}
	now := s.now()
	n, err := s.posts.MarkDue(ctx, now, now)
	if err != nil {
		return 0, mapPostRepoError(err)
	}
	return n, nil
}

func (s *PostService) buildRule(input ScheduleInput) (recurrence.Rule, *ValidationError) {
	vErr := &ValidationError{}
	rule := recurrence.Rule{Start: input.Start, TimeOfDay: input.TimeOfDay, EndDate: input.EndDate}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}

	kind, err := recurrence.ParseType(input.Type)
	if err != nil {
		vErr.addCause("recurring_type", "must be one of none, daily, weekly or custom", err)
		return rule, vErr
	}
	rule.Type = kind
	if kind == recurrence.TypeNone {
		return rule, vErr
	}

	if strings.TrimSpace(rule.TimeOfDay) == "" && !input.Start.IsZero() {
		rule.TimeOfDay = recurrence.FormatTimeOfDay(input.Start.In(s.expander.Location()))
	}
	if _, _, err := recurrence.ParseTimeOfDay(rule.TimeOfDay); err != nil {
		vErr.addCause("time_of_day", "must be a 24-hour HH:MM time", err)
	}

	if kind == recurrence.TypeCustom {
		days, err := recurrence.ParseWeekdays(input.Weekdays)
		if err != nil {
			vErr.addCause("weekdays", err.Error(), err)
		}
		rule.Weekdays = days
	}

	if input.EndDate != nil && !input.Start.IsZero() && input.EndDate.Sub(input.Start) > maxSeriesSpan {
		vErr.add("end_date", "series may span at most 366 days")
	}

	return rule, vErr
}

// emptyScheduleError names the input that left a rule without occurrences.
func (s *PostService) emptyScheduleError(rule recurrence.Rule) error {
	switch {
	case rule.Type == recurrence.TypeCustom && len(rule.Weekdays) == 0:
		return fieldError("weekdays", "custom recurrence needs at least one weekday")
	case rule.EndDate != nil && rule.EndDate.Before(civilStart(rule.Start, s.expander.Location())):
		return fieldError("end_date", "end date must not be before start")
	}
	return fieldError("recurrence", "schedule produces no occurrences")
}

func (s *PostService) occurrences(rule recurrence.Rule) ([]time.Time, error) {
	if rule.Type == recurrence.TypeNone {
		return []time.Time{rule.Start}, nil
	}
	occurrences, err := s.expander.Expand(rule)
	if err != nil {
		vErr := &ValidationError{}
		vErr.addCause("recurrence", err.Error(), err)
		return nil, vErr
	}
	return occurrences, nil
}

func civilStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EncodeRecurrence renders metadata as stored in the recurring_metadata column.
func EncodeRecurrence(meta *RecurrenceMetadata) (string, error) {
	if meta == nil {
		return "", nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode recurrence metadata: %w", err)
	}
	return string(raw), nil
}

// DecodeRecurrence parses the recurring_metadata column. Empty input yields nil.
func DecodeRecurrence(raw string) (*RecurrenceMetadata, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var meta RecurrenceMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("decode recurrence metadata: %w", err)
	}
	return &meta, nil
}

func mapPostRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("post", "post violates a storage constraint")
	}
	return err
}
