package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/recurrence"
)

type postService interface {
	PreviewSchedule(ctx context.Context, input application.ScheduleInput) (application.SchedulePreview, error)
	SchedulePost(ctx context.Context, params application.SchedulePostParams) (application.ScheduleResult, error)
	GetPost(ctx context.Context, id string) (application.SocialPost, error)
	ListPosts(ctx context.Context, params application.ListPostsParams) ([]application.SocialPost, error)
	CancelPost(ctx context.Context, id string) error
	CancelSeries(ctx context.Context, seriesID string) (int, error)
}

// PostHandler serves schedule previews and social post scheduling.
type PostHandler struct {
	service   postService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewPostHandler builds a handler. Bare dates in requests are read in loc.
func NewPostHandler(service postService, loc *time.Location, logger *slog.Logger) *PostHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &PostHandler{service: service, location: loc, responder: newResponder(base), logger: base}
}

func (h *PostHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PostHandler", operation, attrs...)
}

func (h *PostHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Preview", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode preview request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.toInput(h.location)
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	preview, err := h.service.PreviewSchedule(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	occurrences := make([]string, 0, len(preview.Occurrences))
	for _, at := range preview.Occurrences {
		occurrences = append(occurrences, at.Format(time.RFC3339))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, previewResponse{
		RecurringType: preview.Type,
		Count:         len(occurrences),
		Occurrences:   occurrences,
	})
}

func (h *PostHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req schedulePostRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Schedule", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode post request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, vErr := req.scheduleRequest.toInput(h.location)
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	logger := h.log(r.Context(), "Schedule", "platform", req.Platform)
	result, err := h.service.SchedulePost(r.Context(), application.SchedulePostParams{
		Platform: req.Platform,
		Content:  req.Content,
		Schedule: input,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "post scheduling failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("series_id", result.SeriesID).InfoContext(r.Context(), "posts scheduled", "count", len(result.Posts))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{
		SeriesID: result.SeriesID,
		Posts:    toPostDTOs(result.Posts),
	})
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	postID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(postID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	post, err := h.service.GetPost(r.Context(), postID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, postResponse{Post: toPostDTO(post)})
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	times, vErr := optionalTimeParams(r, h.location, "from", "to")
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	query := r.URL.Query()
	posts, err := h.service.ListPosts(r.Context(), application.ListPostsParams{
		From:     times[0],
		To:       times[1],
		Status:   query.Get("status"),
		SeriesID: query.Get("series_id"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "List").With("result_count", len(posts)).DebugContext(r.Context(), "posts listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPostsResponse{Posts: toPostDTOs(posts)})
}

func (h *PostHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	postID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(postID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	if err := h.service.CancelPost(r.Context(), postID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *PostHandler) CancelSeries(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seriesID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(seriesID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	cancelled, err := h.service.CancelSeries(r.Context(), seriesID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancelSeriesResponse{SeriesID: seriesID, Cancelled: cancelled})
}

type scheduleRequest struct {
	Start          string   `json:"start"`
	RecurrenceType string   `json:"recurrence_type"`
	TimeOfDay      string   `json:"time_of_day"`
	Weekdays       []string `json:"weekdays"`
	EndDate        string   `json:"end_date"`
}

func (r scheduleRequest) toInput(loc *time.Location) (application.ScheduleInput, *application.ValidationError) {
	fields := map[string]string{}
	input := application.ScheduleInput{
		Type:      r.RecurrenceType,
		TimeOfDay: r.TimeOfDay,
		Weekdays:  r.Weekdays,
	}

	if strings.TrimSpace(r.Start) != "" {
		start, err := parseTimeParam(r.Start, loc)
		if err != nil {
			fields["start"] = err.Error()
		} else {
			input.Start = start
		}
	}
	if strings.TrimSpace(r.EndDate) != "" {
		end, err := recurrence.ParseEndDate(r.EndDate, loc)
		if err != nil {
			fields["end_date"] = err.Error()
		} else {
			input.EndDate = &end
		}
	}

	if len(fields) > 0 {
		return application.ScheduleInput{}, &application.ValidationError{FieldErrors: fields}
	}
	return input, nil
}

type schedulePostRequest struct {
	Platform string `json:"platform"`
	Content  string `json:"content"`
	scheduleRequest
}

type previewResponse struct {
	RecurringType string   `json:"recurring_type"`
	Count         int      `json:"count"`
	Occurrences   []string `json:"occurrences"`
}

type scheduleResponse struct {
	SeriesID string    `json:"series_id,omitempty"`
	Posts    []postDTO `json:"posts"`
}

type postResponse struct {
	Post postDTO `json:"post"`
}

type listPostsResponse struct {
	Posts []postDTO `json:"posts"`
}

type cancelSeriesResponse struct {
	SeriesID  string `json:"series_id"`
	Cancelled int    `json:"cancelled"`
}

type postDTO struct {
	ID                string                          `json:"id"`
	SeriesID          string                          `json:"series_id,omitempty"`
	Platform          string                          `json:"platform"`
	Content           string                          `json:"content"`
	ScheduledTime     string                          `json:"scheduled_time"`
	RecurringType     string                          `json:"recurring_type"`
	RecurringMetadata *application.RecurrenceMetadata `json:"recurring_metadata,omitempty"`
	Status            string                          `json:"status"`
	CreatedAt         string                          `json:"created_at"`
	UpdatedAt         string                          `json:"updated_at"`
}

func toPostDTO(post application.SocialPost) postDTO {
	return postDTO{
		ID:                post.ID,
		SeriesID:          post.SeriesID,
		Platform:          post.Platform,
		Content:           post.Content,
		ScheduledTime:     formatTime(post.ScheduledTime),
		RecurringType:     post.RecurringType,
		RecurringMetadata: post.Recurrence,
		Status:            post.Status,
		CreatedAt:         formatTime(post.CreatedAt),
		UpdatedAt:         formatTime(post.UpdatedAt),
	}
}

func toPostDTOs(posts []application.SocialPost) []postDTO {
	out := make([]postDTO, 0, len(posts))
	for _, post := range posts {
		out = append(out, toPostDTO(post))
	}
	return out
}
