package bootstrap

import (
	"context"
	"time"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/persistence"
)

type leadRepositoryAdapter struct {
	repo persistence.LeadRepository
}

func newLeadRepositoryAdapter(repo persistence.LeadRepository) *leadRepositoryAdapter {
	return &leadRepositoryAdapter{repo: repo}
}

func (a *leadRepositoryAdapter) CreateLead(ctx context.Context, lead application.Lead) (application.Lead, error) {
	if err := a.repo.CreateLead(ctx, toPersistenceLead(lead)); err != nil {
		return application.Lead{}, err
	}
	stored, err := a.repo.GetLead(ctx, lead.ID)
	if err != nil {
		return application.Lead{}, err
	}
	return toApplicationLead(stored), nil
}

func (a *leadRepositoryAdapter) GetLead(ctx context.Context, id string) (application.Lead, error) {
	stored, err := a.repo.GetLead(ctx, id)
	if err != nil {
		return application.Lead{}, err
	}
	return toApplicationLead(stored), nil
}

func (a *leadRepositoryAdapter) ListLeads(ctx context.Context, filter application.LeadRepositoryFilter) ([]application.Lead, error) {
	models, err := a.repo.ListLeads(ctx, persistence.LeadFilter{Status: filter.Status, Query: filter.Query})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	leads := make([]application.Lead, 0, len(models))
	for _, model := range models {
		leads = append(leads, toApplicationLead(model))
	}
	return leads, nil
}

func (a *leadRepositoryAdapter) UpdateLeadStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	return a.repo.UpdateLeadStatus(ctx, id, status, updatedAt)
}

func (a *leadRepositoryAdapter) DeleteLead(ctx context.Context, id string) error {
	return a.repo.DeleteLead(ctx, id)
}

type postRepositoryAdapter struct {
	repo persistence.PostRepository
}

func newPostRepositoryAdapter(repo persistence.PostRepository) *postRepositoryAdapter {
	return &postRepositoryAdapter{repo: repo}
}

func (a *postRepositoryAdapter) CreatePosts(ctx context.Context, posts []application.SocialPost) error {
	models := make([]persistence.SocialPost, 0, len(posts))
	for _, post := range posts {
		model, err := toPersistencePost(post)
		if err != nil {
			return err
		}
		models = append(models, model)
	}
	return a.repo.CreatePosts(ctx, models)
}

func (a *postRepositoryAdapter) GetPost(ctx context.Context, id string) (application.SocialPost, error) {
	stored, err := a.repo.GetPost(ctx, id)
	if err != nil {
		return application.SocialPost{}, err
	}
	return toApplicationPost(stored)
}

func (a *postRepositoryAdapter) ListPosts(ctx context.Context, params application.ListPostsParams) ([]application.SocialPost, error) {
	models, err := a.repo.ListPosts(ctx, persistence.PostFilter{
		From:     cloneTime(params.From),
		To:       cloneTime(params.To),
		Status:   params.Status,
		SeriesID: params.SeriesID,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	posts := make([]application.SocialPost, 0, len(models))
	for _, model := range models {
		post, err := toApplicationPost(model)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (a *postRepositoryAdapter) CancelPost(ctx context.Context, id string, at time.Time) error {
	return a.repo.CancelPost(ctx, id, at)
}

func (a *postRepositoryAdapter) CancelSeries(ctx context.Context, seriesID string, at time.Time) (int, error) {
	return a.repo.CancelSeries(ctx, seriesID, at)
}

func (a *postRepositoryAdapter) MarkDue(ctx context.Context, before, at time.Time) (int, error) {
	return a.repo.MarkDue(ctx, before, at)
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.CreateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error) {
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		From:   cloneTime(params.From),
		To:     cloneTime(params.To),
		LeadID: params.LeadID,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

func toApplicationLead(model persistence.Lead) application.Lead {
	return application.Lead{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		Phone:     model.Phone,
		Company:   model.Company,
		Source:    model.Source,
		Status:    model.Status,
		Notes:     model.Notes,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceLead(lead application.Lead) persistence.Lead {
	return persistence.Lead{
		ID:        lead.ID,
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Company:   lead.Company,
		Source:    lead.Source,
		Status:    lead.Status,
		Notes:     lead.Notes,
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
}

func toApplicationPost(model persistence.SocialPost) (application.SocialPost, error) {
	meta, err := application.DecodeRecurrence(model.RecurringMetadata)
	if err != nil {
		return application.SocialPost{}, err
	}
	return application.SocialPost{
		ID:            model.ID,
		SeriesID:      model.SeriesID,
		Platform:      model.Platform,
		Content:       model.Content,
		ScheduledTime: model.ScheduledTime,
		RecurringType: model.RecurringType,
		Recurrence:    meta,
		Status:        model.Status,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}, nil
}

func toPersistencePost(post application.SocialPost) (persistence.SocialPost, error) {
	raw, err := application.EncodeRecurrence(post.Recurrence)
	if err != nil {
		return persistence.SocialPost{}, err
	}
	return persistence.SocialPost{
		ID:                post.ID,
		SeriesID:          post.SeriesID,
		Platform:          post.Platform,
		Content:           post.Content,
		ScheduledTime:     post.ScheduledTime,
		RecurringType:     post.RecurringType,
		RecurringMetadata: raw,
		Status:            post.Status,
		CreatedAt:         post.CreatedAt,
		UpdatedAt:         post.UpdatedAt,
	}, nil
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:        model.ID,
		LeadID:    model.LeadID,
		Title:     model.Title,
		Start:     model.Start,
		End:       model.End,
		Notes:     model.Notes,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:        booking.ID,
		LeadID:    booking.LeadID,
		Title:     booking.Title,
		Start:     booking.Start,
		End:       booking.End,
		Notes:     booking.Notes,
		CreatedAt: booking.CreatedAt,
		UpdatedAt: booking.UpdatedAt,
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
