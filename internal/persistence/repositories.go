package persistence

import (
	"context"
	"time"
)

// LeadFilter narrows lead queries. Query matches name, email or company.
type LeadFilter struct {
	Status string
	Query  string
}

// LeadRepository stores leads and their pipeline status.
type LeadRepository interface {
	CreateLead(ctx context.Context, lead Lead) error
	GetLead(ctx context.Context, id string) (Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]Lead, error)
	UpdateLeadStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	DeleteLead(ctx context.Context, id string) error
}

// PostFilter narrows post queries. From is inclusive and To exclusive.
type PostFilter struct {
	From     *time.Time
	To       *time.Time
	Status   string
	SeriesID string
}

// PostRepository stores scheduled social posts.
type PostRepository interface {
	CreatePosts(ctx context.Context, posts []SocialPost) error
	GetPost(ctx context.Context, id string) (SocialPost, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]SocialPost, error)
	CancelPost(ctx context.Context, id string, at time.Time) error
	CancelSeries(ctx context.Context, seriesID string, at time.Time) (int, error)
	MarkDue(ctx context.Context, before time.Time, at time.Time) (int, error)
}

// BookingFilter narrows booking queries to those overlapping [From, To).
type BookingFilter struct {
	From   *time.Time
	To     *time.Time
	LeadID string
}

// BookingRepository stores appointments.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}
