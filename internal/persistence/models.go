package persistence

import "time"

// Lead represents a captured prospect. Status holds a label from the storage
// pipeline vocabulary.
type Lead struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Company   string
	Source    string
	Status    string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Post statuses.
const (
	PostStatusScheduled = "scheduled"
	PostStatusDue       = "due"
	PostStatusCancelled = "cancelled"
)

// SocialPost is one scheduled publication. Posts expanded from the same
// recurrence share a SeriesID.
type SocialPost struct {
	ID                string
	SeriesID          string
	Platform          string
	Content           string
	ScheduledTime     time.Time
	RecurringType     string
	RecurringMetadata string
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Booking is an appointment with a lead.
type Booking struct {
	ID        string
	LeadID    string
	Title     string
	Start     time.Time
	End       time.Time
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
