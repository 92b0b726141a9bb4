package application

import (
	"time"

	"github.com/example/growth-crm/internal/pipeline"
)

// LeadInput captures caller provided lead fields.
type LeadInput struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Source  string
	// Status is a stage of the storage vocabulary; empty selects the first stage.
	Status string
	Notes  string
}

// Lead is a prospect tracked through the pipeline. Status is always expressed
// in the storage vocabulary.
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

// ListLeadsParams narrows lead listings.
type ListLeadsParams struct {
	Status string
	Query  string
}

// LeadBoard is the kanban view of all leads in one vocabulary.
type LeadBoard struct {
	Vocabulary string
	Stages     []string
	Board      pipeline.Board[Lead]
}

// MoveLeadParams describes a drop of a lead card. From and To are stage
// labels in Vocabulary; an empty From means the lead's current stage.
type MoveLeadParams struct {
	LeadID     string
	Vocabulary string
	From       string
	To         string
}

// MoveResult reports the outcome of a drop. Update is expressed in the
// vocabulary of the request and is zero when NoOp is set.
type MoveResult struct {
	Lead   Lead
	Update pipeline.StatusUpdate
	NoOp   bool
}

// ScheduleInput is a recurrence rule as submitted by a client.
type ScheduleInput struct {
	Start     time.Time
	Type      string
	TimeOfDay string
	Weekdays  []string
	EndDate   *time.Time
}

// SchedulePreview lists the instants a schedule would produce.
type SchedulePreview struct {
	Type        string
	Occurrences []time.Time
}

// SchedulePostParams wraps the data required to schedule a post.
type SchedulePostParams struct {
	Platform string
	Content  string
	Schedule ScheduleInput
}

// SocialPost is one scheduled publication.
type SocialPost struct {
	ID            string
	SeriesID      string
	Platform      string
	Content       string
	ScheduledTime time.Time
	RecurringType string
	Recurrence    *RecurrenceMetadata
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecurrenceMetadata is stored alongside each post of a series so the rule
// that produced it can be shown again.
type RecurrenceMetadata struct {
	TimeOfDay string   `json:"time_of_day"`
	Weekdays  []string `json:"weekdays,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	SeriesID  string   `json:"series_id"`
}

// ScheduleResult is the outcome of SchedulePost.
type ScheduleResult struct {
	SeriesID string
	Posts    []SocialPost
}

// ListPostsParams narrows post listings. From is inclusive and To exclusive.
type ListPostsParams struct {
	From     *time.Time
	To       *time.Time
	Status   string
	SeriesID string
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	LeadID string
	Title  string
	Start  time.Time
	End    time.Time
	Notes  string
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

// ListBookingsParams narrows booking listings to those overlapping [From, To).
type ListBookingsParams struct {
	From   *time.Time
	To     *time.Time
	LeadID string
}

// ConflictWarning describes an overlapping booking that should be surfaced to callers.
type ConflictWarning struct {
	BookingID     string
	ConflictsWith string
	Start         time.Time
	End           time.Time
}

// BookingResult is the outcome of CreateBooking.
type BookingResult struct {
	Booking  Booking
	Warnings []ConflictWarning
	// LeadMove reports how the lead's stage changed as a side effect.
	LeadMove MoveResult
}
