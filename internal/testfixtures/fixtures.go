package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/persistence"
)

var (
	leadCounter    atomic.Uint64
	postCounter    atomic.Uint64
	bookingCounter atomic.Uint64
)

// referenceTime is a Monday so weekly rules line up with calendar weeks.
var referenceTime = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Lead fixtures -----------------------------

// LeadFixture is a deterministic lead in the storage vocabulary.
type LeadFixture struct {
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

// LeadOption configures the generated lead fixture.
type LeadOption func(*LeadFixture)

// NewLeadFixture returns a lead in the "new" stage with a unique email.
func NewLeadFixture(opts ...LeadOption) LeadFixture {
	idx := leadCounter.Add(1)
	id := fmt.Sprintf("lead-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := LeadFixture{
		ID:        id,
		Name:      fmt.Sprintf("Lead %03d", idx),
		Email:     fmt.Sprintf("%s@example.com", id),
		Company:   "Example Co",
		Source:    "website",
		Status:    "new",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithLeadID(id string) LeadOption {
	return func(f *LeadFixture) { f.ID = id }
}

func WithLeadName(name string) LeadOption {
	return func(f *LeadFixture) { f.Name = name }
}

func WithLeadEmail(email string) LeadOption {
	return func(f *LeadFixture) { f.Email = email }
}

// WithLeadStatus sets the stored status. Any string is accepted so tests can
// model rows written by older releases.
func WithLeadStatus(status string) LeadOption {
	return func(f *LeadFixture) { f.Status = status }
}

func WithLeadCreatedAt(t time.Time) LeadOption {
	return func(f *LeadFixture) {
		f.CreatedAt = t
		f.UpdatedAt = t
	}
}

func (f LeadFixture) Application() application.Lead {
	return application.Lead{
		ID:        f.ID,
		Name:      f.Name,
		Email:     f.Email,
		Phone:     f.Phone,
		Company:   f.Company,
		Source:    f.Source,
		Status:    f.Status,
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (f LeadFixture) Persistence() persistence.Lead {
	return persistence.Lead{
		ID:        f.ID,
		Name:      f.Name,
		Email:     f.Email,
		Phone:     f.Phone,
		Company:   f.Company,
		Source:    f.Source,
		Status:    f.Status,
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the caller facing fields of the fixture.
func (f LeadFixture) Input() application.LeadInput {
	return application.LeadInput{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Company: f.Company,
		Source:  f.Source,
		Status:  f.Status,
		Notes:   f.Notes,
	}
}

// ----------------------------- Post fixtures -----------------------------

// PostFixture is a deterministic scheduled post. Recurring fixtures carry a
// series ID and metadata.
type PostFixture struct {
	ID            string
	SeriesID      string
	Platform      string
	Content       string
	ScheduledTime time.Time
	RecurringType string
	Recurrence    *application.RecurrenceMetadata
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PostOption configures the generated post fixture.
type PostOption func(*PostFixture)

// NewPostFixture returns a one-off scheduled post a day after ReferenceTime.
func NewPostFixture(opts ...PostOption) PostFixture {
	idx := postCounter.Add(1)
	fixture := PostFixture{
		ID:            fmt.Sprintf("post-%03d", idx),
		Platform:      "linkedin",
		Content:       fmt.Sprintf("Update %03d", idx),
		ScheduledTime: referenceTime.AddDate(0, 0, 1),
		RecurringType: "none",
		Status:        persistence.PostStatusScheduled,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithPostID(id string) PostOption {
	return func(f *PostFixture) { f.ID = id }
}

func WithPostScheduledTime(t time.Time) PostOption {
	return func(f *PostFixture) { f.ScheduledTime = t }
}

func WithPostStatus(status string) PostOption {
	return func(f *PostFixture) { f.Status = status }
}

// WithPostSeries marks the fixture as one occurrence of a recurring series.
func WithPostSeries(seriesID, recurringType, timeOfDay string, weekdays ...string) PostOption {
	return func(f *PostFixture) {
		f.SeriesID = seriesID
		f.RecurringType = recurringType
		f.Recurrence = &application.RecurrenceMetadata{
			TimeOfDay: timeOfDay,
			Weekdays:  append([]string(nil), weekdays...),
			SeriesID:  seriesID,
		}
	}
}

func (f PostFixture) Application() application.SocialPost {
	var meta *application.RecurrenceMetadata
	if f.Recurrence != nil {
		clone := *f.Recurrence
		clone.Weekdays = append([]string(nil), f.Recurrence.Weekdays...)
		meta = &clone
	}
	return application.SocialPost{
		ID:            f.ID,
		SeriesID:      f.SeriesID,
		Platform:      f.Platform,
		Content:       f.Content,
		ScheduledTime: f.ScheduledTime,
		RecurringType: f.RecurringType,
		Recurrence:    meta,
		Status:        f.Status,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence returns the storage row. It panics if the metadata cannot be
// encoded, which only happens for programmer error in a test.
func (f PostFixture) Persistence() persistence.SocialPost {
	raw, err := application.EncodeRecurrence(f.Recurrence)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: encode recurrence: %v", err))
	}
	return persistence.SocialPost{
		ID:                f.ID,
		SeriesID:          f.SeriesID,
		Platform:          f.Platform,
		Content:           f.Content,
		ScheduledTime:     f.ScheduledTime,
		RecurringType:     f.RecurringType,
		RecurringMetadata: raw,
		Status:            f.Status,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// ---------------------------- Booking fixtures ----------------------------

// BookingFixture is a deterministic one hour appointment.
type BookingFixture struct {
	ID        string
	LeadID    string
	Title     string
	Start     time.Time
	End       time.Time
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a one hour booking for leadID starting the day
// after ReferenceTime.
func NewBookingFixture(leadID string, opts ...BookingOption) BookingFixture {
	idx := bookingCounter.Add(1)
	start := referenceTime.AddDate(0, 0, 1)
	fixture := BookingFixture{
		ID:        fmt.Sprintf("booking-%03d", idx),
		LeadID:    leadID,
		Title:     fmt.Sprintf("Appointment %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) { f.ID = id }
}

// WithBookingWindow sets start and end.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:        f.ID,
		LeadID:    f.LeadID,
		Title:     f.Title,
		Start:     f.Start,
		End:       f.End,
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:        f.ID,
		LeadID:    f.LeadID,
		Title:     f.Title,
		Start:     f.Start,
		End:       f.End,
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the caller facing fields of the fixture.
func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		LeadID: f.LeadID,
		Title:  f.Title,
		Start:  f.Start,
		End:    f.End,
		Notes:  f.Notes,
	}
}
