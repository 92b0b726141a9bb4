package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/growth-crm/internal/persistence"
	"github.com/example/growth-crm/internal/persistence/sqlite"
	"github.com/example/growth-crm/internal/persistence/sqlite/migration"
)

// SQLiteHarness exposes migrated repositories backed by a temporary file.
type SQLiteHarness struct {
	Store    *sqlite.Store
	Leads    persistence.LeadRepository
	Posts    persistence.PostRepository
	Bookings persistence.BookingRepository
}

// NewSQLiteHarness opens a migrated store in tb.TempDir and closes it when
// the test ends.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "crm.db")
	store, err := sqlite.Open(context.Background(), migration.TempFileSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	return &SQLiteHarness{
		Store:    store,
		Leads:    store.Leads,
		Posts:    store.Posts,
		Bookings: store.Bookings,
	}
}

// SeedLeads inserts fixtures and fails the test on the first error.
func (h *SQLiteHarness) SeedLeads(tb testing.TB, leads ...LeadFixture) {
	tb.Helper()
	for _, lead := range leads {
		if err := h.Leads.CreateLead(context.Background(), lead.Persistence()); err != nil {
			tb.Fatalf("failed to seed lead %s: %v", lead.ID, err)
		}
	}
}

// SeedPosts inserts fixtures in a single batch.
func (h *SQLiteHarness) SeedPosts(tb testing.TB, posts ...PostFixture) {
	tb.Helper()
	rows := make([]persistence.SocialPost, 0, len(posts))
	for _, post := range posts {
		rows = append(rows, post.Persistence())
	}
	if err := h.Posts.CreatePosts(context.Background(), rows); err != nil {
		tb.Fatalf("failed to seed posts: %v", err)
	}
}

// SeedBookings inserts fixtures. The referenced leads must already exist.
func (h *SQLiteHarness) SeedBookings(tb testing.TB, bookings ...BookingFixture) {
	tb.Helper()
	for _, booking := range bookings {
		if err := h.Bookings.CreateBooking(context.Background(), booking.Persistence()); err != nil {
			tb.Fatalf("failed to seed booking %s: %v", booking.ID, err)
		}
	}
}
