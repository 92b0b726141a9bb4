package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/growth-crm/internal/application"
)

type capturingLeadRepo struct {
	created application.Lead
}

func (c *capturingLeadRepo) CreateLead(ctx context.Context, lead application.Lead) (application.Lead, error) {
	c.created = lead
	return lead, nil
}

func (c *capturingLeadRepo) GetLead(ctx context.Context, id string) (application.Lead, error) {
	return application.Lead{}, application.ErrNotFound
}

func (c *capturingLeadRepo) ListLeads(ctx context.Context, filter application.LeadRepositoryFilter) ([]application.Lead, error) {
	return nil, nil
}

func (c *capturingLeadRepo) UpdateLeadStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	return nil
}

func (c *capturingLeadRepo) DeleteLead(ctx context.Context, id string) error {
	return nil
}

type capturingPostRepo struct {
	created []application.SocialPost
}

func (c *capturingPostRepo) CreatePosts(ctx context.Context, posts []application.SocialPost) error {
	c.created = append(c.created, posts...)
	return nil
}

func (c *capturingPostRepo) GetPost(ctx context.Context, id string) (application.SocialPost, error) {
	return application.SocialPost{}, application.ErrNotFound
}

func (c *capturingPostRepo) ListPosts(ctx context.Context, params application.ListPostsParams) ([]application.SocialPost, error) {
	return c.created, nil
}

func (c *capturingPostRepo) CancelPost(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (c *capturingPostRepo) CancelSeries(ctx context.Context, seriesID string, at time.Time) (int, error) {
	return 0, nil
}

func (c *capturingPostRepo) MarkDue(ctx context.Context, before, at time.Time) (int, error) {
	return 0, nil
}

func TestServiceFactoryNewLeadService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingLeadRepo{}

	svc := factory.NewLeadService(repo, nil)
	lead, err := svc.CreateLead(context.Background(), NewLeadFixture().Input())
	if err != nil {
		t.Fatalf("CreateLead returned error: %v", err)
	}

	if lead.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", lead.ID)
	}
	if repo.created.ID != lead.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if !lead.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), lead.CreatedAt)
	}
}

func TestServiceFactoryNewPostServiceSharesClock(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingPostRepo{}
	svc := factory.NewPostService(repo, nil, nil)

	start := ReferenceTime()
	end := start.AddDate(0, 0, 13)
	result, err := svc.SchedulePost(context.Background(), application.SchedulePostParams{
		Platform: "instagram",
		Content:  "Weekly tip",
		Schedule: application.ScheduleInput{Start: start, Type: "weekly", TimeOfDay: "09:00", EndDate: &end},
	})
	if err != nil {
		t.Fatalf("SchedulePost returned error: %v", err)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("expected two weekly posts, got %d", len(result.Posts))
	}
	if result.SeriesID != "id-1" || result.Posts[1].ID != "id-3" {
		t.Fatalf("expected series id-1 followed by post ids, got %q and %q", result.SeriesID, result.Posts[1].ID)
	}

	factory.Clock.AdvanceDays(8)
	if _, err := svc.MarkDuePosts(context.Background()); err != nil {
		t.Fatalf("MarkDuePosts returned error: %v", err)
	}
}

func TestSQLiteHarnessSeeds(t *testing.T) {
	harness := NewSQLiteHarness(t)
	lead := NewLeadFixture(WithLeadStatus("contacted"))
	harness.SeedLeads(t, lead)
	harness.SeedBookings(t, NewBookingFixture(lead.ID))
	harness.SeedPosts(t,
		NewPostFixture(WithPostSeries("series-1", "daily", "09:00")),
		NewPostFixture(WithPostSeries("series-1", "daily", "09:00"), WithPostScheduledTime(ReferenceTime().AddDate(0, 0, 2))),
	)

	stored, err := harness.Leads.GetLead(context.Background(), lead.ID)
	if err != nil || stored.Status != "contacted" {
		t.Fatalf("expected seeded lead, got %+v (%v)", stored, err)
	}

	n, err := harness.Posts.CancelSeries(context.Background(), "series-1", ReferenceTime())
	if err != nil || n != 2 {
		t.Fatalf("expected two posts in the series, got %d (%v)", n, err)
	}
	if err := harness.Store.Ping(context.Background()); err != nil {
		t.Fatalf("expected store to be reachable: %v", err)
	}
}
