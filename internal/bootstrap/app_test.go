package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/config"
	"github.com/example/growth-crm/internal/dispatch"
	"github.com/example/growth-crm/internal/persistence/sqlite/migration"
	"github.com/example/growth-crm/internal/recurrence"
	"github.com/example/growth-crm/internal/testfixtures"
)

var fastArgon2 = application.Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestApp(t *testing.T, clock *testfixtures.Clock) (*App, http.Handler) {
	t.Helper()

	cfg := config.Config{
		SQLiteDSN:        filepath.Join(t.TempDir(), "crm.db"),
		Location:         time.UTC,
		ScheduleHorizon:  recurrence.DefaultHorizon,
		DispatchSchedule: dispatch.DefaultSpec,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := New(context.Background(), cfg, logger,
		WithClock(clock.NowFunc()),
		WithIDGenerator(testfixtures.NewIDGenerator("id").NextFunc()),
		WithSQLiteConfig(migration.TempFileSQLiteConfig(cfg.SQLiteDSN)),
	)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	hash, err := application.HashAPIKey("secret", fastArgon2)
	if err != nil {
		t.Fatalf("failed to hash key: %v", err)
	}
	verifier, err := application.NewAPIKeyVerifier(hash)
	if err != nil {
		t.Fatalf("failed to build verifier: %v", err)
	}
	return app, app.Handler(verifier)
}

func call(t *testing.T, handler http.Handler, method, target, body string, dst any) int {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if dst != nil && rec.Body.Len() > 0 {
		if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, target, err)
		}
	}
	return rec.Code
}

func TestApp_LeadToBookingFlow(t *testing.T) {
	clock := testfixtures.NewClock(time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC))
	_, handler := newTestApp(t, clock)

	var created struct {
		Lead struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"lead"`
	}
	if code := call(t, handler, http.MethodPost, "/leads", `{"name":"Ada","email":"ada@example.com"}`, &created); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if created.Lead.ID != "id-1" || created.Lead.Status != "new" {
		t.Fatalf("unexpected lead %+v", created.Lead)
	}

	if code := call(t, handler, http.MethodPost, "/leads", `{"name":"Ada again","email":"ADA@example.com"}`, nil); code != http.StatusConflict {
		t.Fatalf("expected duplicate email to conflict, got %d", code)
	}

	var booked struct {
		LeadStatus  string `json:"lead_status"`
		LeadChanged bool   `json:"lead_changed"`
	}
	body := `{"lead_id":"id-1","title":"Discovery","start":"2025-03-04T10:00:00Z","end":"2025-03-04T11:00:00Z"}`
	if code := call(t, handler, http.MethodPost, "/bookings", body, &booked); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if booked.LeadStatus != "booked" || !booked.LeadChanged {
		t.Fatalf("expected lead to be booked, got %+v", booked)
	}

	var overlap struct {
		Warnings []struct {
			ConflictsWith string `json:"conflicts_with"`
		} `json:"warnings"`
	}
	body = `{"lead_id":"id-1","title":"Follow up","start":"2025-03-04T10:30:00Z","end":"2025-03-04T11:30:00Z"}`
	if code := call(t, handler, http.MethodPost, "/bookings", body, &overlap); code != http.StatusCreated {
		t.Fatalf("expected overlapping booking to be accepted, got %d", code)
	}
	if len(overlap.Warnings) != 1 || overlap.Warnings[0].ConflictsWith != "id-2" {
		t.Fatalf("expected one warning against id-2, got %+v", overlap.Warnings)
	}

	var board struct {
		Columns map[string][]struct {
			ID string `json:"id"`
		} `json:"columns"`
	}
	if code := call(t, handler, http.MethodGet, "/pipeline?vocabulary=deals", "", &board); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got := board.Columns["In Progress"]; len(got) != 1 || got[0].ID != "id-1" {
		t.Fatalf("expected id-1 in progress, got %+v", board.Columns)
	}

	var moved struct {
		NoOp bool `json:"noop"`
	}
	if code := call(t, handler, http.MethodPost, "/leads/id-1/move", `{"vocabulary":"deals","from":"In Progress","to":"In Progress"}`, &moved); code != http.StatusOK || !moved.NoOp {
		t.Fatalf("expected noop move, got %d %+v", code, moved)
	}
	if code := call(t, handler, http.MethodPost, "/leads/id-1/move", `{"vocabulary":"deals","to":"Won"}`, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected unknown stage to be rejected, got %d", code)
	}
}

func TestApp_PostSeriesAndSweep(t *testing.T) {
	clock := testfixtures.NewClock(time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC))
	app, handler := newTestApp(t, clock)

	var scheduled struct {
		SeriesID string `json:"series_id"`
		Posts    []struct {
			ScheduledTime string `json:"scheduled_time"`
		} `json:"posts"`
	}
	body := `{"platform":"linkedin","content":"Spring offer","start":"2025-03-03T09:00:00Z","recurrence_type":"daily","time_of_day":"09:00","end_date":"2025-03-05"}`
	if code := call(t, handler, http.MethodPost, "/posts", body, &scheduled); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if scheduled.SeriesID == "" || len(scheduled.Posts) != 3 {
		t.Fatalf("expected a three post series, got %+v", scheduled)
	}

	clock.Set(time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC))
	sweeper, err := app.Sweeper()
	if err != nil {
		t.Fatalf("failed to build sweeper: %v", err)
	}
	n, err := sweeper.RunOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("expected two posts marked due, got %d (%v)", n, err)
	}

	var due struct {
		Posts []struct {
			Status            string `json:"status"`
			RecurringMetadata *struct {
				SeriesID  string `json:"series_id"`
				TimeOfDay string `json:"time_of_day"`
			} `json:"recurring_metadata"`
		} `json:"posts"`
	}
	if code := call(t, handler, http.MethodGet, "/posts?status=due", "", &due); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(due.Posts) != 2 {
		t.Fatalf("expected two due posts, got %+v", due.Posts)
	}
	for _, post := range due.Posts {
		if post.RecurringMetadata == nil || post.RecurringMetadata.SeriesID != scheduled.SeriesID || post.RecurringMetadata.TimeOfDay != "09:00" {
			t.Fatalf("expected recurrence metadata to survive storage, got %+v", post.RecurringMetadata)
		}
	}

	var cancelled struct {
		Cancelled int `json:"cancelled"`
	}
	if code := call(t, handler, http.MethodDelete, "/posts/series/"+scheduled.SeriesID, "", &cancelled); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if cancelled.Cancelled != 1 {
		t.Fatalf("expected only the remaining scheduled post to be cancelled, got %d", cancelled.Cancelled)
	}
}

func TestApp_PreviewIncompleteSchedules(t *testing.T) {
	_, handler := newTestApp(t, testfixtures.NewClock(time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)))

	bodies := map[string]string{
		"custom without weekdays": `{"start":"2025-03-03T09:00:00Z","recurrence_type":"custom","time_of_day":"09:00","end_date":"2025-03-10"}`,
		"end before start":        `{"start":"2025-03-03T09:00:00Z","recurrence_type":"daily","time_of_day":"09:00","end_date":"2025-02-28"}`,
	}
	for name, body := range bodies {
		var preview struct {
			Count       int      `json:"count"`
			Occurrences []string `json:"occurrences"`
		}
		if code := call(t, handler, http.MethodPost, "/posts/preview", body, &preview); code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", name, code)
		}
		if preview.Count != 0 || preview.Occurrences == nil || len(preview.Occurrences) != 0 {
			t.Fatalf("%s: expected an empty preview, got %+v", name, preview)
		}
	}

	body := `{"platform":"linkedin","content":"tip","start":"2025-03-03T09:00:00Z","recurrence_type":"custom","time_of_day":"09:00","end_date":"2025-03-10"}`
	if code := call(t, handler, http.MethodPost, "/posts", body, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected scheduling an empty series to be rejected, got %d", code)
	}
}

func TestApp_HealthAndAuth(t *testing.T) {
	_, handler := newTestApp(t, testfixtures.NewClock(time.Time{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy store, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoadRegistry(t *testing.T) {
	registry, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("expected built-in registry, got %v", err)
	}
	if registry.Storage().Name() != "leads" {
		t.Fatalf("unexpected storage vocabulary %q", registry.Storage().Name())
	}
	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}
