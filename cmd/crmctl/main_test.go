package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/bootstrap"
	"github.com/example/growth-crm/internal/config"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHashKey(t *testing.T) {
	t.Run("from argument", func(t *testing.T) {
		out, err := execute(t, "", "hash-key", "s3cret")
		if err != nil {
			t.Fatalf("hash-key failed: %v", err)
		}
		if err := application.VerifyAPIKey(strings.TrimSpace(out), "s3cret"); err != nil {
			t.Fatalf("printed hash does not verify: %v", err)
		}
	})

	t.Run("from stdin", func(t *testing.T) {
		out, err := execute(t, "piped\n", "hash-key", "-")
		if err != nil {
			t.Fatalf("hash-key failed: %v", err)
		}
		if err := application.VerifyAPIKey(strings.TrimSpace(out), "piped"); err != nil {
			t.Fatalf("printed hash does not verify: %v", err)
		}
	})

	t.Run("rejects empty keys", func(t *testing.T) {
		if _, err := execute(t, "\n", "hash-key"); err == nil {
			t.Fatalf("expected empty key to be rejected")
		}
	})
}

func TestPreview(t *testing.T) {
	out, err := execute(t, "", "preview",
		"--start", "2025-03-03", "--type", "custom", "--weekdays", "mon,wed",
		"--time", "09:30", "--until", "2025-03-12", "--tz", "UTC")
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}

	want := []string{
		"2025-03-03T09:30:00Z  Mon",
		"2025-03-05T09:30:00Z  Wed",
		"2025-03-10T09:30:00Z  Mon",
		"2025-03-12T09:30:00Z  Wed",
		"4 occurrence(s)",
	}
	if got := strings.Split(strings.TrimSpace(out), "\n"); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected preview:\n%s", out)
	}

	out, err = execute(t, "", "preview", "--start", "2025-03-03", "--type", "custom", "--time", "09:00", "--until", "2025-03-10")
	if err != nil {
		t.Fatalf("preview without weekdays failed: %v", err)
	}
	if strings.TrimSpace(out) != "0 occurrence(s)" {
		t.Fatalf("expected an empty preview, got:\n%s", out)
	}

	if _, err := execute(t, "", "preview", "--start", "2025-03-03", "--type", "hourly"); err == nil {
		t.Fatalf("expected unknown type to fail")
	}
	if _, err := execute(t, "", "preview", "--type", "daily"); err == nil {
		t.Fatalf("expected missing --start to fail")
	}
}

func TestMigrateAndBoard(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "crm.db")

	out, err := execute(t, "", "migrate", "--dsn", dsn, "--status")
	if err != nil {
		t.Fatalf("migrate --status failed: %v", err)
	}
	if !strings.Contains(out, "schema version: none") || !strings.Contains(out, "pending migrations: 3") {
		t.Fatalf("unexpected status output:\n%s", out)
	}

	out, err = execute(t, "", "migrate", "--dsn", dsn)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.Contains(out, "schema version: 003") || !strings.Contains(out, "pending migrations: 0") {
		t.Fatalf("unexpected migrate output:\n%s", out)
	}

	app, err := bootstrap.New(context.Background(), config.Config{SQLiteDSN: dsn, Location: time.UTC}, nil)
	if err != nil {
		t.Fatalf("failed to open app: %v", err)
	}
	if _, err := app.Leads.CreateLead(context.Background(), application.LeadInput{Name: "Ada", Company: "Engines Ltd", Status: "contacted"}); err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	_ = app.Close()

	out, err = execute(t, "", "board", "--dsn", dsn, "--vocabulary", "deals")
	if err != nil {
		t.Fatalf("board failed: %v", err)
	}
	for _, want := range []string{"Prospect", "Contacted", "Ada", "Engines Ltd", "Closed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in board output:\n%s", want, out)
		}
	}

	if _, err := execute(t, "", "board", "--dsn", dsn, "--vocabulary", "crm"); err == nil {
		t.Fatalf("expected unknown vocabulary to fail")
	}
}
