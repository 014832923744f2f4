package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/foundrymcp/foundry/internal/journal"
)

func newTestJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	entries := []journal.Entry{
		{Op: "create_project", Project: "demo", Backend: "local", Outcome: "ok", DurationMS: 3},
		{Op: "list_projects", Backend: "local", Outcome: "ok", DurationMS: 1},
		{Op: "create_spec", Project: "demo", SpecID: "20260825_143000_auth", Backend: "linear", Outcome: "error", DurationMS: 120, Detail: "upstream: 502"},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s): %v", e.Op, err)
		}
	}

	got, err := j.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].Op != "create_spec" || got[2].Op != "create_project" {
		t.Errorf("order = [%s %s %s]", got[0].Op, got[1].Op, got[2].Op)
	}
	if got[0].SpecID != "20260825_143000_auth" || got[0].Detail != "upstream: 502" {
		t.Errorf("entry = %+v", got[0])
	}
	if got[0].TS == "" {
		t.Error("TS not defaulted")
	}
	if got[1].Project != "" || got[1].SpecID != "" {
		t.Errorf("optional fields = %+v", got[1])
	}
}

func TestRecentFiltersByProject(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for _, project := range []string{"demo", "other", "demo"} {
		err := j.Record(ctx, journal.Entry{Op: "load_project", Project: project, Backend: "local", Outcome: "ok"})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := j.Recent(ctx, "demo", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, e := range got {
		if e.Project != "demo" {
			t.Errorf("Project = %q", e.Project)
		}
	}
}

func TestRecentLimit(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for i := 0; i < journal.DefaultLimit+5; i++ {
		err := j.Record(ctx, journal.Entry{Op: fmt.Sprintf("op_%d", i), Backend: "local", Outcome: "ok"})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := j.Recent(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}

	// Zero limit falls back to the default.
	got, err = j.Recent(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != journal.DefaultLimit {
		t.Errorf("len = %d, want %d", len(got), journal.DefaultLimit)
	}
}

func TestNilJournalIsDisabled(t *testing.T) {
	var j *journal.Journal
	ctx := context.Background()

	if err := j.Record(ctx, journal.Entry{Op: "noop"}); err != nil {
		t.Errorf("Record on nil journal: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("Close on nil journal: %v", err)
	}
	if _, err := j.Recent(ctx, "", 5); !errors.Is(err, journal.ErrDisabled) {
		t.Errorf("Recent err = %v, want ErrDisabled", err)
	}
}

func TestOpenPropagatesDriverErrors(t *testing.T) {
	restore := journal.SetOpenDB(func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("no such driver")
	})
	defer restore()

	_, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err == nil {
		t.Fatal("Open succeeded with a failing driver")
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Record(ctx, journal.Entry{Op: "create_project", Backend: "local", Outcome: "ok"}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j, err = journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	got, err := j.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Op != "create_project" {
		t.Errorf("entries after reopen = %+v", got)
	}
}
