package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// #region helpers
func tempJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}
// #endregion helpers

// #region journal-tests
func TestLogDegradation_Success(t *testing.T) {
	j := tempJournal(t)
	entry := DegradationEntry{
		Source:    "episode-1.json",
		Step:      3,
		Timestamp: 12.5,
		Sections:  []string{"elements", "confidence"},
		Reason:    "element 2: invalid element",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := j.LogDegradation(entry); err != nil {
		t.Fatalf("LogDegradation: %v", err)
	}
	got, err := j.List("episode-1.json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	e := got[0]
	if e.Step != 3 || e.Timestamp != 12.5 || len(e.Sections) != 2 || e.Sections[1] != "confidence" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if !e.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("created_at = %v", e.CreatedAt)
	}
}

func TestLogDegradation_ZeroCreatedAt(t *testing.T) {
	j := tempJournal(t)
	before := time.Now().UTC().Add(-time.Second)
	if err := j.LogDegradation(DegradationEntry{Source: "s", Sections: []string{"phase"}}); err != nil {
		t.Fatalf("LogDegradation: %v", err)
	}
	got, _ := j.List("")
	if len(got) != 1 || got[0].CreatedAt.Before(before) {
		t.Fatalf("expected auto-populated created_at, got %+v", got)
	}
	if got[0].Reason != "" {
		t.Errorf("expected empty reason, got %q", got[0].Reason)
	}
}

func TestList_FiltersBySource(t *testing.T) {
	j := tempJournal(t)
	for _, src := range []string{"a", "b", "a"} {
		if err := j.LogDegradation(DegradationEntry{Source: src}); err != nil {
			t.Fatalf("LogDegradation: %v", err)
		}
	}
	a, _ := j.List("a")
	all, _ := j.List("")
	if len(a) != 2 || len(all) != 3 {
		t.Fatalf("filter: a=%d all=%d", len(a), len(all))
	}
}
// #endregion journal-tests

// #region logger-tests
func TestNew_Formats(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown", "section", "phase")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"section":"phase"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := New(&buf, "loud", "text"); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := New(&buf, "info", "xml"); err == nil {
		t.Fatal("expected format error")
	}
}
// #endregion logger-tests
