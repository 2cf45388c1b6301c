package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return at }

	tracker.Track("ann", "Sentiment", true)
	tracker.Track("ann", "Salary", false)
	tracker.Track("bob", "Sentiment", true)

	stats := tracker.Stats()
	if stats.Total.Runs != 3 || stats.Total.Failures != 1 {
		t.Fatalf("Total=%+v, want runs=3 failures=1", stats.Total)
	}
	if got := stats.ByTool["Sentiment"]; got.Runs != 2 || got.Failures != 0 {
		t.Fatalf("ByTool[Sentiment]=%+v, want runs=2", got)
	}
	if got := tracker.User("ann"); got.Runs != 2 || got.Failures != 1 || !got.LastRun.Equal(at) {
		t.Fatalf("User(ann)=%+v", got)
	}

	if err := tracker.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "usage.json"))
	if err != nil {
		t.Fatalf("read usage.json: %v", err)
	}
	var persisted UsageData
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal usage.json: %v", err)
	}
	if persisted.Aggregate.Total.Runs != 3 {
		t.Fatalf("persisted runs=%d, want 3", persisted.Aggregate.Total.Runs)
	}

	reloaded, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if got := reloaded.User("bob"); got.Runs != 1 {
		t.Fatalf("reloaded User(bob)=%+v, want runs=1", got)
	}
}

func TestTracker_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "usage.json"), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	tracker, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if got := tracker.Stats(); got.Total.Runs != 0 || got.ByTool == nil {
		t.Fatalf("expected empty stats, got %+v", got)
	}
}

func TestTracker_CloseWithoutRunsWritesNothing(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := tracker.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "usage.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no usage.json, stat err=%v", err)
	}
}
