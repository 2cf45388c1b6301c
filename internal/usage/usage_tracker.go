// Package usage counts dashboard tool runs per tool and per user and keeps
// the totals in usage.json next to the credential database.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aistudio/internal/logging"
)

// autoSaveDelay debounces writes after a burst of runs.
const autoSaveDelay = 5 * time.Second

// Tracker manages tool usage recording and persistence.
type Tracker struct {
	mu            sync.Mutex
	data          UsageData
	filePath      string
	dirty         bool
	autoSaveTimer *time.Timer
	now           func() time.Time
}

// NewTracker creates a tracker persisting to dir/usage.json.
func NewTracker(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create usage dir: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(dir, "usage.json"),
		data:     emptyData(),
		now:      time.Now,
	}
	if err := t.Load(); err != nil {
		logging.StoreWarn("Ignoring unreadable usage file %s: %v", t.filePath, err)
		t.data = emptyData()
	}
	return t, nil
}

func emptyData() UsageData {
	return UsageData{
		Version: "1.0",
		Aggregate: AggregatedStats{
			ByTool: make(map[string]RunCounts),
			ByUser: make(map[string]RunCounts),
		},
	}
}

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &t.data); err != nil {
		return err
	}

	// Ensure maps are initialized if file was empty/partial
	if t.data.Aggregate.ByTool == nil {
		t.data.Aggregate.ByTool = make(map[string]RunCounts)
	}
	if t.data.Aggregate.ByUser == nil {
		t.data.Aggregate.ByUser = make(map[string]RunCounts)
	}
	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	t.dirty = false
	return os.WriteFile(t.filePath, data, 0600)
}

// Track records one finished tool run.
func (t *Tracker) Track(user, tool string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	at := t.now()
	t.data.Aggregate.Total.Add(ok, at)
	addToMap(t.data.Aggregate.ByTool, tool, ok, at)
	addToMap(t.data.Aggregate.ByUser, user, ok, at)
	logging.ToolsDebug("usage: %s ran %s ok=%v", user, tool, ok)

	// Debounced auto-save
	if !t.dirty {
		t.dirty = true
		t.autoSaveTimer = time.AfterFunc(autoSaveDelay, func() {
			if err := t.Save(); err != nil {
				logging.StoreWarn("usage autosave: %v", err)
			}
		})
	}
}

// Close stops the pending autosave and flushes.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.autoSaveTimer != nil {
		t.autoSaveTimer.Stop()
		t.autoSaveTimer = nil
	}
	if !t.dirty {
		return nil
	}
	return t.saveLocked()
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByTool = copyRunCountsMap(stats.ByTool)
	stats.ByUser = copyRunCountsMap(stats.ByUser)
	return stats
}

// User returns the counters of one user.
func (t *Tracker) User(user string) RunCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.Aggregate.ByUser[user]
}

func copyRunCountsMap(src map[string]RunCounts) map[string]RunCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]RunCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]RunCounts, key string, ok bool, at time.Time) {
	entry := m[key]
	entry.Add(ok, at)
	m[key] = entry
}
