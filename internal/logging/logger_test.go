package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aistudio/internal/config"
)

func readLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, date+"_"+string(cat)+".log"))
	if err != nil {
		t.Fatalf("failed to read %s log: %v", cat, err)
	}
	return string(data)
}

func TestAllCategoriesLog(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(config.LoggingConfig{DebugMode: true, Level: "debug", Dir: dir}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Session("login for %s", "ann")
	Router("Loading -> %s", "PublicChat")
	Tools("selected %s", "salary")
	API("GET %s", "/api/auth/validate")
	Store("wrote %d keys", 2)
	UI("resize %dx%d", 80, 24)
	CloseAll()

	cases := map[Category]string{
		CategorySession: "login for ann",
		CategoryRouter:  "Loading -> PublicChat",
		CategoryTools:   "selected salary",
		CategoryAPI:     "GET /api/auth/validate",
		CategoryStore:   "wrote 2 keys",
		CategoryUI:      "resize 80x24",
		CategoryBoot:    "logging initialized",
	}
	for cat, want := range cases {
		if got := readLog(t, dir, cat); !strings.Contains(got, want) {
			t.Errorf("%s log missing %q, got: %s", cat, want, got)
		}
	}
}

func TestProductionModeWritesNothing(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(config.LoggingConfig{DebugMode: false, Dir: dir}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Session("should not appear")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no log files in production mode, found %d", len(entries))
	}
}

func TestCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(config.LoggingConfig{
		DebugMode:  true,
		Level:      "info",
		Dir:        dir,
		Categories: map[string]bool{"api": false},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	API("hidden")
	Session("visible")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(dir, date+"_api.log")); !os.IsNotExist(err) {
		t.Error("api category is disabled and must not create a file")
	}
	if !strings.Contains(readLog(t, dir, CategorySession), "visible") {
		t.Error("session category should be logged")
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(config.LoggingConfig{DebugMode: true, Level: "warn", Dir: dir}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	SessionDebug("debug-line")
	SessionWarn("warn-line")
	CloseAll()

	got := readLog(t, dir, CategorySession)
	if strings.Contains(got, "debug-line") {
		t.Error("debug line must be filtered at warn level")
	}
	if !strings.Contains(got, "warn-line") {
		t.Error("warn line must be written")
	}
}

func TestInitializeRequiresDirInDebugMode(t *testing.T) {
	defer CloseAll()
	if err := Initialize(config.LoggingConfig{DebugMode: true}); err == nil {
		t.Error("expected error when debug mode has no directory")
	}
}

func TestTimerStopReturnsElapsed(t *testing.T) {
	timer := StartTimer(CategoryAPI, "noop")
	time.Sleep(2 * time.Millisecond)
	if d := timer.StopWithThreshold(time.Hour); d <= 0 {
		t.Errorf("expected positive duration, got %v", d)
	}
}
