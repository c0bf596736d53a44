package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"myflex/internal/database"
	"myflex/internal/shared"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStore(t *testing.T) {
	s := newStore(t)

	if err := s.RecordMeta(shared.AgentMeta{AgentName: "Coach", Usage: shared.TokenUsage{PromptTokens: 100, CompletionTokens: 20, Model: "m"}, Latency: time.Second}); err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}
	if err := s.RecordMeta(shared.AgentMeta{AgentName: "DishImporter", Usage: shared.TokenUsage{PromptTokens: 50, CompletionTokens: 5, Model: "m"}}); err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}
	// Empty usage is skipped.
	if err := s.RecordMeta(shared.AgentMeta{AgentName: "Coach"}); err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}
	if err := s.Record(ExecutionMetric{AgentName: "Coach", Model: "m", PromptTokens: 999, Timestamp: time.Now().AddDate(0, 0, -40)}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	t.Run("DailyUsage", func(t *testing.T) {
		usage, err := s.GetDailyUsage(7)
		if err != nil {
			t.Fatalf("GetDailyUsage failed: %v", err)
		}
		if len(usage) != 1 {
			t.Fatalf("Expected 1 day of usage, got %d", len(usage))
		}
		u := usage[0]
		if u.Date != time.Now().UTC().Format(time.DateOnly) {
			t.Errorf("Unexpected date %q", u.Date)
		}
		if u.TotalPrompt != 150 || u.TotalCompletion != 25 || u.TotalExecution != 2 {
			t.Errorf("Unexpected totals %+v", u)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		n, err := s.Cleanup(30)
		if err != nil {
			t.Fatalf("Cleanup failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 old record removed, got %d", n)
		}
	})
}

func TestSysHealth(t *testing.T) {
	write := func(t *testing.T, path string, size int) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("DatabaseIncludesWAL", func(t *testing.T) {
		dir := t.TempDir()
		db := filepath.Join(dir, "myflex.db")
		write(t, db, 4096)
		write(t, db+"-wal", 2048)
		write(t, filepath.Join(dir, "unrelated.bin"), 8192)

		h := GetSysHealth(StoragePaths{Database: db})
		if h.DatabaseSize != "6.0 KB" {
			t.Errorf("Expected 6.0 KB, got %q", h.DatabaseSize)
		}
		if h.LogSize != "0 B" {
			t.Errorf("Expected 0 B of logs, got %q", h.LogSize)
		}
		if h.Goroutines < 1 {
			t.Errorf("Expected at least one goroutine, got %d", h.Goroutines)
		}
	})

	t.Run("LogsIncludeRotatedFiles", func(t *testing.T) {
		logs := filepath.Join(t.TempDir(), "logs")
		write(t, filepath.Join(logs, "myflex.log"), 1024)
		write(t, filepath.Join(logs, "myflex-2025-03-10T00-00-00.000.log.gz"), 1024)

		h := GetSysHealth(StoragePaths{LogDir: logs})
		if h.LogSize != "2.0 KB" {
			t.Errorf("Expected 2.0 KB, got %q", h.LogSize)
		}
	})

	t.Run("MissingFiles", func(t *testing.T) {
		dir := t.TempDir()
		h := GetSysHealth(StoragePaths{Database: filepath.Join(dir, "absent.db"), LogDir: filepath.Join(dir, "absent")})
		if h.DatabaseSize != "0 B" || h.LogSize != "0 B" {
			t.Errorf("Expected empty sizes, got %q and %q", h.DatabaseSize, h.LogSize)
		}
	})
}
