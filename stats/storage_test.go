package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewStorage(tempDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Shutdown()

	t.Run("Record", func(t *testing.T) {
		storage.Record(DiagnosisRun)
		storage.Record(CacheHit)
		storage.Record(CacheMiss)
		storage.Record(CacheMiss)
		storage.Record(AIAnalysisRun)
		storage.Record(AIAnalysisFailed)

		stats := storage.GetCurrentStats()
		if stats.DiagnosisRuns != 1 {
			t.Errorf("Expected 1 diagnosis run, got %d", stats.DiagnosisRuns)
		}
		if stats.CacheHits != 1 {
			t.Errorf("Expected 1 cache hit, got %d", stats.CacheHits)
		}
		if stats.CacheMisses != 2 {
			t.Errorf("Expected 2 cache misses, got %d", stats.CacheMisses)
		}
		if stats.AIAnalysisRuns != 1 {
			t.Errorf("Expected 1 AI analysis run, got %d", stats.AIAnalysisRuns)
		}
		if stats.AIAnalysisErrors != 1 {
			t.Errorf("Expected 1 AI analysis error, got %d", stats.AIAnalysisErrors)
		}
	})

	t.Run("Persistence", func(t *testing.T) {
		// Force a save
		storage.requestWrite()
		time.Sleep(100 * time.Millisecond) // Give time for the write to complete

		// Create new storage instance pointing to same directory
		storage2, err := NewStorage(tempDir)
		if err != nil {
			t.Fatalf("Failed to create second storage: %v", err)
		}
		defer storage2.Shutdown()

		stats := storage2.GetCurrentStats()
		if stats.DiagnosisRuns != 1 {
			t.Errorf("Expected 1 diagnosis run after reload, got %d", stats.DiagnosisRuns)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		// Add some old stats
		oldMonth := time.Now().AddDate(0, -2, 0).Format("2006-01")
		storage.mutex.Lock()
		storage.stats[oldMonth] = &MonthlyStats{
			DiagnosisRuns: 100,
			LastUpdated:   time.Now().AddDate(0, -2, 0),
		}
		storage.mutex.Unlock()

		storage.Cleanup()

		storage.mutex.RLock()
		_, exists := storage.stats[oldMonth]
		storage.mutex.RUnlock()
		if exists {
			t.Error("Old stats should have been cleaned up")
		}
	})

	t.Run("FileSize", func(t *testing.T) {
		// Force a save
		storage.requestWrite()
		time.Sleep(100 * time.Millisecond) // Give time for the write to complete

		info, err := os.Stat(filepath.Join(tempDir, "stats.json"))
		if err != nil {
			t.Fatalf("Failed to stat file: %v", err)
		}

		// File should be relatively small (< 1KB for this test data)
		if info.Size() > 1024 {
			t.Errorf("File size too large: %d bytes", info.Size())
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		before := storage.GetCurrentStats().DiagnosisRuns

		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					storage.Record(DiagnosisRun)
					storage.GetCurrentStats()
				}
				done <- true
			}()
		}

		for i := 0; i < 10; i++ {
			<-done
		}

		stats := storage.GetCurrentStats()
		if got := stats.DiagnosisRuns - before; got != 1000 {
			t.Errorf("Expected 1000 recorded runs, got %d", got)
		}
	})
}

func TestGetAllMonths(t *testing.T) {
	storage, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Shutdown()

	storage.mutex.Lock()
	storage.stats["2025-01"] = &MonthlyStats{DiagnosisRuns: 1}
	storage.stats["2025-03"] = &MonthlyStats{DiagnosisRuns: 2}
	storage.stats["2025-02"] = &MonthlyStats{DiagnosisRuns: 3}
	storage.mutex.Unlock()

	months := storage.GetAllMonths()
	want := []string{"2025-03", "2025-02", "2025-01"}
	if len(months) != len(want) {
		t.Fatalf("Expected %d months, got %d", len(want), len(months))
	}
	for i, m := range want {
		if months[i] != m {
			t.Errorf("Expected month %q at index %d, got %q", m, i, months[i])
		}
	}
}
