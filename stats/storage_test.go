package stats

import (
	"testing"
	"time"
)

func TestStorage(t *testing.T) {
	tempDir := t.TempDir()

	storage, err := NewStorage(tempDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Run("TrackAnalysis", func(t *testing.T) {
		storage.TrackAnalysis(120, false)
		storage.TrackAnalysis(80, true)

		current := storage.GetCurrentStats()
		if current.Analyses != 2 {
			t.Errorf("Expected 2 analyses, got %d", current.Analyses)
		}
		if current.Errors != 1 {
			t.Errorf("Expected 1 error, got %d", current.Errors)
		}
		if rate := storage.ErrorRate(); rate != 50 {
			t.Errorf("Expected 50%% error rate, got %.2f", rate)
		}
		if avg := storage.AverageLoadTime(); avg != 100 {
			t.Errorf("Expected average load time 100ms, got %.2f", avg)
		}
	})

	t.Run("IncrementCache", func(t *testing.T) {
		storage.IncrementCache(3, 4)

		current := storage.GetCurrentStats()
		if current.CacheHits != 3 {
			t.Errorf("Expected 3 cache hits, got %d", current.CacheHits)
		}
		if current.CacheMisses != 4 {
			t.Errorf("Expected 4 cache misses, got %d", current.CacheMisses)
		}
	})

	t.Run("Visitors", func(t *testing.T) {
		storage.TrackVisitor("203.0.113.7")
		storage.TrackVisitor("203.0.113.7")
		storage.TrackVisitor("203.0.113.8")

		if count := storage.UniqueVisitors24h(); count != 2 {
			t.Errorf("Expected 2 unique visitors, got %d", count)
		}
	})

	t.Run("PopularURLs", func(t *testing.T) {
		storage.TrackURL("https://example.com/page/")
		storage.TrackURL("https://example.com/page")
		storage.TrackURL("https://other.com/")
		storage.TrackURL("http://localhost:3000/whatever") // filtered
		storage.TrackURL("https://example.com/api/analyze") // filtered

		top := storage.TopURLs(5)
		if top["https://example.com/page"] != 2 {
			t.Errorf("Expected trailing-slash variants to merge with count 2, got %v", top)
		}
		if top["https://other.com"] != 1 {
			t.Errorf("Expected other.com count 1, got %v", top)
		}
		if len(top) != 2 {
			t.Errorf("Expected local and API URLs filtered out, got %v", top)
		}
	})

	t.Run("Persistence", func(t *testing.T) {
		if err := storage.Shutdown(); err != nil {
			t.Fatalf("Shutdown failed: %v", err)
		}

		reloaded, err := NewStorage(tempDir)
		if err != nil {
			t.Fatalf("Failed to reopen storage: %v", err)
		}
		defer reloaded.Shutdown()

		current := reloaded.GetCurrentStats()
		if current.Analyses != 2 || current.Errors != 1 {
			t.Errorf("Expected persisted counters (2 analyses, 1 error), got %+v", current)
		}
		if count := reloaded.UniqueVisitors24h(); count != 2 {
			t.Errorf("Expected persisted visitors, got %d", count)
		}
		if top := reloaded.TopURLs(5); top["https://example.com/page"] != 2 {
			t.Errorf("Expected persisted popular URLs, got %v", top)
		}
	})
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://example.com/page?q=1", "https://example.com/page"},
		{"https://example.com/", "https://example.com"},
		{"http://localhost:8082/page", ""},
		{"http://127.0.0.1/page", ""},
		{"https://example.com/api/analyze", ""},
	}

	for _, tc := range tests {
		if got := cleanURL(tc.input); got != tc.want {
			t.Errorf("cleanURL(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCleanupRetainsRecentMonths(t *testing.T) {
	storage, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Shutdown()

	old := time.Now().AddDate(0, -3, 0).Format("2006-01")
	storage.mutex.Lock()
	storage.months[old] = &MonthlyStats{Analyses: 10}
	storage.mutex.Unlock()
	storage.TrackAnalysis(50, false)

	storage.Cleanup()

	storage.mutex.RLock()
	_, exists := storage.months[old]
	storage.mutex.RUnlock()
	if exists {
		t.Errorf("Expected month %s to be evicted", old)
	}
	if current := storage.GetCurrentStats(); current.Analyses != 1 {
		t.Errorf("Expected current month retained, got %+v", current)
	}
}
