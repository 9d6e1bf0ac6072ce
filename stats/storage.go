package stats

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// MonthlyStats represents usage counters for a specific month.
type MonthlyStats struct {
	Analyses      int       `json:"analyses"`
	Errors        int       `json:"errors"`
	CacheHits     int       `json:"cache_hits"`
	CacheMisses   int       `json:"cache_misses"`
	TotalLoadTime float64   `json:"-"`
	LastUpdated   time.Time `json:"last_updated"`
}

// snapshot is the on-disk shape of the statistics file.
type snapshot struct {
	Months      map[string]*MonthlyStats `json:"months"`
	Visitors    map[string]time.Time     `json:"visitors"`
	PopularURLs map[string]int           `json:"popular_urls"`
}

// Storage handles persistent storage of usage statistics. Writes are
// batched through a background writer and land on disk via an atomic rename.
type Storage struct {
	mutex       sync.RWMutex
	months      map[string]*MonthlyStats
	visitors    map[string]time.Time
	popularURLs map[string]int
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// NewStorage creates a statistics storage instance backed by
// dataDir/stats.json, loading any previously persisted counters.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Storage{
		months:      make(map[string]*MonthlyStats),
		visitors:    make(map[string]time.Time),
		popularURLs: make(map[string]int),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()

	return s, nil
}

func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if snap.Months != nil {
		s.months = snap.Months
	}
	if snap.Visitors != nil {
		s.visitors = snap.Visitors
	}
	if snap.PopularURLs != nil {
		s.popularURLs = snap.PopularURLs
	}
	return nil
}

func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(snapshot{
		Months:      s.months,
		Visitors:    s.visitors,
		PopularURLs: s.popularURLs,
	})
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to a temporary file first, then rename (atomic).
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// backgroundWriter handles periodic and requested writes to disk.
func (s *Storage) backgroundWriter() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
			s.save()
		case <-ticker.C:
			s.save()
		case <-s.done:
			return
		}
	}
}

// getCurrentMonth returns the current month key in YYYY-MM format.
func getCurrentMonth() string {
	return time.Now().Format("2006-01")
}

// requestWrite signals that a write to disk is needed.
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// Write already pending.
	}
}

func (s *Storage) currentMonthLocked() *MonthlyStats {
	month := getCurrentMonth()
	stats, exists := s.months[month]
	if !exists {
		stats = &MonthlyStats{}
		s.months[month] = stats
	}
	return stats
}

// TrackVisitor records a unique visitor by IP.
func (s *Storage) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.visitors[ip] = time.Now()
}

// TrackAnalysis records one analysis request with its duration and outcome.
func (s *Storage) TrackAnalysis(durationMs float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats := s.currentMonthLocked()
	stats.Analyses++
	if hasError {
		stats.Errors++
	}
	stats.TotalLoadTime += durationMs
	stats.LastUpdated = time.Now()

	if time.Since(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = time.Now()
	}
}

// TrackURL records a successfully analyzed target URL for the popular-URLs
// list. Local and API-internal URLs are filtered out.
func (s *Storage) TrackURL(rawURL string) {
	cleaned := cleanURL(rawURL)
	if cleaned == "" {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.popularURLs[cleaned]++
}

// IncrementCache records analysis cache hits and misses.
func (s *Storage) IncrementCache(hits, misses int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats := s.currentMonthLocked()
	stats.CacheHits += hits
	stats.CacheMisses += misses
	stats.LastUpdated = time.Now()
}

// cleanURL reduces a URL to scheme://host/path and drops anything local.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	if strings.Contains(u.Host, "localhost") ||
		strings.Contains(u.Host, "127.0.0.1") ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	cleaned := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		cleaned += u.Path
	}
	return strings.TrimSuffix(cleaned, "/")
}

// UniqueVisitors24h returns the number of unique visitors in the last 24 hours.
func (s *Storage) UniqueVisitors24h() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, lastVisit := range s.visitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// ErrorRate returns the current month's error rate as a percentage.
func (s *Storage) ErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats, exists := s.months[getCurrentMonth()]
	if !exists || stats.Analyses == 0 {
		return 0
	}
	return float64(stats.Errors) / float64(stats.Analyses) * 100
}

// AverageLoadTime returns the current month's mean analysis duration in
// milliseconds.
func (s *Storage) AverageLoadTime() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats, exists := s.months[getCurrentMonth()]
	if !exists || stats.Analyses == 0 {
		return 0
	}
	return stats.TotalLoadTime / float64(stats.Analyses)
}

// TopURLs returns the n most analyzed URLs, most popular first.
func (s *Storage) TopURLs(n int) map[string]int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	type entry struct {
		url   string
		count int
	}
	entries := make([]entry, 0, len(s.popularURLs))
	for u, count := range s.popularURLs {
		entries = append(entries, entry{u, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].url < entries[j].url
	})

	if n > len(entries) {
		n = len(entries)
	}
	result := make(map[string]int, n)
	for _, e := range entries[:n] {
		result[e.url] = e.count
	}
	return result
}

// GetCurrentStats returns a copy of the current month's counters.
func (s *Storage) GetCurrentStats() MonthlyStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.months[getCurrentMonth()]; exists {
		return *stats
	}
	return MonthlyStats{}
}

// Summary returns the statistics exposed on the API. The popular-URLs list
// is only included in development mode.
func (s *Storage) Summary(devMode bool) map[string]interface{} {
	current := s.GetCurrentStats()

	summary := map[string]interface{}{
		"uniqueVisitors24h": s.UniqueVisitors24h(),
		"totalRequests":     current.Analyses,
		"errorRate":         s.ErrorRate(),
		"averageLoadTime":   s.AverageLoadTime(),
		"cacheHits":         current.CacheHits,
		"cacheMisses":       current.CacheMisses,
	}
	if devMode {
		summary["popularUrls"] = s.TopURLs(5)
	}
	return summary
}

// Cleanup keeps only the current and previous month's counters.
func (s *Storage) Cleanup() {
	now := time.Now()
	currentMonth := now.Format("2006-01")
	previousMonth := now.AddDate(0, -1, 0).Format("2006-01")

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key := range s.months {
		if key != currentMonth && key != previousMonth {
			delete(s.months, key)
		}
	}

	s.requestWrite()
}

// Shutdown stops the background writer and flushes a final save.
func (s *Storage) Shutdown() error {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	return s.save()
}
