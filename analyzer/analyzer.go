package analyzer

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/seo-analyser/backend/stats"
)

const (
	userAgent    = "SEO-Analyser-Bot/1.0 (+https://github.com/seo-analyser; educational-purpose)"
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	maxBodyBytes = 5 << 20 // cap on fetched HTML, unbounded bodies are a resource-exhaustion risk
	maxRedirects = 10
)

// bufferPool recycles the read buffers used for response bodies.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

type cacheEntry struct {
	result    *AnalysisResult
	timestamp time.Time
}

// Analyzer fetches pages and produces SEO reports. Each analysis is
// independent; the only shared state is the result cache and the usage
// statistics, both guarded internally.
type Analyzer struct {
	client          *http.Client
	cache           map[string]cacheEntry
	cacheMutex      sync.RWMutex
	cacheTTL        time.Duration
	maxCacheSize    int
	lastCleanup     time.Time
	cleanupInterval time.Duration
	stats           *stats.Storage
	log             *zap.Logger
}

// New creates an Analyzer with a tuned HTTP client and statistics persisted
// under dataDir.
func New(dataDir string, log *zap.Logger) (*Analyzer, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	statsStorage, err := stats.NewStorage(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stats storage: %w", err)
	}

	analyzer := &Analyzer{
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("too many redirects")
				}
				return checkRedirectTarget(req.URL)
			},
		},
		cache:           make(map[string]cacheEntry),
		cacheTTL:        30 * time.Minute,
		maxCacheSize:    1000,
		cleanupInterval: 5 * time.Minute,
		lastCleanup:     time.Now(),
		stats:           statsStorage,
		log:             log,
	}

	go analyzer.periodicCleanup()

	return analyzer, nil
}

// checkRedirectTarget extends the sanitizer's SSRF boundary across redirects:
// the fetch never follows a redirect out of http/https or into loopback or
// link-local address space.
func checkRedirectTarget(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing redirect to unsupported scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("refusing redirect to %q", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("refusing redirect to address %s", ip)
		}
	}
	return nil
}

// Analyze validates and sanitizes rawURL, then fetches and evaluates the
// page. Results are cached briefly so repeated submissions of the same URL do
// not hammer the target.
func (a *Analyzer) Analyze(rawURL string) (*AnalysisResult, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrEmptyInput
	}

	target, err := SanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	if time.Since(a.lastCleanup) > a.cleanupInterval {
		go a.cleanup()
	}

	cacheKey := generateCacheKey(target)
	a.cacheMutex.RLock()
	if entry, found := a.cache[cacheKey]; found {
		if time.Since(entry.timestamp) < a.cacheTTL {
			a.cacheMutex.RUnlock()
			a.stats.IncrementCache(1, 0)
			return entry.result, nil
		}
	}
	a.cacheMutex.RUnlock()
	a.stats.IncrementCache(0, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := a.AnalyzeWithContext(ctx, target)
	if err != nil {
		return nil, err
	}

	a.cacheMutex.Lock()
	a.cache[cacheKey] = cacheEntry{result: result, timestamp: time.Now()}
	a.cacheMutex.Unlock()

	a.stats.TrackURL(target)

	return result, nil
}

// AnalyzeWithContext fetches the already-sanitized target URL and runs the
// extraction and rule evaluation pipeline on the returned document.
func (a *Analyzer) AnalyzeWithContext(ctx context.Context, target string) (*AnalysisResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("reading response body: %w", err)}
	}
	htmlLength := buf.Len()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	meta, og, twitter := ExtractMeta(doc)

	// Prefer the final URL after redirects for the canonical comparison.
	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	normalized := NormalizeURL(finalURL)

	issues := Evaluate(normalized, meta, og, twitter)
	counts := countIssues(issues)

	a.log.Debug("analysis complete",
		zap.String("url", target),
		zap.String("finalUrl", normalized),
		zap.Int("htmlLength", htmlLength),
		zap.Int("issues", len(issues)))

	return &AnalysisResult{
		URL:           target,
		NormalizedURL: normalized,
		HTMLLength:    htmlLength,
		Meta:          meta,
		OpenGraph:     og,
		Twitter:       twitter,
		Issues:        issues,
		Counts:        counts,
		Score:         scoreFromCounts(counts),
	}, nil
}

// generateCacheKey creates a unique key for the URL
func generateCacheKey(url string) string {
	hash := md5.Sum([]byte(url))
	return hex.EncodeToString(hash[:])
}

// IsCached reports whether a sanitized URL has a fresh cache entry.
func (a *Analyzer) IsCached(target string) bool {
	cacheKey := generateCacheKey(target)
	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	entry, found := a.cache[cacheKey]
	return found && time.Since(entry.timestamp) < a.cacheTTL
}

// SetCacheTTL sets the cache TTL.
func (a *Analyzer) SetCacheTTL(ttl time.Duration) {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cacheTTL = ttl
}

// ClearCache drops all cached analyses.
func (a *Analyzer) ClearCache() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cache = make(map[string]cacheEntry)
}

// periodicCleanup removes expired cache entries periodically.
func (a *Analyzer) periodicCleanup() {
	ticker := time.NewTicker(a.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		a.cleanup()
	}
}

// cleanup removes expired entries and enforces the cache size limit.
func (a *Analyzer) cleanup() {
	now := time.Now()

	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()

	for key, entry := range a.cache {
		if now.Sub(entry.timestamp) > a.cacheTTL {
			delete(a.cache, key)
		}
	}

	if len(a.cache) > a.maxCacheSize {
		entries := make([]struct {
			key       string
			timestamp time.Time
		}, 0, len(a.cache))
		for key, entry := range a.cache {
			entries = append(entries, struct {
				key       string
				timestamp time.Time
			}{key, entry.timestamp})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].timestamp.Before(entries[j].timestamp)
		})
		for i := 0; i < len(entries)-a.maxCacheSize; i++ {
			delete(a.cache, entries[i].key)
		}
	}

	a.lastCleanup = now
}

// GetStats returns the statistics storage instance.
func (a *Analyzer) GetStats() *stats.Storage {
	return a.stats
}

// Shutdown flushes statistics and releases the cache.
func (a *Analyzer) Shutdown() error {
	if a == nil {
		return nil
	}

	if a.stats != nil {
		if err := a.stats.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown stats storage: %w", err)
		}
	}

	a.cacheMutex.Lock()
	a.cache = nil
	a.cacheMutex.Unlock()

	return nil
}
