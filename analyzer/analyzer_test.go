package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown() })
	return a
}

func TestAnalyzeValidation(t *testing.T) {
	a := newTestAnalyzer(t)

	t.Run("empty input", func(t *testing.T) {
		_, err := a.Analyze("   ")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := a.Analyze("ftp://example.com")
		assert.ErrorIs(t, err, ErrUnsupportedProtocol)
	})

	t.Run("unparseable URL", func(t *testing.T) {
		_, err := a.Analyze("https://exa mple.com")
		assert.ErrorIs(t, err, ErrInvalidURL)
	})
}

func TestAnalyzeWithContext(t *testing.T) {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
	<title>A title that is comfortably within the band</title>
	<meta charset="utf-8">
	<meta name="description" content="A meta description that is long enough to land inside the success band of the evaluator rules.">
	<meta property="og:title" content="OG">
	<meta property="og:description" content="OG desc">
	<meta property="og:image" content="https://example.com/i.png">
	<meta name="twitter:card" content="summary">
	<meta name="twitter:title" content="OG">
	<meta name="twitter:description" content="OG desc">
</head>
<body></body>
</html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, html)
	}))
	defer srv.Close()

	a := newTestAnalyzer(t)
	result, err := a.AnalyzeWithContext(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, srv.URL, result.URL)
	assert.Equal(t, srv.URL, result.NormalizedURL)
	assert.Equal(t, len(html), result.HTMLLength)
	assert.Equal(t, "A title that is comfortably within the band", result.Meta.Title)
	assert.Equal(t, "utf-8", result.Meta.Charset)
	assert.Equal(t, "en", result.Meta.Lang)
	assert.Equal(t, "summary", result.Twitter.Card)

	assert.NotNil(t, findIssue(result.Issues, "title_ok"))
	assert.NotNil(t, findIssue(result.Issues, "description_ok"))
	assert.NotNil(t, findIssue(result.Issues, "og_ok"))
	assert.NotNil(t, findIssue(result.Issues, "twitter_ok"))
	assert.NotNil(t, findIssue(result.Issues, "canonical_missing"))
	assert.Nil(t, findIssue(result.Issues, "twitter_title_missing"))

	counts := countIssues(result.Issues)
	assert.Equal(t, counts, result.Counts)
	assert.Equal(t, scoreFromCounts(counts), result.Score)
	assert.Zero(t, counts.Errors)
}

func TestAnalyzeWithContextFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Landed on the redirect target page</title></head></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := newTestAnalyzer(t)
	// The loopback guard is for production traffic; lift it for the local test server.
	a.client.CheckRedirect = nil

	result, err := a.AnalyzeWithContext(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/old", result.URL)
	assert.Equal(t, srv.URL+"/new", result.NormalizedURL)
}

func TestAnalyzeWithContextNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	a := newTestAnalyzer(t)
	_, err := a.AnalyzeWithContext(context.Background(), srv.URL)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.Error(), "404")
}

func TestAnalyzeWithContextTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	a := newTestAnalyzer(t)
	_, err := a.AnalyzeWithContext(context.Background(), srv.URL)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Zero(t, fetchErr.StatusCode)
}

func TestCheckRedirectTarget(t *testing.T) {
	tests := []struct {
		target  string
		wantErr bool
	}{
		{"https://example.com/next", false},
		{"http://example.com/next", false},
		{"file:///etc/passwd", true},
		{"gopher://example.com", true},
		{"http://localhost/admin", true},
		{"http://internal.localhost/", true},
		{"http://127.0.0.1:8080/", true},
		{"http://[::1]/", true},
		{"http://169.254.1.1/", true},
		{"http://0.0.0.0/", true},
	}

	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			err := checkRedirectTarget(req.URL)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCacheLifecycle(t *testing.T) {
	a := newTestAnalyzer(t)
	target := "https://example.com/"

	store := func() {
		a.cacheMutex.Lock()
		a.cache[generateCacheKey(target)] = cacheEntry{
			result:    &AnalysisResult{URL: target},
			timestamp: time.Now(),
		}
		a.cacheMutex.Unlock()
	}

	t.Run("fresh entry is cached", func(t *testing.T) {
		store()
		assert.True(t, a.IsCached(target))
		assert.False(t, a.IsCached("https://other.example.com/"))
	})

	t.Run("expired entry is not cached and gets cleaned", func(t *testing.T) {
		store()
		a.SetCacheTTL(time.Nanosecond)
		time.Sleep(time.Millisecond)

		assert.False(t, a.IsCached(target))

		a.cleanup()
		a.cacheMutex.RLock()
		size := len(a.cache)
		a.cacheMutex.RUnlock()
		assert.Zero(t, size)
	})

	t.Run("clear cache", func(t *testing.T) {
		a.SetCacheTTL(30 * time.Minute)
		store()
		require.True(t, a.IsCached(target))
		a.ClearCache()
		assert.False(t, a.IsCached(target))
	})
}
