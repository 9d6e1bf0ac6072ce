package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare domain gets https", "example.com", "https://example.com/"},
		{"whitespace is trimmed", "  example.com  ", "https://example.com/"},
		{"http is upgraded", "http://example.com/path", "https://example.com/path"},
		{"fragment is stripped", "https://x.com/#section", "https://x.com/"},
		{"fragment with path", "https://x.com/docs#intro", "https://x.com/docs"},
		{"utm params removed, others kept in order", "https://x.com/?a=1&UTM_source=x&b=2", "https://x.com/?a=1&b=2"},
		{"utm prefix is case-insensitive", "https://x.com/?utm_medium=email&Utm_Campaign=y&q=go", "https://x.com/?q=go"},
		{"non-utm encoding preserved", "https://x.com/?q=a%20b&utm_source=x", "https://x.com/?q=a%20b"},
		{"query of only utm params", "https://x.com/page?utm_source=x", "https://x.com/page"},
		{"port and path survive", "http://example.com:8443/a/b?x=1", "https://example.com:8443/a/b?x=1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizeURL(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSanitizeURLRejectsNonHTTPSchemes(t *testing.T) {
	for _, input := range []string{
		"ftp://example.com/file",
		"file:///etc/passwd",
		"data://text/html,hello",
		"gopher://example.com",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := SanitizeURL(input)
			assert.ErrorIs(t, err, ErrUnsupportedProtocol)
		})
	}
}

func TestSanitizeURLInvalid(t *testing.T) {
	for _, input := range []string{
		"https://exa mple.com",
		"https://",
		"",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := SanitizeURL(input)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"strips fragment", "https://x.com/page#top", "https://x.com/page"},
		{"does not force https", "http://x.com/page", "http://x.com/page"},
		{"does not strip utm params", "https://x.com/?utm_source=x", "https://x.com/?utm_source=x"},
		{"relative value passes through", "/about", "/about"},
		{"trims whitespace", "  https://x.com/a  ", "https://x.com/a"},
		{"unparseable input falls back to trimmed original", " https://exa mple.com ", "https://exa mple.com"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeURL(tc.input))
		})
	}
}
