package analyzer

// Severity classifies a finding for display grouping and scoring.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// Issue is a single finding produced by the rule evaluator. Issues are
// immutable once created; the evaluator emits them in rule order, which is
// stable for identical input.
type Issue struct {
	ID             string   `json:"id"`
	Level          Severity `json:"level"`
	Message        string   `json:"message"`
	Field          string   `json:"field,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// BaseMeta holds the page-level metadata. Every field is either a trimmed
// non-empty string or empty, meaning absent. Extraction never yields
// whitespace-only values.
type BaseMeta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Robots      string `json:"robots,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	Lang        string `json:"lang,omitempty"`
	Charset     string `json:"charset,omitempty"`
}

// OpenGraphMeta holds the og:* namespace used by Facebook, Discord and
// Mastodon for link previews.
type OpenGraphMeta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	URL         string `json:"url,omitempty"`
	Type        string `json:"type,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
}

// TwitterMeta holds the twitter:* namespace used by X/Twitter, with fallback
// inheritance from Open Graph.
type TwitterMeta struct {
	Card        string `json:"card,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Site        string `json:"site,omitempty"`
	Creator     string `json:"creator,omitempty"`
}

// SeverityCounts summarizes how many issues of each level were produced.
type SeverityCounts struct {
	Errors    int `json:"error"`
	Warnings  int `json:"warning"`
	Infos     int `json:"info"`
	Successes int `json:"success"`
}

// AnalysisResult is the full report for one analyzed page. It is built once
// per request and never mutated afterwards.
type AnalysisResult struct {
	URL           string         `json:"url"`
	NormalizedURL string         `json:"normalizedUrl"`
	HTMLLength    int            `json:"htmlLength"`
	Meta          BaseMeta       `json:"meta"`
	OpenGraph     OpenGraphMeta  `json:"openGraph"`
	Twitter       TwitterMeta    `json:"twitter"`
	Issues        []Issue        `json:"issues"`
	Counts        SeverityCounts `json:"counts"`
	Score         int            `json:"score"`
}
