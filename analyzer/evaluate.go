package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Length bands for the title and description rules. The boundaries are
// inclusive: a 30-character title and a 70-character description both pass.
const (
	titleMinLen = 30
	titleMaxLen = 60
	descMinLen  = 70
	descMaxLen  = 170
)

// Evaluate runs the full rule catalog against the extracted metadata and
// returns the findings in a fixed, deterministic order. comparisonURL is the
// normalized final URL of the page, used by the canonical rules.
func Evaluate(comparisonURL string, meta BaseMeta, og OpenGraphMeta, twitter TwitterMeta) []Issue {
	issues := make([]Issue, 0, 12)
	issues = append(issues, evaluateTitle(meta.Title)...)
	issues = append(issues, evaluateDescription(meta.Description)...)
	issues = append(issues, evaluateCanonical(comparisonURL, meta.Canonical)...)
	issues = append(issues, evaluateRobots(meta.Robots)...)
	issues = append(issues, evaluateLang(meta.Lang)...)
	issues = append(issues, evaluateCharset(meta.Charset)...)
	issues = append(issues, evaluateOpenGraph(og)...)
	issues = append(issues, evaluateTwitter(og, twitter)...)
	return issues
}

func evaluateTitle(title string) []Issue {
	if title == "" {
		return []Issue{{
			ID:             "title_missing",
			Level:          SeverityError,
			Message:        "The <title> tag is missing.",
			Field:          "title",
			Recommendation: "Set a unique, descriptive page title (30-60 characters).",
		}}
	}

	length := utf8.RuneCountInString(title)
	switch {
	case length < titleMinLen:
		return []Issue{{
			ID:             "title_too_short",
			Level:          SeverityWarning,
			Message:        fmt.Sprintf("The title is too short (%d characters).", length),
			Field:          "title",
			Recommendation: "Use a title between 30 and 60 characters, including your main keyword.",
		}}
	case length > titleMaxLen:
		return []Issue{{
			ID:             "title_too_long",
			Level:          SeverityWarning,
			Message:        fmt.Sprintf("The title is too long (%d characters).", length),
			Field:          "title",
			Recommendation: "Keep the title between 50 and 60 characters to avoid truncation in the SERPs.",
		}}
	default:
		return []Issue{{
			ID:      "title_ok",
			Level:   SeveritySuccess,
			Message: fmt.Sprintf("The title has a good length (%d characters).", length),
			Field:   "title",
		}}
	}
}

func evaluateDescription(description string) []Issue {
	if description == "" {
		return []Issue{{
			ID:             "description_missing",
			Level:          SeverityWarning,
			Message:        "The meta description is missing.",
			Field:          "description",
			Recommendation: "Add a unique, persuasive meta description (70-160 characters).",
		}}
	}

	length := utf8.RuneCountInString(description)
	switch {
	case length < descMinLen:
		return []Issue{{
			ID:             "description_too_short",
			Level:          SeverityInfo,
			Message:        fmt.Sprintf("The meta description is short (%d characters).", length),
			Field:          "description",
			Recommendation: "Describe the content in more depth, ideally 120-160 characters.",
		}}
	case length > descMaxLen:
		return []Issue{{
			ID:             "description_too_long",
			Level:          SeverityWarning,
			Message:        fmt.Sprintf("The meta description is long (%d characters).", length),
			Field:          "description",
			Recommendation: "Trim it to about 160 characters to minimize truncation.",
		}}
	default:
		return []Issue{{
			ID:      "description_ok",
			Level:   SeveritySuccess,
			Message: fmt.Sprintf("The meta description has a good length (%d characters).", length),
			Field:   "description",
		}}
	}
}

// evaluateCanonical reaches exactly one terminal state per run:
// missing, relative, differs or ok.
func evaluateCanonical(comparisonURL, canonical string) []Issue {
	if canonical == "" {
		return []Issue{{
			ID:             "canonical_missing",
			Level:          SeverityInfo,
			Message:        "Canonical tag is missing.",
			Field:          "canonical",
			Recommendation: "Consider adding a canonical tag pointing at the preferred URL to avoid duplicate content.",
		}}
	}

	normalized := NormalizeURL(comparisonURL)
	canonicalNorm := NormalizeURL(canonical)

	switch {
	case !strings.HasPrefix(canonicalNorm, "http"):
		return []Issue{{
			ID:             "canonical_relative",
			Level:          SeverityWarning,
			Message:        fmt.Sprintf("The canonical tag is relative (%q).", canonical),
			Field:          "canonical",
			Recommendation: "Always prefer absolute URLs in the canonical tag, including protocol and domain.",
		}}
	case normalized != canonicalNorm && !strings.HasSuffix(canonicalNorm, "/"):
		return []Issue{{
			ID:             "canonical_differs",
			Level:          SeverityInfo,
			Message:        fmt.Sprintf("The canonical URL (%s) differs from the analyzed URL.", canonicalNorm),
			Field:          "canonical",
			Recommendation: "Check whether the canonical should really point at another URL (for example a parameter-free version).",
		}}
	default:
		return []Issue{{
			ID:      "canonical_ok",
			Level:   SeveritySuccess,
			Message: "Canonical tag is configured correctly.",
			Field:   "canonical",
		}}
	}
}

// evaluateRobots allows multiple simultaneous findings: noindex and nofollow
// are independent checks, not a state machine.
func evaluateRobots(robots string) []Issue {
	if robots == "" {
		return []Issue{{
			ID:      "robots_none",
			Level:   SeveritySuccess,
			Message: "No meta robots tag (defaults to index, follow).",
			Field:   "robots",
		}}
	}

	var issues []Issue
	value := strings.ToLower(robots)
	if strings.Contains(value, "noindex") {
		issues = append(issues, Issue{
			ID:             "robots_noindex",
			Level:          SeverityWarning,
			Message:        `The page is marked "noindex".`,
			Field:          "robots",
			Recommendation: "Confirm that you really intend to keep this page out of the index.",
		})
	}
	if strings.Contains(value, "nofollow") {
		issues = append(issues, Issue{
			ID:             "robots_nofollow",
			Level:          SeverityInfo,
			Message:        `The page is marked "nofollow".`,
			Field:          "robots",
			Recommendation: "Confirm that you really want links on this page not to be followed.",
		})
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{
			ID:      "robots_ok",
			Level:   SeveritySuccess,
			Message: fmt.Sprintf("Meta robots configured: %s", robots),
			Field:   "robots",
		})
	}
	return issues
}

func evaluateLang(lang string) []Issue {
	if lang == "" {
		return []Issue{{
			ID:             "lang_missing",
			Level:          SeverityInfo,
			Message:        "The language tag (lang attribute on <html>) was not found.",
			Field:          "lang",
			Recommendation: `Set the lang attribute on <html>, for example lang="en".`,
		}}
	}
	return []Issue{{
		ID:      "lang_ok",
		Level:   SeveritySuccess,
		Message: fmt.Sprintf("Lang attribute present: %s", lang),
		Field:   "lang",
	}}
}

func evaluateCharset(charset string) []Issue {
	if charset == "" {
		return []Issue{{
			ID:             "charset_missing",
			Level:          SeverityInfo,
			Message:        "Meta charset not found.",
			Field:          "charset",
			Recommendation: `Declare <meta charset="utf-8"> to guarantee consistent encoding.`,
		}}
	}
	return []Issue{{
		ID:      "charset_ok",
		Level:   SeveritySuccess,
		Message: fmt.Sprintf("Meta charset declared: %s", charset),
		Field:   "charset",
	}}
}

func evaluateOpenGraph(og OpenGraphMeta) []Issue {
	var missing []string
	if og.Title == "" {
		missing = append(missing, "og:title")
	}
	if og.Description == "" {
		missing = append(missing, "og:description")
	}
	if og.Image == "" {
		missing = append(missing, "og:image")
	}

	if len(missing) > 0 {
		return []Issue{{
			ID:             "og_incomplete",
			Level:          SeverityWarning,
			Message:        fmt.Sprintf("Important Open Graph tags are incomplete (missing %s).", strings.Join(missing, ", ")),
			Field:          "open_graph",
			Recommendation: "Include at least og:title, og:description and og:image for good previews on Facebook, Discord and Mastodon.",
		}}
	}
	return []Issue{{
		ID:      "og_ok",
		Level:   SeveritySuccess,
		Message: "Main Open Graph tags are configured.",
		Field:   "open_graph",
	}}
}

// evaluateTwitter checks twitter:card and, independently, whether title and
// description can be inherited from Open Graph but were not replicated.
func evaluateTwitter(og OpenGraphMeta, twitter TwitterMeta) []Issue {
	var issues []Issue

	if twitter.Card == "" {
		issues = append(issues, Issue{
			ID:             "twitter_card_missing",
			Level:          SeverityInfo,
			Message:        "Meta twitter:card is missing.",
			Field:          "twitter",
			Recommendation: `Add <meta name="twitter:card" content="summary_large_image"> for a good preview on X (Twitter).`,
		})
	} else {
		issues = append(issues, Issue{
			ID:      "twitter_ok",
			Level:   SeveritySuccess,
			Message: fmt.Sprintf("Meta twitter:card present: %s", twitter.Card),
			Field:   "twitter",
		})
	}

	if twitter.Title == "" && og.Title != "" {
		issues = append(issues, Issue{
			ID:             "twitter_title_missing",
			Level:          SeverityInfo,
			Message:        "twitter:title is missing while og:title is set.",
			Field:          "twitter",
			Recommendation: "Replicate og:title as twitter:title so X does not have to guess.",
		})
	}
	if twitter.Description == "" && og.Description != "" {
		issues = append(issues, Issue{
			ID:             "twitter_description_missing",
			Level:          SeverityInfo,
			Message:        "twitter:description is missing while og:description is set.",
			Field:          "twitter",
			Recommendation: "Replicate og:description as twitter:description for a complete card.",
		})
	}

	return issues
}
