package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// lookup locates one candidate value in the document: a CSS selector plus the
// attribute to read. An empty Attr means the element's text content. Transform
// post-processes the raw value before trimming.
type lookup struct {
	Selector  string
	Attr      string
	Transform func(string) string
}

// fieldSpec is an ordered fallback chain; the first lookup yielding a
// non-empty trimmed value wins.
type fieldSpec []lookup

// Static lookup table for every extracted field. Keeping the selectors
// declarative makes the extractor auditable field by field.
var (
	titleSpec       = fieldSpec{{Selector: "head > title"}}
	descriptionSpec = fieldSpec{{Selector: `meta[name="description"]`, Attr: "content"}}
	robotsSpec      = fieldSpec{{Selector: `meta[name="robots"]`, Attr: "content"}}
	canonicalSpec   = fieldSpec{{Selector: `link[rel="canonical"]`, Attr: "href"}}
	langSpec        = fieldSpec{
		{Selector: "html", Attr: "lang"},
		{Selector: `meta[http-equiv="content-language"]`, Attr: "content"},
	}
	charsetSpec = fieldSpec{
		{Selector: "meta[charset]", Attr: "charset"},
		{Selector: `meta[http-equiv="Content-Type"]`, Attr: "content", Transform: charsetFromContentType},
	}

	ogTitleSpec       = fieldSpec{{Selector: `meta[property="og:title"]`, Attr: "content"}}
	ogDescriptionSpec = fieldSpec{{Selector: `meta[property="og:description"]`, Attr: "content"}}
	ogImageSpec       = fieldSpec{{Selector: `meta[property="og:image"]`, Attr: "content"}}
	ogURLSpec         = fieldSpec{{Selector: `meta[property="og:url"]`, Attr: "content"}}
	ogTypeSpec        = fieldSpec{{Selector: `meta[property="og:type"]`, Attr: "content"}}
	ogSiteNameSpec    = fieldSpec{{Selector: `meta[property="og:site_name"]`, Attr: "content"}}

	twCardSpec        = fieldSpec{{Selector: `meta[name="twitter:card"]`, Attr: "content"}}
	twTitleSpec       = fieldSpec{{Selector: `meta[name="twitter:title"]`, Attr: "content"}}
	twDescriptionSpec = fieldSpec{{Selector: `meta[name="twitter:description"]`, Attr: "content"}}
	twImageSpec       = fieldSpec{{Selector: `meta[name="twitter:image"]`, Attr: "content"}}
	twSiteSpec        = fieldSpec{{Selector: `meta[name="twitter:site"]`, Attr: "content"}}
	twCreatorSpec     = fieldSpec{{Selector: `meta[name="twitter:creator"]`, Attr: "content"}}
)

// charsetFromContentType pulls the encoding out of a Content-Type value such
// as "text/html; charset=utf-8".
func charsetFromContentType(v string) string {
	_, after, found := strings.Cut(v, "charset=")
	if !found {
		return ""
	}
	return after
}

// ExtractMeta pulls base, Open Graph and Twitter Card metadata out of a
// parsed document. Missing tags are the normal case and yield empty fields,
// never an error.
func ExtractMeta(doc *goquery.Document) (BaseMeta, OpenGraphMeta, TwitterMeta) {
	meta := BaseMeta{
		Title:       resolve(doc, titleSpec),
		Description: resolve(doc, descriptionSpec),
		Robots:      resolve(doc, robotsSpec),
		Canonical:   resolve(doc, canonicalSpec),
		Lang:        resolve(doc, langSpec),
		Charset:     resolve(doc, charsetSpec),
	}

	og := OpenGraphMeta{
		Title:       resolve(doc, ogTitleSpec),
		Description: resolve(doc, ogDescriptionSpec),
		Image:       resolve(doc, ogImageSpec),
		URL:         resolve(doc, ogURLSpec),
		Type:        resolve(doc, ogTypeSpec),
		SiteName:    resolve(doc, ogSiteNameSpec),
	}

	twitter := TwitterMeta{
		Card:        resolve(doc, twCardSpec),
		Title:       resolve(doc, twTitleSpec),
		Description: resolve(doc, twDescriptionSpec),
		Image:       resolve(doc, twImageSpec),
		Site:        resolve(doc, twSiteSpec),
		Creator:     resolve(doc, twCreatorSpec),
	}

	return meta, og, twitter
}

// resolve walks a fallback chain and returns the first non-empty trimmed
// value, or "" when every lookup comes up empty.
func resolve(doc *goquery.Document, spec fieldSpec) string {
	for _, l := range spec {
		sel := doc.Find(l.Selector).First()
		if sel.Length() == 0 {
			continue
		}

		var value string
		if l.Attr == "" {
			value = sel.Text()
		} else {
			attr, ok := sel.Attr(l.Attr)
			if !ok {
				continue
			}
			value = attr
		}

		if l.Transform != nil {
			value = l.Transform(value)
		}
		value = strings.TrimSpace(value)
		if value != "" {
			return value
		}
	}
	return ""
}
