package parser

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// MinContentLength is the amount of visible text below which a page is
// considered script-rendered.
const MinContentLength = 100

var textPolicy = newTextPolicy()

func newTextPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	p.AllowElementsContent("title")
	return p
}

func Parse(content string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(content))
}

// FieldText returns the plain text of every element matching selector,
// with markup, scripts and styles removed.
func FieldText(doc *goquery.Document, selector string) string {
	var parts []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		raw, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		text := html.UnescapeString(textPolicy.Sanitize(raw))
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// HasSufficientContent reports whether the body carries enough visible text
// to be worth indexing without rendering scripts.
func HasSufficientContent(doc *goquery.Document) bool {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	return len(strings.TrimSpace(body.Text())) >= MinContentLength
}

// ExtractLinks returns the absolute, normalized targets of all anchors in
// doc. Non-http(s) links and links to non-document resources are dropped.
func ExtractLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		absoluteURL := resolveURL(base, strings.TrimSpace(href))
		if absoluteURL == "" || !IsDocumentURL(absoluteURL) || seen[absoluteURL] {
			return
		}
		seen[absoluteURL] = true
		links = append(links, absoluteURL)
	})

	return links
}

func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	relURL, err := url.Parse(href)
	if err != nil {
		return ""
	}

	absoluteURL := base.ResolveReference(relURL)
	if absoluteURL.Scheme != "http" && absoluteURL.Scheme != "https" {
		return ""
	}
	return NormalizeURL(absoluteURL)
}

// NormalizeURL drops fragment, query and user info and lowercases scheme
// and host.
func NormalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	n.RawQuery = ""
	n.ForceQuery = false
	n.User = nil
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	return n.String()
}

var skipExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".bmp", ".ico",
	".zip", ".rar", ".7z", ".tar", ".gz", ".tgz", ".bz2",
	".exe", ".dmg", ".iso",
	".mp4", ".avi", ".mov", ".mkv",
	".mp3", ".wav",
	".css", ".js",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
}

// IsDocumentURL reports whether rawURL may point at an HTML document, judged
// by the extension of its path.
func IsDocumentURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}
