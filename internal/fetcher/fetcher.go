package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/deidaraiorek/lemmasearch/internal/parser"
	"github.com/temoto/robotstxt"
)

var ErrDisallowed = errors.New("disallowed by robots.txt")

// Document is the outcome of fetching one URL. Transport failures carry
// StatusCode 0 and a non-nil Err; HTTP errors carry their status code.
type Document struct {
	URL        string
	StatusCode int
	Content    string
	Links      []string
	Err        error
}

// Rendered is a page as a browser left it after running its scripts. URL is
// the location the browser ended on, which links resolve against.
type Rendered struct {
	URL  string
	HTML string
}

// Renderer loads pages whose static HTML is a script shell.
type Renderer interface {
	Render(ctx context.Context, urlStr string) (*Rendered, error)
}

type Config struct {
	UserAgent     string
	Referrer      string
	Timeout       time.Duration
	MaxBodyBytes  int64
	RespectRobots bool
}

type Fetcher struct {
	client      *http.Client
	robotsCache map[string]*robotstxt.RobotsData
	robotsMu    sync.RWMutex
	config      Config
	browser     Renderer
	logger      *slog.Logger
}

func New(config Config, logger *slog.Logger) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 10 * 1024 * 1024
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fetcher{
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		robotsCache: make(map[string]*robotstxt.RobotsData),
		config:      config,
		logger:      logger.With("component", "fetcher"),
	}

	return f
}

// SetRenderer enables the browser fallback for pages with too little visible
// text. A nil renderer disables it.
func (f *Fetcher) SetRenderer(r Renderer) {
	f.browser = r
}

// Fetch retrieves urlStr. It never returns a Go error: failures are
// described by the returned Document.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) *Document {
	doc := &Document{URL: urlStr}

	if f.config.RespectRobots && !f.IsAllowed(ctx, urlStr) {
		doc.Err = ErrDisallowed
		return doc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		doc.Err = fmt.Errorf("failed to create request: %w", err)
		return doc
	}

	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.config.Referrer != "" {
		req.Header.Set("Referer", f.config.Referrer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		doc.Err = fmt.Errorf("failed to fetch: %w", err)
		return doc
	}
	defer resp.Body.Close()

	doc.StatusCode = resp.StatusCode

	if !isHTML(resp.Header.Get("Content-Type")) {
		io.Copy(io.Discard, io.LimitReader(resp.Body, f.config.MaxBodyBytes))
		return doc
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		doc.Err = fmt.Errorf("failed to read body: %w", err)
		return doc
	}
	doc.Content = string(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return doc
	}

	baseURL := urlStr
	if resp.Request != nil && resp.Request.URL != nil {
		baseURL = resp.Request.URL.String()
	}

	parsed, err := parser.Parse(doc.Content)
	if err != nil {
		f.logger.Debug("parse failed", "url", urlStr, "error", err)
		return doc
	}

	if f.browser != nil && !parser.HasSufficientContent(parsed) {
		parsed, baseURL = f.render(ctx, urlStr, doc, parsed, baseURL)
	}

	doc.Links = parser.ExtractLinks(parsed, baseURL)
	return doc
}

// render retries a page through the browser and keeps the rendered HTML
// only when it has more to offer. It returns the document to take links
// from and the URL they resolve against.
func (f *Fetcher) render(ctx context.Context, urlStr string, doc *Document, fallback *goquery.Document, baseURL string) (*goquery.Document, string) {
	f.logger.Debug("insufficient content, retrying with browser", "url", urlStr)

	page, err := f.browser.Render(ctx, urlStr)
	if err != nil {
		f.logger.Warn("browser render failed", "url", urlStr, "error", err)
		return fallback, baseURL
	}

	rendered, err := parser.Parse(page.HTML)
	if err != nil || !parser.HasSufficientContent(rendered) {
		return fallback, baseURL
	}

	doc.Content = page.HTML
	if page.URL != "" {
		baseURL = page.URL
	}
	return rendered, baseURL
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func (f *Fetcher) IsAllowed(ctx context.Context, urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, strings.ToLower(u.Host))

	f.robotsMu.RLock()
	robots, exists := f.robotsCache[robotsURL]
	f.robotsMu.RUnlock()

	if !exists {
		robots = f.fetchRobotsTxt(ctx, robotsURL)
		if ctx.Err() == nil {
			f.robotsMu.Lock()
			f.robotsCache[robotsURL] = robots
			f.robotsMu.Unlock()
		}
	}

	if robots == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.FindGroup(f.config.UserAgent).Test(path)
}

func (f *Fetcher) fetchRobotsTxt(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		f.logger.Debug("invalid robots.txt", "url", robotsURL, "error", err)
		return nil
	}
	return robots
}
