package crawler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/crawler"
	"github.com/deidaraiorek/lemmasearch/internal/fetcher"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

type alwaysIndexing struct {
	touches atomic.Int32
}

func (s *alwaysIndexing) IsIndexing(ctx context.Context, siteID int64) (bool, error) {
	return true, nil
}

func (s *alwaysIndexing) Touch(ctx context.Context, siteID int64) error {
	s.touches.Add(1)
	return nil
}

// siteServer serves pages from a path -> html map and counts requests.
type siteServer struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
}

func (s *siteServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	if r.URL.Path == "/robots.txt" {
		fmt.Fprint(w, "User-agent: *\nDisallow: /secret\n")
		return
	}
	body, ok := s.pages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, body)
}

func (s *siteServer) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newSiteServer(pages map[string]string) (*siteServer, *httptest.Server) {
	s := &siteServer{hits: make(map[string]int), pages: pages}
	return s, httptest.NewServer(s)
}

func newFetcher() *fetcher.Fetcher {
	return fetcher.New(fetcher.Config{UserAgent: "TestBot/1.0", Timeout: 5 * time.Second, RespectRobots: true}, nil)
}

func TestCrawlCyclicSite(t *testing.T) {
	pages := map[string]string{
		"/":  `<html><body><a href="/a">A</a><a href="/photo.jpg">img</a></body></html>`,
		"/a": `<html><body><a href="/b">B</a><a href="/">home</a></body></html>`,
		"/b": `<html><body><a href="/a">A</a><a href="/b/">self</a><a href="/missing">x</a><a href="/secret">s</a></body></html>`,
	}
	srv, server := newSiteServer(pages)
	defer server.Close()

	status := &alwaysIndexing{}
	c := crawler.New(crawler.Config{Parallelism: 4}, newFetcher(), status)

	site := &storage.Site{ID: 1, URL: server.URL}
	result, err := c.Crawl(context.Background(), site)
	if err != nil {
		t.Fatalf("Crawl error: %v", err)
	}

	var paths []string
	codes := make(map[string]int)
	for _, p := range result.Pages {
		paths = append(paths, p.Path)
		codes[p.Path] = p.Code
		if p.SiteID != 1 {
			t.Errorf("Page %s has site %d", p.Path, p.SiteID)
		}
	}

	expected := "/,/a,/b,/missing"
	if got := strings.Join(paths, ","); got != expected {
		t.Errorf("Expected paths %s, got %s", expected, got)
	}
	if codes["/missing"] != http.StatusNotFound {
		t.Errorf("Expected /missing recorded as 404, got %d", codes["/missing"])
	}

	for _, path := range []string{"/", "/a", "/b"} {
		if n := srv.hitCount(path); n != 1 {
			t.Errorf("Expected %s fetched once, got %d", path, n)
		}
	}
	if n := srv.hitCount("/photo.jpg"); n != 0 {
		t.Errorf("Images must never be fetched, got %d requests", n)
	}
	if n := srv.hitCount("/secret"); n != 0 {
		t.Errorf("Disallowed page must not be fetched, got %d requests", n)
	}
	if status.touches.Load() != 4 {
		t.Errorf("Expected a touch per recorded page, got %d", status.touches.Load())
	}
}

// stopAfter reports indexing for the first n checks only.
type stopAfter struct {
	remaining atomic.Int32
}

func (s *stopAfter) IsIndexing(ctx context.Context, siteID int64) (bool, error) {
	return s.remaining.Add(-1) >= 0, nil
}

func TestCrawlStopsWhenSiteStopped(t *testing.T) {
	pages := map[string]string{"/": `<html><body>`}
	for i := 0; i < 20; i++ {
		pages["/"] += fmt.Sprintf(`<a href="/p%d">p</a>`, i)
		pages[fmt.Sprintf("/p%d", i)] = `<html><body>leaf</body></html>`
	}
	pages["/"] += `</body></html>`

	srv, server := newSiteServer(pages)
	defer server.Close()

	status := &stopAfter{}
	status.remaining.Store(1)

	c := crawler.New(crawler.Config{Parallelism: 2}, newFetcher(), status)
	result, err := c.Crawl(context.Background(), &storage.Site{ID: 1, URL: server.URL})
	if err != nil {
		t.Fatalf("Crawl error: %v", err)
	}

	if len(result.Pages) != 1 || result.Pages[0].Path != "/" {
		t.Errorf("Expected only the root page, got %d pages", len(result.Pages))
	}
	for i := 0; i < 20; i++ {
		if srv.hitCount(fmt.Sprintf("/p%d", i)) != 0 {
			t.Fatalf("Stopped crawl must not fetch children")
		}
	}
}

func TestCrawlCancelledContext(t *testing.T) {
	_, server := newSiteServer(map[string]string{"/": `<html><body>root</body></html>`})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := crawler.New(crawler.Config{}, newFetcher(), &alwaysIndexing{})
	result, err := c.Crawl(ctx, &storage.Site{ID: 1, URL: server.URL})
	if err != nil {
		t.Fatalf("Crawl error: %v", err)
	}
	if len(result.Pages) != 0 {
		t.Errorf("Expected empty result, got %d pages", len(result.Pages))
	}
}

func TestCrawlMaxPages(t *testing.T) {
	pages := map[string]string{
		"/":  `<html><body><a href="/a">a</a><a href="/b">b</a><a href="/c">c</a></body></html>`,
		"/a": `<html><body>a</body></html>`,
		"/b": `<html><body>b</body></html>`,
		"/c": `<html><body>c</body></html>`,
	}
	_, server := newSiteServer(pages)
	defer server.Close()

	c := crawler.New(crawler.Config{MaxPages: 2}, newFetcher(), &alwaysIndexing{})
	result, err := c.Crawl(context.Background(), &storage.Site{ID: 1, URL: server.URL})
	if err != nil {
		t.Fatalf("Crawl error: %v", err)
	}
	if len(result.Pages) != 2 {
		t.Errorf("Expected 2 pages, got %d", len(result.Pages))
	}
}

func TestCrawlInvalidSite(t *testing.T) {
	c := crawler.New(crawler.Config{}, newFetcher(), nil)
	if _, err := c.Crawl(context.Background(), &storage.Site{ID: 1, URL: "mailto:x@example.com"}); err == nil {
		t.Error("Expected error for invalid site url")
	}
}

func TestPathSet(t *testing.T) {
	s := crawler.NewPathSet(0)

	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("/same") {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", won.Load())
	}
	if !s.Contains("/same") || s.Len() != 1 {
		t.Error("Path should be recorded once")
	}
}
