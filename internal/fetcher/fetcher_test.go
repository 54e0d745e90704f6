package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/fetcher"
)

func newTestFetcher(respectRobots bool) *fetcher.Fetcher {
	return fetcher.New(fetcher.Config{
		UserAgent:     "TestBot/1.0",
		Referrer:      "http://www.google.com",
		Timeout:       5 * time.Second,
		RespectRobots: respectRobots,
	}, nil)
}

func TestFetchPage(t *testing.T) {
	var referer, userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		referer = r.Header.Get("Referer")
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><a href="/a">A</a><a href="/b#x">B</a><a href="/c.pdf">C</a></body></html>`)
	}))
	defer server.Close()

	doc := newTestFetcher(true).Fetch(context.Background(), server.URL+"/")
	if doc.Err != nil {
		t.Fatalf("Fetch error: %v", doc.Err)
	}
	if doc.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", doc.StatusCode)
	}
	if !strings.Contains(doc.Content, "<a href=\"/a\">") {
		t.Errorf("Expected raw HTML content, got %q", doc.Content)
	}
	if len(doc.Links) != 2 || doc.Links[0] != server.URL+"/a" || doc.Links[1] != server.URL+"/b" {
		t.Errorf("Unexpected links: %v", doc.Links)
	}
	if referer != "http://www.google.com" {
		t.Errorf("Expected referrer header, got %q", referer)
	}
	if userAgent != "TestBot/1.0" {
		t.Errorf("Expected user agent header, got %q", userAgent)
	}
}

func TestFetchHTTPErrorIsRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `<html><body><a href="/never">x</a></body></html>`)
	}))
	defer server.Close()

	doc := newTestFetcher(false).Fetch(context.Background(), server.URL+"/missing")
	if doc.Err != nil {
		t.Errorf("HTTP errors should not be transport errors: %v", doc.Err)
	}
	if doc.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", doc.StatusCode)
	}
	if len(doc.Links) != 0 {
		t.Errorf("Links of error pages must not be followed: %v", doc.Links)
	}
}

func TestFetchTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	doc := newTestFetcher(false).Fetch(context.Background(), url+"/")
	if doc.Err == nil {
		t.Fatal("Expected transport error")
	}
	if doc.StatusCode != 0 {
		t.Errorf("Expected status 0, got %d", doc.StatusCode)
	}
}

func TestFetchNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"a":1}`)
	}))
	defer server.Close()

	doc := newTestFetcher(false).Fetch(context.Background(), server.URL+"/data")
	if doc.StatusCode != http.StatusOK || doc.Content != "" {
		t.Errorf("Expected 200 without content, got %d %q", doc.StatusCode, doc.Content)
	}
}

func TestRobotsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
			return
		}
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer server.Close()

	f := newTestFetcher(true)

	doc := f.Fetch(context.Background(), server.URL+"/private/page")
	if !errors.Is(doc.Err, fetcher.ErrDisallowed) {
		t.Errorf("Expected ErrDisallowed, got %v", doc.Err)
	}

	doc = f.Fetch(context.Background(), server.URL+"/public")
	if doc.Err != nil || doc.StatusCode != http.StatusOK {
		t.Errorf("Expected public page to be fetched, got %d %v", doc.StatusCode, doc.Err)
	}

	permissive := newTestFetcher(false)
	doc = permissive.Fetch(context.Background(), server.URL+"/private/page")
	if doc.Err != nil {
		t.Errorf("Robots should be ignored when disabled, got %v", doc.Err)
	}
}

type fakeRenderer struct {
	html     string
	location string
	calls    int
}

func (r *fakeRenderer) Render(ctx context.Context, urlStr string) (*fetcher.Rendered, error) {
	r.calls++
	location := r.location
	if location == "" {
		location = urlStr
	}
	return &fetcher.Rendered{URL: location, HTML: r.html}, nil
}

func TestBrowserFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="app"></div><script src="/app.js"></script></body></html>`)
	}))
	defer server.Close()

	rendered := `<html><body><p>` + strings.Repeat("rendered text ", 20) + `</p><a href="/next">next</a></body></html>`
	renderer := &fakeRenderer{html: rendered}

	f := newTestFetcher(false)
	f.SetRenderer(renderer)

	doc := f.Fetch(context.Background(), server.URL+"/")
	if renderer.calls != 1 {
		t.Fatalf("Expected renderer to be called once, got %d", renderer.calls)
	}
	if doc.Content != rendered {
		t.Errorf("Expected rendered content to replace the script shell")
	}
	if len(doc.Links) != 1 || doc.Links[0] != server.URL+"/next" {
		t.Errorf("Expected links from rendered page, got %v", doc.Links)
	}
}

func TestBrowserFallbackResolvesLinksAgainstRenderedLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="app"></div></body></html>`)
	}))
	defer server.Close()

	rendered := `<html><body><p>` + strings.Repeat("routed text ", 20) + `</p><a href="next">next</a></body></html>`
	renderer := &fakeRenderer{html: rendered, location: server.URL + "/app/home"}

	f := newTestFetcher(false)
	f.SetRenderer(renderer)

	doc := f.Fetch(context.Background(), server.URL+"/")
	if len(doc.Links) != 1 || doc.Links[0] != server.URL+"/app/next" {
		t.Errorf("Expected link relative to the rendered location, got %v", doc.Links)
	}
}

func TestNoRendererWithoutFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="app"></div><a href="/a">a</a></body></html>`)
	}))
	defer server.Close()

	doc := newTestFetcher(false).Fetch(context.Background(), server.URL+"/")
	if doc.Err != nil || !strings.Contains(doc.Content, `id="app"`) {
		t.Errorf("Expected the static shell without a renderer, got %q %v", doc.Content, doc.Err)
	}
}
