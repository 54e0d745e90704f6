package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserRenderer is a Renderer backed by headless Chrome. Each Render starts
// a fresh browser so no state leaks between sites.
type BrowserRenderer struct {
	allocOptions []chromedp.ExecAllocatorOption
	timeout      time.Duration
	settle       time.Duration
	maxBytes     int64
}

func NewBrowserRenderer(config Config) *BrowserRenderer {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(config.UserAgent),
		chromedp.Flag("disable-downloads", true),
		chromedp.Flag("disable-plugins", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
	)

	return &BrowserRenderer{
		allocOptions: opts,
		timeout:      timeout,
		settle:       2 * time.Second,
		maxBytes:     config.MaxBodyBytes,
	}
}

// Render loads urlStr, lets its scripts run and returns the resulting DOM
// with the URL the browser ended on.
func (b *BrowserRenderer) Render(ctx context.Context, urlStr string) (*Rendered, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocOptions...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	page := &Rendered{}
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(urlStr),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.Location(&page.URL),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", urlStr, err)
	}

	if b.maxBytes > 0 && int64(len(page.HTML)) > b.maxBytes {
		return nil, fmt.Errorf("render %s: document exceeds %d bytes", urlStr, b.maxBytes)
	}
	return page, nil
}
