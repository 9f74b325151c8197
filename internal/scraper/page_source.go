package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
)

// ErrUnexpectedStatus is returned for non-2xx archive responses.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// PageSource returns the HTML of an index page.
type PageSource interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// NewHTTPClient builds the resty client shared by page fetches and
// downloads. Deadlines come from the request contexts.
func NewHTTPClient(userAgent string) *resty.Client {
	client := resty.New().
		SetRetryCount(0).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return client
}

// HTTPPageSource fetches index pages with a plain HTTP GET.
type HTTPPageSource struct {
	client *resty.Client
}

// NewHTTPPageSource creates a page source on client.
func NewHTTPPageSource(client *resty.Client) *HTTPPageSource {
	return &HTTPPageSource{client: client}
}

// FetchPage implements PageSource.
func (s *HTTPPageSource) FetchPage(ctx context.Context, url string) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	if !isSuccess(resp.StatusCode()) {
		return "", fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, url, resp.Status())
	}
	return resp.String(), nil
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}

// BrowserPageSource renders index pages in headless Chrome. Each fetch
// opens its own tab in a shared browser.
type BrowserPageSource struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	waitSelector  string
}

// NewBrowserPageSource starts a headless browser. Close must be called to
// stop it.
func NewBrowserPageSource(userAgent string) (*BrowserPageSource, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run launches the browser so later tabs can share it.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &BrowserPageSource{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		waitSelector:  "body",
	}, nil
}

// FetchPage implements PageSource.
func (s *BrowserPageSource) FetchPage(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(s.waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("render %s: %w", url, ctxErr)
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// Close stops the browser.
func (s *BrowserPageSource) Close() error {
	s.browserCancel()
	s.allocCancel()
	return nil
}

var (
	_ PageSource = (*HTTPPageSource)(nil)
	_ PageSource = (*BrowserPageSource)(nil)
)
