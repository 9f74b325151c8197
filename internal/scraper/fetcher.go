package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"spimex/internal/config"
	"spimex/internal/infrastructure"
)

const (
	itemSelector = "div.accordeon-inner__wrap-item"
	yearDigits   = 4
)

// ErrNoFileName is returned when a document URL has no usable last path
// segment.
var ErrNoFileName = errors.New("document url has no file name")

// Fetcher downloads trading results documents into the staging directory.
type Fetcher struct {
	cfg     config.FetcherConfig
	pages   PageSource
	client  *resty.Client
	limiter *rate.Limiter
	base    *url.URL
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewFetcher creates a fetcher. pages supplies index page HTML and client
// performs the document downloads.
func NewFetcher(cfg config.FetcherConfig, pages PageSource, client *resty.Client, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) (*Fetcher, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	f := &Fetcher{
		cfg:     cfg,
		pages:   pages,
		client:  client,
		base:    base,
		logger:  infrastructure.WithComponent(logger, "fetcher"),
		metrics: metrics,
	}
	if cfg.DownloadRPS > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.DownloadRPS), 1)
	}
	return f, nil
}

// FetchAll fetches every index page in the configured range, collects the
// accepted document links and downloads them. It returns the local paths
// of the documents that were written. Page and download failures are
// logged and skipped; the only error is cancellation of ctx.
func (f *Fetcher) FetchAll(ctx context.Context) ([]string, error) {
	start := time.Now()

	links := f.collectLinks(ctx)
	urls := DedupeByFileName(links)

	f.logger.InfoContext(ctx, "document links collected",
		slog.Int("links", len(links)),
		slog.Int("unique", len(urls)))

	paths := f.downloadAll(ctx, urls)

	f.logger.InfoContext(ctx, "documents fetched",
		slog.Int("downloaded", len(paths)),
		slog.Int("failed", len(urls)-len(paths)),
		slog.Duration("duration", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return paths, err
	}
	return paths, nil
}

func (f *Fetcher) collectLinks(ctx context.Context) []string {
	count := f.cfg.LastPage - f.cfg.FirstPage + 1
	if count < 1 {
		return nil
	}
	perPage := make([][]string, count)

	var g errgroup.Group
	for i := 0; i < count; i++ {
		page := f.cfg.FirstPage + i
		g.Go(func() error {
			html, err := f.FetchIndexPage(ctx, page)
			if err != nil {
				f.logger.WarnContext(ctx, "index page skipped",
					slog.Int("page", page),
					slog.String("error", err.Error()))
				return nil
			}
			links, err := f.ExtractDocumentLinks(html)
			if err != nil {
				f.logger.WarnContext(ctx, "index page unreadable",
					slog.Int("page", page),
					slog.String("error", err.Error()))
				return nil
			}
			perPage[i] = links
			return nil
		})
	}
	_ = g.Wait()

	var links []string
	for _, l := range perPage {
		links = append(links, l...)
	}
	return links
}

func (f *Fetcher) downloadAll(ctx context.Context, urls []string) []string {
	results := make([]string, len(urls))

	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			p, err := f.DownloadOne(ctx, u)
			if err != nil {
				f.logger.WarnContext(ctx, "download failed",
					slog.String("url", u),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = p
			return nil
		})
	}
	_ = g.Wait()

	paths := make([]string, 0, len(results))
	for _, p := range results {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// FetchIndexPage returns the HTML of one index page, bounded by the page
// timeout.
func (f *Fetcher) FetchIndexPage(ctx context.Context, page int) (string, error) {
	if f.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.PageTimeout)
		defer cancel()
	}

	html, err := f.pages.FetchPage(ctx, f.cfg.IndexURL+strconv.Itoa(page))
	f.metrics.RecordPageFetch(ctx, err == nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}
	return html, nil
}

// ExtractDocumentLinks returns the absolute URLs of the documents listed on
// an index page. Only the first PerPage items are considered, and an item
// is kept when the trailing year of its label is after MinYear.
func (f *Fetcher) ExtractDocumentLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	var links []string
	doc.Find(itemSelector).EachWithBreak(func(i int, item *goquery.Selection) bool {
		if f.cfg.PerPage > 0 && i >= f.cfg.PerPage {
			return false
		}

		label := strings.TrimSpace(item.Find("span").First().Text())
		year, ok := trailingYear(label)
		if !ok {
			f.logger.Debug("item without year skipped", slog.String("label", label))
			return true
		}
		if year <= f.cfg.MinYear {
			return true
		}

		href, ok := item.Find("a[href]").First().Attr("href")
		if !ok {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			f.logger.Debug("bad document link skipped", slog.String("href", href))
			return true
		}
		links = append(links, f.base.ResolveReference(ref).String())
		return true
	})

	return links, nil
}

func trailingYear(label string) (int, bool) {
	if len(label) < yearDigits {
		return 0, false
	}
	year, err := strconv.Atoi(label[len(label)-yearDigits:])
	if err != nil {
		return 0, false
	}
	return year, true
}

// DownloadOne saves the document at rawURL into the staging directory and
// returns its path. The file name is the last path segment of the URL.
func (f *Fetcher) DownloadOne(ctx context.Context, rawURL string) (string, error) {
	name, err := FileNameFromURL(rawURL)
	if err != nil {
		return "", err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	if f.cfg.DownloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.DownloadTimeout)
		defer cancel()
	}

	dest := filepath.Join(f.cfg.StagingDir, name)
	written, err := f.download(ctx, rawURL, dest)
	f.metrics.RecordDownload(ctx, err == nil)
	if err != nil {
		return "", err
	}

	f.logger.InfoContext(ctx, "document saved",
		slog.String("file", dest),
		slog.Int64("size_bytes", written))
	return dest, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create staging dir: %w", err)
	}

	resp, err := f.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(rawURL)
	if resp != nil && resp.RawBody() != nil {
		defer resp.RawBody().Close()
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", rawURL, err)
	}
	if !isSuccess(resp.StatusCode()) {
		return 0, fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, rawURL, resp.Status())
	}

	// dest only appears once the body is complete.
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.RawBody())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("rename %s: %w", dest, err)
	}
	return written, nil
}

// FileNameFromURL returns the last path segment of rawURL with any query
// or fragment removed.
func FileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: %s", ErrNoFileName, rawURL)
	}
	return name, nil
}

// DedupeByFileName keeps the first URL for every distinct file name, in
// input order. URLs without a file name are dropped.
func DedupeByFileName(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		name, err := FileNameFromURL(u)
		if err != nil {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, u)
	}
	return out
}
