package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spimex/internal/config"
	"spimex/internal/shared/testutil"
)

func indexItem(label, href string) string {
	return fmt.Sprintf(`<div class="accordeon-inner__wrap-item"><a href="%s">Бюллетень</a><span>%s</span></div>`, href, label)
}

func indexPage(items ...string) string {
	return "<html><body><div class=\"accordeon-inner\">" + strings.Join(items, "") + "</div></body></html>"
}

func testConfig(serverURL, staging string) config.FetcherConfig {
	return config.FetcherConfig{
		BaseURL:     serverURL,
		IndexURL:    serverURL + "/results/?page=page-",
		FirstPage:   1,
		LastPage:    2,
		PerPage:     10,
		MinYear:     2022,
		PageTimeout: 2 * time.Second,
		StagingDir:  staging,
	}
}

func newTestFetcher(t *testing.T, cfg config.FetcherConfig) *Fetcher {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	client := NewHTTPClient("spimex-test")
	f, err := NewFetcher(cfg, NewHTTPPageSource(client), client, logger, nil)
	require.NoError(t, err)
	return f
}

func TestExtractDocumentLinks(t *testing.T) {
	f := newTestFetcher(t, testConfig("https://spimex.com", t.TempDir()))

	html := indexPage(
		indexItem("Дата торгов: 01.06.2023", "/upload/reports/oil_xls/oil_xls_20230601162000.xls?r=1"),
		indexItem("Дата торгов: 30.12.2022", "/upload/reports/oil_xls/oil_xls_20221230162000.xls"),
		indexItem("без даты", "/upload/reports/oil_xls/oil_xls_none.xls"),
		indexItem("Дата торгов: 02.01.2024", "https://cdn.example.com/oil_xls_20240102162000.xls"),
	)

	links, err := f.ExtractDocumentLinks(html)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://spimex.com/upload/reports/oil_xls/oil_xls_20230601162000.xls?r=1",
		"https://cdn.example.com/oil_xls_20240102162000.xls",
	}, links)
}

func TestExtractDocumentLinksHonorsPerPage(t *testing.T) {
	cfg := testConfig("https://spimex.com", t.TempDir())
	cfg.PerPage = 2
	f := newTestFetcher(t, cfg)

	var items []string
	for i := 0; i < 5; i++ {
		items = append(items, indexItem("01.06.2023", fmt.Sprintf("/doc%d.xls", i)))
	}

	links, err := f.ExtractDocumentLinks(indexPage(items...))
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://spimex.com/upload/oil_xls_20230601.xls?r=5", "oil_xls_20230601.xls", false},
		{"https://spimex.com/a/b/c.xlsx#frag", "c.xlsx", false},
		{"https://spimex.com/", "", true},
		{"https://spimex.com", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := FileNameFromURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoFileName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDedupeByFileName(t *testing.T) {
	got := DedupeByFileName([]string{
		"https://a.example/x/one.xls?v=1",
		"https://b.example/y/one.xls?v=2",
		"https://a.example/two.xls",
		"https://a.example/",
	})
	assert.Equal(t, []string{"https://a.example/x/one.xls?v=1", "https://a.example/two.xls"}, got)
}

type archive struct {
	pageHits atomic.Int32
	docHits  atomic.Int32
}

func (a *archive) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/results/", func(w http.ResponseWriter, r *http.Request) {
		a.pageHits.Add(1)
		switch r.URL.Query().Get("page") {
		case "page-1":
			fmt.Fprint(w, indexPage(
				indexItem("01.06.2023", "/docs/a.xls?r=1"),
				indexItem("02.06.2023", "/docs/b.xls"),
				indexItem("15.12.2021", "/docs/old.xls"),
			))
		case "page-2":
			fmt.Fprint(w, indexPage(
				indexItem("01.06.2023", "/docs/a.xls?r=2"),
				indexItem("05.06.2023", "/docs/missing.xls"),
			))
		default:
			http.Error(w, "down", http.StatusBadGateway)
		}
	})
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		a.docHits.Add(1)
		if strings.HasSuffix(r.URL.Path, "missing.xls") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "content of %s", filepath.Base(r.URL.Path))
	})
	return mux
}

func TestFetchAll(t *testing.T) {
	arc := &archive{}
	srv := httptest.NewServer(arc.handler(t))
	defer srv.Close()

	staging := t.TempDir()
	cfg := testConfig(srv.URL, staging)
	cfg.LastPage = 3
	f := newTestFetcher(t, cfg)

	paths, err := f.FetchAll(context.Background())
	require.NoError(t, err)

	sort.Strings(paths)
	assert.Equal(t, []string{
		filepath.Join(staging, "a.xls"),
		filepath.Join(staging, "b.xls"),
	}, paths)
	assert.Equal(t, int32(3), arc.pageHits.Load())
	assert.Equal(t, int32(3), arc.docHits.Load(), "a.xls once, b.xls, missing.xls")

	data, err := os.ReadFile(filepath.Join(staging, "a.xls"))
	require.NoError(t, err)
	assert.Equal(t, "content of a.xls", string(data))

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "failed downloads leave no partial files")
}

func TestFetchIndexPageTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL, t.TempDir())
	cfg.PageTimeout = 50 * time.Millisecond
	f := newTestFetcher(t, cfg)

	_, err := f.FetchIndexPage(context.Background(), 1)
	assert.Error(t, err)
}

func TestFetchIndexPageStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig(srv.URL, t.TempDir()))
	_, err := f.FetchIndexPage(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestFetchAllCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, indexPage())
	}))
	defer srv.Close()

	f := newTestFetcher(t, testConfig(srv.URL, t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paths, err := f.FetchAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, paths)
}

func TestDownloadOneRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "x")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL, t.TempDir())
	cfg.DownloadRPS = 1000
	f := newTestFetcher(t, cfg)
	require.NotNil(t, f.limiter)

	p, err := f.DownloadOne(context.Background(), srv.URL+"/docs/one.xls")
	require.NoError(t, err)
	assert.FileExists(t, p)
}

type stubPages map[string]string

func (s stubPages) FetchPage(_ context.Context, url string) (string, error) {
	html, ok := s[url]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedStatus, url)
	}
	return html, nil
}

func TestFetcherUsesPageSource(t *testing.T) {
	cfg := testConfig("https://spimex.com", t.TempDir())
	cfg.LastPage = 1
	logger, _ := testutil.NewTestLogger(t)

	pages := stubPages{cfg.IndexURL + "1": indexPage(indexItem("01.06.2023", "/doc.xls"))}
	f, err := NewFetcher(cfg, pages, NewHTTPClient(""), logger, nil)
	require.NoError(t, err)

	html, err := f.FetchIndexPage(context.Background(), 1)
	require.NoError(t, err)
	links, err := f.ExtractDocumentLinks(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://spimex.com/doc.xls"}, links)
}
