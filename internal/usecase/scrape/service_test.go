package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"veritasnews/internal/config"
	"veritasnews/internal/domain/entity"
	"veritasnews/internal/infra/fetcher"
	"veritasnews/internal/infra/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	urls []string
	err  error
}

func (f *fakeDiscoverer) Discover(_ context.Context, _ entity.Source, max int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.urls) > max {
		return f.urls[:max], nil
	}
	return f.urls, nil
}

func testConfig(baseDir string) *config.Config {
	return &config.Config{
		Paths:           config.NewPaths(baseDir),
		MaxCandidates:   300,
		SavePoolSize:    2,
		ListingPoolSize: 2,
	}
}

func testSource(baseURL string) entity.Source {
	return entity.Source{
		Slug:    "testsrc",
		Name:    "Test Source",
		BaseURL: baseURL,
		Profile: []entity.SelectorSet{
			{Title: "h1", Paragraphs: "article p"},
		},
	}
}

func articlePage(title, body string) string {
	return fmt.Sprintf(
		`<html><body><article><h1>%s</h1><p>%s</p></article></body></html>`,
		title, body)
}

func newTestService(t *testing.T, d Discoverer, baseDir string) (*Service, *store.ArticleStore) {
	t.Helper()

	articles, err := store.NewArticleStore(filepath.Join(baseDir, "pulled_articles"))
	require.NoError(t, err)
	ledger, err := store.NewLedger(filepath.Join(baseDir, "pulled_articles"))
	require.NoError(t, err)
	cycle := store.NewCycleLog(
		filepath.Join(baseDir, "scraper_log.txt"),
		filepath.Join(baseDir, "new_articles_log.txt"))

	svc := NewService(d, d, fetcher.New(5*time.Second, 16),
		articles, ledger, cycle, testConfig(baseDir), slog.Default())
	return svc, articles
}

func TestScrapeAll_StoresFreshArticles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/haber/bir", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("Birinci Haber", "Uzun bir haber metni burada."))
	})
	mux.HandleFunc("/haber/iki", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("İkinci Haber", "Bir başka haber metni."))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := &fakeDiscoverer{urls: []string{
		server.URL + "/haber/bir",
		server.URL + "/haber/iki",
	}}

	baseDir := t.TempDir()
	svc, articles := newTestService(t, d, baseDir)
	src := testSource(server.URL)

	stats, err := svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Candidates)
	assert.Equal(t, int64(2), stats.Fresh)
	assert.Equal(t, int64(2), stats.Stored)
	assert.Equal(t, int64(0), stats.FetchErrors)
	assert.Len(t, stats.NewRecordIDs, 2)

	ids, err := articles.ListIDs()
	require.NoError(t, err)
	assert.Equal(t, stats.NewRecordIDs, ids)

	// The cycle log reflects the stored records.
	cycle := store.NewCycleLog(
		filepath.Join(baseDir, "scraper_log.txt"),
		filepath.Join(baseDir, "new_articles_log.txt"))
	logged, err := cycle.ReadNewArticles()
	require.NoError(t, err)
	assert.Equal(t, stats.NewRecordIDs, logged)

	summary, err := os.ReadFile(filepath.Join(baseDir, "scraper_log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "2 new articles")

	// A second pass discovers the same URLs but the ledger filters them out.
	stats, err = svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Fresh)
	assert.Equal(t, int64(0), stats.Stored)
}

func TestScrapeAll_FetchFailureNotLedgered(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/haber/ok", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("Sağlam Haber", "Metin."))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := &fakeDiscoverer{urls: []string{
		server.URL + "/haber/ok",
		server.URL + "/haber/yok", // 404
	}}

	baseDir := t.TempDir()
	svc, _ := newTestService(t, d, baseDir)
	src := testSource(server.URL)

	stats, err := svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Stored)
	assert.Equal(t, int64(1), stats.FetchErrors)

	// The failed URL stays fresh and is retried on the next pass.
	stats, err = svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Fresh)
}

func TestScrapeAll_DuplicateRecordSkipped(t *testing.T) {
	page := articlePage("Aynı Başlık", "Metin.")
	mux := http.NewServeMux()
	mux.HandleFunc("/haber/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/haber/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := &fakeDiscoverer{urls: []string{
		server.URL + "/haber/a",
		server.URL + "/haber/b",
	}}

	baseDir := t.TempDir()
	svc, articles := newTestService(t, d, baseDir)
	src := testSource(server.URL)

	stats, err := svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Stored)

	ids, err := articles.ListIDs()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// Both URLs count as processed, so nothing stays fresh.
	stats, err = svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Fresh)
}

func TestScrapeAll_KeepsUnconsumedLogEntries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/haber/yeni", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("Yeni Haber", "Taze metin."))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := &fakeDiscoverer{urls: []string{server.URL + "/haber/yeni"}}

	baseDir := t.TempDir()
	// An id written by an earlier cycle that no clustering pass consumed.
	stranded := "kaynak_2026-08-20_Eski_Haber.json"
	require.NoError(t, os.WriteFile(
		filepath.Join(baseDir, "new_articles_log.txt"), []byte(stranded+"\n"), 0o644))

	svc, _ := newTestService(t, d, baseDir)
	src := testSource(server.URL)

	stats, err := svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	require.Len(t, stats.NewRecordIDs, 1)

	cycle := store.NewCycleLog(
		filepath.Join(baseDir, "scraper_log.txt"),
		filepath.Join(baseDir, "new_articles_log.txt"))
	logged, err := cycle.ReadNewArticles()
	require.NoError(t, err)
	assert.ElementsMatch(t, append([]string{stranded}, stats.NewRecordIDs...), logged)
}

func TestScrapeAll_DiscoveryFailureSkipsSource(t *testing.T) {
	d := &fakeDiscoverer{err: fmt.Errorf("listing blocked")}

	baseDir := t.TempDir()
	svc, _ := newTestService(t, d, baseDir)
	src := testSource("https://example.com")

	stats, err := svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err, "source failures never abort the pass")
	assert.Equal(t, int64(0), stats.Stored)
	assert.Empty(t, stats.NewRecordIDs)
}

func TestScrapeAll_BlockedPageRecorded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/haber/engel", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><title>Access Denied</title><body>Checking your browser</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := &fakeDiscoverer{urls: []string{server.URL + "/haber/engel"}}

	baseDir := t.TempDir()
	svc, articles := newTestService(t, d, baseDir)
	src := testSource(server.URL)

	stats, err := svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Stored)

	a, err := articles.Load(stats.NewRecordIDs[0])
	require.NoError(t, err)
	assert.True(t, a.IsEmpty)
	assert.Equal(t, "Blocked by site", a.Error)

	// The URL is ledgered so the interstitial is not hammered every cycle.
	stats, err = svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Fresh)
}

func TestScrapeAll_EmptyContentStored(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/haber/bos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Sadece Başlık</h1></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := &fakeDiscoverer{urls: []string{server.URL + "/haber/bos"}}

	baseDir := t.TempDir()
	svc, articles := newTestService(t, d, baseDir)
	src := testSource(server.URL)

	stats, err := svc.ScrapeAll(context.Background(), []entity.Source{src})
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Stored)
	assert.Equal(t, int64(1), stats.Empty)

	a, err := articles.Load(stats.NewRecordIDs[0])
	require.NoError(t, err)
	assert.True(t, a.IsEmpty)
	assert.Equal(t, "Sadece Başlık", a.Title)
}
