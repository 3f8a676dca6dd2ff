package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritasnews/internal/domain/entity"
	"veritasnews/internal/infra/fetcher"
)

func listingTestSource(serverURL string) entity.Source {
	return entity.Source{Slug: "testsite", Name: "Test Site", BaseURL: serverURL + "/"}
}

func newListingForTest(maxPages, stagnation int) *ListingDiscoverer {
	return NewListing(fetcher.New(5*time.Second, 16), maxPages, stagnation)
}

func TestListingDiscover_CollectsAcrossPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}
		fmt.Fprintf(w, `<html><body>
			<a href="/gundem/haber-%s-a">A</a>
			<a href="/gundem/haber-%s-b">B</a>
			<a href="/galeri/foto-%s">gallery</a>
			<a href="/hakkimizda">about</a>
		</body></html>`, page, page, page)
	}))
	defer server.Close()

	d := newListingForTest(3, 2)
	urls, err := d.Discover(context.Background(), listingTestSource(server.URL), 100)
	require.NoError(t, err)

	assert.Len(t, urls, 6, "two article links per page, three pages")
	assert.Equal(t, server.URL+"/gundem/haber-1-a", urls[0])
	assert.Equal(t, server.URL+"/gundem/haber-3-b", urls[5])
}

func TestListingDiscover_CapsCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 20; i++ {
			fmt.Fprintf(w, `<a href="/haber/item-%s-%d">x</a>`, r.URL.Query().Get("page"), i)
		}
	}))
	defer server.Close()

	d := newListingForTest(10, 6)
	urls, err := d.Discover(context.Background(), listingTestSource(server.URL), 5)
	require.NoError(t, err)
	assert.Len(t, urls, 5)
}

func TestListingDiscover_StopsOnStagnation(t *testing.T) {
	var pagesServed int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		// Every page repeats the same two links, so only page 1 adds URLs.
		fmt.Fprint(w, `<a href="/haber/sabit-1">a</a><a href="/haber/sabit-2">b</a>`)
	}))
	defer server.Close()

	d := newListingForTest(10, 2)
	urls, err := d.Discover(context.Background(), listingTestSource(server.URL), 100)
	require.NoError(t, err)

	assert.Len(t, urls, 2)
	assert.Equal(t, 3, pagesServed, "page 1 adds, pages 2 and 3 stagnate, then stop")
}

func TestListingDiscover_BlockedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>Access Denied</body></html>`)
	}))
	defer server.Close()

	d := newListingForTest(10, 6)
	urls, err := d.Discover(context.Background(), listingTestSource(server.URL), 100)
	require.NoError(t, err, "blocked crawl yields partial (empty) result, not an error")
	assert.Empty(t, urls)
}

func TestListingDiscover_KeepsPartialOnLaterFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `<a href="/haber/ilk-sayfa">a</a>`)
	}))
	defer server.Close()

	d := newListingForTest(5, 3)
	urls, err := d.Discover(context.Background(), listingTestSource(server.URL), 100)
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestPaginate(t *testing.T) {
	base, err := url.Parse("https://www.ntv.com.tr/son-dakika")
	require.NoError(t, err)

	assert.Equal(t, "https://www.ntv.com.tr/son-dakika", paginate(base, 1))
	assert.Equal(t, "https://www.ntv.com.tr/son-dakika?page=4", paginate(base, 4))
}

func TestLooksBlocked(t *testing.T) {
	assert.True(t, Blocked([]byte("<html>Checking your browser... cloudflare</html>")))
	assert.False(t, Blocked([]byte("<html><a href='/haber/x'>normal page</a></html>")))

	big := make([]byte, blockCheckMaxLen+1)
	copy(big, []byte("access denied"))
	assert.False(t, Blocked(big), "large bodies are real pages")
}
