package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritasnews/internal/domain/entity"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item><title>Birinci haber</title><link>https://example.com/haber/1</link></item>
    <item><title>Ikinci haber</title><link>https://example.com/haber/2</link></item>
    <item><title>Tekrar</title><link>https://example.com/haber/1</link></item>
  </channel>
</rss>`

func TestRSSDiscover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer server.Close()

	src := entity.Source{
		Slug: "sozcu", Name: "Sözcü", BaseURL: "https://www.sozcu.com.tr/",
		RSSURLs: []string{server.URL},
	}

	d := NewRSS(&http.Client{Timeout: 5 * time.Second})
	urls, err := d.Discover(context.Background(), src, 100)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/haber/1",
		"https://example.com/haber/2",
	}, urls, "duplicates collapse in first-seen order")
}

func TestRSSDiscover_Cap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	defer server.Close()

	src := entity.Source{
		Slug: "sozcu", BaseURL: "https://www.sozcu.com.tr/",
		RSSURLs: []string{server.URL},
	}

	d := NewRSS(&http.Client{Timeout: 5 * time.Second})
	urls, err := d.Discover(context.Background(), src, 1)
	require.NoError(t, err)
	assert.Len(t, urls, 1)
}

func TestRSSDiscover_NoFeeds(t *testing.T) {
	d := NewRSS(http.DefaultClient)
	_, err := d.Discover(context.Background(), entity.Source{Slug: "milliyet"}, 10)
	assert.Error(t, err)
}
