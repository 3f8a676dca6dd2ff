package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritasnews/internal/resilience/retry"
)

func TestGet_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>merhaba</html>"))
	}))
	defer server.Close()

	c := New(5*time.Second, 4)
	body, err := c.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>merhaba</html>", string(body))
	assert.Equal(t, DesktopUserAgent, gotUA)
}

func TestGet_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := New(5*time.Second, 4)
	_, err := c.Get(context.Background(), server.URL)
	require.Error(t, err)

	var httpErr *retry.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.False(t, retry.IsRetryable(err), "403 is not retryable")
}

func TestGet_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := New(5*time.Second, 4)
	_, err := c.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, retry.IsRetryable(err))
}

func TestGet_InvalidURL(t *testing.T) {
	c := New(time.Second, 1)

	_, err := c.Get(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(5*time.Second, 1)
	_, err := c.Get(ctx, server.URL)
	assert.Error(t, err)
}

func TestLimiterReuse(t *testing.T) {
	c := New(time.Second, 1)

	l1 := c.limiterFor("example.com")
	l2 := c.limiterFor("example.com")
	assert.Same(t, l1, l2)

	other := c.limiterFor("other.com")
	assert.NotSame(t, l1, other)
}
