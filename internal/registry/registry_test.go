package registry

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritasnews/internal/domain/entity"
)

func TestAll_ValidAndOrdered(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)

	for _, s := range all {
		assert.NoError(t, s.Validate(), "source %s", s.Slug)
	}

	assert.True(t, sort.SliceIsSorted(all, func(i, j int) bool {
		return all[i].Slug < all[j].Slug
	}))
}

func TestGet(t *testing.T) {
	s, err := Get("cnnturk")
	require.NoError(t, err)
	assert.Equal(t, "https://www.cnnturk.com/", s.BaseURL)
	assert.NotEmpty(t, s.Profile, "cnnturk has a custom extraction profile")

	_, err = Get("nope")
	assert.Error(t, err)
}

func TestHaberturkGenreOverride(t *testing.T) {
	s, err := Get("haberturk")
	require.NoError(t, err)
	assert.Equal(t, "unknown", s.GenreFromURL("https://www.haberturk.com/ekonomi/haber-123"))
}

func TestSendikaTitleSelector(t *testing.T) {
	s, err := Get("sendika")
	require.NoError(t, err)
	require.NotEmpty(t, s.Profile)
	assert.Equal(t, "h3.title", s.Profile[0].Title)
}

func TestRSSSourcesUseRSSMode(t *testing.T) {
	s, err := Get("sozcu")
	require.NoError(t, err)
	assert.Equal(t, entity.DiscoveryRSS, s.Mode())
}

func TestPatternsDisjoint(t *testing.T) {
	// A reject pattern that also accepts would make filtering order-dependent.
	for _, r := range RejectPatterns {
		for _, a := range AcceptPatterns {
			assert.False(t, strings.Contains(a, r), "accept %q contains reject %q", a, r)
		}
	}
}
