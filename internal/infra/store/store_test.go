package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritasnews/internal/domain/entity"
)

func testArticle(source, title string) *entity.RawArticle {
	a := entity.NewRawArticle(
		source,
		"https://example.com/haber/1",
		title,
		"Uzun bir haber metni burada yer alıyor.",
		"gundem",
		"2026-08-24T10:00:00+03:00",
		"",
		time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	)
	return &a
}

func TestArticleStore_SaveLoad(t *testing.T) {
	s, err := NewArticleStore(t.TempDir())
	require.NoError(t, err)

	a := testArticle("milliyet", "Deprem sonrası son durum")
	id, err := s.Save(a)
	require.NoError(t, err)
	assert.Equal(t, "milliyet_2026-08-24_Deprem_sonrası_son_durum.json", id)
	assert.True(t, s.Exists(id))

	got, err := s.Load(id)
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, a.Content, got.Content)
	assert.Equal(t, a.Source, got.Source)
}

func TestArticleStore_ListIDsSorted(t *testing.T) {
	s, err := NewArticleStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save(testArticle("ntv", "Zirve bitti"))
	require.NoError(t, err)
	_, err = s.Save(testArticle("birgun", "Asgari ücret"))
	require.NoError(t, err)

	ids, err := s.ListIDs()
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])
}

func TestLedger_DiffAndAppend(t *testing.T) {
	l, err := NewLedger(t.TempDir())
	require.NoError(t, err)

	candidates := []string{"https://a/1", "https://a/2", "https://a/3"}

	fresh, err := l.Diff("milliyet", candidates)
	require.NoError(t, err)
	assert.Equal(t, candidates, fresh, "empty ledger passes everything")

	require.NoError(t, l.Append("milliyet", []string{"https://a/1", "https://a/3"}))

	fresh, err = l.Diff("milliyet", candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a/2"}, fresh)
}

func TestLedger_PerSourceIsolation(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLedger(dir)
	require.NoError(t, err)

	require.NoError(t, l.Append("milliyet", []string{"https://a/1"}))

	fresh, err := l.Diff("hurriyet", []string{"https://a/1"})
	require.NoError(t, err)
	assert.Len(t, fresh, 1, "ledgers are per source")

	_, err = os.Stat(filepath.Join(dir, "milliyet_urls.txt"))
	assert.NoError(t, err)
}

func TestGroupStore_Lifecycle(t *testing.T) {
	g, err := NewGroupStore(t.TempDir())
	require.NoError(t, err)

	hasState, err := g.HasState()
	require.NoError(t, err)
	assert.False(t, hasState)

	data := []byte(`{"title":"t","content":"c","url":"u","source":"ntv","genre":"gundem","article_date":"2026-08-24","request_date":"2026-08-24","is_empty":false}`)

	require.NoError(t, g.AddToGroup(3, "a.json", data))
	require.NoError(t, g.AddToGroup(3, "b.json", data))
	require.NoError(t, g.AddUnmatched("c.json", data))

	hasState, err = g.HasState()
	require.NoError(t, err)
	assert.True(t, hasState)

	clusters, err := g.Groups()
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].ID)
	assert.Equal(t, []string{"a.json", "b.json"}, clusters[0].Members)

	unmatched, err := g.Unmatched()
	require.NoError(t, err)
	assert.Equal(t, []string{"c.json"}, unmatched)

	next, err := g.NextID()
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestGroupStore_PromoteUnmatched(t *testing.T) {
	g, err := NewGroupStore(t.TempDir())
	require.NoError(t, err)

	data := []byte(`{"title":"t","content":"c","url":"u","source":"ntv","genre":"g","article_date":"d","request_date":"d","is_empty":false}`)
	require.NoError(t, g.AddUnmatched("x.json", data))
	require.NoError(t, g.PromoteUnmatched(7, "x.json"))

	unmatched, err := g.Unmatched()
	require.NoError(t, err)
	assert.Empty(t, unmatched)

	clusters, err := g.Groups()
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"x.json"}, clusters[0].Members)

	// Promoting again is a no-op: the record is already a member of the
	// target group.
	require.NoError(t, g.PromoteUnmatched(7, "x.json"))

	clusters, err = g.Groups()
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"x.json"}, clusters[0].Members)
}

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedding_cache.json")

	c, err := OpenEmbeddingCache(path)
	require.NoError(t, err)

	_, ok := c.Get("a.json")
	assert.False(t, ok)

	c.Put("a.json", []float32{0.1, 0.2, 0.3})
	require.NoError(t, c.Flush())

	reopened, err := OpenEmbeddingCache(path)
	require.NoError(t, err)
	vec, ok := reopened.Get("a.json")
	require.True(t, ok)
	assert.InDelta(t, 0.2, vec[1], 1e-6)
	assert.Equal(t, 1, reopened.Len())
}

func TestEmbeddingCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedding_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c, err := OpenEmbeddingCache(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}
