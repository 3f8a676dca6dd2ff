package clustergroup

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"veritasnews/internal/cluster"
	"veritasnews/internal/domain/entity"
	"veritasnews/internal/infra/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEncoder serves preset vectors keyed by exact encoding text.
type fakeEncoder struct {
	vecs  map[string][]float32
	calls int
}

func (f *fakeEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := f.vecs[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = v
	}
	return out, nil
}

// vecAt returns a unit vector at the given angle, so cosine similarity
// between two vectors is the cosine of their angle difference.
func vecAt(deg float64) []float32 {
	r := deg * math.Pi / 180
	return []float32{float32(math.Cos(r)), float32(math.Sin(r))}
}

type fixture struct {
	svc      *Service
	articles *store.ArticleStore
	groups   *store.GroupStore
	enc      *fakeEncoder
	cycle    *store.CycleLog
	cacheP   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	baseDir := t.TempDir()

	articles, err := store.NewArticleStore(filepath.Join(baseDir, "pulled_articles"))
	require.NoError(t, err)
	groups, err := store.NewGroupStore(filepath.Join(baseDir, "grouped_articles_updated"))
	require.NoError(t, err)
	cachePath := filepath.Join(baseDir, "embedding_cache.json")
	cache, err := store.OpenEmbeddingCache(cachePath)
	require.NoError(t, err)
	cycleLog := store.NewCycleLog(
		filepath.Join(baseDir, "scraper_log.txt"),
		filepath.Join(baseDir, "new_articles_log.txt"))

	enc := &fakeEncoder{vecs: make(map[string][]float32)}
	svc := NewService(articles, groups, cache, enc,
		cluster.New(0.75, 0.70), cycleLog, slog.Default())

	return &fixture{svc: svc, articles: articles, groups: groups, enc: enc, cycle: cycleLog, cacheP: cachePath}
}

// addArticle stores an eligible article and registers its vector.
func (f *fixture) addArticle(t *testing.T, title string, deg float64) string {
	t.Helper()
	content := strings.TrimSpace(strings.Repeat(title+" hakkında kelime ", 20))
	a := entity.NewRawArticle("kaynak", "https://example.com/"+title, title, content,
		"gundem", "2026-08-24T10:00:00+03:00", "", time.Now())
	require.True(t, a.ClusterEligible())

	id, err := f.articles.Save(&a)
	require.NoError(t, err)
	f.enc.vecs[a.EncodingText()] = vecAt(deg)
	return id
}

// addShortArticle stores a record below the clustering word floor.
func (f *fixture) addShortArticle(t *testing.T, title string) string {
	t.Helper()
	a := entity.NewRawArticle("kaynak", "https://example.com/"+title, title, "çok kısa metin",
		"gundem", "2026-08-24T10:00:00+03:00", "", time.Now())
	id, err := f.articles.Save(&a)
	require.NoError(t, err)
	return id
}

func TestRun_InitialPass(t *testing.T) {
	f := newFixture(t)
	a := f.addArticle(t, "Deprem", 0)
	b := f.addArticle(t, "Sarsıntı", 20)
	c := f.addArticle(t, "Borsa", 90)
	short := f.addShortArticle(t, "Kısa")

	stats, err := f.svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ModeInitial, stats.Mode)
	assert.Equal(t, 3, stats.Pool)
	assert.Equal(t, 1, stats.GroupsCreated)
	assert.Equal(t, 1, stats.Unmatched)
	assert.Equal(t, []int{1}, stats.TouchedGroups)

	clusters, err := f.groups.Groups()
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, 1, clusters[0].ID)
	assert.ElementsMatch(t, []string{a, b}, clusters[0].Members)

	unmatched, err := f.groups.Unmatched()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c, short}, unmatched)
}

func TestRun_IncrementalAttachAndPromote(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, "Deprem", 0)
	f.addArticle(t, "Sarsıntı", 20)
	farID := f.addArticle(t, "Borsa", 90)

	_, err := f.svc.Run(context.Background(), nil)
	require.NoError(t, err)

	// One new record close to the existing group, one pairing with the
	// record parked in still_unmatched.
	nearID := f.addArticle(t, "Artçı", 10)
	pairID := f.addArticle(t, "Endeks", 88)

	stats, err := f.svc.Run(context.Background(), []string{nearID, pairID})
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, stats.Mode)
	assert.Equal(t, 1, stats.Attached)
	assert.Equal(t, 1, stats.GroupsCreated)
	assert.Equal(t, []int{1, 2}, stats.TouchedGroups)

	clusters, err := f.groups.Groups()
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Contains(t, clusters[0].Members, nearID)
	assert.ElementsMatch(t, []string{farID, pairID}, clusters[1].Members)

	// The promoted record left the unmatched pool.
	unmatched, err := f.groups.Unmatched()
	require.NoError(t, err)
	assert.NotContains(t, unmatched, farID)
}

func TestRun_IncrementalLeavesLonersUnmatched(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, "Deprem", 0)
	f.addArticle(t, "Sarsıntı", 20)

	_, err := f.svc.Run(context.Background(), nil)
	require.NoError(t, err)

	lonerID := f.addArticle(t, "Yalnız", 200)
	stats, err := f.svc.Run(context.Background(), []string{lonerID})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Attached)
	assert.Equal(t, 0, stats.GroupsCreated)
	assert.Equal(t, 1, stats.Unmatched)

	unmatched, err := f.groups.Unmatched()
	require.NoError(t, err)
	assert.Contains(t, unmatched, lonerID)
}

func TestRun_ConsumesOnDiskNewArticlesLog(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, "Deprem", 0)
	f.addArticle(t, "Sarsıntı", 20)

	_, err := f.svc.Run(context.Background(), nil)
	require.NoError(t, err)

	// A record stored by an earlier scrape whose clustering pass never
	// finished is still listed on disk, even though no ids are handed over
	// in memory.
	strandedID := f.addArticle(t, "Artçı", 10)
	require.NoError(t, f.cycle.WriteNewArticles([]string{strandedID}))

	stats, err := f.svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Attached)

	clusters, err := f.groups.Groups()
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Contains(t, clusters[0].Members, strandedID)

	// The pass consumed the list and cleared it.
	logged, err := f.cycle.ReadNewArticles()
	require.NoError(t, err)
	assert.Empty(t, logged)
}

func TestRun_LoggedIDsMissingFromStoreSkipped(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, "Deprem", 0)
	f.addArticle(t, "Sarsıntı", 20)

	_, err := f.svc.Run(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, f.cycle.WriteNewArticles([]string{"kaynak_2026-08-01_Silinmis.json"}))

	stats, err := f.svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pool)
	assert.Equal(t, 0, stats.Attached)
}

func TestRun_EmbeddingsCachedAcrossPasses(t *testing.T) {
	f := newFixture(t)
	f.addArticle(t, "Deprem", 0)
	f.addArticle(t, "Sarsıntı", 20)

	_, err := f.svc.Run(context.Background(), nil)
	require.NoError(t, err)
	callsAfterInitial := f.enc.calls
	assert.Equal(t, 1, callsAfterInitial, "all misses encoded in one batch")

	// The incremental pass reloads the group members; their vectors come
	// from the cache, so only the new record hits the encoder.
	newID := f.addArticle(t, "Artçı", 10)
	_, err = f.svc.Run(context.Background(), []string{newID})
	require.NoError(t, err)
	assert.Equal(t, callsAfterInitial+1, f.enc.calls)

	// The cache survives on disk.
	cache, err := store.OpenEmbeddingCache(f.cacheP)
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Len())
}
