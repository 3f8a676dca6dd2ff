// Package clustergroup implements the grouping stage: it embeds eligible
// article records, runs the similarity engine and persists the resulting
// group tree. The first pass over a fresh tree clusters everything from
// scratch; every later pass folds the new records and the unmatched pool
// into the existing groups.
package clustergroup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"veritasnews/internal/cluster"
	"veritasnews/internal/domain/entity"
	"veritasnews/internal/infra/store"
	"veritasnews/internal/observability/metrics"
)

// Pass modes, also used as metric labels.
const (
	ModeInitial     = "initial"
	ModeIncremental = "incremental"
)

// Encoder turns texts into embedding vectors, one per input, in order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// CycleLog is the on-disk list of record ids awaiting a clustering pass.
// A pass unions it with the ids handed over in memory and clears it on
// success, so records stranded by an earlier failed pass are retried.
type CycleLog interface {
	ReadNewArticles() ([]string, error)
	WriteNewArticles(recordIDs []string) error
}

// Service runs one clustering pass over the article store.
type Service struct {
	Articles *store.ArticleStore
	Groups   *store.GroupStore
	Cache    *store.EmbeddingCache
	Encoder  Encoder
	Engine   *cluster.Engine
	Cycle    CycleLog
	Logger   *slog.Logger
}

// NewService creates a clustering Service with the provided dependencies.
func NewService(
	articles *store.ArticleStore,
	groups *store.GroupStore,
	cache *store.EmbeddingCache,
	enc Encoder,
	engine *cluster.Engine,
	cycle CycleLog,
	logger *slog.Logger,
) *Service {
	return &Service{
		Articles: articles,
		Groups:   groups,
		Cache:    cache,
		Encoder:  enc,
		Engine:   engine,
		Cycle:    cycle,
		Logger:   logger,
	}
}

// Stats summarizes one clustering pass.
type Stats struct {
	Mode          string
	Pool          int
	GroupsCreated int
	Attached      int
	Unmatched     int
	Duration      time.Duration

	// TouchedGroups lists the ids of groups created or grown this pass,
	// sorted. The objectification stage re-summarizes exactly these.
	TouchedGroups []int
}

// poolEntry is one candidate record with its provenance: records already
// parked in still_unmatched are moved on attachment, fresh ones are copied
// from the article store.
type poolEntry struct {
	id            string
	text          string
	fromUnmatched bool
}

// Run executes one clustering pass. newRecordIDs is the list of records
// the scrape stage stored this cycle, unioned with the on-disk
// new-articles log; the union is ignored on the initial pass, which
// considers every record in the store.
func (s *Service) Run(ctx context.Context, newRecordIDs []string) (*Stats, error) {
	start := time.Now()

	newRecordIDs = s.withLoggedRecords(newRecordIDs)

	hasState, err := s.Groups.HasState()
	if err != nil {
		return nil, err
	}

	var stats *Stats
	if hasState {
		stats, err = s.runIncremental(ctx, newRecordIDs)
	} else {
		stats, err = s.runInitial(ctx)
	}
	if err != nil {
		return nil, err
	}
	stats.Duration = time.Since(start)

	if err := s.Cache.Flush(); err != nil {
		s.Logger.Error("embedding cache flush failed", slog.Any("error", err))
	}
	// Every logged record is now grouped or parked; clear the list so the
	// next pass starts from its own scrape.
	if err := s.Cycle.WriteNewArticles(nil); err != nil {
		s.Logger.Warn("failed to clear new articles log", slog.Any("error", err))
	}
	metrics.RecordClusterPass(stats.Mode, stats.Duration, stats.GroupsCreated, stats.Attached)

	s.Logger.Info("clustering pass completed",
		slog.String("mode", stats.Mode),
		slog.Int("pool", stats.Pool),
		slog.Int("groups_created", stats.GroupsCreated),
		slog.Int("attached", stats.Attached),
		slog.Int("unmatched", stats.Unmatched),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// runInitial clusters every eligible record in the store from scratch.
func (s *Service) runInitial(ctx context.Context) (*Stats, error) {
	ids, err := s.Articles.ListIDs()
	if err != nil {
		return nil, err
	}

	var entries []poolEntry
	for _, id := range ids {
		a, err := s.Articles.Load(id)
		if err != nil {
			return nil, err
		}
		if !a.ClusterEligible() {
			// Short and empty records are parked straight away.
			if err := s.parkUnmatched(id); err != nil {
				return nil, err
			}
			continue
		}
		entries = append(entries, poolEntry{id: id, text: a.EncodingText()})
	}

	items, err := s.resolveItems(ctx, entries)
	if err != nil {
		return nil, err
	}

	res := s.Engine.Initial(items)
	stats := &Stats{Mode: ModeInitial, Pool: len(items), Unmatched: len(res.Unmatched)}

	nextID, err := s.Groups.NextID()
	if err != nil {
		return nil, err
	}
	for _, members := range res.Groups {
		gid := nextID
		nextID++
		for _, id := range members {
			if err := s.copyToGroup(gid, id); err != nil {
				return nil, err
			}
		}
		stats.GroupsCreated++
		stats.TouchedGroups = append(stats.TouchedGroups, gid)
	}
	for _, id := range res.Unmatched {
		if err := s.parkUnmatched(id); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// withLoggedRecords unions the in-memory record ids with the on-disk
// new-articles log. Logged ids no longer present in the article store are
// dropped; an unreadable log is logged and skipped.
func (s *Service) withLoggedRecords(ids []string) []string {
	logged, err := s.Cycle.ReadNewArticles()
	if err != nil {
		s.Logger.Warn("failed to read new articles log", slog.Any("error", err))
		return ids
	}
	if len(logged) == 0 {
		return ids
	}

	seen := make(map[string]struct{}, len(ids)+len(logged))
	out := make([]string, 0, len(ids)+len(logged))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range logged {
		if _, ok := seen[id]; ok {
			continue
		}
		if !s.Articles.Exists(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// runIncremental folds this cycle's new records and the unmatched pool
// into the existing groups.
func (s *Service) runIncremental(ctx context.Context, newRecordIDs []string) (*Stats, error) {
	clusters, err := s.Groups.Groups()
	if err != nil {
		return nil, err
	}
	grouped := make(map[string]struct{})
	for _, c := range clusters {
		for _, id := range c.Members {
			grouped[id] = struct{}{}
		}
	}

	unmatchedIDs, err := s.Groups.Unmatched()
	if err != nil {
		return nil, err
	}
	unmatchedSet := make(map[string]struct{}, len(unmatchedIDs))
	for _, id := range unmatchedIDs {
		unmatchedSet[id] = struct{}{}
	}

	var entries []poolEntry
	for _, id := range unmatchedIDs {
		a, err := s.Groups.LoadUnmatched(id)
		if err != nil {
			return nil, err
		}
		if !a.ClusterEligible() {
			continue
		}
		entries = append(entries, poolEntry{id: id, text: a.EncodingText(), fromUnmatched: true})
	}
	for _, id := range newRecordIDs {
		if _, ok := unmatchedSet[id]; ok {
			continue
		}
		if _, ok := grouped[id]; ok {
			// Already placed by an earlier pass whose log clear failed.
			continue
		}
		a, err := s.Articles.Load(id)
		if err != nil {
			return nil, err
		}
		if !a.ClusterEligible() {
			if err := s.parkUnmatched(id); err != nil {
				return nil, err
			}
			continue
		}
		entries = append(entries, poolEntry{id: id, text: a.EncodingText()})
	}

	pool, err := s.resolveItems(ctx, entries)
	if err != nil {
		return nil, err
	}
	origin := make(map[string]bool, len(entries))
	for _, e := range entries {
		origin[e.id] = e.fromUnmatched
	}

	groups, err := s.loadGroupItems(ctx, clusters)
	if err != nil {
		return nil, err
	}

	res := s.Engine.Incremental(groups, pool)
	stats := &Stats{Mode: ModeIncremental, Pool: len(pool), Unmatched: len(res.Unmatched)}

	touched := make(map[int]struct{})

	// Deterministic persist order: attached items by id.
	attachedIDs := make([]string, 0, len(res.Attached))
	for id := range res.Attached {
		attachedIDs = append(attachedIDs, id)
	}
	sort.Strings(attachedIDs)
	for _, id := range attachedIDs {
		gid := res.Attached[id]
		if err := s.placeInGroup(gid, id, origin[id]); err != nil {
			return nil, err
		}
		touched[gid] = struct{}{}
		stats.Attached++
	}

	nextID, err := s.Groups.NextID()
	if err != nil {
		return nil, err
	}
	for _, members := range res.NewGroups {
		gid := nextID
		nextID++
		for _, id := range members {
			if err := s.placeInGroup(gid, id, origin[id]); err != nil {
				return nil, err
			}
		}
		touched[gid] = struct{}{}
		stats.GroupsCreated++
	}

	// Fresh leftovers are parked; records already unmatched stay in place.
	for _, id := range res.Unmatched {
		if origin[id] {
			continue
		}
		if err := s.parkUnmatched(id); err != nil {
			return nil, err
		}
	}

	for gid := range touched {
		stats.TouchedGroups = append(stats.TouchedGroups, gid)
	}
	sort.Ints(stats.TouchedGroups)
	return stats, nil
}

// loadGroupItems reads the given groups with their member embeddings.
func (s *Service) loadGroupItems(ctx context.Context, clusters []entity.Cluster) ([]cluster.Group, error) {
	groups := make([]cluster.Group, 0, len(clusters))
	for _, c := range clusters {
		entries := make([]poolEntry, 0, len(c.Members))
		for _, id := range c.Members {
			a, err := s.Groups.LoadMember(c.ID, id)
			if err != nil {
				return nil, err
			}
			entries = append(entries, poolEntry{id: id, text: a.EncodingText()})
		}
		items, err := s.resolveItems(ctx, entries)
		if err != nil {
			return nil, err
		}
		groups = append(groups, cluster.Group{ID: c.ID, Members: items})
	}
	return groups, nil
}

// resolveItems turns pool entries into cluster items, serving embeddings
// from the cache and encoding the misses in one batch.
func (s *Service) resolveItems(ctx context.Context, entries []poolEntry) ([]cluster.Item, error) {
	items := make([]cluster.Item, len(entries))
	var missTexts []string
	var missIdx []int

	for i, e := range entries {
		items[i] = cluster.Item{ID: e.id, Text: e.text}
		if vec, ok := s.Cache.Get(e.id); ok {
			items[i].Vec = vec
			metrics.RecordEmbedding(true)
			continue
		}
		missTexts = append(missTexts, e.text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return items, nil
	}

	vecs, err := s.Encoder.Encode(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("encode %d texts: %w", len(missTexts), err)
	}
	for k, i := range missIdx {
		items[i].Vec = vecs[k]
		s.Cache.Put(items[i].ID, vecs[k])
		metrics.RecordEmbedding(false)
	}
	return items, nil
}

// placeInGroup materializes a pool item as a group member, moving it from
// still_unmatched or copying it from the article store.
func (s *Service) placeInGroup(gid int, recordID string, fromUnmatched bool) error {
	if fromUnmatched {
		return s.Groups.PromoteUnmatched(gid, recordID)
	}
	return s.copyToGroup(gid, recordID)
}

func (s *Service) copyToGroup(gid int, recordID string) error {
	data, err := s.Articles.ReadRaw(recordID)
	if err != nil {
		return err
	}
	return s.Groups.AddToGroup(gid, recordID, data)
}

func (s *Service) parkUnmatched(recordID string) error {
	data, err := s.Articles.ReadRaw(recordID)
	if err != nil {
		return err
	}
	return s.Groups.AddUnmatched(recordID, data)
}
