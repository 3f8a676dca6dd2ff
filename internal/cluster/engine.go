package cluster

import (
	"runtime"
	"sort"
	"sync"
)

// Item is one clusterable article: its record id, the text fed to the
// encoder (used for the duplicate guard) and its embedding.
type Item struct {
	ID   string
	Text string
	Vec  []float32
}

// Group is an existing cluster with its member items.
type Group struct {
	ID      int
	Members []Item
}

// Engine groups items by embedding similarity. Two thresholds govern it:
// the match threshold gates pairing and attachment, and the internal
// threshold is the weakest pairwise similarity tolerated inside a group.
type Engine struct {
	matchThreshold    float64
	internalThreshold float64
}

// New creates an Engine with the given thresholds.
func New(matchThreshold, internalThreshold float64) *Engine {
	return &Engine{
		matchThreshold:    matchThreshold,
		internalThreshold: internalThreshold,
	}
}

// InitialResult is the outcome of a full clustering pass.
type InitialResult struct {
	// Groups holds the member ids of each formed group, ordered by the
	// smallest member id. Callers assign directory ids in this order.
	Groups [][]string
	// Unmatched holds the ids that ended up in no group.
	Unmatched []string
}

// Initial clusters every item from scratch: all pairs above the match
// threshold are merged into components, and a component survives only if
// it has at least two members and every internal pair clears the internal
// threshold. Items are sorted by id first so the result is deterministic.
func (e *Engine) Initial(items []Item) InitialResult {
	items = sortedCopy(items)
	n := len(items)

	edges := e.parallelEdges(items)
	uf := newUnionFind(n)
	for _, p := range edges {
		uf.union(p[0], p[1])
	}

	var res InitialResult
	for _, comp := range uf.components() {
		if len(comp) >= 2 && e.internallyCoherent(items, comp) {
			res.Groups = append(res.Groups, idsOf(items, comp))
		} else {
			for _, i := range comp {
				res.Unmatched = append(res.Unmatched, items[i].ID)
			}
		}
	}
	sort.Strings(res.Unmatched)
	return res
}

// IncrementalResult is the outcome of folding new items into existing
// groups.
type IncrementalResult struct {
	// Attached maps item ids to the existing group they joined.
	Attached map[string]int
	// NewGroups holds the member ids of freshly formed groups, ordered by
	// smallest member id.
	NewGroups [][]string
	// Unmatched holds the ids that joined nothing.
	Unmatched []string
}

// Incremental processes the pool (new items plus previously unmatched
// ones) in id order. Each item first tries to attach to an existing group:
// its similarity to a group is the MINIMUM over the group's members, so
// one outlier member vetoes the attachment. The best group wins if it
// clears the match threshold, smallest group id breaking ties. Attached
// items immediately count as members for the items after them.
//
// Whatever remains is paired among itself like the initial pass, except
// that two items with identical encoder text never pair: republished
// agency copy would otherwise form degenerate single-story groups.
func (e *Engine) Incremental(groups []Group, pool []Item) IncrementalResult {
	pool = sortedCopy(pool)
	groups = append([]Group(nil), groups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })

	res := IncrementalResult{Attached: make(map[string]int)}

	var residual []Item
	for _, item := range pool {
		gi := e.bestGroup(groups, item)
		if gi < 0 {
			residual = append(residual, item)
			continue
		}
		res.Attached[item.ID] = groups[gi].ID
		groups[gi].Members = append(groups[gi].Members, item)
	}

	n := len(residual)
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if residual[i].Text == residual[j].Text {
				continue
			}
			if Cosine(residual[i].Vec, residual[j].Vec) >= e.matchThreshold {
				uf.union(i, j)
			}
		}
	}

	for _, comp := range uf.components() {
		if len(comp) >= 2 && e.internallyCoherent(residual, comp) {
			res.NewGroups = append(res.NewGroups, idsOf(residual, comp))
		} else {
			for _, i := range comp {
				res.Unmatched = append(res.Unmatched, residual[i].ID)
			}
		}
	}
	sort.Strings(res.Unmatched)
	return res
}

// bestGroup returns the index of the group the item should join, or -1.
// Groups are pre-sorted by id, and the comparison is strict, so ties keep
// the smallest group id.
func (e *Engine) bestGroup(groups []Group, item Item) int {
	best := -1
	bestSim := 0.0
	for gi, g := range groups {
		if len(g.Members) == 0 {
			continue
		}
		sim := minSimilarity(g.Members, item)
		if sim >= e.matchThreshold && sim > bestSim {
			best = gi
			bestSim = sim
		}
	}
	return best
}

// minSimilarity is the weakest link between the item and any group member.
func minSimilarity(members []Item, item Item) float64 {
	min := 1.0
	for _, m := range members {
		if sim := Cosine(item.Vec, m.Vec); sim < min {
			min = sim
		}
	}
	return min
}

// internallyCoherent checks that every pair inside a component clears the
// internal threshold.
func (e *Engine) internallyCoherent(items []Item, comp []int) bool {
	for i := 0; i < len(comp); i++ {
		for j := i + 1; j < len(comp); j++ {
			if Cosine(items[comp[i]].Vec, items[comp[j]].Vec) < e.internalThreshold {
				return false
			}
		}
	}
	return true
}

// parallelEdges computes all index pairs above the match threshold. Rows
// are fanned out across CPUs; each worker owns its row slice so no locking
// is needed.
func (e *Engine) parallelEdges(items []Item) [][2]int {
	n := len(items)
	rowEdges := make([][][2]int, n)

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	rows := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range rows {
				for j := i + 1; j < n; j++ {
					if Cosine(items[i].Vec, items[j].Vec) >= e.matchThreshold {
						rowEdges[i] = append(rowEdges[i], [2]int{i, j})
					}
				}
			}
		}()
	}
	for i := 0; i < n; i++ {
		rows <- i
	}
	close(rows)
	wg.Wait()

	var edges [][2]int
	for _, row := range rowEdges {
		edges = append(edges, row...)
	}
	return edges
}

func sortedCopy(items []Item) []Item {
	out := append([]Item(nil), items...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func idsOf(items []Item, comp []int) []string {
	ids := make([]string, 0, len(comp))
	for _, i := range comp {
		ids = append(ids, items[i].ID)
	}
	return ids
}
