package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"veritasnews/internal/domain/entity"
)

const (
	groupPrefix  = "group_"
	unmatchedDir = "still_unmatched"
)

// GroupStore manages the clustered article tree: one group_{N} directory
// per cluster plus a still_unmatched directory for singletons awaiting a
// partner. Member files are copies of the pulled article records, so a
// group directory is self-contained.
type GroupStore struct {
	root string
}

// NewGroupStore opens the group tree, creating the root and the unmatched
// directory if needed.
func NewGroupStore(root string) (*GroupStore, error) {
	if err := os.MkdirAll(filepath.Join(root, unmatchedDir), 0o755); err != nil {
		return nil, fmt.Errorf("create group tree: %w", err)
	}
	return &GroupStore{root: root}, nil
}

// HasState reports whether any clustering has happened yet: at least one
// group directory or one unmatched record exists. A fresh tree triggers
// the initial full clustering pass instead of the incremental one.
func (g *GroupStore) HasState() (bool, error) {
	groups, err := g.Groups()
	if err != nil {
		return false, err
	}
	if len(groups) > 0 {
		return true, nil
	}
	unmatched, err := g.Unmatched()
	if err != nil {
		return false, err
	}
	return len(unmatched) > 0, nil
}

// Groups scans the tree and returns every cluster with its member record
// ids, ordered by group id with members sorted.
func (g *GroupStore) Groups() ([]entity.Cluster, error) {
	entries, err := os.ReadDir(g.root)
	if err != nil {
		return nil, fmt.Errorf("scan group tree: %w", err)
	}

	var clusters []entity.Cluster
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), groupPrefix) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(e.Name(), groupPrefix))
		if err != nil {
			continue
		}
		members, err := g.listJSON(filepath.Join(g.root, e.Name()))
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, entity.Cluster{ID: id, Members: members})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
	return clusters, nil
}

// Unmatched returns the record ids waiting in still_unmatched, sorted.
func (g *GroupStore) Unmatched() ([]string, error) {
	return g.listJSON(filepath.Join(g.root, unmatchedDir))
}

// NextID returns the smallest id greater than every existing group id.
func (g *GroupStore) NextID() (int, error) {
	clusters, err := g.Groups()
	if err != nil {
		return 0, err
	}
	next := 1
	for _, c := range clusters {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	return next, nil
}

// AddToGroup writes a member record into a group directory, creating the
// directory on first use.
func (g *GroupStore) AddToGroup(gid int, recordID string, data []byte) error {
	dir := g.groupDir(gid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create group %d: %w", gid, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, recordID), data); err != nil {
		return fmt.Errorf("write member %s of group %d: %w", recordID, gid, err)
	}
	return nil
}

// AddUnmatched parks a record in still_unmatched.
func (g *GroupStore) AddUnmatched(recordID string, data []byte) error {
	path := filepath.Join(g.root, unmatchedDir, recordID)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write unmatched %s: %w", recordID, err)
	}
	return nil
}

// PromoteUnmatched moves a record from still_unmatched into a group. The
// move is a rename; promoting a record that is already a member of the
// target group is a no-op.
func (g *GroupStore) PromoteUnmatched(gid int, recordID string) error {
	src := filepath.Join(g.root, unmatchedDir, recordID)
	dir := g.groupDir(gid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create group %d: %w", gid, err)
	}
	dst := filepath.Join(dir, recordID)

	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(src)
		return nil
	}
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unmatched record %s not found: %w", recordID, err)
		}
		return fmt.Errorf("promote %s to group %d: %w", recordID, gid, err)
	}
	return nil
}

// LoadMember reads one member record of a group.
func (g *GroupStore) LoadMember(gid int, recordID string) (*entity.RawArticle, error) {
	data, err := os.ReadFile(filepath.Join(g.groupDir(gid), recordID))
	if err != nil {
		return nil, fmt.Errorf("read member %s of group %d: %w", recordID, gid, err)
	}
	return decodeArticle(recordID, data)
}

// LoadUnmatched reads one record from still_unmatched.
func (g *GroupStore) LoadUnmatched(recordID string) (*entity.RawArticle, error) {
	data, err := os.ReadFile(filepath.Join(g.root, unmatchedDir, recordID))
	if err != nil {
		return nil, fmt.Errorf("read unmatched %s: %w", recordID, err)
	}
	return decodeArticle(recordID, data)
}

func (g *GroupStore) groupDir(gid int) string {
	return filepath.Join(g.root, fmt.Sprintf("%s%d", groupPrefix, gid))
}

func (g *GroupStore) listJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}
