// Package store implements the filesystem persistence of the pipeline:
// article JSON records, per-source URL ledgers, the group directory tree
// and the embedding cache. Everything lives under one base directory so a
// deployment is a single movable folder.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"veritasnews/internal/domain/entity"
)

// ArticleStore persists RawArticle records as one JSON file each, named by
// the record id.
type ArticleStore struct {
	dir string
}

// NewArticleStore opens (and creates if needed) the article directory.
func NewArticleStore(dir string) (*ArticleStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create article dir: %w", err)
	}
	return &ArticleStore{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *ArticleStore) Dir() string {
	return s.dir
}

// Save writes the record and returns its id. Writes go through a temp file
// and rename so a crash never leaves a truncated record.
func (s *ArticleStore) Save(a *entity.RawArticle) (string, error) {
	id := a.RecordID()
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal article %s: %w", id, err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, id), data); err != nil {
		return "", fmt.Errorf("write article %s: %w", id, err)
	}
	return id, nil
}

// Exists reports whether a record with this id is already on disk.
func (s *ArticleStore) Exists(recordID string) bool {
	_, err := os.Stat(filepath.Join(s.dir, recordID))
	return err == nil
}

// Load reads one record by id.
func (s *ArticleStore) Load(recordID string) (*entity.RawArticle, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, recordID))
	if err != nil {
		return nil, fmt.Errorf("read article %s: %w", recordID, err)
	}
	return decodeArticle(recordID, data)
}

func decodeArticle(recordID string, data []byte) (*entity.RawArticle, error) {
	var a entity.RawArticle
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode article %s: %w", recordID, err)
	}
	return &a, nil
}

// ReadRaw returns the record bytes unparsed, for copying into group
// directories without a decode round trip.
func (s *ArticleStore) ReadRaw(recordID string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, recordID))
}

// ListIDs returns every record id in the store, sorted. Sorting makes every
// scan of the store deterministic regardless of directory order.
func (s *ArticleStore) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan article dir: %w", err)
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

// writeFileAtomic writes data to path via a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
