package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"veritasnews/internal/domain/entity"
)

// Ledger tracks which URLs have been processed per source, one append-only
// text file per source next to the article records. A URL present in the
// ledger is never fetched again; failed fetches are deliberately not
// recorded so they retry on the next cycle.
type Ledger struct {
	dir string
}

// NewLedger opens the ledger directory, creating it if needed.
func NewLedger(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &Ledger{dir: dir}, nil
}

func (l *Ledger) path(slug string) string {
	return filepath.Join(l.dir, entity.SafeSlug(slug)+"_urls.txt")
}

// Known loads the processed URL set of a source. A missing ledger file
// means a fresh source and yields an empty set.
func (l *Ledger) Known(slug string) (map[string]struct{}, error) {
	f, err := os.Open(l.path(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("open ledger for %s: %w", slug, err)
	}
	defer func() { _ = f.Close() }()

	known := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			known[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger for %s: %w", slug, err)
	}
	return known, nil
}

// Diff returns the candidates not yet in the ledger, preserving order.
func (l *Ledger) Diff(slug string, candidates []string) ([]string, error) {
	known, err := l.Known(slug)
	if err != nil {
		return nil, err
	}
	var fresh []string
	for _, u := range candidates {
		if _, ok := known[u]; !ok {
			fresh = append(fresh, u)
		}
	}
	return fresh, nil
}

// Append records URLs as processed. The file is opened in append mode so
// concurrent cycles for different sources never clobber each other.
func (l *Ledger) Append(slug string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	f, err := os.OpenFile(l.path(slug), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for %s: %w", slug, err)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	for _, u := range urls {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append ledger for %s: %w", slug, err)
	}
	return nil
}
