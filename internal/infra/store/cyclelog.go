package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// CycleLog maintains the two operator-facing text logs: the append-only
// scrape summary and the list of stored record ids awaiting a clustering
// pass. The scrape stage rewrites the list each cycle and the clustering
// stage clears it once every listed record is grouped or parked.
type CycleLog struct {
	summaryPath     string
	newArticlesPath string
}

// NewCycleLog creates a CycleLog writing to the given file paths.
func NewCycleLog(summaryPath, newArticlesPath string) *CycleLog {
	return &CycleLog{
		summaryPath:     summaryPath,
		newArticlesPath: newArticlesPath,
	}
}

// WriteNewArticles replaces the new-articles list with the given record
// ids, one per line.
func (l *CycleLog) WriteNewArticles(recordIDs []string) error {
	var b strings.Builder
	for _, id := range recordIDs {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	if err := writeFileAtomic(l.newArticlesPath, []byte(b.String())); err != nil {
		return fmt.Errorf("write new articles log: %w", err)
	}
	return nil
}

// ReadNewArticles returns the record ids of the last scrape. A missing
// file yields an empty list.
func (l *CycleLog) ReadNewArticles() ([]string, error) {
	f, err := os.Open(l.newArticlesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open new articles log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read new articles log: %w", err)
	}
	return ids, nil
}

// AppendSummary appends one cycle summary line to the scrape log.
func (l *CycleLog) AppendSummary(now time.Time, newArticles int) error {
	f, err := os.OpenFile(l.summaryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open scrape log: %w", err)
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("[%s] %d new articles\n", now.Format(time.RFC3339), newArticles)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append scrape log: %w", err)
	}
	return nil
}
