package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCycleLog(t *testing.T) (*CycleLog, string) {
	t.Helper()
	dir := t.TempDir()
	l := NewCycleLog(
		filepath.Join(dir, "scraper_log.txt"),
		filepath.Join(dir, "new_articles_log.txt"))
	return l, dir
}

func TestCycleLog_RoundTrip(t *testing.T) {
	l, _ := newCycleLog(t)

	want := []string{
		"milliyet_2026-08-24_Deprem.json",
		"sabah_2026-08-24_Sarsıntı.json",
	}
	require.NoError(t, l.WriteNewArticles(want))

	got, err := l.ReadNewArticles()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("new articles mismatch (-want +got):\n%s", diff)
	}
}

func TestCycleLog_OverwritesPerCycle(t *testing.T) {
	l, _ := newCycleLog(t)

	require.NoError(t, l.WriteNewArticles([]string{"a.json", "b.json"}))
	require.NoError(t, l.WriteNewArticles([]string{"c.json"}))

	got, err := l.ReadNewArticles()
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"c.json"}, got); diff != "" {
		t.Errorf("new articles mismatch (-want +got):\n%s", diff)
	}
}

func TestCycleLog_MissingFileIsEmpty(t *testing.T) {
	l, _ := newCycleLog(t)

	got, err := l.ReadNewArticles()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCycleLog_SummaryAppends(t *testing.T) {
	l, dir := newCycleLog(t)

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.AppendSummary(now, 7))
	require.NoError(t, l.AppendSummary(now.Add(15*time.Minute), 0))

	data, err := os.ReadFile(filepath.Join(dir, "scraper_log.txt"))
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-08-24T12:00:00Z] 7 new articles\n[2026-08-24T12:15:00Z] 0 new articles\n",
		string(data))
}
