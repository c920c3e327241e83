package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	return m.stats
}

func TestCollectorCollect(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "media.db")
	if err := os.WriteFile(dbPath, make([]byte, 128), 0o644); err != nil {
		t.Fatal(err)
	}

	provider := &mockStatsProvider{stats: Stats{TotalItems: 12, TotalImages: 7, TotalVideos: 4, TotalAudio: 1}}
	c := NewCollector(provider, dbPath, time.Hour)
	c.collect()

	checks := map[string]float64{"image": 7, "video": 4, "audio": 1}
	for typ, want := range checks {
		if got := testutil.ToFloat64(IndexItems.WithLabelValues(typ)); got != want {
			t.Errorf("IndexItems{%s} = %v, want %v", typ, got, want)
		}
	}
	if got := testutil.ToFloat64(DBSizeBytes.WithLabelValues("main")); got != 128 {
		t.Errorf("DBSizeBytes{main} = %v, want 128", got)
	}
	if got := testutil.ToFloat64(DBSizeBytes.WithLabelValues("wal")); got != 0 {
		t.Errorf("DBSizeBytes{wal} = %v, want 0 for missing file", got)
	}
}

func TestCollectorNilProvider(_ *testing.T) {
	c := NewCollector(nil, "", time.Hour)
	c.collect()
}

func TestCollectorStartStop(_ *testing.T) {
	c := NewCollector(&mockStatsProvider{}, "", 5*time.Millisecond)
	c.Start()
	time.Sleep(20 * time.Millisecond)
	c.Stop()
}
