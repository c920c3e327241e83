package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsAreRegistered(t *testing.T) {
	InitializeMetrics()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"cbird_db_query_duration_seconds",
		"cbird_db_size_bytes",
		"cbird_scanner_files_total",
		"cbird_scanner_errors_total",
		"cbird_scanner_extract_duration_seconds",
		"cbird_index_items",
		"cbird_search_queries_total",
		"cbird_search_query_duration_seconds",
		"cbird_reconcile_misses_total",
		"cbird_filesystem_retry_attempts_total",
		"cbird_watcher_events_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %s not exported after InitializeMetrics", name)
		}
	}
}

func TestInitializeMetricsDBOperations(t *testing.T) {
	InitializeMetrics()

	if got := testutil.CollectAndCount(DBQueryDuration); got < len(DBOperations) {
		t.Errorf("DBQueryDuration series = %d, want at least %d", got, len(DBOperations))
	}
	if got := testutil.CollectAndCount(DBQueryTotal); got < 2*len(DBOperations) {
		t.Errorf("DBQueryTotal series = %d, want at least %d", got, 2*len(DBOperations))
	}
}

func TestCounterOperations(t *testing.T) {
	tests := []struct {
		name    string
		counter prometheus.Counter
	}{
		{"scanner ingested", ScannerFilesTotal.WithLabelValues("image", "ingested")},
		{"scanner error tag", ScannerErrorsTotal.WithLabelValues("truncated")},
		{"reconcile miss", ReconcileMissesTotal.WithLabelValues("chain")},
		{"search success", SearchQueriesTotal.WithLabelValues("dct", "success")},
		{"db query", DBQueryTotal.WithLabelValues("test_op", "success")},
		{"index added", IndexItemsAdded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(tt.counter)
			tt.counter.Inc()
			tt.counter.Add(2)
			if got := testutil.ToFloat64(tt.counter); got != before+3 {
				t.Errorf("counter = %v, want %v", got, before+3)
			}
		})
	}
}

func TestGaugeOperations(t *testing.T) {
	ScannerIsRunning.Set(1)
	if got := testutil.ToFloat64(ScannerIsRunning); got != 1 {
		t.Errorf("ScannerIsRunning = %v, want 1", got)
	}
	ScannerIsRunning.Set(0)

	IndexItems.WithLabelValues("video").Set(42)
	if got := testutil.ToFloat64(IndexItems.WithLabelValues("video")); got != 42 {
		t.Errorf("IndexItems{video} = %v, want 42", got)
	}
}

func TestFilesystemObserver(t *testing.T) {
	o := NewFilesystemObserver()

	attempt := FilesystemRetryAttempts.WithLabelValues("open", "library")
	failure := FilesystemRetryFailures.WithLabelValues("open", "library")
	stale := FilesystemStaleErrors.WithLabelValues("open", "library")
	a0, f0, s0 := testutil.ToFloat64(attempt), testutil.ToFloat64(failure), testutil.ToFloat64(stale)

	o.ObserveRetryAttempt("open", "library")
	o.ObserveRetryFailure("open", "library")
	o.ObserveStaleError("open", "library")
	o.ObserveRetrySuccess("open", "library")
	o.ObserveRetryDuration("open", "library", 0.01)

	if testutil.ToFloat64(attempt) != a0+1 {
		t.Error("retry attempt not recorded")
	}
	if testutil.ToFloat64(failure) != f0+1 {
		t.Error("retry failure not recorded")
	}
	if testutil.ToFloat64(stale) != s0+1 {
		t.Error("stale error not recorded")
	}
}

func BenchmarkScannerCounter(b *testing.B) {
	c := ScannerFilesTotal.WithLabelValues("image", "ingested")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Inc()
	}
}
