package metrics

// DBOperations lists the operation labels used by the database queries.
var DBOperations = []string{
	"add", "remove", "all", "all_paths", "media_with_id", "media_with_path",
	"in_dir", "with_type", "path_like", "path_regexp", "sql", "count", "count_type",
	"dups_md5",
}

// InitializeMetrics pre-populates the expected label combinations so that
// every metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, op := range DBOperations {
		DBQueryDuration.WithLabelValues(op)
		for _, status := range []string{"success", "error"} {
			DBQueryTotal.WithLabelValues(op, status)
		}
	}
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}
	for _, status := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(status)
	}

	for _, typ := range []string{"image", "video", "audio"} {
		IndexItems.WithLabelValues(typ)
		ScannerExtractDuration.WithLabelValues(typ)
		for _, result := range []string{"ingested", "skipped", "dropped"} {
			ScannerFilesTotal.WithLabelValues(typ, result)
		}
	}

	for _, tag := range []string{"unsupported-type", "truncated", "decode-failed", "io-error", "hash-changed"} {
		ScannerErrorsTotal.WithLabelValues(tag)
	}

	for _, algo := range []string{"dct", "dct-features", "mirror", "color"} {
		SearchQueryDuration.WithLabelValues(algo)
		SearchQueriesTotal.WithLabelValues(algo, "success")
		SearchQueriesTotal.WithLabelValues(algo, "error")
	}

	for _, op := range []string{"merge", "chain"} {
		ReconcileMissesTotal.WithLabelValues(op)
		ReconcileDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open", "read"} {
		for _, vol := range []string{"library", "index", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, op := range []string{"create", "write", "remove", "rename"} {
		WatcherEventsTotal.WithLabelValues(op)
	}
}
