// Package startup loads the configuration shared by the cbird commands.
//
// # Configuration
//
// A library is a directory tree; its index lives in the _index
// subdirectory. [LoadConfig] starts from the built-in search and index
// parameters, then applies _index/cbird.yaml when present, then the
// environment:
//
//   - CBIRD_INDEX_DIR: library root when none is given (default: .)
//   - INDEX_THREADS: scanner worker count, 0 for one per CPU
//   - MIN_FILE_SIZE: smallest file indexed, in bytes
//   - CBIRD_DRY_RUN: scan without writing the index
//   - CBIRD_METRICS_ADDR: serve Prometheus metrics on this address
//   - CBIRD_MEMORY_LIMIT, CBIRD_MEMORY_RATIO, GOMEMLIMIT: see [ConfigureMemory]
//   - LOG_LEVEL, DEBUG: see package logging
//
// The parameter file uses the keys of the -p and -i options:
//
//	search:
//	  alg: 0
//	  dht: 6
//	index:
//	  idxthr: 4
//	  minsize: 1024
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
