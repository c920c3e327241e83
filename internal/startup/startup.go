package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fortemezzo/cbird/internal/database"
	"github.com/fortemezzo/cbird/internal/logging"
	"github.com/fortemezzo/cbird/internal/scanner"
	"github.com/fortemezzo/cbird/internal/search"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// ParamsFileName is the optional parameter file inside the index directory.
const ParamsFileName = "cbird.yaml"

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds the settings shared by every command.
type Config struct {
	// IndexDir is the absolute library root.
	IndexDir    string
	MetricsAddr string

	Search search.Params
	Index  scanner.IndexParams

	// ParamsFile is the parameter file that was applied, if any.
	ParamsFile string
	Memory     MemoryConfig
}

// ParamFile is the layout of cbird.yaml. Values use the same keys and
// syntax as the -p and -i command line options.
type ParamFile struct {
	Search map[string]string `yaml:"search"`
	Index  map[string]string `yaml:"index"`
}

// LoadConfig builds the configuration for the library at dir. An empty dir
// falls back to CBIRD_INDEX_DIR and then the working directory. Parameters
// come from the defaults, then cbird.yaml, then the environment.
func LoadConfig(dir string) (*Config, error) {
	if dir == "" {
		dir = getEnv("CBIRD_INDEX_DIR", ".")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve index directory path: %w", err)
	}
	if err := checkDirectory(root); err != nil {
		return nil, fmt.Errorf("index directory %s: %w", root, err)
	}

	cfg := &Config{
		IndexDir:    root,
		MetricsAddr: getEnv("CBIRD_METRICS_ADDR", ""),
		Search:      search.DefaultParams(),
		Index:       scanner.DefaultIndexParams(),
	}

	path := filepath.Join(root, database.IndexDirName, ParamsFileName)
	applied, err := cfg.applyParamFile(path)
	if err != nil {
		return nil, err
	}
	if applied {
		cfg.ParamsFile = path
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.Memory = ConfigureMemory()
	return cfg, nil
}

func (c *Config) applyParamFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var pf ParamFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, key := range sortedKeys(pf.Search) {
		if err := c.Search.Set(key, pf.Search[key]); err != nil {
			return false, fmt.Errorf("%s: search: %w", path, err)
		}
	}
	for _, key := range sortedKeys(pf.Index) {
		if err := c.Index.Set(key, pf.Index[key]); err != nil {
			return false, fmt.Errorf("%s: index: %w", path, err)
		}
	}
	logging.Debug("Applied parameters from %s", path)
	return true, nil
}

func (c *Config) applyEnv() error {
	for env, key := range map[string]string{
		"INDEX_THREADS": "idxthr",
		"MIN_FILE_SIZE": "minsize",
	} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if err := c.Index.Set(key, val); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}
	if getEnvBool("CBIRD_DRY_RUN", false) {
		c.Index.DryRun = true
	}
	return nil
}

// LogConfig logs the effective configuration at debug level.
func LogConfig(c *Config) {
	if !logging.IsDebugEnabled() {
		return
	}
	logging.Debug("------------------------------------------------------------")
	logging.Debug("CONFIGURATION")
	logging.Debug("------------------------------------------------------------")
	logging.Debug("  Version:         %s (%s)", Version, Commit)
	logging.Debug("  Index directory: %s", c.IndexDir)
	if c.ParamsFile != "" {
		logging.Debug("  Parameter file:  %s", c.ParamsFile)
	}
	logging.Debug("  Search:          alg=%s dht=%d cth=%d mm=%d mn=%d",
		c.Search.Algo, c.Search.DctThresh, c.Search.HistThresh, c.Search.MaxMatches, c.Search.MinMatches)
	logging.Debug("  Index:           threads=%d minsize=%d types=%d recursive=%v",
		c.Index.IndexThreads, c.Index.MinFileSize, c.Index.Types, c.Index.Recursive)
	logging.Debug("  CPUs available:  %d (GOMAXPROCS %d)", runtime.NumCPU(), runtime.GOMAXPROCS(0))
	logging.Debug("  LOG_LEVEL:       %s", logging.GetLevel())
	if c.MetricsAddr != "" {
		logging.Debug("  Metrics:         http://%s/metrics", c.MetricsAddr)
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(path string, duration time.Duration) {
	logging.Debug("  [OK] Database %s opened in %v", path, duration)
}

func checkDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
