package metrics

import (
	"os"
	"time"

	"github.com/fortemezzo/cbird/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current index statistics
type Stats struct {
	TotalItems  int
	TotalImages int
	TotalVideos int
	TotalAudio  int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector. dbPath may be empty, in
// which case file sizes are not reported.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectFileSizes()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	IndexItems.WithLabelValues("image").Set(float64(stats.TotalImages))
	IndexItems.WithLabelValues("video").Set(float64(stats.TotalVideos))
	IndexItems.WithLabelValues("audio").Set(float64(stats.TotalAudio))

	logging.Debug("Metrics collected: items=%d, images=%d, videos=%d, audio=%d",
		stats.TotalItems, stats.TotalImages, stats.TotalVideos, stats.TotalAudio)
}

func (c *Collector) collectFileSizes() {
	if c.dbPath == "" {
		return
	}

	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		info, err := os.Stat(c.dbPath + suffix)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
