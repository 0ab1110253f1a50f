package foliagedb

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the statistics of a DB as Prometheus metrics.
type Collector struct {
	db *DB

	tilesLoaded      *prometheus.Desc
	tilesWithoutData *prometheus.Desc
	bytesRead        *prometheus.Desc
	cacheHits        *prometheus.Desc
	cacheMisses      *prometheus.Desc
	saves            *prometheus.Desc
	savesSkipped     *prometheus.Desc
	saveAborts       *prometheus.Desc
	queueLen         *prometheus.Desc
	indexEntries     *prometheus.Desc
}

// NewCollector returns a Collector for db. constLabels are attached to every
// metric, typically to tell levels apart.
func NewCollector(db *DB, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("foliagedb", "", name), help, nil, constLabels)
	}
	return &Collector{
		db:               db,
		tilesLoaded:      desc("tiles_loaded_total", "Tiles decoded from disk or cache."),
		tilesWithoutData: desc("tiles_without_data_total", "Tile loads for tiles without persisted data."),
		bytesRead:        desc("read_bytes_total", "Blob bytes read from disk."),
		cacheHits:        desc("cache_hits_total", "Blob cache hits."),
		cacheMisses:      desc("cache_misses_total", "Blob cache misses."),
		saves:            desc("saves_total", "Completed file rewrites."),
		savesSkipped:     desc("saves_skipped_total", "Saves skipped because nothing changed."),
		saveAborts:       desc("save_aborts_total", "Saves aborted on a blob count mismatch."),
		queueLen:         desc("load_queue_length", "Tiles waiting to be loaded."),
		indexEntries:     desc("index_entries", "Tiles with persisted data."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tilesLoaded
	ch <- c.tilesWithoutData
	ch <- c.bytesRead
	ch <- c.cacheHits
	ch <- c.cacheMisses
	ch <- c.saves
	ch <- c.savesSkipped
	ch <- c.saveAborts
	ch <- c.queueLen
	ch <- c.indexEntries
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.db.Stats()
	counter := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter(c.tilesLoaded, s.TilesLoaded)
	counter(c.tilesWithoutData, s.TilesWithoutData)
	counter(c.bytesRead, s.BytesRead)
	counter(c.cacheHits, s.CacheHits)
	counter(c.cacheMisses, s.CacheMisses)
	counter(c.saves, s.Saves)
	counter(c.savesSkipped, s.SavesSkipped)
	counter(c.saveAborts, s.SaveAborts)
	gauge(c.queueLen, s.QueueLen)
	gauge(c.indexEntries, s.IndexEntries)
}
