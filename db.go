package foliagedb

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrClosed is returned when a tile with persisted data is loaded after
	// the file reader was released.
	ErrClosed = errors.New("foliagedb: reader closed")
	// ErrBlobCountMismatch is returned when a save produced a different
	// number of blobs than index entries. The file on disk is left untouched.
	ErrBlobCountMismatch = errors.New("foliagedb: blob count does not match index entry count")
)

// DB stores the foliage instances of one level in a single file and loads
// them back tile by tile.
//
// A DB is driven from a single goroutine: the world loop calls the relevance
// notifications, Tick and SaveAll. Only Stats may be called concurrently.
type DB struct {
	conf Config
	dir  string

	// index locates the blob of every persisted tile relative to blobBase.
	index    *tileIndex
	blobBase int64
	// dataFd is the read-only handle on the foliage file, nil if the file did
	// not exist at Open or the reader was released.
	dataFd *os.File
	cache  *blobCache

	mode  LoadMode
	queue *loadQueue

	// encode turns a tile into its blob.
	encode func(t Tile, center mgl32.Vec3) []byte

	stats dbStats
}

// Open creates a DB for the level directory passed using default options and
// opens it.
func Open(dir string) (*DB, error) {
	var conf Config
	return conf.Open(dir)
}

// newDB creates a new DB instance.
func newDB(conf Config, dir string) *DB {
	db := &DB{
		conf:   conf,
		dir:    dir,
		index:  newTileIndex(),
		queue:  newLoadQueue(),
		encode: encodeTile,
	}
	if conf.Options.CacheSize > 0 {
		db.cache = newBlobCache(conf.Options.CacheSize)
	}
	return db
}

// Open starts a session: it resets all in-memory state and, if the foliage
// file exists, opens it for reading and parses its header. A missing file
// leaves the DB empty and is not an error.
func (db *DB) Open() error {
	db.closeReader()
	db.resetIndex()
	db.mode = ModeStreaming
	db.queue.clear()
	db.stats.queueLen.Store(0)

	path := dataPath(db.dir)
	if !fileExists(path) {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open foliage: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("open foliage: %w", err)
	}
	idx, base, err := readIndex(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("open foliage: %w", err)
	}

	db.dataFd = f
	db.setIndex(idx, base)
	db.conf.Options.Log.Info("found foliage tiles", "tiles", idx.count())
	return nil
}

// Close releases the file reader and forgets the index. It is safe to call
// Close more than once.
func (db *DB) Close() error {
	err := db.closeReader()
	db.resetIndex()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// closeReader releases the read handle on the foliage file, if any.
func (db *DB) closeReader() error {
	if db.dataFd == nil {
		return nil
	}
	err := db.dataFd.Close()
	db.dataFd = nil
	return err
}

// resetIndex drops the index and every cached blob.
func (db *DB) resetIndex() {
	db.setIndex(newTileIndex(), 0)
}

// setIndex installs the index of the file currently on disk.
func (db *DB) setIndex(idx *tileIndex, base int64) {
	db.index = idx
	db.blobBase = base
	if db.cache != nil {
		db.cache.clear()
	}
	db.stats.indexEntries.Store(int64(idx.count()))
}

// LoadTileNow decodes the persisted instances of a tile into it and updates
// its bounds. A tile without persisted data is left as is: UpdateBounds is
// not called for it either, so bounds set by the caller survive. The read
// happens synchronously.
func (db *DB) LoadTileNow(t Tile) error {
	coord := t.Coord()
	entry, ok := db.index.get(coord)
	if !ok {
		db.stats.tilesWithoutData.Add(1)
		return nil
	}

	data, err := db.readBlob(coord, entry)
	if err != nil {
		return fmt.Errorf("load tile %v: %w", coord, err)
	}
	if err := decodeTile(bytes.NewReader(data), t, tileCenter(coord, db.conf.Options.TileSize)); err != nil {
		return fmt.Errorf("load tile %v: %w", coord, err)
	}
	t.UpdateBounds()
	db.stats.tilesLoaded.Add(1)
	return nil
}

// readBlob returns the raw blob of a tile, from the cache if possible.
func (db *DB) readBlob(coord TileCoord, entry indexEntry) ([]byte, error) {
	if db.cache != nil {
		if data := db.cache.get(coord); data != nil {
			db.stats.cacheHits.Add(1)
			return data, nil
		}
		db.stats.cacheMisses.Add(1)
	}
	if db.dataFd == nil {
		return nil, ErrClosed
	}

	data := make([]byte, entry.size)
	if n, err := db.dataFd.ReadAt(data, db.blobBase+entry.offset); n < len(data) {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	db.stats.bytesRead.Add(entry.size)

	// Eagerly loaded tiles are never read again.
	if db.cache != nil && db.mode == ModeStreaming {
		db.cache.put(coord, data)
	}
	return data, nil
}

// LoadAllNow decodes every tile passed at once and switches the DB to
// ModeEagerlyLoaded, after which relevance notifications are ignored. The
// file reader is released afterwards.
func (db *DB) LoadAllNow(tiles []Tile) error {
	db.mode = ModeEagerlyLoaded
	db.queue.clear()
	db.stats.queueLen.Store(0)

	for _, t := range tiles {
		if err := db.LoadTileNow(t); err != nil {
			_ = db.closeReader()
			return err
		}
	}
	if err := db.closeReader(); err != nil {
		return fmt.Errorf("load all: %w", err)
	}
	return nil
}

// SaveAll rewrites the foliage file from the tiles passed. Empty tiles are
// not stored. If the file already exists and none of the tiles has unsaved
// changes, nothing is written.
//
// The whole file is rewritten in place; a crash halfway leaves it corrupt.
// Enable Options.Backup to keep a copy of the previous file.
func (db *DB) SaveAll(tiles []Tile) error {
	path := dataPath(db.dir)
	if fileExists(path) && !anyUnsaved(tiles) {
		db.stats.savesSkipped.Add(1)
		db.conf.Options.Log.Debug("foliage unchanged, skipping save")
		return nil
	}
	db.conf.Options.Log.Info("saving foliage", "tiles", len(tiles))

	idx := newTileIndex()
	blobs := make([][]byte, 0, len(tiles))
	var offset int64
	for _, t := range tiles {
		if t.IsEmpty() {
			continue
		}
		data := db.encode(t, tileCenter(t.Coord(), db.conf.Options.TileSize))
		if len(data) == 0 {
			continue
		}
		blobs = append(blobs, data)
		idx.put(t.Coord(), offset, int64(len(data)))
		offset += int64(len(data))
	}

	if len(blobs) != idx.count() {
		db.stats.saveAborts.Add(1)
		db.conf.Options.Log.Error("foliage blob count does not match offset count",
			"blobs", len(blobs),
			"offsets", idx.count(),
		)
		return fmt.Errorf("save: %w (%d blobs, %d entries)", ErrBlobCountMismatch, len(blobs), idx.count())
	}

	if db.conf.Options.Backup && fileExists(path) {
		if err := writeBackup(path, backupPath(db.dir), db.conf.Options.BackupCompression); err != nil {
			db.conf.Options.Log.Warn("failed to write foliage backup", "error", err)
		}
	}

	if err := writeFoliageFile(path, idx, blobs); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	// The reader, if still open, refers to the same file and now sees the
	// new contents. A session that started without a file gets a reader now.
	db.setIndex(idx, idx.headerSize())
	if db.dataFd == nil && db.mode == ModeStreaming {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("save: reopen: %w", err)
		}
		db.dataFd = f
	}
	db.stats.saves.Add(1)
	return nil
}

// anyUnsaved reports whether any of the tiles has unsaved changes.
func anyUnsaved(tiles []Tile) bool {
	for _, t := range tiles {
		if t.HasUnsavedChanges() {
			return true
		}
	}
	return false
}

// writeFoliageFile writes the header of idx followed by all blobs, in the
// same order as the index entries.
func writeFoliageFile(path string, idx *tileIndex, blobs [][]byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := idx.writeHeader(w); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range blobs {
		if _, err := w.Write(b); err != nil {
			_ = f.Close()
			return fmt.Errorf("write blob: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write blob: %w", err)
	}
	return f.Close()
}

// Entries returns the number of tiles with persisted data.
func (db *DB) Entries() int {
	return db.index.count()
}

// BlobRegionSize returns the number of bytes taken by tile blobs in the file.
func (db *DB) BlobRegionSize() int64 {
	var n int64
	for _, e := range db.index.entries {
		n += e.size
	}
	return n
}

// dbStats holds the counters behind Stats.
type dbStats struct {
	tilesLoaded      atomic.Int64
	tilesWithoutData atomic.Int64
	bytesRead        atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	saves            atomic.Int64
	savesSkipped     atomic.Int64
	saveAborts       atomic.Int64
	queueLen         atomic.Int64
	indexEntries     atomic.Int64
}

// Stats holds statistics for the database.
type Stats struct {
	TilesLoaded      int64
	TilesWithoutData int64
	BytesRead        int64
	CacheHits        int64
	CacheMisses      int64
	Saves            int64
	SavesSkipped     int64
	SaveAborts       int64
	QueueLen         int64
	IndexEntries     int64
}

// Stats returns a snapshot of the statistics of the database.
func (db *DB) Stats() Stats {
	return Stats{
		TilesLoaded:      db.stats.tilesLoaded.Load(),
		TilesWithoutData: db.stats.tilesWithoutData.Load(),
		BytesRead:        db.stats.bytesRead.Load(),
		CacheHits:        db.stats.cacheHits.Load(),
		CacheMisses:      db.stats.cacheMisses.Load(),
		Saves:            db.stats.saves.Load(),
		SavesSkipped:     db.stats.savesSkipped.Load(),
		SaveAborts:       db.stats.saveAborts.Load(),
		QueueLen:         db.stats.queueLen.Load(),
		IndexEntries:     db.stats.indexEntries.Load(),
	}
}

// StartStatsLogger starts a background goroutine that logs statistics at the
// specified interval. Returns a function to stop the logger.
func (db *DB) StartStatsLogger(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				db.LogStats()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}

// LogStats logs current statistics once.
func (db *DB) LogStats() {
	stats := db.Stats()
	hitRate := float64(0)
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		hitRate = float64(stats.CacheHits) / float64(lookups) * 100
	}
	db.conf.Options.Log.Info("foliage stats",
		"tiles_loaded", stats.TilesLoaded,
		"bytes_read", stats.BytesRead,
		"cache_hit_rate", fmt.Sprintf("%.1f%%", hitRate),
		"queue", stats.QueueLen,
		"index_entries", stats.IndexEntries,
		"saves", stats.Saves,
	)
}
