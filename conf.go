package foliagedb

import (
	"log/slog"
	"os"
	"path/filepath"
)

// CompressionType specifies the compression algorithm used for backups.
type CompressionType int

const (
	// CompressionNone stores the backup uncompressed.
	CompressionNone CompressionType = iota
	// CompressionSnappy uses Snappy compression (balanced speed/ratio).
	CompressionSnappy
	// CompressionLZ4 uses LZ4 compression (fastest).
	CompressionLZ4
)

// DefaultTileSize is the edge length of a foliage tile in world units.
const DefaultTileSize = 32

// Options holds configuration options for a foliage DB.
type Options struct {
	// TileSize is the edge length of a tile in world units. Tile centers, and
	// therefore the local positions written to disk, are derived from it.
	// Defaults to DefaultTileSize.
	TileSize float32

	// CacheSize is the maximum number of bytes of raw tile blobs kept in
	// memory. Tiles that leave view and come back are served from the cache
	// instead of disk. Defaults to 8MB. Zero disables the cache.
	CacheSize int64

	// Backup enables writing a compressed copy of the previous file before
	// every save rewrite.
	Backup bool

	// BackupCompression specifies the compression algorithm for backups.
	// Defaults to CompressionSnappy.
	BackupCompression CompressionType

	// Log is the Logger to use for debug messages and errors.
	// If nil, defaults to slog.Default().
	Log *slog.Logger
}

// DefaultOptions returns the recommended default options.
func DefaultOptions() *Options {
	return &Options{
		TileSize:          DefaultTileSize,
		CacheSize:         8 * 1024 * 1024, // 8MB
		Backup:            false,
		BackupCompression: CompressionSnappy,
		Log:               slog.Default(),
	}
}

// EditorOptions returns options for editing sessions, where every save keeps
// a backup of the file it replaces.
func EditorOptions() *Options {
	opts := DefaultOptions()
	opts.Backup = true
	opts.BackupCompression = CompressionLZ4
	return opts
}

// Config holds configuration for opening a foliage DB.
type Config struct {
	Options *Options
}

// New creates a DB for the level directory passed without touching the disk.
// Call Open on the result to start a session.
func (conf Config) New(dir string) *DB {
	if conf.Options == nil {
		conf.Options = DefaultOptions()
	}
	if conf.Options.Log == nil {
		conf.Options.Log = slog.Default()
	}
	if conf.Options.TileSize <= 0 {
		conf.Options.TileSize = DefaultTileSize
	}
	conf.Options.Log = conf.Options.Log.With("provider", "foliagedb")
	return newDB(conf, dir)
}

// Open creates a DB for the level directory passed and opens it. If a
// foliage file is present, its header is parsed; if the header cannot be
// parsed, an error is returned. A missing file is not an error.
func (conf Config) Open(dir string) (*DB, error) {
	db := conf.New(dir)
	if err := db.Open(); err != nil {
		return nil, err
	}
	return db, nil
}

// fileExists checks if a file exists at the given path.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// dataPath returns the path to the foliage file of a level.
func dataPath(dir string) string {
	return filepath.Join(dir, "FoliageV3.blob")
}

// backupPath returns the path to the backup of the foliage file.
func backupPath(dir string) string {
	return dataPath(dir) + ".bak"
}
