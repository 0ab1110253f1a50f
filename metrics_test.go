package foliagedb

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir, nil)
	require.NoError(t, db.SaveAll(asTiles(filledTile(TileCoord{X: 2}, 3), filledTile(TileCoord{Y: 2}, 1))))
	require.NoError(t, db.LoadTileNow(NewMemTile(TileCoord{X: 2})))
	db.TileBecameRelevant(NewMemTile(TileCoord{X: 9}))

	c := NewCollector(db, prometheus.Labels{"level": "test"})
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	assert.Equal(t, 10, testutil.CollectAndCount(c))

	expected := `
# HELP foliagedb_index_entries Tiles with persisted data.
# TYPE foliagedb_index_entries gauge
foliagedb_index_entries{level="test"} 2
# HELP foliagedb_load_queue_length Tiles waiting to be loaded.
# TYPE foliagedb_load_queue_length gauge
foliagedb_load_queue_length{level="test"} 1
# HELP foliagedb_saves_total Completed file rewrites.
# TYPE foliagedb_saves_total counter
foliagedb_saves_total{level="test"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"foliagedb_index_entries", "foliagedb_load_queue_length", "foliagedb_saves_total"))
}
