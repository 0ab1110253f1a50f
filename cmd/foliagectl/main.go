package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/cqdetdev/foliagedb"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "foliagectl",
		Usage: "Inspect and repair foliage files of a level",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "tile-size",
				Value: foliagedb.DefaultTileSize,
				Usage: "edge length of a foliage tile in world units",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Print a summary of the foliage file",
				ArgsUsage: "<level dir>",
				Action:    info,
			},
			{
				Name:      "dump",
				Usage:     "Decode tiles and print them as JSON",
				ArgsUsage: "<level dir>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "min-x", Usage: "lowest tile x (inclusive)"},
					&cli.IntFlag{Name: "min-y", Usage: "lowest tile y (inclusive)"},
					&cli.IntFlag{Name: "max-x", Usage: "highest tile x (exclusive)"},
					&cli.IntFlag{Name: "max-y", Usage: "highest tile y (exclusive)"},
				},
				Action: dump,
			},
			{
				Name:      "restore",
				Usage:     "Replace the foliage file with its backup",
				ArgsUsage: "<level dir>",
				Action:    restore,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openLevel opens the DB of the level directory given as first argument.
func openLevel(c *cli.Context) (*foliagedb.DB, string, error) {
	dir := c.Args().First()
	if dir == "" {
		return nil, "", cli.Exit("missing level directory", 1)
	}
	opts := foliagedb.DefaultOptions()
	opts.TileSize = float32(c.Float64("tile-size"))
	opts.CacheSize = 0
	db, err := foliagedb.Config{Options: opts}.Open(dir)
	if err != nil {
		return nil, "", err
	}
	return db, dir, nil
}

func info(c *cli.Context) error {
	db, dir, err := openLevel(c)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Level:      %s\n", dir)
	fmt.Printf("Tiles:      %d\n", db.Entries())
	fmt.Printf("Blob bytes: %s\n", humanize.Bytes(uint64(db.BlobRegionSize())))

	var instances int
	iter := db.NewTileIterator(nil)
	for iter.Next() {
		instances += iter.Tile().Len()
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	fmt.Printf("Instances:  %s\n", humanize.Comma(int64(instances)))
	return nil
}

type tileJSON struct {
	X      int32       `json:"x"`
	Y      int32       `json:"y"`
	Groups []groupJSON `json:"groups"`
}

type groupJSON struct {
	Asset     string         `json:"asset"`
	Instances []instanceJSON `json:"instances"`
}

type instanceJSON struct {
	Position [3]float32 `json:"position"`
	Rotation [3]float32 `json:"rotation"`
	Scale    [3]float32 `json:"scale"`
	Clear    bool       `json:"clear,omitempty"`
}

func dump(c *cli.Context) error {
	db, _, err := openLevel(c)
	if err != nil {
		return err
	}
	defer db.Close()

	r := &foliagedb.IteratorRange{
		Min: foliagedb.TileCoord{X: int32(c.Int("min-x")), Y: int32(c.Int("min-y"))},
		Max: foliagedb.TileCoord{X: int32(c.Int("max-x")), Y: int32(c.Int("max-y"))},
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	iter := db.NewTileIterator(r)
	defer iter.Release()
	for iter.Next() {
		t := iter.Tile()
		out := tileJSON{X: t.Coord().X, Y: t.Coord().Y}
		for _, g := range t.Groups() {
			gj := groupJSON{Asset: g.Asset.String()}
			for i, batch := range g.Matrices {
				for j, m := range batch {
					pos, euler, scale := foliagedb.Decompose(m)
					gj.Instances = append(gj.Instances, instanceJSON{
						Position: pos,
						Rotation: euler,
						Scale:    scale,
						Clear:    g.Clear[i][j],
					})
				}
			}
			out.Groups = append(out.Groups, gj)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return iter.Error()
}

func restore(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return cli.Exit("missing level directory", 1)
	}
	if err := foliagedb.RestoreBackup(dir); err != nil {
		return err
	}
	fmt.Printf("Restored foliage of %s from backup\n", dir)
	return nil
}
