// Command terrainbake builds an SDF terrain offline, writes its meshes as
// OBJ files and manages edit snapshots.
package main

import (
	"fmt"
	"os"

	"sdfterrain/internal/config"
	"sdfterrain/internal/logging"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagCamera   = "camera"
	flagOut      = "out"
	flagDB       = "db"
	flagName     = "name"
	flagCarve    = "carve"
	flagFill     = "fill"
	flagRestore  = "restore"
	flagSnapshot = "snapshot"
	flagSize     = "size"
	flagPixels   = "pixels"
	flagExtent   = "extent"
	flagTimeout  = "timeout"
)

var app = &cli.App{
	Name:  "terrainbake",
	Usage: "bake adaptive SDF terrain meshes",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  flagConfig,
			Usage: "terrain YAML config; defaults apply when empty",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Value: "info",
			Usage: "debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  flagCamera,
			Value: "0,0,0",
			Usage: "camera position x,y,z",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "bake",
			Usage:  "build the terrain around the camera and export meshes",
			Action: bakeAction,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagOut, Value: "out", Usage: "directory for OBJ files"},
				&cli.StringFlag{Name: flagDB, Usage: "SQLite edit store"},
				&cli.StringFlag{Name: flagName, Value: "default", Usage: "snapshot name in the edit store"},
				&cli.BoolFlag{Name: flagRestore, Usage: "replay the latest stored snapshot before baking"},
				&cli.StringFlag{Name: flagSnapshot, Usage: "also write a compressed snapshot file"},
				&cli.StringSliceFlag{Name: flagCarve, Usage: "subtract a sphere x:y:z:r (repeatable)"},
				&cli.StringSliceFlag{Name: flagFill, Usage: "add a sphere x:y:z:r (repeatable)"},
				&cli.DurationFlag{Name: flagTimeout, Value: defaultTimeout, Usage: "give up when the terrain has not settled"},
			},
		},
		{
			Name:   "preview",
			Usage:  "render the LOD layout around the camera as a PNG",
			Action: previewAction,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagOut, Value: "lod.png", Usage: "output image"},
				&cli.IntFlag{Name: flagSize, Value: 512, Usage: "image edge in pixels"},
				&cli.IntFlag{Name: flagPixels, Value: 128, Usage: "samples per edge"},
				&cli.Float64Flag{Name: flagExtent, Usage: "half width of the previewed area in world units; 0 picks one"},
			},
		},
		{
			Name:   "snapshots",
			Usage:  "list the snapshots of an edit store",
			Action: snapshotsAction,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: flagDB, Required: true, Usage: "SQLite edit store"},
			},
		},
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "terrainbake:", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Terrain, error) {
	path := c.String(flagConfig)
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	return logging.New(c.String(flagLogLevel))
}
