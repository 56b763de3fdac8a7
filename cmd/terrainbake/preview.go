package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"sdfterrain/internal/lod"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/image/draw"
)

const previewLevels = 5

func previewAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	camera, err := parseVec3(c.String(flagCamera))
	if err != nil {
		return fmt.Errorf("--%s: %w", flagCamera, err)
	}
	p := lod.New(cfg.Settings().LOD)
	p.UpdateCamera(camera, true)

	size := max(c.Int(flagSize), 1)
	pixels := min(max(c.Int(flagPixels), 1), size)
	extent := float32(c.Float64(flagExtent))
	if extent <= 0 {
		// Enough shells to show a few transitions.
		shown := min(cfg.LODLevelCount, previewLevels)
		chunk := float64(uint64(1)<<cfg.MinChunkSizeLog2) * float64(cfg.Scale)
		extent = float32(lod.GridSize(shown-1) * chunk * float64(cfg.ShellSize))
	}
	img := renderLOD(p, camera, extent, pixels, cfg.LODLevelCount)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	f, err := os.Create(c.String(flagOut))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	return png.Encode(f, dst)
}

// renderLOD samples LODAt on the horizontal plane through the camera.
func renderLOD(p *lod.Policy, camera mgl32.Vec3, extent float32, pixels, levels int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, pixels, pixels))
	step := 2 * extent / float32(pixels)
	for y := 0; y < pixels; y++ {
		for x := 0; x < pixels; x++ {
			pos := camera.Add(mgl32.Vec3{
				-extent + (float32(x)+0.5)*step,
				0,
				-extent + (float32(y)+0.5)*step,
			})
			img.Set(x, y, lodColor(p.LODAt(pos), levels))
		}
	}
	return img
}

func lodColor(l, levels int) color.RGBA {
	if l < 0 {
		return color.RGBA{A: 255}
	}
	t := float32(l) / float32(max(levels-1, 1))
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(255 * (1 - t)),
		B: 96,
		A: 255,
	}
}
