package material

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Mode selects how material indices are encoded in vertex colors.
type Mode int

const (
	// DiscreteChannelSplatting writes a one-hot channel per material.
	DiscreteChannelSplatting Mode = iota
	// MultipleMeshes splits the mesh per material; colors stay white.
	MultipleMeshes
	// PackedColor treats the index as RGBA8.
	PackedColor
	// IndexedBlendSplatting stores index/255 in the red channel.
	IndexedBlendSplatting
)

var modeNames = [...]string{"discrete", "multiple_meshes", "packed", "indexed_blend"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode maps a config name to a Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return DiscreteChannelSplatting, fmt.Errorf("unknown material mode %q", s)
}

// Mapper turns a material index into a vertex color.
type Mapper func(mode Mode, index uint32) mgl32.Vec4

// Color is the default Mapper.
func Color(mode Mode, index uint32) mgl32.Vec4 {
	switch mode {
	case DiscreteChannelSplatting:
		var c mgl32.Vec4
		if ch := index % 5; ch > 0 {
			c[ch-1] = 1
		}
		return c
	case PackedColor:
		return mgl32.Vec4{
			float32(index>>24&0xFF) / 255,
			float32(index>>16&0xFF) / 255,
			float32(index>>8&0xFF) / 255,
			float32(index&0xFF) / 255,
		}
	case IndexedBlendSplatting:
		return mgl32.Vec4{float32(index&0xFF) / 255, 0, 0, 1}
	default:
		return mgl32.Vec4{1, 1, 1, 1}
	}
}

// FromColor inverts Color for the modes that encode the index.
func FromColor(mode Mode, c mgl32.Vec4) uint32 {
	switch mode {
	case DiscreteChannelSplatting:
		for i := 0; i < 4; i++ {
			if c[i] > 0.5 {
				return uint32(i + 1)
			}
		}
		return 0
	case PackedColor:
		return toByte(c[0])<<24 | toByte(c[1])<<16 | toByte(c[2])<<8 | toByte(c[3])
	case IndexedBlendSplatting:
		return toByte(c[0])
	default:
		return 0
	}
}

func toByte(f float32) uint32 {
	v := f*255 + 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint32(v)
}
