package material

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDiscreteChannels(t *testing.T) {
	tests := []struct {
		index uint32
		want  mgl32.Vec4
	}{
		{0, mgl32.Vec4{}},
		{1, mgl32.Vec4{1, 0, 0, 0}},
		{2, mgl32.Vec4{0, 1, 0, 0}},
		{3, mgl32.Vec4{0, 0, 1, 0}},
		{4, mgl32.Vec4{0, 0, 0, 1}},
		{6, mgl32.Vec4{1, 0, 0, 0}},
	}
	for _, tt := range tests {
		if got := Color(DiscreteChannelSplatting, tt.index); got != tt.want {
			t.Fatalf("Color(discrete, %d): got %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestColorRoundTrip(t *testing.T) {
	for _, mode := range []Mode{DiscreteChannelSplatting, PackedColor, IndexedBlendSplatting} {
		for _, idx := range []uint32{0, 1, 2, 3, 4} {
			if got := FromColor(mode, Color(mode, idx)); got != idx {
				t.Fatalf("%v: round trip of %d gave %d", mode, idx, got)
			}
		}
	}
	packed := uint32(0x12345678)
	if got := FromColor(PackedColor, Color(PackedColor, packed)); got != packed {
		t.Fatalf("packed round trip: got %#x, want %#x", got, packed)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("PACKED")
	if err != nil || m != PackedColor {
		t.Fatalf("ParseMode: got %v, %v", m, err)
	}
	if _, err := ParseMode("rainbow"); err == nil {
		t.Fatalf("ParseMode should reject unknown names")
	}
	if Color(MultipleMeshes, 9) != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Fatalf("multiple meshes should map to white")
	}
}
