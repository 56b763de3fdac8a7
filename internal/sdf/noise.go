package sdf

import "math"

// Noise is deterministic lattice value noise summed over octaves. Values are
// in [-1, 1].
type Noise struct {
	Seed        int64
	Frequency   float64
	Octaves     int
	Persistence float64
	Lacunarity  float64
}

// DefaultNoise matches the terrain generator defaults.
func DefaultNoise(seed int64) Noise {
	return Noise{Seed: seed, Frequency: 0.01, Octaves: 4, Persistence: 0.5, Lacunarity: 2}
}

// At2 samples the 2D noise.
func (n Noise) At2(x, z float64) float64 {
	return n.sum(func(freq float64, seed int64) float64 {
		return valueNoise2D(x*freq, z*freq, seed)
	})
}

// At3 samples the 3D noise.
func (n Noise) At3(x, y, z float64) float64 {
	return n.sum(func(freq float64, seed int64) float64 {
		return valueNoise3D(x*freq, y*freq, z*freq, seed)
	})
}

func (n Noise) sum(octave func(freq float64, seed int64) float64) float64 {
	octaves := max(n.Octaves, 1)
	amplitude, frequency := 1.0, n.Frequency
	if frequency == 0 {
		frequency = 1
	}
	total, norm := 0.0, 0.0
	for i := 0; i < octaves; i++ {
		total += octave(frequency, n.Seed+int64(i*131)) * amplitude
		norm += amplitude
		amplitude *= n.Persistence
		frequency *= n.Lacunarity
	}
	if norm == 0 {
		return 0
	}
	return total/norm*2 - 1
}

// 6t^5 - 15t^4 + 10t^3
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// SplitMix64 finalizer over the lattice coordinates.
func splitMix(v uint64) uint64 {
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func hash2(x, z, seed int64) uint64 {
	return splitMix(uint64(x) + (uint64(z) << 1) + uint64(seed)*0x9E3779B97F4A7C15)
}

func hash3(x, y, z, seed int64) uint64 {
	return splitMix(uint64(x)*0x9E3779B97F4A7C15 + uint64(y)*0x517CC1B727220A95 + uint64(z)*0x6C62272E07BB0142 + uint64(seed))
}

func unit(h uint64) float64 {
	return float64(h&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

func valueNoise2D(x, z float64, seed int64) float64 {
	x0, z0 := math.Floor(x), math.Floor(z)
	fx, fz := fade(x-x0), fade(z-z0)
	ix, iz := int64(x0), int64(z0)

	i0 := lerp(unit(hash2(ix, iz, seed)), unit(hash2(ix+1, iz, seed)), fx)
	i1 := lerp(unit(hash2(ix, iz+1, seed)), unit(hash2(ix+1, iz+1, seed)), fx)
	return lerp(i0, i1, fz)
}

func valueNoise3D(x, y, z float64, seed int64) float64 {
	x0, y0, z0 := math.Floor(x), math.Floor(y), math.Floor(z)
	fx, fy, fz := fade(x-x0), fade(y-y0), fade(z-z0)
	ix, iy, iz := int64(x0), int64(y0), int64(z0)

	corner := func(dx, dy, dz int64) float64 {
		return unit(hash3(ix+dx, iy+dy, iz+dz, seed))
	}
	i00 := lerp(corner(0, 0, 0), corner(1, 0, 0), fx)
	i10 := lerp(corner(0, 1, 0), corner(1, 1, 0), fx)
	i01 := lerp(corner(0, 0, 1), corner(1, 0, 1), fx)
	i11 := lerp(corner(0, 1, 1), corner(1, 1, 1), fx)
	return lerp(lerp(i00, i10, fy), lerp(i01, i11, fy), fz)
}
