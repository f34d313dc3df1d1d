package pad

import (
	"image"
	"math"
	"sort"

	"github.com/livenessd/server/internal/imaging"
)

const phashSize = 32

// perceptualHash computes a 64-bit fingerprint from the top-left 8x8 block
// of a naive type-II 2-D DCT over a 32x32 luminance thumbnail. Bit 0 of
// the output always corresponds to scan index 1 (the DC term at index 0
// is dropped), so implementations that skip index 0 the same way stay
// bit-compatible.
func perceptualHash(gray *image.Gray) uint64 {
	small := imaging.ResizeGray(gray, phashSize, phashSize)

	var f [phashSize][phashSize]float64
	for y := 0; y < phashSize; y++ {
		for x := 0; x < phashSize; x++ {
			f[y][x] = float64(small.GrayAt(small.Bounds().Min.X+x, small.Bounds().Min.Y+y).Y)
		}
	}

	c := dct2D(f)

	// Top-left 8x8 block, row-major scan, coefficient at [0][0] is the DC
	// term and is excluded from the bit computation below.
	var vals [64]float64
	idx := 0
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			vals[idx] = c[u][v]
			idx++
		}
	}

	ac := make([]float64, 63)
	copy(ac, vals[1:])
	sort.Float64s(ac)
	median := ac[len(ac)/2]

	var bits uint64
	for i := 1; i < len(vals); i++ {
		if vals[i] > median {
			bits |= 1 << uint(i-1)
		}
	}
	return bits
}

// dct2D computes a naive 32x32 type-II 2-D DCT: O(n^4) multiplications,
// acceptable at one session per core and 15fps per spec's cost analysis.
func dct2D(f [phashSize][phashSize]float64) [phashSize][phashSize]float64 {
	var c [phashSize][phashSize]float64
	for u := 0; u < phashSize; u++ {
		for v := 0; v < phashSize; v++ {
			var sum float64
			for y := 0; y < phashSize; y++ {
				for x := 0; x < phashSize; x++ {
					cx := math.Cos((math.Pi / phashSize) * (float64(x) + 0.5) * float64(u))
					cy := math.Cos((math.Pi / phashSize) * (float64(y) + 0.5) * float64(v))
					sum += f[y][x] * cx * cy
				}
			}
			alphaU := 1.0
			if u == 0 {
				alphaU = 1.0 / math.Sqrt2
			}
			alphaV := 1.0
			if v == 0 {
				alphaV = 1.0 / math.Sqrt2
			}
			c[u][v] = 0.25 * alphaU * alphaV * sum
		}
	}
	return c
}

func hammingDistance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}
