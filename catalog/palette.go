package catalog

import (
	"image/color"
	"math/rand/v2"
)

// NewPalette draws n opaque colours with every channel uniform in [0, 255).
func NewPalette(n int, rng *rand.Rand) []color.RGBA {
	palette := make([]color.RGBA, n)
	for i := range palette {
		palette[i] = color.RGBA{
			R: uint8(rng.Float64() * 255),
			G: uint8(rng.Float64() * 255),
			B: uint8(rng.Float64() * 255),
			A: 255,
		}
	}
	return palette
}
