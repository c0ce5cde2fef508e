// Package catalog holds the class names a detection model can report and the
// colour used to draw each of them.
package catalog

import (
	"errors"
	"image/color"
	"math/rand/v2"
	"time"
)

// Catalog is the immutable class list together with its palette. Both slices
// are indexed by class id and always have the same length.
type Catalog struct {
	names  []string
	colors []color.RGBA
}

// New builds a catalog and generates one random colour per class. A zero seed
// picks a time based seed.
func New(names []string, seed uint64) (*Catalog, error) {
	if len(names) == 0 {
		return nil, errors.New("class catalog is empty")
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	owned := make([]string, len(names))
	copy(owned, names)
	return &Catalog{
		names:  owned,
		colors: NewPalette(len(owned), rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))),
	}, nil
}

func (c *Catalog) Len() int {
	return len(c.names)
}

// Valid reports whether id indexes the catalog.
func (c *Catalog) Valid(id int) bool {
	return id >= 0 && id < len(c.names)
}

// Name returns the class name for id, or false when id is out of range.
func (c *Catalog) Name(id int) (string, bool) {
	if !c.Valid(id) {
		return "", false
	}
	return c.names[id], true
}

// Color returns the palette entry for id, or false when id is out of range.
func (c *Catalog) Color(id int) (color.RGBA, bool) {
	if !c.Valid(id) {
		return color.RGBA{}, false
	}
	return c.colors[id], true
}

// Names returns a copy of the class list.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
