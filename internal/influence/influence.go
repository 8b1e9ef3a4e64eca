// Package influence provides a discretized 2-D scalar field over the
// playable area. Cells hold signed real values; adds and subtracts of the
// same contribution cancel exactly, so a map can be maintained as a running
// ledger instead of being recomputed.
package influence

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

var (
	// ErrDimensionMismatch is returned when two maps of different size are combined
	ErrDimensionMismatch = errors.New("influence: map dimensions differ")
	// ErrNoTile is returned when no positive, unobstructed cell exists
	ErrNoTile = errors.New("influence: no unobstructed positive tile")
)

// Falloff selects how influence decays away from its centre
type Falloff int

const (
	// Linear decays from strength at the centre to zero at the radius
	Linear Falloff = iota
	// Constant applies strength everywhere inside the radius
	Constant
	// Quadratic decays with the squared distance
	Quadratic
)

// String returns the falloff name
func (f Falloff) String() string {
	switch f {
	case Linear:
		return "linear"
	case Constant:
		return "constant"
	case Quadratic:
		return "quadratic"
	default:
		return "unknown"
	}
}

// ParseFalloff resolves a falloff by name
func ParseFalloff(s string) (Falloff, error) {
	for _, f := range []Falloff{Linear, Constant, Quadratic} {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("influence: unknown falloff %q", s)
}

// Contributions are snapped to multiples of 1/ledgerScale. Sums of such
// values are exact in float64 while |cell| < 2^37.
const ledgerScale = 1 << 16

func quantize(v float64) float64 {
	return math.Round(v*ledgerScale) / ledgerScale
}

// Map is a row-major grid of width*height cells
type Map struct {
	width  int
	height int
	cells  []float64
}

// New creates a zeroed map
func New(width, height int) *Map {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Map{
		width:  width,
		height: height,
		cells:  make([]float64, width*height),
	}
}

// Width returns the number of columns
func (m *Map) Width() int { return m.width }

// Height returns the number of rows
func (m *Map) Height() int { return m.height }

// Len returns the number of cells
func (m *Map) Len() int { return len(m.cells) }

// Index returns the flat index of cell (x, z)
func (m *Map) Index(x, z int) int { return z*m.width + x }

// Coords returns the cell coordinates of a flat index
func (m *Map) Coords(idx int) (x, z int) { return idx % m.width, idx / m.width }

// InBounds reports whether (x, z) lies on the grid
func (m *Map) InBounds(x, z int) bool {
	return x >= 0 && x < m.width && z >= 0 && z < m.height
}

// At returns the value of cell (x, z), or 0 off the grid
func (m *Map) At(x, z int) float64 {
	if !m.InBounds(x, z) {
		return 0
	}
	return m.cells[m.Index(x, z)]
}

// Set overwrites cell (x, z); off-grid writes are dropped
func (m *Map) Set(x, z int, v float64) {
	if !m.InBounds(x, z) {
		return
	}
	m.cells[m.Index(x, z)] = v
}

// Cells returns the backing slice
func (m *Map) Cells() []float64 { return m.cells }

// Clone returns a deep copy
func (m *Map) Clone() *Map {
	c := New(m.width, m.height)
	copy(c.cells, m.cells)
	return c
}

// SameSize reports whether o has the same dimensions
func (m *Map) SameSize(o *Map) bool {
	return o != nil && m.width == o.width && m.height == o.height
}

// AddInfluence adds strength around (cx, cz), clipped to the grid. Only cells
// strictly closer than radius are touched. Negative strength subtracts, and
// subtracting the exact same arguments restores every cell bit for bit.
func (m *Map) AddInfluence(cx, cz, radius int, strength float64, falloff Falloff) {
	if radius <= 0 || strength == 0 {
		return
	}

	x0 := max(0, cx-radius)
	z0 := max(0, cz-radius)
	x1 := min(m.width, cx+radius)
	z1 := min(m.height, cz+radius)
	r := float64(radius)
	maxDist2 := radius * radius

	var str float64
	switch falloff {
	case Linear:
		str = strength / r
	case Quadratic:
		str = strength / float64(maxDist2)
	default:
		str = strength
	}

	for z := z0; z < z1; z++ {
		for x := x0; x < x1; x++ {
			dx := x - cx
			dz := z - cz
			r2 := dx*dx + dz*dz
			if r2 >= maxDist2 {
				continue
			}

			var quant float64
			switch falloff {
			case Linear:
				quant = str * (r - math.Sqrt(float64(r2)))
			case Quadratic:
				quant = str * float64(maxDist2-r2)
			default:
				quant = str
			}
			m.cells[z*m.width+x] += quantize(quant)
		}
	}
}

// Multiply replaces every cell with its product with the matching cell of o
func (m *Map) Multiply(o *Map) error {
	if !m.SameSize(o) {
		return ErrDimensionMismatch
	}
	for i := range m.cells {
		m.cells[i] *= o.cells[i]
	}
	return nil
}

// SumInfluence integrates the cells strictly closer than radius to (cx, cz)
func (m *Map) SumInfluence(cx, cz, radius int) float64 {
	if radius <= 0 {
		return 0
	}

	x0 := max(0, cx-radius)
	z0 := max(0, cz-radius)
	x1 := min(m.width, cx+radius)
	z1 := min(m.height, cz+radius)
	radius2 := radius * radius

	var sum float64
	for z := z0; z < z1; z++ {
		for x := x0; x < x1; x++ {
			dx := x - cx
			dz := z - cz
			if dx*dx+dz*dz < radius2 {
				sum += m.cells[z*m.width+x]
			}
		}
	}
	return sum
}

// ExpandInfluences dilates the map: every value spreads to its neighbours,
// losing 1 per cell step (4-connected), and a cell keeps the larger of its
// own value and what reaches it. Values never decrease.
func (m *Map) ExpandInfluences() {
	w, h := m.width, m.height

	for z := 0; z < h; z++ {
		row := m.cells[z*w : (z+1)*w]
		carry := math.Inf(-1)
		for x := 0; x < w; x++ {
			carry = spread(&row[x], carry)
		}
		carry = math.Inf(-1)
		for x := w - 1; x >= 0; x-- {
			carry = spread(&row[x], carry)
		}
	}

	for x := 0; x < w; x++ {
		carry := math.Inf(-1)
		for z := 0; z < h; z++ {
			carry = spread(&m.cells[z*w+x], carry)
		}
		carry = math.Inf(-1)
		for z := h - 1; z >= 0; z-- {
			carry = spread(&m.cells[z*w+x], carry)
		}
	}
}

func spread(cell *float64, carry float64) float64 {
	if *cell < carry {
		*cell = carry
	} else {
		carry = *cell
	}
	return carry - 1
}

// Tile is a cell picked by FindBestTile
type Tile struct {
	Index int
	X     int
	Z     int
	Value float64
}

// FindBestTile returns the highest positive cell whose obstruction value is
// not positive. Ties go to the first cell in row-major order.
func (m *Map) FindBestTile(minSeparation int, obstruction *Map) (Tile, error) {
	tiles, err := m.FindBestTiles(1, minSeparation, obstruction)
	if err != nil {
		return Tile{}, err
	}
	return tiles[0], nil
}

// FindBestTiles returns up to n tiles in decreasing value. Every tile lies
// at least minSeparation cells from each tile returned before it. A nil
// obstruction map means nothing is obstructed.
func (m *Map) FindBestTiles(n, minSeparation int, obstruction *Map) ([]Tile, error) {
	if obstruction != nil && !m.SameSize(obstruction) {
		return nil, ErrDimensionMismatch
	}
	if n <= 0 {
		return nil, nil
	}

	sep2 := minSeparation * minSeparation
	var picked []Tile
	for len(picked) < n {
		best := -1
		bestVal := 0.0
		for i, v := range m.cells {
			if v <= bestVal {
				continue
			}
			if obstruction != nil && obstruction.cells[i] > 0 {
				continue
			}
			if tooClose(m.width, i, picked, sep2) {
				continue
			}
			best = i
			bestVal = v
		}
		if best < 0 {
			break
		}
		x, z := m.Coords(best)
		picked = append(picked, Tile{Index: best, X: x, Z: z, Value: bestVal})
	}

	if len(picked) == 0 {
		return nil, ErrNoTile
	}
	return picked, nil
}

func tooClose(width, idx int, picked []Tile, sep2 int) bool {
	x, z := idx%width, idx/width
	for _, t := range picked {
		dx := x - t.X
		dz := z - t.Z
		if dx*dx+dz*dz < sep2 {
			return true
		}
	}
	return false
}

// WorldToCell converts a world position to the nearest cell
func WorldToCell(x, z, cellSize float64) (int, int) {
	return int(math.Round(x / cellSize)), int(math.Round(z / cellSize))
}

// CellCenter converts a flat index back to the world position of the cell centre
func (m *Map) CellCenter(idx int, cellSize float64) (x, z float64) {
	cx, cz := m.Coords(idx)
	return (float64(cx) + 0.5) * cellSize, (float64(cz) + 0.5) * cellSize
}

// Image renders the map as grayscale with v*scale clamped to [0, 255]
func (m *Map) Image(scale float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.width, m.height))
	for i, v := range m.cells {
		x, z := m.Coords(i)
		g := math.Max(0, math.Min(255, v*scale))
		img.SetGray(x, z, color.Gray{Y: uint8(g)})
	}
	return img
}
