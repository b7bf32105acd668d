package spatial

import (
	"errors"
	"math"
	"sync"
)

// ErrInvalidCellSize is returned for a cell size that is not a positive finite number.
var ErrInvalidCellSize = errors.New("spatial: cell size must be positive and finite")

// Vec2 is a position in world units.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }

func (v Vec2) DistSq(o Vec2) float64 {
	dx, dy := v.X-o.X, v.Y-o.Y
	return dx*dx + dy*dy
}

// Cell is an integer grid coordinate.
type Cell struct {
	X int32
	Y int32
}

type entry struct {
	pos  Vec2
	cell Cell
}

// Grid is a uniform-cell index over keyed positions. Every key in a cell set
// has a matching position record and vice versa. Safe for concurrent use.
type Grid[K comparable] struct {
	mu        sync.RWMutex
	cellSize  float64
	cells     map[Cell]map[K]struct{}
	positions map[K]entry
}

func NewGrid[K comparable](cellSize float64) (*Grid[K], error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, ErrInvalidCellSize
	}
	return &Grid[K]{
		cellSize:  cellSize,
		cells:     make(map[Cell]map[K]struct{}),
		positions: make(map[K]entry),
	}, nil
}

func (g *Grid[K]) CellSize() float64 { return g.cellSize }

// toCellCoord floors so that -0.5 and 0.5 land in different cells.
func toCellCoord(v, size float64) int32 {
	c := math.Floor(v / size)
	switch {
	case c >= math.MaxInt32:
		return math.MaxInt32
	case c <= math.MinInt32:
		return math.MinInt32
	case math.IsNaN(c):
		return 0
	}
	return int32(c)
}

// CellOf maps a position to its cell.
func (g *Grid[K]) CellOf(p Vec2) Cell {
	return Cell{X: toCellCoord(p.X, g.cellSize), Y: toCellCoord(p.Y, g.cellSize)}
}

func (g *Grid[K]) addToCell(k K, c Cell) {
	set := g.cells[c]
	if set == nil {
		set = make(map[K]struct{})
		g.cells[c] = set
	}
	set[k] = struct{}{}
}

func (g *Grid[K]) removeFromCell(k K, c Cell) {
	set := g.cells[c]
	if set == nil {
		return
	}
	delete(set, k)
	if len(set) == 0 {
		delete(g.cells, c)
	}
}

// Update records k at p, moving it between cells when its cell changes.
func (g *Grid[K]) Update(k K, p Vec2) {
	c := g.CellOf(p)
	g.mu.Lock()
	defer g.mu.Unlock()
	if old, ok := g.positions[k]; ok && old.cell != c {
		g.removeFromCell(k, old.cell)
		g.addToCell(k, c)
	} else if !ok {
		g.addToCell(k, c)
	}
	g.positions[k] = entry{pos: p, cell: c}
}

// Remove drops k from its cell and the position cache.
func (g *Grid[K]) Remove(k K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	old, ok := g.positions[k]
	if !ok {
		return false
	}
	g.removeFromCell(k, old.cell)
	delete(g.positions, k)
	return true
}

func (g *Grid[K]) Position(k K) (Vec2, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.positions[k]
	return e.pos, ok
}

// Len returns the number of indexed keys.
func (g *Grid[K]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.positions)
}

// Query returns every key whose Euclidean distance to center is at most
// radius. Cells within Chebyshev distance ceil(radius/cellSize) of the
// center's cell are scanned; candidates are then filtered exactly.
func (g *Grid[K]) Query(center Vec2, radius float64) []K {
	if !(radius >= 0) {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	cc := g.CellOf(center)
	reach := math.Ceil(radius / g.cellSize)
	r2 := radius * radius
	var result []K

	// When the ring covers more cells than are occupied, walk the occupied
	// cells instead. Same cells, same filter.
	side := 2*reach + 1
	if side*side > float64(len(g.cells)) {
		for c, set := range g.cells {
			if math.Abs(float64(c.X)-float64(cc.X)) > reach || math.Abs(float64(c.Y)-float64(cc.Y)) > reach {
				continue
			}
			result = g.collect(result, set, center, r2)
		}
		return result
	}

	n := int64(reach)
	for dx := -n; dx <= n; dx++ {
		for dy := -n; dy <= n; dy++ {
			c := Cell{X: int32(int64(cc.X) + dx), Y: int32(int64(cc.Y) + dy)}
			if set, ok := g.cells[c]; ok {
				result = g.collect(result, set, center, r2)
			}
		}
	}
	return result
}

func (g *Grid[K]) collect(dst []K, set map[K]struct{}, center Vec2, r2 float64) []K {
	for k := range set {
		if g.positions[k].pos.DistSq(center) <= r2 {
			dst = append(dst, k)
		}
	}
	return dst
}

// QueryRect returns every key inside the closed rectangle [min, max].
func (g *Grid[K]) QueryRect(min, max Vec2) []K {
	if min.X > max.X || min.Y > max.Y {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	lo, hi := g.CellOf(min), g.CellOf(max)
	var result []K
	inside := func(p Vec2) bool {
		return p.X >= min.X && p.X <= max.X && p.Y >= min.Y && p.Y <= max.Y
	}
	span := (float64(hi.X) - float64(lo.X) + 1) * (float64(hi.Y) - float64(lo.Y) + 1)
	if span > float64(len(g.cells)) {
		for c, set := range g.cells {
			if c.X < lo.X || c.X > hi.X || c.Y < lo.Y || c.Y > hi.Y {
				continue
			}
			for k := range set {
				if inside(g.positions[k].pos) {
					result = append(result, k)
				}
			}
		}
		return result
	}
	for x := int64(lo.X); x <= int64(hi.X); x++ {
		for y := int64(lo.Y); y <= int64(hi.Y); y++ {
			for k := range g.cells[Cell{X: int32(x), Y: int32(y)}] {
				if inside(g.positions[k].pos) {
					result = append(result, k)
				}
			}
		}
	}
	return result
}
