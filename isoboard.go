package isoboard

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs when the batch planner builds vertex buffers.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tile tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// Vec2 is a 2D vector used for positions, offsets, and sizes throughout
// the API. World-space units are pixels at zoom 1.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Cell is one discrete address on the logical board grid.
type Cell struct {
	Col, Row int
}

// Tile is an immutable-by-convention board occupant. The engine never
// mutates a Tile after placement, only its association with a cell.
type Tile struct {
	// ID uniquely identifies the tile across the whole board.
	ID string
	// Type is a free category tag ("unit", "building", ...). The engine
	// does not interpret it beyond batching.
	Type string
	// Color tints the tile's quad. The zero value renders as white.
	Color Color
	// Image optionally names an atlas region or image resource. Tiles
	// sharing the same Image and LOD tier batch together.
	Image string
	// Locked tiles refuse removal until unlocked by the application.
	Locked bool
	// Metadata is an opaque payload the engine never inspects.
	Metadata map[string]any
}

// DragSource identifies where a drag session picked its tile up from.
type DragSource uint8

const (
	// DragFromInventory drags a tile that is not yet on the board.
	DragFromInventory DragSource = iota
	// DragFromBoard drags a tile out of an occupied cell. The tile is
	// optimistically removed from its origin cell for the duration of
	// the drag and restored on cancellation.
	DragFromBoard
)

// String returns "inventory" or "board".
func (s DragSource) String() string {
	if s == DragFromBoard {
		return "board"
	}
	return "inventory"
}
