package isoboard

import "math"

// TileEvent is the payload for tile-placed, tile-removed, selection, and
// hover categories. Prev carries the previous occupant on replace-style
// operations so listeners never need a second lookup.
type TileEvent struct {
	Cell Cell
	Tile Tile
	Prev *Tile
}

// DragEvent is the payload for drag-start, drag-move, and drag-end.
type DragEvent struct {
	Tile   Tile
	Source DragSource
	// Origin is the source cell for board drags.
	Origin Cell
	// Cell is the cell currently under the pointer (drag-move) or the
	// final cell (drag-end).
	Cell Cell
	// World is the pointer position in world pixels.
	World Vec2
	// Valid reports geometric legality of Cell as a drop target.
	Valid bool
	// Placed is set on drag-end when the drop committed.
	Placed bool
}

// DeltaFrom returns the cell-space distance moved since prev, enabling
// dedup of near-stationary drag moves.
func (e DragEvent) DeltaFrom(prev any) float64 {
	p, ok := prev.(DragEvent)
	if !ok {
		return -1
	}
	return CellDistance(e.Cell, p.Cell)
}

// CameraEvent is the payload for camera-move, camera-zoom, and
// animation categories.
type CameraEvent struct {
	Position Vec2
	Zoom     float64
	// GridCol and GridRow are the fractional cell under the camera
	// center, used for cell-space dedup thresholds.
	GridCol float64
	GridRow float64
}

// DeltaFrom returns the cell-space distance the camera center moved
// since prev.
func (e CameraEvent) DeltaFrom(prev any) float64 {
	p, ok := prev.(CameraEvent)
	if !ok {
		return -1
	}
	dc := e.GridCol - p.GridCol
	dr := e.GridRow - p.GridRow
	return math.Sqrt(dc*dc + dr*dr)
}

// ProximityEvent is the payload for tile-proximity-detected: the tiles
// near the current drag position, sorted by distance.
type ProximityEvent struct {
	Cell   Cell
	Nearby []NearbyTile
}

// ValidationEvent is the payload for position-validation-request and
// -response. The engine asks (request) whether a drop at Cell is legal
// beyond geometry; the application answers (response) through
// DragController.SetValidator or by publishing a response itself.
type ValidationEvent struct {
	Cell  Cell
	Tile  Tile
	Valid bool
	// Reason explains a rejection; nil when Valid.
	Reason error
}

// BoardEvent is the payload for board-initialized, board-cleared, and
// board-resized.
type BoardEvent struct {
	Width  int
	Height int
	Tiles  int
}

// PerfStats is the payload for performance-update: a once-a-second
// summary of frame cost and pipeline load.
type PerfStats struct {
	FPS          float64
	FrameMillis  float64 // average frame time over the report window
	VisibleTiles int
	Batches      int
	Reculls      int
	QueueLen     int
}

// PerfWarning is the payload for performance-warning.
type PerfWarning struct {
	Reason  string
	Queued  int
	Dropped int
}

// ErrorEvent is the payload for the error category: a recoverable
// failure surfaced to listeners rather than returned, e.g. a rejected
// drop.
type ErrorEvent struct {
	Op  string
	Err error
}
