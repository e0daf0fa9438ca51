package isoboard

import "errors"

// Index errors. All are recoverable: the failed operation is a no-op and
// the index is left unchanged.
var (
	// ErrOutOfBounds indicates a cell address outside the board extent.
	ErrOutOfBounds = errors.New("cell out of board bounds")

	// ErrCellOccupied indicates a placement target that already holds a tile.
	ErrCellOccupied = errors.New("cell already occupied")

	// ErrCellEmpty indicates a remove or move on a cell with no tile.
	ErrCellEmpty = errors.New("cell is empty")

	// ErrTileLocked indicates a removal attempt on a locked tile.
	ErrTileLocked = errors.New("tile is locked")
)

// Construction errors. These are fatal: an Engine must fail fast rather
// than produce undefined geometry.
var (
	// ErrInvalidConfig indicates non-positive board dimensions, tile size,
	// or otherwise inconsistent configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Drag errors
var (
	// ErrDragInProgress indicates a StartDrag while a session is already active.
	ErrDragInProgress = errors.New("drag session already in progress")

	// ErrNoDrag indicates a move/drop/cancel with no active drag session.
	ErrNoDrag = errors.New("no drag session in progress")
)
