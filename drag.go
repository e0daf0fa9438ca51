package isoboard

// DragState is the controller's current phase. Placement and
// cancellation are instantaneous transitions back to DragIdle.
type DragState uint8

const (
	// DragIdle means no drag session exists.
	DragIdle DragState = iota
	// Dragging means a session is active and the tile follows the pointer.
	Dragging
)

// DragSession is the transient state of one drag. At most one session
// exists at a time (single-pointer assumption); it is created by
// StartDrag and destroyed on drop or cancel.
type DragSession struct {
	Tile   Tile
	Source DragSource
	// Origin is the cell the tile was lifted from (board drags only).
	Origin Cell
	// World is the last pointer position in world pixels.
	World Vec2
	// Cell is the cell currently under the pointer.
	Cell Cell
	// LastValid is the most recent geometrically legal target cell.
	LastValid Cell
	// HasValid reports whether LastValid has been set this session.
	HasValid bool
}

// Validator lets the application veto a drop on domain grounds ("unit
// must be adjacent to a friendly base"). The controller itself only
// checks geometric legality: in bounds and cell free. Return nil to
// allow the drop.
type Validator func(cell Cell, tile Tile, nearby []NearbyTile) error

// DragController converts pointer movement into grid placement. Board
// drags optimistically remove the tile from its origin cell so it
// visually detaches; cancellation restores it, keeping the board's tile
// multiset unchanged no matter how a drag ends.
type DragController struct {
	cfg   Config
	index *TileIndex
	pipe  *EventPipeline

	state     DragState
	session   DragSession
	validator Validator
	// onMutate is notified whenever the index changes under a drag, so
	// the engine can invalidate culling.
	onMutate func()
}

// NewDragController creates a controller over the given index and
// pipeline.
func NewDragController(cfg Config, index *TileIndex, pipe *EventPipeline) *DragController {
	return &DragController{cfg: cfg, index: index, pipe: pipe}
}

// SetValidator installs the application's domain validator. A nil
// validator allows every geometrically legal drop.
func (d *DragController) SetValidator(v Validator) { d.validator = v }

// State returns the controller's current phase.
func (d *DragController) State() DragState { return d.state }

// Session returns a copy of the active session. Only meaningful while
// State() == Dragging.
func (d *DragController) Session() DragSession { return d.session }

// StartDrag begins a session. For board drags the tile is removed from
// origin immediately; during the drag it exists only as the session's
// ghost, never in the index. Fails if a session is already active, the
// origin is empty, or the tile is locked.
func (d *DragController) StartDrag(tile Tile, source DragSource, origin Cell) error {
	if d.state != DragIdle {
		return ErrDragInProgress
	}
	if source == DragFromBoard {
		removed, err := d.index.Remove(origin)
		if err != nil {
			return err
		}
		tile = removed
		d.notifyMutate()
	}
	d.state = Dragging
	d.session = DragSession{Tile: tile, Source: source, Origin: origin}
	d.pipe.Publish(EventDragStart, DragEvent{
		Tile: tile, Source: source, Origin: origin, Cell: origin,
	})
	return nil
}

// Move updates the session with a new pointer position in world pixels.
// It converts the position to a cell, checks geometric legality, runs
// the proximity query, and surfaces both to listeners. Returns the
// nearby tiles so the caller can apply its own validation.
func (d *DragController) Move(worldX, worldY float64) ([]NearbyTile, error) {
	if d.state != Dragging {
		return nil, ErrNoDrag
	}
	cell := WorldToGrid(worldX, worldY, d.cfg.TileWidth, d.cfg.TileHeight)
	d.session.World = Vec2{X: worldX, Y: worldY}
	d.session.Cell = cell

	valid := d.IsValidTarget(cell)
	if valid {
		d.session.LastValid = cell
		d.session.HasValid = true
	}

	fcol, frow := WorldToGridF(worldX, worldY, d.cfg.TileWidth, d.cfg.TileHeight)
	nearby := d.index.QueryNearby(fcol, frow, d.cfg.ProximityRadius)

	d.pipe.Publish(EventDragMove, DragEvent{
		Tile: d.session.Tile, Source: d.session.Source, Origin: d.session.Origin,
		Cell: cell, World: d.session.World, Valid: valid,
	})
	if len(nearby) > 0 {
		d.pipe.Publish(EventTileProximity, ProximityEvent{Cell: cell, Nearby: nearby})
	}

	if valid && d.validator != nil {
		d.pipe.Publish(EventValidationRequest, ValidationEvent{Cell: cell, Tile: d.session.Tile})
		reason := d.validator(cell, d.session.Tile, nearby)
		d.pipe.Publish(EventValidationResponse, ValidationEvent{
			Cell: cell, Tile: d.session.Tile, Valid: reason == nil, Reason: reason,
		})
	}
	return nearby, nil
}

// IsValidTarget reports geometric legality of cell as a drop target:
// in bounds and empty, or the session's own origin for board drags.
func (d *DragController) IsValidTarget(cell Cell) bool {
	if !d.index.InBounds(cell) {
		return false
	}
	if d.state == Dragging &&
		d.session.Source == DragFromBoard && cell == d.session.Origin {
		// The origin was optimistically emptied; dropping back is legal.
		return true
	}
	_, occupied := d.index.Get(cell)
	return !occupied
}

// Drop releases the tile at the session's current cell. A legal drop
// places the tile and destroys the session; anything else cancels,
// restoring board-sourced tiles to their origin. Dropping a board tile
// onto its own origin is a no-op success. Returns the final cell and
// whether the drop committed.
func (d *DragController) Drop() (Cell, bool, error) {
	if d.state != Dragging {
		return Cell{}, false, ErrNoDrag
	}
	cell := d.session.Cell

	if d.session.Source == DragFromBoard && cell == d.session.Origin {
		// Degenerate same-cell drop: restore and succeed.
		d.restoreToOrigin()
		d.finish(cell, true)
		return cell, true, nil
	}

	if !d.IsValidTarget(cell) {
		d.cancelInternal()
		return cell, false, nil
	}
	if d.validator != nil {
		// Re-query so the validator sees the same proximity inputs at drop
		// time as it does during Move, centered on the commit cell.
		nearby := d.index.QueryNearby(float64(cell.Col), float64(cell.Row), d.cfg.ProximityRadius)
		if reason := d.validator(cell, d.session.Tile, nearby); reason != nil {
			d.cancelInternal()
			return cell, false, nil
		}
	}
	if _, err := d.index.Place(cell, d.session.Tile); err != nil {
		// Placement failure is a cancellation, preserving conservation.
		d.cancelInternal()
		return cell, false, nil
	}
	d.notifyMutate()
	d.pipe.Publish(EventTilePlaced, TileEvent{Cell: cell, Tile: d.session.Tile})
	d.finish(cell, true)
	return cell, true, nil
}

// Cancel aborts the session, restoring board-sourced tiles to their
// origin cell.
func (d *DragController) Cancel() error {
	if d.state != Dragging {
		return ErrNoDrag
	}
	d.cancelInternal()
	return nil
}

// cancelInternal rolls back the optimistic removal and ends the session.
func (d *DragController) cancelInternal() {
	if d.session.Source == DragFromBoard {
		d.restoreToOrigin()
	}
	d.finish(d.session.Cell, false)
}

// restoreToOrigin undoes the optimistic removal of a board drag. The
// origin cell is normally free because this session emptied it; if the
// application reoccupied it mid-drag the conservation failure is
// surfaced as an error event.
func (d *DragController) restoreToOrigin() {
	if _, err := d.index.Place(d.session.Origin, d.session.Tile); err != nil {
		d.pipe.Publish(EventError, ErrorEvent{Op: "drag-rollback", Err: err})
	}
	d.notifyMutate()
}

// finish destroys the session and emits drag-end.
func (d *DragController) finish(cell Cell, placed bool) {
	ev := DragEvent{
		Tile: d.session.Tile, Source: d.session.Source, Origin: d.session.Origin,
		Cell: cell, World: d.session.World, Valid: placed, Placed: placed,
	}
	d.state = DragIdle
	d.session = DragSession{}
	d.pipe.Publish(EventDragEnd, ev)
}

func (d *DragController) notifyMutate() {
	if d.onMutate != nil {
		d.onMutate()
	}
}
