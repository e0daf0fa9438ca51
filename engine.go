package isoboard

// Engine is one board session: the spatial index, camera, culler, batch
// planner, drag controller, and event pipeline wired together and driven
// by a per-frame Update. An Engine owns its components exclusively; it
// is single-threaded and must be driven from one goroutine.
type Engine struct {
	cfg     Config
	index   *TileIndex
	cam     *Camera
	culler  *Culler
	planner *BatchPlanner
	drag    *DragController
	pipe    *EventPipeline
	perf    *perfMonitor

	bookmarks   []Bookmark
	bookmarkSeq int

	hovered  *Cell
	selected *Cell

	wasAnimating bool
	closed       bool
}

// NewEngine creates a board session from cfg. Zero tuning fields take
// named defaults; invalid board, tile, or viewport dimensions fail fast
// with ErrInvalidConfig.
func NewEngine(cfg Config) (*Engine, error) {
	cfg = cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	pipe := NewEventPipeline(cfg.Events)
	index := NewTileIndex(cfg.BoardWidth, cfg.BoardHeight, cfg.ChunkSize)
	cam := NewCamera(
		Rect{Width: float64(cfg.ViewportWidth), Height: float64(cfg.ViewportHeight)},
		cfg.ZoomMin, cfg.ZoomMax,
	)
	if cfg.ClampCamera {
		cam.SetBounds(cfg.BoardPixelBounds())
	}
	// Start centered on the board.
	center := GridToWorld(Cell{Col: cfg.BoardWidth / 2, Row: cfg.BoardHeight / 2},
		cfg.TileWidth, cfg.TileHeight)
	cam.X, cam.Y = center.X, center.Y

	e := &Engine{
		cfg:     cfg,
		index:   index,
		cam:     cam,
		culler:  NewCuller(cfg, index, cam),
		planner: NewBatchPlanner(cfg),
		drag:    NewDragController(cfg, index, pipe),
		pipe:    pipe,
		perf:    newPerfMonitor(pipe),
	}
	e.drag.onMutate = e.culler.Invalidate

	pipe.Publish(EventBoardInitialized, BoardEvent{
		Width: cfg.BoardWidth, Height: cfg.BoardHeight,
	})
	return e, nil
}

// Config returns the engine's effective (normalized) configuration.
func (e *Engine) Config() Config { return e.cfg }

// Camera returns the engine's camera for direct manipulation. Prefer
// the Engine wrappers when you want camera events emitted.
func (e *Engine) Camera() *Camera { return e.cam }

// Events returns the event pipeline for subscriptions.
func (e *Engine) Events() *EventPipeline { return e.pipe }

// Drag returns the drag controller.
func (e *Engine) Drag() *DragController { return e.drag }

// Index returns the spatial index. Mutating it directly bypasses event
// emission and cull invalidation; use the placement API instead.
func (e *Engine) Index() *TileIndex { return e.index }

// SetDebug enables the stderr performance report.
func (e *Engine) SetDebug(on bool) { e.perf.debug = on }

// --- Frame loop ---

// Update advances one frame: camera animation and follow, event
// pipeline flushes, viewport culling, and batch planning, in that
// order. Index mutations always happen before this call (in direct
// response to input), so within a frame mutations precede culling and
// culling precedes batch planning. dt is the frame delta in seconds.
func (e *Engine) Update(dt float64) {
	if e.closed {
		return
	}

	camChanged := e.cam.Update(dt)
	if camChanged {
		e.publishCameraMove()
	}
	e.trackAnimation(camChanged)

	e.pipe.Update(dt)

	// Even without a recull, camera motion moves the projection, so the
	// vertex buffers must be rebuilt.
	if e.culler.Update(dt) || camChanged {
		e.planner.Plan(e.culler.Visible(), e.cam.ViewMatrix())
	}

	e.perf.update(dt,
		len(e.culler.Visible()), len(e.planner.Batches()),
		e.culler.Reculls(), e.pipe.QueueLen())
}

// trackAnimation emits camera-animation-update/end around teleports.
func (e *Engine) trackAnimation(changed bool) {
	animating := e.cam.Animating()
	if animating && changed {
		e.pipe.Publish(EventCameraAnimUpdate, e.cameraEvent())
	}
	if e.wasAnimating && !animating {
		e.pipe.Publish(EventCameraAnimEnd, e.cameraEvent())
	}
	e.wasAnimating = animating
}

// Batches returns the draw batches planned for the current frame.
func (e *Engine) Batches() []Batch { return e.planner.Batches() }

// VisibleTiles returns the current culled tile set.
func (e *Engine) VisibleTiles() []VisibleTile { return e.culler.Visible() }

// Close tears the session down, cancelling the event pipeline's pending
// work so nothing is delivered after teardown.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.cam.StopFollowing()
	e.pipe.Close()
}

// --- Placement API ---

// PlaceTile puts tile at (col, row). Returns false when the cell is out
// of bounds or occupied; the failure is also surfaced on the error
// event category.
func (e *Engine) PlaceTile(col, row int, tile Tile) bool {
	cell := Cell{Col: col, Row: row}
	if _, err := e.index.Place(cell, tile); err != nil {
		e.pipe.Publish(EventError, ErrorEvent{Op: "place", Err: err})
		return false
	}
	e.culler.Invalidate()
	e.pipe.Publish(EventTilePlaced, TileEvent{Cell: cell, Tile: tile})
	return true
}

// RemoveTile removes the tile at (col, row). Returns false for empty or
// out-of-bounds cells and for locked tiles.
func (e *Engine) RemoveTile(col, row int) bool {
	cell := Cell{Col: col, Row: row}
	tile, err := e.index.Remove(cell)
	if err != nil {
		e.pipe.Publish(EventError, ErrorEvent{Op: "remove", Err: err})
		return false
	}
	e.culler.Invalidate()
	e.pipe.Publish(EventTileRemoved, TileEvent{Cell: cell, Tile: tile})
	return true
}

// GetTileAt returns the tile at (col, row), if any.
func (e *Engine) GetTileAt(col, row int) (Tile, bool) {
	return e.index.Get(Cell{Col: col, Row: row})
}

// MoveTile relocates a tile atomically; a failed move leaves the board
// unchanged.
func (e *Engine) MoveTile(from, to Cell) error {
	tile, err := e.index.Move(from, to)
	if err != nil {
		e.pipe.Publish(EventError, ErrorEvent{Op: "move", Err: err})
		return err
	}
	e.culler.Invalidate()
	if from != to {
		e.pipe.Publish(EventTileRemoved, TileEvent{Cell: from, Tile: tile})
		e.pipe.Publish(EventTilePlaced, TileEvent{Cell: to, Tile: tile})
	}
	return nil
}

// ExportState returns every placement on the board.
func (e *Engine) ExportState() []Placement {
	return e.index.Export()
}

// ImportState clears the board and replays the given placements,
// returning any that could not be applied.
func (e *Engine) ImportState(placements []Placement) []Placement {
	skipped := e.index.Import(placements)
	e.culler.Invalidate()
	e.pipe.Publish(EventBoardCleared, BoardEvent{
		Width: e.cfg.BoardWidth, Height: e.cfg.BoardHeight,
	})
	e.pipe.Publish(EventBoardInitialized, BoardEvent{
		Width: e.cfg.BoardWidth, Height: e.cfg.BoardHeight, Tiles: e.index.Count(),
	})
	return skipped
}

// ClearBoard removes every tile.
func (e *Engine) ClearBoard() {
	e.index.Clear()
	e.culler.Invalidate()
	e.pipe.Publish(EventBoardCleared, BoardEvent{
		Width: e.cfg.BoardWidth, Height: e.cfg.BoardHeight,
	})
}

// ResizeBoard rebuilds the index at the new dimensions, keeping tiles
// that remain in bounds. Fails fast for non-positive dimensions.
func (e *Engine) ResizeBoard(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrInvalidConfig
	}
	// An active drag holds its tile outside the index. Cancel it first so
	// the tile is restored to its origin before the index is exported;
	// rebuilding the controller mid-session would lose the tile.
	if e.drag.State() == Dragging {
		e.drag.Cancel() //nolint:errcheck
	}
	old := e.index.Export()
	e.cfg.BoardWidth = width
	e.cfg.BoardHeight = height
	e.index = NewTileIndex(width, height, e.cfg.ChunkSize)
	for _, p := range old {
		e.index.Place(p.Cell, p.Tile) //nolint:errcheck
	}
	// Rewire components that captured the old index or config.
	e.culler = NewCuller(e.cfg, e.index, e.cam)
	e.drag = NewDragController(e.cfg, e.index, e.pipe)
	e.drag.onMutate = e.culler.Invalidate
	if e.cfg.ClampCamera {
		e.cam.SetBounds(e.cfg.BoardPixelBounds())
	}
	e.pipe.Publish(EventBoardResized, BoardEvent{
		Width: width, Height: height, Tiles: e.index.Count(),
	})
	return nil
}

// --- Camera API ---

// cameraEvent snapshots the camera for event payloads.
func (e *Engine) cameraEvent() CameraEvent {
	col, row := WorldToGridF(e.cam.X, e.cam.Y, e.cfg.TileWidth, e.cfg.TileHeight)
	return CameraEvent{
		Position: e.cam.Position(),
		Zoom:     e.cam.Zoom,
		GridCol:  col,
		GridRow:  row,
	}
}

func (e *Engine) publishCameraMove() {
	e.pipe.Publish(EventCameraMove, e.cameraEvent())
}

// Pan moves the camera by (dx, dy) world pixels.
func (e *Engine) Pan(dx, dy float64) {
	e.cam.Pan(dx, dy)
	e.publishCameraMove()
}

// ZoomBy multiplies zoom by factor about the viewport center.
func (e *Engine) ZoomBy(factor float64) {
	e.cam.ZoomBy(factor)
	e.pipe.Publish(EventCameraZoom, e.cameraEvent())
}

// ZoomAboutPoint multiplies zoom by factor, keeping the world point
// under the given screen point fixed.
func (e *Engine) ZoomAboutPoint(factor, screenX, screenY float64) {
	e.cam.ZoomAboutPoint(factor, screenX, screenY)
	e.pipe.Publish(EventCameraZoom, e.cameraEvent())
}

// TeleportTo eases the camera to dest over duration seconds.
func (e *Engine) TeleportTo(dest Vec2, destZoom, duration float64) {
	e.cam.TeleportTo(dest, destZoom, duration)
	e.wasAnimating = e.cam.Animating()
	if e.wasAnimating {
		e.pipe.Publish(EventCameraAnimStart, e.cameraEvent())
	} else {
		// Zero duration jumps immediately.
		e.publishCameraMove()
	}
}

// TeleportToCell centers the camera on a cell.
func (e *Engine) TeleportToCell(cell Cell, destZoom, duration float64) {
	w := GridToWorld(cell, e.cfg.TileWidth, e.cfg.TileHeight)
	center := Vec2{
		X: w.X + float64(e.cfg.TileWidth)/2,
		Y: w.Y + float64(e.cfg.TileHeight)/2,
	}
	e.TeleportTo(center, destZoom, duration)
}

// StartFollowing tracks target with the configured smoothing factor.
func (e *Engine) StartFollowing(target func() Vec2) {
	e.cam.StartFollowing(target, e.cfg.FollowLerp)
}

// StopFollowing stops tracking.
func (e *Engine) StopFollowing() { e.cam.StopFollowing() }

// Position returns the camera's world-space center.
func (e *Engine) Position() Vec2 { return e.cam.Position() }

// Zoom returns the camera zoom.
func (e *Engine) Zoom() float64 { return e.cam.Zoom }

// ScreenToCell converts a screen point to the cell under it.
func (e *Engine) ScreenToCell(screenX, screenY float64) Cell {
	wx, wy := e.cam.ScreenToWorld(screenX, screenY)
	return WorldToGrid(wx, wy, e.cfg.TileWidth, e.cfg.TileHeight)
}

// --- Selection and hover ---

// SelectTile marks the tile at cell selected, deselecting any previous
// selection. Returns false for empty cells.
func (e *Engine) SelectTile(cell Cell) bool {
	tile, ok := e.index.Get(cell)
	if !ok {
		return false
	}
	if e.selected != nil && *e.selected != cell {
		if prev, ok := e.index.Get(*e.selected); ok {
			e.pipe.Publish(EventTileDeselected, TileEvent{Cell: *e.selected, Tile: prev})
		}
	}
	e.selected = &cell
	e.pipe.Publish(EventTileSelected, TileEvent{Cell: cell, Tile: tile})
	return true
}

// Deselect clears the current selection.
func (e *Engine) Deselect() {
	if e.selected == nil {
		return
	}
	if tile, ok := e.index.Get(*e.selected); ok {
		e.pipe.Publish(EventTileDeselected, TileEvent{Cell: *e.selected, Tile: tile})
	}
	e.selected = nil
}

// Hover reports the pointer resting over a cell, emitting hover
// start/end transitions when the hovered cell changes.
func (e *Engine) Hover(cell Cell) {
	if e.hovered != nil && *e.hovered == cell {
		return
	}
	e.endHover()
	if tile, ok := e.index.Get(cell); ok {
		e.hovered = &cell
		e.pipe.Publish(EventTileHoverStart, TileEvent{Cell: cell, Tile: tile})
	}
}

// ClearHover reports the pointer leaving the board.
func (e *Engine) ClearHover() { e.endHover() }

func (e *Engine) endHover() {
	if e.hovered == nil {
		return
	}
	if tile, ok := e.index.Get(*e.hovered); ok {
		e.pipe.Publish(EventTileHoverEnd, TileEvent{Cell: *e.hovered, Tile: tile})
	}
	e.hovered = nil
}

// --- Drag wrappers ---

// StartDrag begins a drag session; see DragController.StartDrag.
func (e *Engine) StartDrag(tile Tile, source DragSource, origin Cell) error {
	return e.drag.StartDrag(tile, source, origin)
}

// DragMoveScreen feeds a pointer position in screen pixels to the
// active drag session.
func (e *Engine) DragMoveScreen(screenX, screenY float64) ([]NearbyTile, error) {
	wx, wy := e.cam.ScreenToWorld(screenX, screenY)
	return e.drag.Move(wx, wy)
}

// DragMoveWorld feeds a pointer position in world pixels to the active
// drag session.
func (e *Engine) DragMoveWorld(worldX, worldY float64) ([]NearbyTile, error) {
	return e.drag.Move(worldX, worldY)
}

// Drop releases the active drag session at its current cell.
func (e *Engine) Drop() (Cell, bool, error) { return e.drag.Drop() }

// CancelDrag aborts the active drag session.
func (e *Engine) CancelDrag() error { return e.drag.Cancel() }
