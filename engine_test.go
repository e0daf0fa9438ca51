package isoboard

import (
	"errors"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(Config{
		BoardWidth:     10,
		BoardHeight:    10,
		TileWidth:      64,
		TileHeight:     32,
		ViewportWidth:  800,
		ViewportHeight: 600,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

func TestNewEngineInvalidConfig(t *testing.T) {
	bad := []Config{
		{},
		{BoardWidth: 10, BoardHeight: 10},
		{BoardWidth: 10, BoardHeight: 10, TileWidth: 64, TileHeight: 32},
		{BoardWidth: -1, BoardHeight: 10, TileWidth: 64, TileHeight: 32,
			ViewportWidth: 800, ViewportHeight: 600},
		{BoardWidth: 10, BoardHeight: 10, TileWidth: 64, TileHeight: 32,
			ViewportWidth: 800, ViewportHeight: 600, ZoomMin: 2, ZoomMax: 1},
	}
	for i, cfg := range bad {
		if _, err := NewEngine(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("config %d: err = %v, want ErrInvalidConfig", i, err)
		}
	}
}

func TestEngineDefaultsApplied(t *testing.T) {
	eng := newTestEngine(t)
	cfg := eng.Config()
	if cfg.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want default %d", cfg.ChunkSize, DefaultChunkSize)
	}
	if cfg.ZoomMin != DefaultZoomMin || cfg.ZoomMax != DefaultZoomMax {
		t.Errorf("zoom bounds = [%g, %g]", cfg.ZoomMin, cfg.ZoomMax)
	}
	if cfg.LODBoundaries != defaultLODBoundaries {
		t.Errorf("LODBoundaries = %v", cfg.LODBoundaries)
	}
}

func TestEnginePlaceExportRemove(t *testing.T) {
	eng := newTestEngine(t)
	a := Tile{ID: "A", Type: "grass"}

	if !eng.PlaceTile(2, 2, a) {
		t.Fatal("PlaceTile failed")
	}
	state := eng.ExportState()
	if len(state) != 1 || (state[0].Cell != Cell{2, 2}) || state[0].Tile.ID != "A" {
		t.Fatalf("ExportState = %v, want [{2 2} A]", state)
	}

	if !eng.RemoveTile(2, 2) {
		t.Fatal("RemoveTile failed")
	}
	if _, ok := eng.GetTileAt(2, 2); ok {
		t.Error("tile still present after RemoveTile")
	}
	if len(eng.ExportState()) != 0 {
		t.Error("ExportState not empty after removal")
	}
}

func TestEnginePlacementFailuresSurfaceAsEvents(t *testing.T) {
	eng := newTestEngine(t)
	var errs []ErrorEvent
	eng.Events().Subscribe(EventError, func(ev Event) {
		errs = append(errs, ev.Payload.(ErrorEvent))
	})

	eng.PlaceTile(2, 2, Tile{ID: "A"})
	if eng.PlaceTile(2, 2, Tile{ID: "B"}) {
		t.Error("placement onto an occupied cell succeeded")
	}
	if eng.RemoveTile(9, 9) {
		t.Error("removal from an empty cell succeeded")
	}
	if len(errs) != 2 {
		t.Fatalf("error events = %d, want 2", len(errs))
	}
	if !errors.Is(errs[0].Err, ErrCellOccupied) || !errors.Is(errs[1].Err, ErrCellEmpty) {
		t.Errorf("error payloads = %v", errs)
	}
}

func TestEngineImportState(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(0, 0, Tile{ID: "old"})

	skipped := eng.ImportState([]Placement{
		{Cell: Cell{1, 1}, Tile: Tile{ID: "x"}},
		{Cell: Cell{2, 2}, Tile: Tile{ID: "y"}},
		{Cell: Cell{99, 99}, Tile: Tile{ID: "z"}},
	})
	if len(skipped) != 1 || skipped[0].Tile.ID != "z" {
		t.Fatalf("skipped = %v, want the out-of-bounds placement", skipped)
	}
	// Import replaces, never merges.
	if _, ok := eng.GetTileAt(0, 0); ok {
		t.Error("pre-import tile survived")
	}
	if len(eng.ExportState()) != 2 {
		t.Errorf("tiles = %d after import, want 2", len(eng.ExportState()))
	}
}

func TestEngineUpdateProducesBatches(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(4, 4, Tile{ID: "A", Color: Color{R: 1, A: 1}})
	eng.PlaceTile(5, 5, Tile{ID: "B", Color: Color{R: 1, A: 1}})

	eng.Update(1.0 / 60)
	if len(eng.VisibleTiles()) != 2 {
		t.Fatalf("visible = %d, want 2", len(eng.VisibleTiles()))
	}
	if len(eng.Batches()) != 1 {
		t.Fatalf("batches = %d, want 1 shared-key batch", len(eng.Batches()))
	}
	if eng.Batches()[0].QuadCount() != 2 {
		t.Errorf("quads = %d, want 2", eng.Batches()[0].QuadCount())
	}
}

func TestEngineMutationBeforeCullWithinFrame(t *testing.T) {
	// A placement immediately before Update must appear in that frame's
	// visible set and batches.
	eng := newTestEngine(t)
	eng.Update(1.0 / 60)
	if len(eng.VisibleTiles()) != 0 {
		t.Fatal("visible set not empty on an empty board")
	}

	eng.PlaceTile(3, 3, Tile{ID: "A"})
	eng.Update(1.0 / 60)
	if len(eng.VisibleTiles()) != 1 {
		t.Error("placement not culled into the same frame")
	}
	if len(eng.Batches()) != 1 {
		t.Error("placement not batched in the same frame")
	}
}

func TestEngineCameraEvents(t *testing.T) {
	eng := newTestEngine(t)
	var moves, zooms int
	eng.Events().Subscribe(EventCameraMove, func(Event) { moves++ })
	eng.Events().Subscribe(EventCameraZoom, func(Event) { zooms++ })

	eng.Pan(100, 50)
	eng.ZoomBy(1.5)
	if moves != 1 {
		t.Errorf("camera-move = %d, want 1", moves)
	}
	if zooms != 1 {
		t.Errorf("camera-zoom = %d, want 1", zooms)
	}
}

func TestEngineTeleportAnimationEvents(t *testing.T) {
	eng := newTestEngine(t)
	var starts, ends int
	eng.Events().Subscribe(EventCameraAnimStart, func(Event) { starts++ })
	eng.Events().Subscribe(EventCameraAnimEnd, func(Event) { ends++ })

	eng.TeleportTo(Vec2{X: 500, Y: 500}, 2.0, 0.2)
	if starts != 1 {
		t.Fatalf("anim-start = %d, want 1", starts)
	}
	for i := 0; i < 30; i++ {
		eng.Update(1.0 / 60)
	}
	if ends != 1 {
		t.Errorf("anim-end = %d, want 1", ends)
	}
	if eng.Position() != (Vec2{X: 500, Y: 500}) || eng.Zoom() != 2.0 {
		t.Errorf("final camera = %v zoom %v", eng.Position(), eng.Zoom())
	}
}

func TestEngineScreenToCell(t *testing.T) {
	eng := newTestEngine(t)
	// The viewport center looks at the camera position, which starts at
	// the world anchor of the board's center cell.
	cell := eng.ScreenToCell(400, 300)
	if (cell != Cell{5, 5}) {
		t.Errorf("center cell = %v, want {5 5}", cell)
	}
}

func TestEngineTeleportToCell(t *testing.T) {
	eng := newTestEngine(t)
	eng.TeleportToCell(Cell{3, 7}, 0, 0)
	w := GridToWorld(Cell{3, 7}, 64, 32)
	want := Vec2{X: w.X + 32, Y: w.Y + 16}
	if eng.Position() != want {
		t.Errorf("position = %v, want tile center %v", eng.Position(), want)
	}
}

func TestEngineSelection(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(1, 1, Tile{ID: "A"})
	eng.PlaceTile(2, 2, Tile{ID: "B"})

	var selected, deselected []string
	eng.Events().Subscribe(EventTileSelected, func(ev Event) {
		selected = append(selected, ev.Payload.(TileEvent).Tile.ID)
	})
	eng.Events().Subscribe(EventTileDeselected, func(ev Event) {
		deselected = append(deselected, ev.Payload.(TileEvent).Tile.ID)
	})

	if eng.SelectTile(Cell{5, 5}) {
		t.Error("selecting an empty cell succeeded")
	}
	eng.SelectTile(Cell{1, 1})
	eng.SelectTile(Cell{2, 2}) // implicit deselect of A
	eng.Deselect()

	if len(selected) != 2 || selected[0] != "A" || selected[1] != "B" {
		t.Errorf("selected = %v", selected)
	}
	if len(deselected) != 2 || deselected[0] != "A" || deselected[1] != "B" {
		t.Errorf("deselected = %v", deselected)
	}
}

func TestEngineHoverTransitions(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(1, 1, Tile{ID: "A"})
	eng.PlaceTile(2, 2, Tile{ID: "B"})

	var events []EventCategory
	eng.Events().SubscribeAll(
		[]EventCategory{EventTileHoverStart, EventTileHoverEnd},
		func(ev Event) { events = append(events, ev.Category) },
	)

	eng.Hover(Cell{1, 1})
	eng.Hover(Cell{1, 1}) // same cell: no transition
	eng.Events().Update(DefaultHoverThrottle.Seconds() + 0.01)
	eng.Hover(Cell{2, 2}) // end A, start B
	eng.Events().Update(DefaultHoverThrottle.Seconds() + 0.01)
	eng.ClearHover() // end B

	want := []EventCategory{
		EventTileHoverStart, EventTileHoverEnd,
		EventTileHoverStart, EventTileHoverEnd,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestEngineMoveTile(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(1, 1, Tile{ID: "A"})
	if err := eng.MoveTile(Cell{1, 1}, Cell{4, 4}); err != nil {
		t.Fatalf("MoveTile: %v", err)
	}
	if _, ok := eng.GetTileAt(4, 4); !ok {
		t.Error("tile not at destination")
	}
	if err := eng.MoveTile(Cell{0, 0}, Cell{5, 5}); !errors.Is(err, ErrCellEmpty) {
		t.Errorf("moving from empty cell err = %v", err)
	}
}

func TestEngineResizeBoard(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(2, 2, Tile{ID: "keep"})
	eng.PlaceTile(8, 8, Tile{ID: "lost"})

	var resized BoardEvent
	eng.Events().Subscribe(EventBoardResized, func(ev Event) {
		resized = ev.Payload.(BoardEvent)
	})

	if err := eng.ResizeBoard(5, 5); err != nil {
		t.Fatalf("ResizeBoard: %v", err)
	}
	if _, ok := eng.GetTileAt(2, 2); !ok {
		t.Error("in-bounds tile dropped by resize")
	}
	if _, ok := eng.GetTileAt(8, 8); ok {
		t.Error("out-of-bounds tile survived resize")
	}
	if resized.Width != 5 || resized.Height != 5 || resized.Tiles != 1 {
		t.Errorf("board-resized = %+v", resized)
	}
	if err := eng.ResizeBoard(0, 5); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero width err = %v, want ErrInvalidConfig", err)
	}

	// The rebuilt components stay wired: placement and drag still work.
	if !eng.PlaceTile(4, 4, Tile{ID: "post"}) {
		t.Error("placement after resize failed")
	}
	if err := eng.StartDrag(Tile{}, DragFromBoard, Cell{4, 4}); err != nil {
		t.Errorf("drag after resize: %v", err)
	}
	eng.CancelDrag()
}

func TestEngineResizeBoardRestoresActiveDrag(t *testing.T) {
	// A board-sourced drag holds its tile outside the index; resizing
	// must restore it rather than rebuild the controller around it.
	eng := newTestEngine(t)
	eng.PlaceTile(1, 1, Tile{ID: "A"})
	if err := eng.StartDrag(Tile{}, DragFromBoard, Cell{1, 1}); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}

	if err := eng.ResizeBoard(12, 12); err != nil {
		t.Fatalf("ResizeBoard: %v", err)
	}
	if eng.Drag().State() != DragIdle {
		t.Error("drag session survived the resize")
	}
	if got, ok := eng.GetTileAt(1, 1); !ok || got.ID != "A" {
		t.Errorf("GetTileAt(1,1) = (%v, %v), want the restored tile", got, ok)
	}
	if len(eng.ExportState()) != 1 {
		t.Errorf("tiles = %d after resize, want 1 (conservation)", len(eng.ExportState()))
	}
	if err := eng.CancelDrag(); !errors.Is(err, ErrNoDrag) {
		t.Errorf("CancelDrag err = %v, want ErrNoDrag", err)
	}
}

func TestEngineClearBoard(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(1, 1, Tile{ID: "A"})
	cleared := false
	eng.Events().Subscribe(EventBoardCleared, func(Event) { cleared = true })

	eng.ClearBoard()
	if len(eng.ExportState()) != 0 {
		t.Error("board not empty after ClearBoard")
	}
	if !cleared {
		t.Error("board-cleared not emitted")
	}
}

func TestEngineBookmarks(t *testing.T) {
	eng := newTestEngine(t)
	eng.Pan(100, 100)
	home := eng.AddBookmark("home")
	if home.ID != "bm-1" || home.Name != "home" {
		t.Fatalf("bookmark = %+v", home)
	}
	if home.Position != eng.Position() {
		t.Error("bookmark did not capture the camera position")
	}

	eng.Pan(500, 500)
	away := eng.AddBookmark("away")
	if len(eng.Bookmarks()) != 2 {
		t.Fatalf("bookmarks = %d, want 2", len(eng.Bookmarks()))
	}

	if !eng.GoToBookmark(home.ID, 0) {
		t.Fatal("GoToBookmark failed")
	}
	if eng.Position() != home.Position {
		t.Errorf("position = %v, want %v", eng.Position(), home.Position)
	}

	if !eng.RemoveBookmark(away.ID) {
		t.Error("RemoveBookmark failed")
	}
	if eng.RemoveBookmark("bm-404") {
		t.Error("removing a missing bookmark succeeded")
	}
	if eng.GoToBookmark(away.ID, 0) {
		t.Error("teleported to a removed bookmark")
	}
}

func TestEngineDragThroughWrappers(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(1, 1, Tile{ID: "A"})
	eng.Update(1.0 / 60)

	if err := eng.StartDrag(Tile{}, DragFromBoard, Cell{1, 1}); err != nil {
		t.Fatalf("StartDrag: %v", err)
	}
	w := GridToWorld(Cell{6, 6}, 64, 32)
	if _, err := eng.DragMoveWorld(w.X, w.Y); err != nil {
		t.Fatalf("DragMoveWorld: %v", err)
	}
	cell, placed, err := eng.Drop()
	if err != nil || !placed || (cell != Cell{6, 6}) {
		t.Fatalf("Drop = (%v, %v, %v)", cell, placed, err)
	}

	// The drag mutation invalidated culling: next frame sees the move.
	eng.Update(1.0 / 60)
	if len(eng.VisibleTiles()) != 1 || (eng.VisibleTiles()[0].Cell != Cell{6, 6}) {
		t.Errorf("visible = %v, want the tile at {6 6}", eng.VisibleTiles())
	}
}

func TestEngineDragMoveScreen(t *testing.T) {
	eng := newTestEngine(t)
	eng.PlaceTile(5, 5, Tile{ID: "A"})
	if err := eng.StartDrag(Tile{}, DragFromBoard, Cell{5, 5}); err != nil {
		t.Fatal(err)
	}
	// The viewport center is the camera position, the anchor of {5 5}.
	if _, err := eng.DragMoveScreen(400, 300); err != nil {
		t.Fatal(err)
	}
	if (eng.Drag().Session().Cell != Cell{5, 5}) {
		t.Errorf("session cell = %v, want {5 5}", eng.Drag().Session().Cell)
	}
	eng.CancelDrag()
}

func TestEnginePerformanceEvents(t *testing.T) {
	eng := newTestEngine(t)
	var stats []PerfStats
	var warnings []PerfWarning
	eng.Events().Subscribe(EventPerformanceUpdate, func(ev Event) {
		stats = append(stats, ev.Payload.(PerfStats))
	})
	eng.Events().Subscribe(EventPerformanceWarning, func(ev Event) {
		warnings = append(warnings, ev.Payload.(PerfWarning))
	})

	// One second of 60 FPS frames produces exactly one report.
	for i := 0; i < 61; i++ {
		eng.Update(1.0 / 60)
	}
	if len(stats) != 1 {
		t.Fatalf("performance updates = %d, want 1", len(stats))
	}
	if stats[0].FPS < 55 || stats[0].FPS > 65 {
		t.Errorf("FPS = %f, want about 60", stats[0].FPS)
	}

	// A slow frame warns immediately.
	eng.Update(0.2)
	if len(warnings) != 1 {
		t.Errorf("warnings = %d, want 1 slow-frame warning", len(warnings))
	}
}

func TestEngineClose(t *testing.T) {
	eng := newTestEngine(t)
	count := 0
	eng.Events().Subscribe(EventTilePlaced, func(Event) { count++ })

	eng.PlaceTile(1, 1, Tile{ID: "A"})
	eng.Close()
	eng.PlaceTile(2, 2, Tile{ID: "B"}) // index call succeeds, event suppressed
	eng.Update(1.0 / 60)               // no-op
	eng.Close()                        // idempotent

	if count != 1 {
		t.Errorf("deliveries = %d after Close, want 1", count)
	}
}
