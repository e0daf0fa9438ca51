package isoboard

import "sort"

// LOD is one of five discrete rendering-fidelity tiers. Tier 0 is the
// cheapest (flat color at far zoom-out); tier 4 is full artwork.
type LOD uint8

// NumLODTiers is the number of detail tiers.
const NumLODTiers = 5

// LODForZoom maps a zoom level to a detail tier using the four ascending
// boundaries. The mapping is monotonic: lower zoom never yields a higher
// tier.
func LODForZoom(zoom float64, boundaries [4]float64) LOD {
	for i, b := range boundaries {
		if zoom < b {
			return LOD(i)
		}
	}
	return LOD(len(boundaries))
}

// VisibleTile is one culled, LOD-assigned tile ready for batching.
type VisibleTile struct {
	Cell Cell
	Tile Tile
	// World is the tile quad's bounding-box top-left corner in world pixels.
	World Vec2
	// Detail is the LOD tier chosen from the camera zoom at cull time.
	Detail LOD
}

// Culler decides, for every camera change, which subset of the board
// must actually be drawn. Re-culling is triggered only when the camera
// moves beyond a small epsilon, on a throttle timer while the camera
// keeps drifting, or when the index is mutated.
type Culler struct {
	cfg   Config
	index *TileIndex
	cam   *Camera

	visible   []VisibleTile
	chunks    []ChunkKey
	dirty     bool
	lastX     float64
	lastY     float64
	lastZoom  float64
	sinceCull float64 // seconds since last recull
	culls     int     // total reculls, for perf reporting
}

// NewCuller creates a culler over the given index and camera.
func NewCuller(cfg Config, index *TileIndex, cam *Camera) *Culler {
	return &Culler{cfg: cfg, index: index, cam: cam, dirty: true}
}

// Invalidate forces a recull on the next Update. Called by the engine
// after any index mutation.
func (cu *Culler) Invalidate() {
	cu.dirty = true
}

// Visible returns the current culled tile set, ordered back to front
// (ascending world Y, then column) for painter-correct rendering.
func (cu *Culler) Visible() []VisibleTile { return cu.visible }

// VisibleChunks returns the chunk keys covered by the last recull.
// Empty for small boards that bypass chunk walking.
func (cu *Culler) VisibleChunks() []ChunkKey { return cu.chunks }

// Reculls returns how many recomputations have run since creation.
func (cu *Culler) Reculls() int { return cu.culls }

// Update advances the recull throttle and recomputes visibility when
// needed. Returns true when the visible set was recomputed.
func (cu *Culler) Update(dt float64) bool {
	cu.sinceCull += dt

	moved := absFloat(cu.cam.X-cu.lastX) > cu.cfg.RecullEpsilon ||
		absFloat(cu.cam.Y-cu.lastY) > cu.cfg.RecullEpsilon ||
		absFloat(cu.cam.Zoom-cu.lastZoom) > cu.cfg.RecullEpsilon/100

	if !cu.dirty && !moved {
		return false
	}
	// While the camera keeps drifting within the throttle window, wait
	// for the timer; index mutations recull immediately.
	if moved && !cu.dirty && cu.sinceCull < cu.cfg.RecullInterval.Seconds() {
		return false
	}

	cu.recull()
	return true
}

// recull recomputes the visible tile set from the current camera state.
func (cu *Culler) recull() {
	cu.dirty = false
	cu.sinceCull = 0
	cu.lastX = cu.cam.X
	cu.lastY = cu.cam.Y
	cu.lastZoom = cu.cam.Zoom
	cu.culls++

	cu.visible = cu.visible[:0]
	cu.chunks = cu.chunks[:0]

	detail := LODForZoom(cu.cam.Zoom, cu.cfg.LODBoundaries)
	tw := cu.cfg.TileWidth
	th := cu.cfg.TileHeight

	// Small boards skip culling entirely: the overhead outweighs the
	// savings below the threshold.
	if cu.cfg.BoardWidth*cu.cfg.BoardHeight < cu.cfg.CullThreshold {
		for _, p := range cu.index.Export() {
			cu.visible = append(cu.visible, VisibleTile{
				Cell:   p.Cell,
				Tile:   p.Tile,
				World:  GridToWorld(p.Cell, tw, th),
				Detail: detail,
			})
		}
		cu.sortVisible()
		return
	}

	worldView := cu.cam.VisibleBounds()
	cu.chunks = append(cu.chunks, cu.index.QueryChunksInRect(worldView, tw, th)...)

	viewport := cu.cam.Viewport
	vm := cu.cam.ViewMatrix()

	var buf []Placement
	for _, key := range cu.chunks {
		buf = cu.index.ChunkTiles(key, buf[:0])
		for _, p := range buf {
			world := GridToWorld(p.Cell, tw, th)

			// Tight per-tile cull: the projected quad rect must touch
			// the viewport. The view transform is axis-aligned scale +
			// translate, so two corners suffice.
			sx, sy := transformPoint(vm, world.X, world.Y)
			sw := float64(tw) * cu.cam.Zoom
			sh := float64(th) * cu.cam.Zoom
			if !viewport.Intersects(Rect{X: sx, Y: sy, Width: sw, Height: sh}) {
				continue
			}

			cu.visible = append(cu.visible, VisibleTile{
				Cell:   p.Cell,
				Tile:   p.Tile,
				World:  world,
				Detail: detail,
			})
		}
	}
	cu.sortVisible()
}

// sortVisible orders tiles back to front for the isometric painter:
// ascending col+row (world Y), then column for determinism.
func (cu *Culler) sortVisible() {
	sort.Slice(cu.visible, func(i, j int) bool {
		a, b := cu.visible[i].Cell, cu.visible[j].Cell
		if a.Col+a.Row != b.Col+b.Row {
			return a.Col+a.Row < b.Col+b.Row
		}
		return a.Col < b.Col
	})
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
