package isoboard

import "github.com/hajimehoshi/ebiten/v2"

// BatchKey groups tiles that can be submitted in a single draw call.
// Below the image LOD tier tiles render as flat color quads, so the
// image name drops out of the key and far-zoom boards collapse into a
// handful of color batches.
type BatchKey struct {
	Image  string
	Color  Color
	Detail LOD
}

// lodUsesImage reports whether a tier renders full artwork. Tiers below
// it draw flat color quads.
func lodUsesImage(d LOD) bool { return d >= 2 }

// Batch is one draw-call worth of tiles sharing a BatchKey, capped at
// the planner's max quad count. Vertices and Indices are laid out for
// ebiten.Image.DrawTriangles32: 4 vertices and 6 indices per tile.
type Batch struct {
	Key      BatchKey
	Tiles    []VisibleTile
	Vertices []ebiten.Vertex
	Indices  []uint32
}

// QuadCount returns the number of tile quads in the batch.
func (b *Batch) QuadCount() int { return len(b.Tiles) }

// BatchPlanner groups a culled tile set into draw batches. A group
// exceeding the quad cap is split into multiple batches, never
// truncated.
type BatchPlanner struct {
	cfg     Config
	regions map[string]Rect // image name -> atlas pixel rect

	batches []Batch
}

// NewBatchPlanner creates a planner with the configured quad cap.
func NewBatchPlanner(cfg Config) *BatchPlanner {
	return &BatchPlanner{cfg: cfg}
}

// SetRegions installs the atlas region lookup used for UV assignment.
// Tiles whose image has no region, and all flat-color tiers, get
// zero-area UVs (the host should bind a white pixel at the atlas
// origin, the ebiten convention for solid quads).
func (p *BatchPlanner) SetRegions(regions map[string]Rect) {
	p.regions = regions
}

// Batches returns the batches produced by the last Plan call.
func (p *BatchPlanner) Batches() []Batch { return p.batches }

// Plan groups the visible tiles by draw key and builds their vertex
// buffers using the camera's view matrix. Batches appear in first-seen
// key order; tiles keep the culler's back-to-front order within a key.
func (p *BatchPlanner) Plan(visible []VisibleTile, viewMatrix [6]float64) []Batch {
	p.batches = p.batches[:0]

	byKey := make(map[BatchKey]int) // key -> index of its open batch
	for _, vt := range visible {
		key := BatchKey{Color: vt.Tile.Color, Detail: vt.Detail}
		if lodUsesImage(vt.Detail) {
			key.Image = vt.Tile.Image
		}

		bi, ok := byKey[key]
		if !ok || p.batches[bi].QuadCount() >= p.cfg.MaxBatchQuads {
			p.batches = append(p.batches, Batch{Key: key})
			bi = len(p.batches) - 1
			byKey[key] = bi
		}
		b := &p.batches[bi]
		b.Tiles = append(b.Tiles, vt)
		p.appendQuad(b, vt, viewMatrix)
	}
	return p.batches
}

// appendQuad appends 4 vertices and 6 indices for one tile quad,
// transformed world-to-screen by the view matrix.
func (p *BatchPlanner) appendQuad(b *Batch, vt VisibleTile, vm [6]float64) {
	tw := float64(p.cfg.TileWidth)
	th := float64(p.cfg.TileHeight)

	// The view transform is axis-aligned scale + translate, so the quad
	// stays a screen-space rectangle.
	x0, y0 := transformPoint(vm, vt.World.X, vt.World.Y)
	x1, y1 := transformPoint(vm, vt.World.X+tw, vt.World.Y+th)

	// Source UVs from the atlas region, if this tier draws artwork.
	var su0, sv0, su1, sv1 float32
	if lodUsesImage(vt.Detail) && p.regions != nil {
		if r, ok := p.regions[vt.Tile.Image]; ok {
			su0, sv0 = float32(r.X), float32(r.Y)
			su1, sv1 = float32(r.X+r.Width), float32(r.Y+r.Height)
		}
	}

	// Premultiplied RGBA. The zero Color renders opaque white.
	col := vt.Tile.Color
	a := float32(col.A)
	var cr, cg, cb float32
	if a == 0 && col.R == 0 && col.G == 0 && col.B == 0 {
		cr, cg, cb, a = 1, 1, 1, 1
	} else {
		cr = float32(col.R) * a
		cg = float32(col.G) * a
		cb = float32(col.B) * a
	}

	base := uint32(len(b.Vertices))

	dst := [4][2]float32{
		{float32(x0), float32(y0)},
		{float32(x1), float32(y0)},
		{float32(x0), float32(y1)},
		{float32(x1), float32(y1)},
	}
	src := [4][2]float32{
		{su0, sv0},
		{su1, sv0},
		{su0, sv1},
		{su1, sv1},
	}

	for i := 0; i < 4; i++ {
		b.Vertices = append(b.Vertices, ebiten.Vertex{
			DstX:   dst[i][0],
			DstY:   dst[i][1],
			SrcX:   src[i][0],
			SrcY:   src[i][1],
			ColorR: cr,
			ColorG: cg,
			ColorB: cb,
			ColorA: a,
		})
	}

	// Two triangles: TL-TR-BL, TR-BR-BL.
	b.Indices = append(b.Indices,
		base+0, base+1, base+2,
		base+1, base+3, base+2,
	)
}
