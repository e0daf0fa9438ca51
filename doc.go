// Package isoboard is an isometric tile-board engine for [Ebitengine].
//
// Isoboard manages an arbitrarily large grid of tiles projected as an
// isometric diamond lattice. It provides the spatial index, viewport
// culling, level-of-detail selection, draw batching, camera model, and
// drag-and-drop placement that an interactive board of anywhere from
// tens to millions of cells needs, while leaving pixel drawing, panel
// widgets, and persistence to the host application.
//
// # Quick start
//
// Create an [Engine] from a [Config] and drive it from your game loop:
//
//	eng, err := isoboard.NewEngine(isoboard.Config{
//		BoardWidth: 256, BoardHeight: 256,
//		TileWidth: 64, TileHeight: 32,
//		ViewportWidth: 1280, ViewportHeight: 720,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	type Game struct{ eng *isoboard.Engine }
//
//	func (g *Game) Update() error {
//		g.eng.Update(1.0 / float64(ebiten.TPS()))
//		return nil
//	}
//	func (g *Game) Draw(screen *ebiten.Image) {
//		for _, b := range g.eng.Batches() {
//			screen.DrawTriangles32(b.Vertices, b.Indices, atlas, nil)
//		}
//	}
//	func (g *Game) Layout(w, h int) (int, int) { return w, h }
//
// # Board and camera
//
// Tiles are placed through [Engine.PlaceTile] and removed through
// [Engine.RemoveTile]; the engine guarantees each cell holds at most one
// tile and a tile occupies at most one cell. The [Camera] supports
// direct panning and anchored zooming plus animated transitions:
// [Camera.TeleportTo] eases to a destination (via [gween] tweens) and
// [Camera.StartFollowing] applies a per-frame correction toward a
// moving target.
//
// # Events
//
// All derived notifications (placement, drag, camera, performance) fan
// out through an [EventPipeline], a typed publish/subscribe registry
// with per-category throttling, deduplication, priority classes, and
// batching so a million-tile board never floods its listeners.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
package isoboard
