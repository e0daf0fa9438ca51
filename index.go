package isoboard

import (
	"math"
	"sort"
)

// ChunkKey identifies one fixed-size square bucket of the index:
// (floor(col/chunkSize), floor(row/chunkSize)).
type ChunkKey struct {
	X, Y int
}

// chunk holds the occupied cells of one bucket. Chunks are created on
// first placement and pruned when their last tile is removed.
type chunk struct {
	tiles map[Cell]Tile
}

// Placement pairs a tile with the cell it occupies. Returned by
// QueryNearby and the export API.
type Placement struct {
	Cell Cell
	Tile Tile
}

// NearbyTile is one QueryNearby result. Distance is Euclidean, measured
// in cell units.
type NearbyTile struct {
	Tile     Tile
	Cell     Cell
	Distance float64
}

// TileIndex is the chunked occupancy map for one board. At any instant a
// cell holds at most one tile and a tile occupies at most one cell.
// Not safe for concurrent use; the engine owns it exclusively.
type TileIndex struct {
	width     int
	height    int
	chunkSize int

	chunks map[ChunkKey]*chunk
	// byID tracks which cell each tile id occupies, enforcing the
	// no-duplication invariant and making MoveByID O(1).
	byID  map[string]Cell
	count int
}

// NewTileIndex creates an empty index for a width x height board with
// the given chunk size (cells per chunk side).
func NewTileIndex(width, height, chunkSize int) *TileIndex {
	return &TileIndex{
		width:     width,
		height:    height,
		chunkSize: chunkSize,
		chunks:    make(map[ChunkKey]*chunk),
		byID:      make(map[string]Cell),
	}
}

// Width returns the board width in cells.
func (ix *TileIndex) Width() int { return ix.width }

// Height returns the board height in cells.
func (ix *TileIndex) Height() int { return ix.height }

// Count returns the number of occupied cells.
func (ix *TileIndex) Count() int { return ix.count }

// InBounds reports whether cell lies inside the board extent.
func (ix *TileIndex) InBounds(cell Cell) bool {
	return cell.Col >= 0 && cell.Col < ix.width &&
		cell.Row >= 0 && cell.Row < ix.height
}

// chunkKeyFor returns the chunk containing cell.
func (ix *TileIndex) chunkKeyFor(cell Cell) ChunkKey {
	// Cells are always in-bounds here, so integer division floors correctly.
	return ChunkKey{X: cell.Col / ix.chunkSize, Y: cell.Row / ix.chunkSize}
}

// Place puts tile at cell. Fails with ErrOutOfBounds or ErrCellOccupied;
// on the occupied path the current occupant is returned so the caller
// can report it without a second lookup. A tile id already present
// elsewhere on the board also fails with ErrCellOccupied.
func (ix *TileIndex) Place(cell Cell, tile Tile) (prev Tile, err error) {
	if !ix.InBounds(cell) {
		return Tile{}, ErrOutOfBounds
	}
	key := ix.chunkKeyFor(cell)
	ch := ix.chunks[key]
	if ch != nil {
		if occupant, ok := ch.tiles[cell]; ok {
			return occupant, ErrCellOccupied
		}
	}
	if other, ok := ix.byID[tile.ID]; ok {
		return ix.mustGet(other), ErrCellOccupied
	}
	if ch == nil {
		ch = &chunk{tiles: make(map[Cell]Tile)}
		ix.chunks[key] = ch
	}
	ch.tiles[cell] = tile
	ix.byID[tile.ID] = cell
	ix.count++
	return Tile{}, nil
}

// Remove deletes the tile at cell and returns it. Fails with
// ErrOutOfBounds, ErrCellEmpty, or ErrTileLocked (the tile stays put).
func (ix *TileIndex) Remove(cell Cell) (Tile, error) {
	if !ix.InBounds(cell) {
		return Tile{}, ErrOutOfBounds
	}
	key := ix.chunkKeyFor(cell)
	ch := ix.chunks[key]
	if ch == nil {
		return Tile{}, ErrCellEmpty
	}
	tile, ok := ch.tiles[cell]
	if !ok {
		return Tile{}, ErrCellEmpty
	}
	if tile.Locked {
		return tile, ErrTileLocked
	}
	delete(ch.tiles, cell)
	delete(ix.byID, tile.ID)
	ix.count--
	if len(ch.tiles) == 0 {
		delete(ix.chunks, key)
	}
	return tile, nil
}

// forceRemove deletes the tile at cell ignoring the locked flag. Used by
// Move, which re-places the same tile and so never loses it.
func (ix *TileIndex) forceRemove(cell Cell) (Tile, error) {
	if !ix.InBounds(cell) {
		return Tile{}, ErrOutOfBounds
	}
	key := ix.chunkKeyFor(cell)
	ch := ix.chunks[key]
	if ch == nil {
		return Tile{}, ErrCellEmpty
	}
	tile, ok := ch.tiles[cell]
	if !ok {
		return Tile{}, ErrCellEmpty
	}
	delete(ch.tiles, cell)
	delete(ix.byID, tile.ID)
	ix.count--
	if len(ch.tiles) == 0 {
		delete(ix.chunks, key)
	}
	return tile, nil
}

// Get returns the tile at cell, if any.
func (ix *TileIndex) Get(cell Cell) (Tile, bool) {
	if !ix.InBounds(cell) {
		return Tile{}, false
	}
	ch := ix.chunks[ix.chunkKeyFor(cell)]
	if ch == nil {
		return Tile{}, false
	}
	tile, ok := ch.tiles[cell]
	return tile, ok
}

// Locate returns the cell a tile id currently occupies, if any.
func (ix *TileIndex) Locate(id string) (Cell, bool) {
	cell, ok := ix.byID[id]
	return cell, ok
}

// mustGet fetches a cell known to be occupied. Internal invariant helper.
func (ix *TileIndex) mustGet(cell Cell) Tile {
	tile, _ := ix.Get(cell)
	return tile
}

// Move relocates the tile at from to to as an atomic remove-then-place.
// If the place fails the remove is rolled back, so a failed move leaves
// the index exactly as it was. Moving to the same cell is a no-op.
func (ix *TileIndex) Move(from, to Cell) (Tile, error) {
	if from == to {
		tile, ok := ix.Get(from)
		if !ok {
			if !ix.InBounds(from) {
				return Tile{}, ErrOutOfBounds
			}
			return Tile{}, ErrCellEmpty
		}
		return tile, nil
	}
	tile, err := ix.forceRemove(from)
	if err != nil {
		return Tile{}, err
	}
	if _, err := ix.Place(to, tile); err != nil {
		// Rollback: the origin cell is guaranteed free, we just emptied it.
		ix.Place(from, tile) //nolint:errcheck
		return Tile{}, err
	}
	return tile, nil
}

// Clear removes every tile and chunk.
func (ix *TileIndex) Clear() {
	ix.chunks = make(map[ChunkKey]*chunk)
	ix.byID = make(map[string]Cell)
	ix.count = 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chunkRange returns the inclusive chunk coordinate range covering the
// given cell-space rectangle, clamped to the board.
func (ix *TileIndex) chunkRange(minCol, minRow, maxCol, maxRow int) (cx0, cy0, cx1, cy1 int) {
	maxCX := (ix.width - 1) / ix.chunkSize
	maxCY := (ix.height - 1) / ix.chunkSize
	cx0 = clamp(floorDiv(minCol, ix.chunkSize), 0, maxCX)
	cy0 = clamp(floorDiv(minRow, ix.chunkSize), 0, maxCY)
	cx1 = clamp(floorDiv(maxCol, ix.chunkSize), 0, maxCX)
	cy1 = clamp(floorDiv(maxRow, ix.chunkSize), 0, maxCY)
	return
}

// floorDiv divides rounding toward negative infinity, so negative cell
// coordinates (off-board query corners) land in the right chunk.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// QueryChunksInRect returns the keys of every non-empty chunk whose cell
// range intersects the world-pixel rectangle rect under the isometric
// projection. Cost is proportional to the chunk area covered by rect,
// not to board size.
func (ix *TileIndex) QueryChunksInRect(rect Rect, tileWidth, tileHeight int) []ChunkKey {
	minCol, minRow, maxCol, maxRow := isoCellBounds(rect, tileWidth, tileHeight)
	cx0, cy0, cx1, cy1 := ix.chunkRange(minCol, minRow, maxCol, maxRow)

	var keys []ChunkKey
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			key := ChunkKey{X: cx, Y: cy}
			if _, ok := ix.chunks[key]; ok {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// isoCellBounds computes the cell-space bounding box of a world-pixel
// rectangle. Under the diamond projection col is extremal at the
// top-right/bottom-left rect corners and row at the other two, so the
// four corners bound every cell whose anchor falls inside. One extra
// tile of margin covers tiles whose quads straddle the rect edge.
func isoCellBounds(rect Rect, tileWidth, tileHeight int) (minCol, minRow, maxCol, maxRow int) {
	x0, y0 := rect.X, rect.Y
	x1, y1 := rect.X+rect.Width, rect.Y+rect.Height

	cMin, _ := WorldToGridF(x0, y0, tileWidth, tileHeight)
	cMax, _ := WorldToGridF(x1, y1, tileWidth, tileHeight)
	_, rMin := WorldToGridF(x1, y0, tileWidth, tileHeight)
	_, rMax := WorldToGridF(x0, y1, tileWidth, tileHeight)

	minCol = int(math.Floor(cMin)) - 1
	maxCol = int(math.Ceil(cMax)) + 1
	minRow = int(math.Floor(rMin)) - 1
	maxRow = int(math.Ceil(rMax)) + 1
	return
}

// ChunkTiles appends the placements of one chunk to buf and returns it.
// The iteration order within a chunk is unspecified.
func (ix *TileIndex) ChunkTiles(key ChunkKey, buf []Placement) []Placement {
	ch := ix.chunks[key]
	if ch == nil {
		return buf
	}
	for cell, tile := range ch.tiles {
		buf = append(buf, Placement{Cell: cell, Tile: tile})
	}
	return buf
}

// QueryNearby returns every tile within radius cells of the fractional
// grid point (col, row), sorted ascending by Euclidean cell distance.
// Only chunks overlapping the search disk are visited.
func (ix *TileIndex) QueryNearby(col, row, radius float64) []NearbyTile {
	if radius < 0 {
		return nil
	}
	minCol := int(math.Floor(col - radius))
	maxCol := int(math.Ceil(col + radius))
	minRow := int(math.Floor(row - radius))
	maxRow := int(math.Ceil(row + radius))
	cx0, cy0, cx1, cy1 := ix.chunkRange(minCol, minRow, maxCol, maxRow)

	var results []NearbyTile
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			ch := ix.chunks[ChunkKey{X: cx, Y: cy}]
			if ch == nil {
				continue
			}
			for cell, tile := range ch.tiles {
				dc := float64(cell.Col) - col
				dr := float64(cell.Row) - row
				dist := math.Sqrt(dc*dc + dr*dr)
				if dist <= radius {
					results = append(results, NearbyTile{Tile: tile, Cell: cell, Distance: dist})
				}
			}
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		// Stable order for equidistant tiles.
		return results[i].Tile.ID < results[j].Tile.ID
	})
	return results
}

// Export returns every placement on the board. Order follows chunk and
// map iteration and is unspecified; ImportInto accepts any order.
func (ix *TileIndex) Export() []Placement {
	out := make([]Placement, 0, ix.count)
	for _, ch := range ix.chunks {
		for cell, tile := range ch.tiles {
			out = append(out, Placement{Cell: cell, Tile: tile})
		}
	}
	return out
}

// Import clears the index and replays the given placements. Placements
// that fail (out of bounds, duplicate cell or id) are skipped and
// returned so the caller can report them.
func (ix *TileIndex) Import(placements []Placement) (skipped []Placement) {
	ix.Clear()
	for _, p := range placements {
		if _, err := ix.Place(p.Cell, p.Tile); err != nil {
			skipped = append(skipped, p)
		}
	}
	return skipped
}
