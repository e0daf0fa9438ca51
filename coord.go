package isoboard

import "math"

// Isometric diamond projection. A cell (col, row) maps to the top-left
// corner of its tile's bounding box:
//
//	worldX = (col - row) * tileWidth/2
//	worldY = (col + row) * tileHeight/2
//
// The projection is pure math with no state; zoom scaling is applied by
// the camera's view transform, never here. NaN inputs produce NaN
// outputs, nothing else can fail.

// GridToWorld converts a cell address to the world-pixel position of the
// tile's bounding-box top-left corner.
func GridToWorld(cell Cell, tileWidth, tileHeight int) Vec2 {
	return Vec2{
		X: float64(cell.Col-cell.Row) * float64(tileWidth) / 2,
		Y: float64(cell.Col+cell.Row) * float64(tileHeight) / 2,
	}
}

// GridToScreen converts a cell address to screen pixels given a camera
// offset. Screen = world - cameraOffset; the caller's view transform
// applies zoom.
func GridToScreen(cell Cell, tileWidth, tileHeight int, cameraOffsetX, cameraOffsetY float64) Vec2 {
	w := GridToWorld(cell, tileWidth, tileHeight)
	return Vec2{X: w.X - cameraOffsetX, Y: w.Y - cameraOffsetY}
}

// WorldToGridF inverts the projection without rounding, returning
// fractional cell coordinates. Useful for proximity queries where the
// query point rarely sits on an exact cell.
func WorldToGridF(worldX, worldY float64, tileWidth, tileHeight int) (col, row float64) {
	hx := worldX / (float64(tileWidth) / 2)
	hy := worldY / (float64(tileHeight) / 2)
	return (hx + hy) / 2, (hy - hx) / 2
}

// WorldToGrid inverts the projection, rounding to the nearest integer
// cell. For every integer cell c, WorldToGrid(GridToWorld(c)) == c.
func WorldToGrid(worldX, worldY float64, tileWidth, tileHeight int) Cell {
	col, row := WorldToGridF(worldX, worldY, tileWidth, tileHeight)
	return Cell{Col: int(math.Round(col)), Row: int(math.Round(row))}
}

// ScreenToGrid converts a screen-pixel position back to the nearest cell
// given a camera offset. Algebraic inverse of GridToScreen.
func ScreenToGrid(screenX, screenY float64, tileWidth, tileHeight int, cameraOffsetX, cameraOffsetY float64) Cell {
	return WorldToGrid(screenX+cameraOffsetX, screenY+cameraOffsetY, tileWidth, tileHeight)
}

// CellDistance returns the Euclidean distance between two cells in cell
// units (grid space, not pixels).
func CellDistance(a, b Cell) float64 {
	dc := float64(a.Col - b.Col)
	dr := float64(a.Row - b.Row)
	return math.Sqrt(dc*dc + dr*dr)
}
