package isoboard

import (
	"fmt"
	"time"
)

// Default tuning values applied by normalize() when the corresponding
// Config field is zero.
const (
	DefaultChunkSize       = 64
	DefaultCullThreshold   = 900 // board cell count below which culling is skipped
	DefaultRecullInterval  = 35 * time.Millisecond
	DefaultMaxBatchQuads   = 1500
	DefaultZoomMin         = 0.3
	DefaultZoomMax         = 4.0
	DefaultZoomStep        = 0.1
	DefaultFollowLerp      = 0.08
	DefaultRecullEpsilon   = 0.5 // world pixels / zoom delta before a re-cull
	DefaultProximityRadius = 3.0 // cells
	DefaultMaxEventQueue   = 256
	DefaultBatchWindow     = 16 * time.Millisecond
	DefaultMaxEventBatch   = 32
	DefaultDedupWindow     = 50 * time.Millisecond
	DefaultDedupCellDelta  = 1.0 // cells
	DefaultDragThrottle    = 100 * time.Millisecond
	DefaultCameraThrottle  = 50 * time.Millisecond
	DefaultHoverThrottle   = 100 * time.Millisecond
	DefaultPerfInterval    = time.Second
)

// Config is the immutable engine configuration. The zero value of every
// tuning field selects a named default; board and tile dimensions are
// mandatory and validated by NewEngine.
type Config struct {
	// BoardWidth and BoardHeight bound the spatial index, in cells.
	BoardWidth  int
	BoardHeight int

	// TileWidth and TileHeight are the diamond footprint of one tile in
	// world pixels. For classic 2:1 isometric art TileHeight is half of
	// TileWidth.
	TileWidth  int
	TileHeight int

	// ViewportWidth and ViewportHeight are the camera viewport size in
	// screen pixels.
	ViewportWidth  int
	ViewportHeight int

	// ChunkSize is the side of a square index chunk, in cells.
	ChunkSize int

	// CullThreshold is the total cell count below which the culling
	// engine returns every tile instead of walking chunks.
	CullThreshold int

	// RecullInterval throttles re-culling while the camera keeps moving.
	RecullInterval time.Duration

	// RecullEpsilon is the minimum camera movement (world pixels) or
	// zoom change that forces a re-cull before the throttle expires.
	RecullEpsilon float64

	// MaxBatchQuads caps the quad count of one render batch. Groups
	// exceeding the cap are split, never truncated.
	MaxBatchQuads int

	// ZoomMin, ZoomMax, and ZoomStep bound and quantize camera zoom.
	ZoomMin  float64
	ZoomMax  float64
	ZoomStep float64

	// LODBoundaries are the four ascending zoom values separating the
	// five detail tiers. Zero selects defaultLODBoundaries.
	LODBoundaries [4]float64

	// FollowLerp is the per-frame correction factor while following.
	FollowLerp float64

	// ProximityRadius is the default QueryNearby radius used by the drag
	// controller, in cells.
	ProximityRadius float64

	// ClampCamera keeps the viewport inside the board's pixel extent.
	ClampCamera bool

	// Events configures the optimization pipeline. Zero fields default
	// per category; see DefaultEventConfig.
	Events EventConfig
}

// defaultLODBoundaries separate the five detail tiers; zoom below
// boundary i renders at tier i.
var defaultLODBoundaries = [4]float64{0.5, 0.8, 1.2, 2.0}

// normalize returns a copy with named defaults substituted for zero fields.
func (c Config) normalize() Config {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.CullThreshold == 0 {
		c.CullThreshold = DefaultCullThreshold
	}
	if c.RecullInterval == 0 {
		c.RecullInterval = DefaultRecullInterval
	}
	if c.RecullEpsilon == 0 {
		c.RecullEpsilon = DefaultRecullEpsilon
	}
	if c.MaxBatchQuads == 0 {
		c.MaxBatchQuads = DefaultMaxBatchQuads
	}
	if c.ZoomMin == 0 {
		c.ZoomMin = DefaultZoomMin
	}
	if c.ZoomMax == 0 {
		c.ZoomMax = DefaultZoomMax
	}
	if c.ZoomStep == 0 {
		c.ZoomStep = DefaultZoomStep
	}
	if c.LODBoundaries == ([4]float64{}) {
		c.LODBoundaries = defaultLODBoundaries
	}
	if c.FollowLerp == 0 {
		c.FollowLerp = DefaultFollowLerp
	}
	if c.ProximityRadius == 0 {
		c.ProximityRadius = DefaultProximityRadius
	}
	c.Events = c.Events.normalize()
	return c
}

// validate reports ErrInvalidConfig for geometry the engine cannot work with.
func (c Config) validate() error {
	if c.BoardWidth <= 0 || c.BoardHeight <= 0 {
		return fmt.Errorf("%w: board %dx%d", ErrInvalidConfig, c.BoardWidth, c.BoardHeight)
	}
	if c.TileWidth <= 0 || c.TileHeight <= 0 {
		return fmt.Errorf("%w: tile %dx%d", ErrInvalidConfig, c.TileWidth, c.TileHeight)
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidConfig, c.ViewportWidth, c.ViewportHeight)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ZoomMin <= 0 || c.ZoomMax < c.ZoomMin {
		return fmt.Errorf("%w: zoom bounds [%g, %g]", ErrInvalidConfig, c.ZoomMin, c.ZoomMax)
	}
	for i := 1; i < len(c.LODBoundaries); i++ {
		if c.LODBoundaries[i] < c.LODBoundaries[i-1] {
			return fmt.Errorf("%w: LOD boundaries not monotonic", ErrInvalidConfig)
		}
	}
	return nil
}

// BoardPixelBounds returns the world-pixel rectangle spanned by the board
// under the isometric projection. Used for camera clamping.
func (c Config) BoardPixelBounds() Rect {
	halfW := float64(c.TileWidth) / 2
	halfH := float64(c.TileHeight) / 2
	// Leftmost point is cell (0, boardHeight-1), rightmost (boardWidth-1, 0).
	minX := -float64(c.BoardHeight-1) * halfW
	maxX := float64(c.BoardWidth-1)*halfW + float64(c.TileWidth)
	maxY := float64(c.BoardWidth+c.BoardHeight-2)*halfH + float64(c.TileHeight)
	return Rect{X: minX, Y: 0, Width: maxX - minX, Height: maxY}
}
