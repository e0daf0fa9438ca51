package isoboard

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// teleportAnim holds the active teleport tweens for camera X, Y, and zoom.
type teleportAnim struct {
	tweenX   *gween.Tween
	tweenY   *gween.Tween
	tweenZ   *gween.Tween
	destX    float64
	destY    float64
	destZoom float64
	doneX    bool
	doneY    bool
	doneZ    bool
}

// Camera controls the view into the board: world position, zoom, and
// viewport. X and Y are the world-space point the camera centers on.
//
// The camera has two interaction modes. Direct mutations (Pan, ZoomBy,
// ZoomAboutPoint) apply instantly. Animated mutations (TeleportTo,
// StartFollowing) are sampled once per Update call as repeated per-frame
// corrections, so they can be cancelled or replaced at any frame
// boundary.
type Camera struct {
	// X and Y are the world-space position the camera centers on.
	X, Y float64
	// Zoom is the scale factor, always clamped to [ZoomMin, ZoomMax].
	Zoom float64
	// Viewport is the screen-space rectangle this camera renders into.
	Viewport Rect

	// ZoomMin and ZoomMax bound Zoom on every mutation.
	ZoomMin float64
	ZoomMax float64

	// BoundsEnabled clamps the camera position so the visible area stays
	// within Bounds.
	BoundsEnabled bool
	// Bounds is the world-space rectangle the camera is clamped to when
	// BoundsEnabled is true.
	Bounds Rect

	followTarget func() Vec2
	followLerp   float64

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool

	teleport *teleportAnim
}

// NewCamera creates a camera centered on the origin with zoom 1 and the
// given viewport and zoom bounds.
func NewCamera(viewport Rect, zoomMin, zoomMax float64) *Camera {
	return &Camera{
		Zoom:     1.0,
		Viewport: viewport,
		ZoomMin:  zoomMin,
		ZoomMax:  zoomMax,
		dirty:    true,
	}
}

// Position returns the camera's world-space center.
func (c *Camera) Position() Vec2 { return Vec2{X: c.X, Y: c.Y} }

// Pan moves the camera by (dx, dy) world pixels, clamping to bounds if
// configured.
func (c *Camera) Pan(dx, dy float64) {
	c.X += dx
	c.Y += dy
	if c.BoundsEnabled {
		c.clampToBounds()
	}
	c.dirty = true
}

// ZoomBy multiplies zoom by factor, anchored at the viewport center.
// The factor is a direct multiplier: 1.1 zooms in ten percent, not a
// percentage or a pre-scaled delta.
func (c *Camera) ZoomBy(factor float64) {
	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	c.ZoomAboutPoint(factor, cx, cy)
}

// ZoomAboutPoint multiplies zoom by factor and repositions the camera so
// the world point under (screenX, screenY) stays under it: a cursor must
// not visually jump during a zoom gesture.
func (c *Camera) ZoomAboutPoint(factor float64, screenX, screenY float64) {
	wx, wy := c.ScreenToWorld(screenX, screenY)

	c.Zoom = clampFloat(c.Zoom*factor, c.ZoomMin, c.ZoomMax)

	// Solve position so the anchor world point maps back to the same
	// screen point: screen = center + zoom*(world - position).
	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	c.X = wx - (screenX-cx)/c.Zoom
	c.Y = wy - (screenY-cy)/c.Zoom

	if c.BoundsEnabled {
		c.clampToBounds()
	}
	c.dirty = true
}

// SetZoom sets zoom directly, clamped, keeping the camera center fixed.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = clampFloat(zoom, c.ZoomMin, c.ZoomMax)
	if c.BoundsEnabled {
		c.clampToBounds()
	}
	c.dirty = true
}

// TeleportTo eases the camera to the destination over duration seconds
// using a cubic ease-out. destZoom <= 0 keeps the current zoom. Any
// in-flight teleport is replaced; completion snaps to the exact
// destination so no float drift remains. A zero duration jumps
// immediately.
func (c *Camera) TeleportTo(dest Vec2, destZoom float64, duration float64) {
	if destZoom <= 0 {
		destZoom = c.Zoom
	}
	destZoom = clampFloat(destZoom, c.ZoomMin, c.ZoomMax)

	if duration <= 0 {
		c.teleport = nil
		c.X = dest.X
		c.Y = dest.Y
		c.Zoom = destZoom
		if c.BoundsEnabled {
			c.clampToBounds()
		}
		c.dirty = true
		return
	}

	d := float32(duration)
	c.teleport = &teleportAnim{
		tweenX:   gween.New(float32(c.X), float32(dest.X), d, ease.OutCubic),
		tweenY:   gween.New(float32(c.Y), float32(dest.Y), d, ease.OutCubic),
		tweenZ:   gween.New(float32(c.Zoom), float32(destZoom), d, ease.OutCubic),
		destX:    dest.X,
		destY:    dest.Y,
		destZoom: destZoom,
	}
}

// Animating reports whether a teleport animation is in flight.
func (c *Camera) Animating() bool { return c.teleport != nil }

// StartFollowing makes the camera correct toward target's position every
// frame: position += (target - position) * lerp. Exactly one target may
// be active; starting a new follow replaces the previous one. Direct
// pans and teleports while following stay compatible; the follow simply
// keeps correcting on subsequent frames.
func (c *Camera) StartFollowing(target func() Vec2, lerp float64) {
	c.followTarget = target
	c.followLerp = lerp
}

// StopFollowing stops tracking the current target.
func (c *Camera) StopFollowing() {
	c.followTarget = nil
}

// Following reports whether a follow target is active.
func (c *Camera) Following() bool { return c.followTarget != nil }

// SetBounds enables camera bounds clamping against the given world rect.
func (c *Camera) SetBounds(bounds Rect) {
	c.BoundsEnabled = true
	c.Bounds = bounds
}

// ClearBounds disables camera bounds clamping.
func (c *Camera) ClearBounds() {
	c.BoundsEnabled = false
}

// Update advances follow correction, teleport animation, and bounds
// clamping. Called once per frame by the engine with the frame delta in
// seconds. Returns true when the camera state changed this frame.
func (c *Camera) Update(dt float64) bool {
	prevX, prevY, prevZoom := c.X, c.Y, c.Zoom

	// Follow correction first, tween second, matching the phase order of
	// direct input before animation.
	if c.followTarget != nil {
		t := c.followTarget()
		c.X += (t.X - c.X) * c.followLerp
		c.Y += (t.Y - c.Y) * c.followLerp
	}

	if tp := c.teleport; tp != nil {
		fdt := float32(dt)
		if !tp.doneX {
			val, done := tp.tweenX.Update(fdt)
			c.X = float64(val)
			tp.doneX = done
		}
		if !tp.doneY {
			val, done := tp.tweenY.Update(fdt)
			c.Y = float64(val)
			tp.doneY = done
		}
		if !tp.doneZ {
			val, done := tp.tweenZ.Update(fdt)
			c.Zoom = clampFloat(float64(val), c.ZoomMin, c.ZoomMax)
			tp.doneZ = done
		}
		if tp.doneX && tp.doneY && tp.doneZ {
			// Snap to the exact destination; tween output carries
			// float32 precision only.
			c.X = tp.destX
			c.Y = tp.destY
			c.Zoom = tp.destZoom
			c.teleport = nil
		}
	}

	if c.BoundsEnabled {
		c.clampToBounds()
	}

	if c.X != prevX || c.Y != prevY || c.Zoom != prevZoom {
		c.dirty = true
		return true
	}
	return false
}

// clampToBounds restricts camera position so the visible area stays
// within Bounds. If the bounds are smaller than the visible area the
// camera centers on them.
func (c *Camera) clampToBounds() {
	halfW := c.Viewport.Width / (2 * c.Zoom)
	halfH := c.Viewport.Height / (2 * c.Zoom)

	minX := c.Bounds.X + halfW
	maxX := c.Bounds.X + c.Bounds.Width - halfW
	minY := c.Bounds.Y + halfH
	maxY := c.Bounds.Y + c.Bounds.Height - halfH

	if minX > maxX {
		c.X = c.Bounds.X + c.Bounds.Width/2
	} else {
		c.X = math.Max(minX, math.Min(c.X, maxX))
	}
	if minY > maxY {
		c.Y = c.Bounds.Y + c.Bounds.Height/2
	} else {
		c.Y = math.Max(minY, math.Min(c.Y, maxY))
	}
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(cx, cy) * Scale(zoom) * Translate(-X, -Y)
// where cx, cy = viewport center.
func (c *Camera) computeViewMatrix() [6]float64 {
	if !c.dirty {
		return c.viewMatrix
	}
	c.dirty = false

	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	z := c.Zoom

	center := [6]float64{1, 0, 0, 1, cx, cy}
	scale := [6]float64{z, 0, 0, z, 0, 0}
	offset := [6]float64{1, 0, 0, 1, -c.X, -c.Y}
	c.viewMatrix = multiplyAffine(center, multiplyAffine(scale, offset))
	c.invViewMatrix = invertAffine(c.viewMatrix)
	return c.viewMatrix
}

// ViewMatrix returns the current world-to-screen affine matrix
// [a, b, c, d, tx, ty].
func (c *Camera) ViewMatrix() [6]float64 {
	return c.computeViewMatrix()
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	c.computeViewMatrix()
	sx, sy = transformPoint(c.viewMatrix, wx, wy)
	return
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	c.computeViewMatrix()
	wx, wy = transformPoint(c.invViewMatrix, sx, sy)
	return
}

// VisibleBounds returns the world-space rectangle the camera currently
// shows.
func (c *Camera) VisibleBounds() Rect {
	halfW := c.Viewport.Width / (2 * c.Zoom)
	halfH := c.Viewport.Height / (2 * c.Zoom)
	return Rect{
		X:      c.X - halfW,
		Y:      c.Y - halfH,
		Width:  2 * halfW,
		Height: 2 * halfH,
	}
}

// MarkDirty forces a recomputation of the view matrix.
func (c *Camera) MarkDirty() {
	c.dirty = true
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
