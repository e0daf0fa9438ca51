package isoboard

import (
	"fmt"
	"time"
)

// Bookmark is a named camera position saved by explicit user action.
// Bookmarks are immutable once stored and unrelated to tile data.
type Bookmark struct {
	ID        string
	Name      string
	Position  Vec2
	Zoom      float64
	CreatedAt time.Time
}

// AddBookmark stores the camera's current position and zoom under name
// and returns the new bookmark.
func (e *Engine) AddBookmark(name string) Bookmark {
	e.bookmarkSeq++
	bm := Bookmark{
		ID:        fmt.Sprintf("bm-%d", e.bookmarkSeq),
		Name:      name,
		Position:  e.cam.Position(),
		Zoom:      e.cam.Zoom,
		CreatedAt: time.Now(),
	}
	e.bookmarks = append(e.bookmarks, bm)
	return bm
}

// RemoveBookmark deletes a bookmark by id. Returns false if no such
// bookmark exists.
func (e *Engine) RemoveBookmark(id string) bool {
	for i := range e.bookmarks {
		if e.bookmarks[i].ID == id {
			e.bookmarks = append(e.bookmarks[:i], e.bookmarks[i+1:]...)
			return true
		}
	}
	return false
}

// Bookmarks returns the stored bookmarks in creation order.
func (e *Engine) Bookmarks() []Bookmark {
	return e.bookmarks
}

// GoToBookmark teleports the camera to a bookmark over duration seconds.
// Returns false if no such bookmark exists.
func (e *Engine) GoToBookmark(id string, duration float64) bool {
	for _, bm := range e.bookmarks {
		if bm.ID == id {
			e.TeleportTo(bm.Position, bm.Zoom, duration)
			return true
		}
	}
	return false
}
