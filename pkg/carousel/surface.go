package carousel

import (
	"errors"

	"export-site/pkg/models"
)

// ErrPlaybackRejected is returned by Element.Play when the runtime refuses
// to start playback without prior user interaction
var ErrPlaybackRejected = errors.New("playback rejected")

// Element is the rendered handle of one playlist slot
type Element interface {
	// Play starts playback at normal rate. Images return nil.
	Play() error
	// Release pauses playback and rewinds to the start.
	Release()
}

// Surface hands out elements keyed by playlist index. The controller
// acquires an element when it enters a state and releases it when it
// leaves, so at most one element is held at a time.
type Surface interface {
	Acquire(index int, item models.MediaItem) Element
}

// Preloader is implemented by surfaces that can warm up the neighbour in
// the direction of travel
type Preloader interface {
	Preload(index int, item models.MediaItem)
}

// SurfaceFunc adapts a function to the Surface interface
type SurfaceFunc func(index int, item models.MediaItem) Element

// Acquire implements Surface
func (f SurfaceFunc) Acquire(index int, item models.MediaItem) Element {
	return f(index, item)
}

type nopSurface struct{}

func (nopSurface) Acquire(int, models.MediaItem) Element { return nopElement{} }

type nopElement struct{}

func (nopElement) Play() error { return nil }
func (nopElement) Release()    {}
