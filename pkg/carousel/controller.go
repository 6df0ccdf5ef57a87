// Package carousel drives which slide of a mixed image and video playlist
// is visible. Images advance after a dwell interval, videos advance when
// playback ends, and manual navigation always preempts the timer.
package carousel

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"export-site/pkg/models"
)

// DefaultInterval is the image dwell time used when none is configured
const DefaultInterval = 5000 * time.Millisecond

var (
	// ErrEmptyPlaylist is returned when a controller is given no items
	ErrEmptyPlaylist = errors.New("carousel playlist is empty")
	// ErrClosed is returned by operations on a controller that has been closed
	ErrClosed = errors.New("carousel controller is closed")
	// ErrPlaylistChanged is returned by Refresh when the new items do not line
	// up with the current ones
	ErrPlaylistChanged = errors.New("carousel playlist changed shape")
)

// State is the kind of slide currently showing
type State int

const (
	ShowingImage State = iota
	ShowingVideo
)

func (s State) String() string {
	if s == ShowingVideo {
		return "video"
	}
	return "image"
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Direction is the direction of the last transition
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Snapshot is a read-only view of the controller state
type Snapshot struct {
	Index     int              `json:"index"`
	State     State            `json:"state"`
	Direction Direction        `json:"direction"`
	Item      models.MediaItem `json:"item"`
	// Fallback is set while a video whose autoplay was rejected is being
	// advanced by the image timer instead of its end of playback.
	Fallback bool `json:"fallback"`
}

// Option configures a Controller
type Option func(*Controller)

// WithInterval sets the image dwell time. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock sets the clock used to schedule automatic advances
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSurface sets the surface that renders playlist slots
func WithSurface(s Surface) Option {
	return func(c *Controller) {
		if s != nil {
			c.surface = s
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithListener registers a function called after every transition. It runs
// while the controller is locked, so it must neither block nor call back
// into the controller.
func WithListener(fn func(Snapshot)) Option {
	return func(c *Controller) {
		c.listener = fn
	}
}

// Controller owns the carousel state and its pending timer
type Controller struct {
	mu       sync.Mutex
	items    []models.MediaItem
	interval time.Duration
	clock    Clock
	surface  Surface
	logger   *slog.Logger
	listener func(Snapshot)

	index     int
	state     State
	direction Direction
	fallback  bool
	timer     Timer
	active    Element
	// epoch is bumped on every transition. A timer only acts if the epoch
	// it captured is still current.
	epoch  uint64
	closed bool
}

// New mounts a controller on items and enters the state of the first item
func New(items []models.MediaItem, opts ...Option) (*Controller, error) {
	if len(items) == 0 {
		return nil, ErrEmptyPlaylist
	}

	c := &Controller{
		items:    append([]models.MediaItem(nil), items...),
		interval: DefaultInterval,
		clock:    SystemClock{},
		surface:  nopSurface{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.enter(0, Forward)
	return c, nil
}

// Next shows the following item, cancelling any pending automatic advance
func (c *Controller) Next() (Snapshot, error) {
	return c.navigate(1, Forward)
}

// Previous shows the preceding item, cancelling any pending automatic advance
func (c *Controller) Previous() (Snapshot, error) {
	return c.navigate(-1, Backward)
}

func (c *Controller) navigate(delta int, dir Direction) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshot(), ErrClosed
	}
	c.enter(c.step(delta), dir)
	return c.snapshot(), nil
}

// VideoEnded reports the natural end of the clip at index. It advances and
// returns true only if that video is the one currently showing.
func (c *Controller) VideoEnded(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != ShowingVideo || index != c.index {
		return false
	}
	c.enter(c.step(1), Forward)
	return true
}

// PlaybackRejected reports that the runtime refused to autoplay the video
// at index. The controller falls back to the image timer for that slide.
func (c *Controller) PlaybackRejected(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != ShowingVideo || index != c.index || c.fallback {
		return false
	}
	c.fallBack(ErrPlaybackRejected)
	c.notify()
	return true
}

// Replace swaps the playlist. The controller restarts from the first item
// of the new list. An empty list is rejected and the current state kept.
func (c *Controller) Replace(items []models.MediaItem) error {
	if len(items) == 0 {
		return ErrEmptyPlaylist
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.items = append([]models.MediaItem(nil), items...)
	c.enter(0, Forward)
	return nil
}

// Refresh updates the items in place without leaving the current state, so
// re-signed URLs reach the playlist while the visitor keeps their slide.
// The new list must have the same length and the same kind at every index,
// otherwise ErrPlaylistChanged is returned and nothing changes.
func (c *Controller) Refresh(items []models.MediaItem) error {
	if len(items) == 0 {
		return ErrEmptyPlaylist
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if len(items) != len(c.items) {
		return ErrPlaylistChanged
	}
	for i := range items {
		if items[i].ResolvedKind() != c.items[i].ResolvedKind() {
			return ErrPlaylistChanged
		}
	}
	c.items = append([]models.MediaItem(nil), items...)
	c.logger.Debug("Carousel items refreshed", slog.Int("index", c.index))
	return nil
}

// Close cancels the pending timer and releases the active element. It is
// safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.leave()
	c.closed = true
	c.logger.Debug("Carousel closed", slog.Int("index", c.index))
	return nil
}

// Current returns the current state
func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Items returns a copy of the playlist
func (c *Controller) Items() []models.MediaItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.MediaItem(nil), c.items...)
}

// Len returns the playlist length
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// enter leaves the current state and enters the state for index.
// Caller holds c.mu.
func (c *Controller) enter(index int, dir Direction) {
	c.leave()

	c.index = index
	c.direction = dir
	c.fallback = false

	item := c.items[index]
	c.active = c.surface.Acquire(index, item)
	if c.active == nil {
		c.active = nopElement{}
	}

	if item.IsVideo() {
		c.state = ShowingVideo
		if err := c.active.Play(); err != nil {
			c.fallBack(err)
		}
	} else {
		c.state = ShowingImage
		c.schedule()
	}

	c.preload()
	c.notify()
}

// leave invalidates every trigger of the current state. Caller holds c.mu.
func (c *Controller) leave() {
	c.epoch++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.active != nil {
		c.active.Release()
		c.active = nil
	}
}

// fallBack schedules the image timer for a video that cannot play.
// Caller holds c.mu.
func (c *Controller) fallBack(err error) {
	c.logger.Warn("Video autoplay unavailable, advancing on timer",
		slog.Int("index", c.index),
		slog.String("url", c.items[c.index].URL),
		slog.Any("error", err))
	c.fallback = true
	c.schedule()
}

// schedule arms the one-shot advance timer. Caller holds c.mu.
func (c *Controller) schedule() {
	epoch := c.epoch
	c.timer = c.clock.AfterFunc(c.interval, func() {
		c.expire(epoch)
	})
}

func (c *Controller) expire(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || epoch != c.epoch {
		return
	}
	c.timer = nil
	c.enter(c.step(1), Forward)
}

func (c *Controller) step(delta int) int {
	n := len(c.items)
	return ((c.index+delta)%n + n) % n
}

func (c *Controller) preload() {
	p, ok := c.surface.(Preloader)
	if !ok || len(c.items) < 2 {
		return
	}
	delta := 1
	if c.direction == Backward {
		delta = -1
	}
	next := c.step(delta)
	p.Preload(next, c.items[next])
}

func (c *Controller) notify() {
	if c.listener != nil {
		c.listener(c.snapshot())
	}
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		Index:     c.index,
		State:     c.state,
		Direction: c.direction,
		Item:      c.items[c.index],
		Fallback:  c.fallback,
	}
}
