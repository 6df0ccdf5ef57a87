package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"export-site/pkg/carousel"
	"export-site/pkg/events"
	"export-site/pkg/models"
)

var (
	// ErrTooManySessions is returned when the session limit is reached
	ErrTooManySessions = errors.New("too many carousel sessions")
	// ErrUnknownSession is returned for a session that does not exist or expired
	ErrUnknownSession = errors.New("unknown carousel session")
)

// Streams opens and removes the event streams of the sessions
type Streams interface {
	Publisher
	Open(stream string)
	Remove(stream string)
}

// Showcases keeps one showcase per visitor, each on its own event stream.
// A session lives as long as its stream has a subscriber. Without one it
// expires after the timeout, which also covers a browser that never
// subscribed.
type Showcases struct {
	source  PlaylistSource
	streams Streams
	opts    []carousel.Option
	limit   int

	sessions *cache.Cache

	mu       sync.Mutex
	watchers map[string]int
}

// NewShowcases creates an empty registry. limit caps the number of live
// sessions; zero or less means no cap.
func NewShowcases(source PlaylistSource, streams Streams, timeout time.Duration, limit int, opts ...carousel.Option) *Showcases {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	h := &Showcases{
		source:   source,
		streams:  streams,
		opts:     opts,
		limit:    limit,
		sessions: cache.New(timeout, max(timeout/2, time.Second)),
		watchers: make(map[string]int),
	}
	h.sessions.OnEvicted(h.evicted)
	return h
}

// Open starts a showcase for a new visitor and opens its stream
func (h *Showcases) Open(ctx context.Context) (*Showcase, error) {
	if h.full() {
		return nil, ErrTooManySessions
	}

	s, err := NewShowcase(ctx, h.source, h.streams, h.opts...)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.limit > 0 && h.sessions.ItemCount() >= h.limit {
		h.mu.Unlock()
		_ = s.Close()
		return nil, ErrTooManySessions
	}
	if h.streams != nil {
		h.streams.Open(s.Stream())
	}
	h.sessions.Set(s.Session(), s, cache.DefaultExpiration)
	h.mu.Unlock()

	slog.Debug("Carousel session opened", slog.String("session", s.Session()), slog.Int("sessions", h.Len()))
	return s, nil
}

// Get returns the showcase of a live session
func (h *Showcases) Get(session string) (*Showcase, bool) {
	v, ok := h.sessions.Get(session)
	if !ok {
		return nil, false
	}
	return v.(*Showcase), true
}

// Close ends a session and removes its stream
func (h *Showcases) Close(session string) error {
	if _, ok := h.sessions.Get(session); !ok {
		return ErrUnknownSession
	}
	h.sessions.Delete(session)
	return nil
}

// Playlist returns the media every new session starts with
func (h *Showcases) Playlist(ctx context.Context) ([]models.MediaItem, error) {
	return h.source.Playlist(ctx)
}

// Reload reloads the playlist of every live session
func (h *Showcases) Reload(ctx context.Context) error {
	var errs []error
	for session, item := range h.sessions.Items() {
		_, err := item.Object.(*Showcase).Reload(ctx)
		if err != nil && !errors.Is(err, carousel.ErrClosed) {
			errs = append(errs, err)
			slog.Warn("Failed to reload carousel session", slog.String("session", session), slog.Any("error", err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sessions, counting expired ones not yet swept
func (h *Showcases) Len() int {
	return h.sessions.ItemCount()
}

// Attach records a subscriber on stream. The session no longer expires
// while it has one.
func (h *Showcases) Attach(stream string) {
	session, ok := events.CarouselSession(stream)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.sessions.Get(session)
	if !ok {
		return
	}
	h.watchers[session]++
	h.sessions.Set(session, v, cache.NoExpiration)
}

// Detach records a subscriber leaving stream. The session expires after
// the timeout unless another subscriber arrives first.
func (h *Showcases) Detach(stream string) {
	session, ok := events.CarouselSession(stream)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watchers[session] > 1 {
		h.watchers[session]--
		return
	}
	delete(h.watchers, session)
	if v, ok := h.sessions.Get(session); ok {
		h.sessions.Set(session, v, cache.DefaultExpiration)
	}
}

// Sweep ends the sessions that expired
func (h *Showcases) Sweep() {
	h.sessions.DeleteExpired()
}

// Shutdown ends every session
func (h *Showcases) Shutdown() {
	for session := range h.sessions.Items() {
		h.sessions.Delete(session)
	}
	h.sessions.DeleteExpired()
}

func (h *Showcases) full() bool {
	return h.limit > 0 && h.sessions.ItemCount() >= h.limit
}

// evicted runs outside the cache lock, for deletes and expiry alike
func (h *Showcases) evicted(session string, v any) {
	s := v.(*Showcase)
	_ = s.Close()
	if h.streams != nil {
		h.streams.Remove(s.Stream())
	}

	h.mu.Lock()
	delete(h.watchers, session)
	h.mu.Unlock()

	slog.Debug("Carousel session closed", slog.String("session", session))
}
