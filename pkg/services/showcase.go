package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"export-site/pkg/carousel"
	"export-site/pkg/events"
	"export-site/pkg/models"
)

// Command actions sent to the browser rendering a showcase
const (
	ActionShow    = "show"
	ActionPlay    = "play"
	ActionRelease = "release"
	ActionPreload = "preload"
	ActionState   = "state"
)

// commandQueueSize bounds the commands waiting for the publisher. When a
// subscriber falls this far behind, further commands are dropped.
const commandQueueSize = 256

// Publisher sends a value to the subscribers of a stream
type Publisher interface {
	Publish(stream string, v any) error
}

// Command is one message on a session stream
type Command struct {
	Session  string             `json:"session"`
	Action   string             `json:"action"`
	Index    int                `json:"index"`
	Item     *models.MediaItem  `json:"item,omitempty"`
	Snapshot *carousel.Snapshot `json:"snapshot,omitempty"`
}

// Showcase is the carousel of one visitor. The controller runs on the
// server and the browser renders what it publishes, reporting back when a
// video ends or autoplay is refused.
type Showcase struct {
	session   string
	stream    string
	source    PlaylistSource
	publisher Publisher
	logger    *slog.Logger

	controller *carousel.Controller

	// queue hands commands from the controller, which holds its lock while
	// emitting them, to the goroutine that publishes them
	queue     chan Command
	dropping  bool
	closeOnce sync.Once

	mu          sync.Mutex
	fingerprint uint64
}

// NewShowcase loads the playlist from source and mounts a controller on it
func NewShowcase(ctx context.Context, source PlaylistSource, publisher Publisher, opts ...carousel.Option) (*Showcase, error) {
	items, err := source.Playlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load carousel playlist: %w", err)
	}

	s := &Showcase{
		session:   uuid.NewString(),
		source:    source,
		publisher: publisher,
		logger:    slog.Default(),
	}
	s.stream = events.CarouselStream(s.session)
	s.logger = s.logger.With(slog.String("session", s.session))
	if publisher != nil {
		s.queue = make(chan Command, commandQueueSize)
		go s.deliver(s.queue)
	}

	opts = append([]carousel.Option{carousel.WithLogger(s.logger)}, opts...)
	opts = append(opts,
		carousel.WithSurface(remoteSurface{s}),
		carousel.WithListener(s.publishState),
	)
	c, err := carousel.New(items, opts...)
	if err != nil {
		s.stopQueue()
		return nil, err
	}
	s.controller = c
	s.fingerprint = Fingerprint(items)

	s.logger.Info("Showcase started", slog.Int("items", len(items)))
	return s, nil
}

// Session identifies this showcase
func (s *Showcase) Session() string {
	return s.session
}

// Stream is the event stream the commands are published on
func (s *Showcase) Stream() string {
	return s.stream
}

// Next advances manually
func (s *Showcase) Next() (carousel.Snapshot, error) {
	return s.controller.Next()
}

// Previous steps back manually
func (s *Showcase) Previous() (carousel.Snapshot, error) {
	return s.controller.Previous()
}

// VideoEnded reports the end of playback of the video at index
func (s *Showcase) VideoEnded(index int) bool {
	return s.controller.VideoEnded(index)
}

// PlaybackRejected reports that the browser refused to autoplay index
func (s *Showcase) PlaybackRejected(index int) bool {
	return s.controller.PlaybackRejected(index)
}

// Current returns the controller state
func (s *Showcase) Current() carousel.Snapshot {
	return s.controller.Current()
}

// Playlist returns the items being shown
func (s *Showcase) Playlist() []models.MediaItem {
	return s.controller.Items()
}

// Reload fetches the playlist again. When the same media comes back the
// items are refreshed in place, which picks up re-signed URLs without
// moving the visitor. Otherwise the playlist is replaced and the carousel
// restarts. It reports whether a replacement happened.
func (s *Showcase) Reload(ctx context.Context) (bool, error) {
	items, err := s.source.Playlist(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reload carousel playlist: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fp := Fingerprint(items)
	if fp == s.fingerprint {
		err := s.controller.Refresh(items)
		if !errors.Is(err, carousel.ErrPlaylistChanged) {
			return false, err
		}
	}
	if err := s.controller.Replace(items); err != nil {
		return false, err
	}
	s.fingerprint = fp
	s.logger.Info("Showcase playlist replaced", slog.Int("items", len(items)))
	return true, nil
}

// Close stops the showcase. Commands already queued are still delivered.
func (s *Showcase) Close() error {
	err := s.controller.Close()
	s.stopQueue()
	return err
}

func (s *Showcase) stopQueue() {
	s.closeOnce.Do(func() {
		if s.queue != nil {
			close(s.queue)
		}
	})
}

func (s *Showcase) deliver(queue <-chan Command) {
	for cmd := range queue {
		if err := s.publisher.Publish(s.stream, cmd); err != nil {
			s.logger.Warn("Failed to publish carousel command", slog.String("action", cmd.Action), slog.Any("error", err))
		}
	}
}

func (s *Showcase) publishState(snap carousel.Snapshot) {
	s.publish(Command{Action: ActionState, Index: snap.Index, Snapshot: &snap})
}

// publish never blocks. It is only called by the controller, under its
// lock, and never after the controller is closed.
func (s *Showcase) publish(cmd Command) {
	if s.queue == nil {
		return
	}
	cmd.Session = s.session
	select {
	case s.queue <- cmd:
		s.dropping = false
	default:
		if !s.dropping {
			s.logger.Warn("Carousel subscriber is behind, dropping commands", slog.String("action", cmd.Action))
		}
		s.dropping = true
	}
}

// remoteSurface turns slot lifecycle into commands for the browser
type remoteSurface struct {
	s *Showcase
}

func (r remoteSurface) Acquire(index int, item models.MediaItem) carousel.Element {
	r.s.publish(Command{Action: ActionShow, Index: index, Item: &item})
	return remoteElement{s: r.s, index: index}
}

func (r remoteSurface) Preload(index int, item models.MediaItem) {
	r.s.publish(Command{Action: ActionPreload, Index: index, Item: &item})
}

type remoteElement struct {
	s     *Showcase
	index int
}

// Play always succeeds here; a refusal comes back through PlaybackRejected
func (e remoteElement) Play() error {
	e.s.publish(Command{Action: ActionPlay, Index: e.index})
	return nil
}

func (e remoteElement) Release() {
	e.s.publish(Command{Action: ActionRelease, Index: e.index})
}
