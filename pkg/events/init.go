package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/r3labs/sse/v2"
)

// carouselPrefix starts the name of every showcase session stream
const carouselPrefix = "carousel-"

// ErrStreamFull is returned when a stream cannot take another event
// without blocking, which happens when its subscribers fall behind
var ErrStreamFull = errors.New("event stream is full")

var Server *sse.Server

// Init creates the shared server
func Init() {
	Server = New()
}

// New returns a server without replay, so late subscribers only see what
// happens after they connect. Streams are created explicitly per session.
func New() *sse.Server {
	server := sse.New()
	server.AutoReplay = false
	return server
}

// CarouselStream names the stream of one showcase session
func CarouselStream(session string) string {
	return carouselPrefix + session
}

// CarouselSession returns the session a stream belongs to, if any
func CarouselSession(stream string) (string, bool) {
	session, ok := strings.CutPrefix(stream, carouselPrefix)
	return session, ok && session != ""
}

// Publisher JSON-encodes values onto the streams of an SSE server
type Publisher struct {
	Server *sse.Server
}

func (p Publisher) server() *sse.Server {
	if p.Server != nil {
		return p.Server
	}
	return Server
}

// Publish sends v as a single event without blocking. Events for a stream
// that does not exist are dropped; a stream whose buffer is full returns
// ErrStreamFull. A nil server drops the event.
func (p Publisher) Publish(stream string, v any) error {
	server := p.server()
	if server == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", stream, err)
	}
	if !server.StreamExists(stream) {
		return nil
	}
	if !server.TryPublish(stream, &sse.Event{Data: data}) {
		return fmt.Errorf("%s: %w", stream, ErrStreamFull)
	}
	return nil
}

// Open creates stream if it does not exist yet
func (p Publisher) Open(stream string) {
	if server := p.server(); server != nil {
		server.CreateStream(stream)
	}
}

// Remove closes stream and disconnects its subscribers
func (p Publisher) Remove(stream string) {
	if server := p.server(); server != nil {
		server.RemoveStream(stream)
	}
}

// Watch registers functions called, on their own goroutine, when a client
// subscribes to or leaves a stream. It must be called before streams are
// opened since each stream keeps the hooks it was created with.
func (p Publisher) Watch(subscribed, unsubscribed func(stream string)) {
	server := p.server()
	if server == nil {
		return
	}
	server.OnSubscribe = func(stream string, _ *sse.Subscriber) {
		if subscribed != nil {
			subscribed(stream)
		}
	}
	server.OnUnsubscribe = func(stream string, _ *sse.Subscriber) {
		if unsubscribed != nil {
			unsubscribed(stream)
		}
	}
}
