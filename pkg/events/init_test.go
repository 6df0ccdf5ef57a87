package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithoutReplay(t *testing.T) {
	server := New()
	defer server.Close()

	assert.False(t, server.AutoReplay)
	assert.False(t, server.StreamExists(CarouselStream("s1")))
}

func TestCarouselStream(t *testing.T) {
	stream := CarouselStream("4f1c")
	assert.Equal(t, "carousel-4f1c", stream)

	session, ok := CarouselSession(stream)
	require.True(t, ok)
	assert.Equal(t, "4f1c", session)

	_, ok = CarouselSession("carousel-")
	assert.False(t, ok)
	_, ok = CarouselSession("news")
	assert.False(t, ok)
}

func TestPublisher_OpenPublishRemove(t *testing.T) {
	server := New()
	defer server.Close()
	p := Publisher{Server: server}
	stream := CarouselStream("s1")

	// nothing to deliver to yet
	require.NoError(t, p.Publish(stream, map[string]int{"index": 0}))

	p.Open(stream)
	require.True(t, server.StreamExists(stream))
	require.NoError(t, p.Publish(stream, map[string]int{"index": 1}))

	err := p.Publish(stream, make(chan int))
	assert.Error(t, err)

	p.Remove(stream)
	assert.False(t, server.StreamExists(stream))
}

func TestPublisher_NoServer(t *testing.T) {
	saved := Server
	Server = nil
	defer func() { Server = saved }()

	p := Publisher{}
	assert.NoError(t, p.Publish(CarouselStream("s1"), "dropped"))
	p.Open("ignored")
	p.Remove("ignored")
	p.Watch(nil, nil)
}

func TestPublisher_Watch(t *testing.T) {
	server := New()
	defer server.Close()
	p := Publisher{Server: server}

	subscribed := make(chan string, 1)
	unsubscribed := make(chan string, 1)
	p.Watch(func(s string) { subscribed <- s }, func(s string) { unsubscribed <- s })

	stream := CarouselStream("s1")
	p.Open(stream)

	srv := httptest.NewServer(server)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?stream="+stream, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case got := <-subscribed:
		assert.Equal(t, stream, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscribe notification")
	}

	cancel()
	select {
	case got := <-unsubscribed:
		assert.Equal(t, stream, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no unsubscribe notification")
	}
}
