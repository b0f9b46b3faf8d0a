package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type emitted struct {
	Channel string
	Event   string
	Payload any
}

// fakeConn records everything the session core does to a connection.
type fakeConn struct {
	id string

	mu           sync.Mutex
	emits        []emitted
	rooms        map[string]bool
	disconnected bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, rooms: make(map[string]bool)}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Emit(channel string, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emitted{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (f *fakeConn) Join(room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room] = true
}

func (f *fakeConn) Leave(room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, room)
}

func (f *fakeConn) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeConn) events(channel, event string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.emits {
		if e.Channel == channel && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeConn) joined(room string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[room]
}

func (f *fakeConn) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

// fakeBroadcaster records room fan-outs.
type fakeBroadcaster struct {
	mu    sync.Mutex
	casts []broadcast
}

type broadcast struct {
	Room    string
	Channel string
	Event   string
	Payload any
}

func (b *fakeBroadcaster) Broadcast(room string, channel string, event string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.casts = append(b.casts, broadcast{Room: room, Channel: channel, Event: event, Payload: payload})
	return nil
}

func (b *fakeBroadcaster) all(channel, event string) []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcast
	for _, c := range b.casts {
		if c.Channel == channel && c.Event == event {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.casts)
}

// stubProvider hands out canned words. An optional gate blocks resolution
// until the test releases it, to exercise the asynchronous naming window.
type stubProvider struct {
	mu    sync.Mutex
	words []string
	next  int
	err   error
	gate  chan struct{}
}

func (s *stubProvider) RandomWord(ctx context.Context) (string, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if len(s.words) == 0 {
		word := fmt.Sprintf("word%03d", s.next)
		s.next++
		return word, nil
	}
	word := s.words[s.next%len(s.words)]
	s.next++
	return word, nil
}

type rig struct {
	provider *stubProvider
	bcast    *fakeBroadcaster
	clients  *ClientRegistry
	rooms    *RoomRegistry
	co       *Coordinator
}

func newRig(provider *stubProvider) *rig {
	if provider == nil {
		provider = &stubProvider{}
	}
	bcast := &fakeBroadcaster{}
	clients := NewClientRegistry(provider)
	rooms := NewRoomRegistry(provider, bcast)
	return &rig{
		provider: provider,
		bcast:    bcast,
		clients:  clients,
		rooms:    rooms,
		co:       NewCoordinator(clients, rooms, "https://vdo.ninja/"),
	}
}

// connectNamed registers a participant and waits for its name to resolve.
func (rg *rig) connectNamed(t *testing.T, conn *fakeConn) *Client {
	t.Helper()
	c := rg.co.Connect(conn)
	require.Eventually(t, c.Named, time.Second, 5*time.Millisecond)
	return c
}
