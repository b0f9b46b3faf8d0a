package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gtaEPIC/EZ-VDONINJA-LINK/core"
	"github.com/gtaEPIC/EZ-VDONINJA-LINK/names"
)

// PlaceholderName is shown until the name provider resolves.
const PlaceholderName = "Loading..."

type nameState int

const (
	namePending nameState = iota
	named
)

// Client is one connected participant. The id comes from the transport and
// is immutable; the display name starts as a placeholder and flips to a
// provider-issued word in the background.
type Client struct {
	id   string
	conn core.Conn

	mu     sync.Mutex
	name   string
	state  nameState
	closed bool

	// room is the membership back-reference. It belongs to the room
	// registry's lock domain, not to mu.
	room *Room
}

func (c *Client) ID() string { return c.id }

func (c *Client) Conn() core.Conn { return c.conn }

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Named reports whether the display name has resolved.
func (c *Client) Named() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == named
}

// Closed reports whether the participant has been unregistered.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Info returns the wire identity of the participant.
func (c *Client) Info() core.ClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.ClientInfo{ID: c.id, Name: c.name}
}

// ClientRegistry tracks every connected participant and its display
// identity. A participant only enters the visible set once its name has
// resolved.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	names   names.Provider
}

func NewClientRegistry(provider names.Provider) *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
		names:   provider,
	}
}

// Register creates a participant for a fresh connection and kicks off name
// resolution in the background. Until the name resolves the participant is
// invisible to room operations, but every lifecycle call on it stays safe.
func (r *ClientRegistry) Register(conn core.Conn) *Client {
	c := &Client{
		id:   conn.ID(),
		conn: conn,
		name: PlaceholderName,
	}
	go r.resolveName(c)
	return c
}

func (r *ClientRegistry) resolveName(c *Client) {
	log := logrus.WithField("client_id", c.id)

	word, err := r.names.RandomWord(context.Background())
	if err != nil {
		log.WithError(err).Error("Name resolution failed, participant stays invisible")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		log.Debug("Client gone before its name resolved")
		return
	}
	// A rename that landed while we were still pending wins over the
	// generated word.
	if c.name == PlaceholderName {
		c.name = word
	}
	c.state = named
	info := core.ClientInfo{ID: c.id, Name: c.name}
	c.mu.Unlock()

	// Re-check under the registry lock: an unregister that slipped in after
	// the liveness check above must not be followed by an insert, or the
	// closed client would haunt the visible set. Unregister deletes under
	// the same lock, so both orders converge.
	r.mu.Lock()
	if c.Closed() {
		r.mu.Unlock()
		log.Debug("Client gone before its name resolved")
		return
	}
	r.clients[c.id] = c
	r.mu.Unlock()

	if err := c.conn.Emit(core.ClientChannel, core.ClientHello, info); err != nil {
		log.WithError(err).Warn("Failed to push HELLO")
	}
	log.WithField("name", info.Name).Info("Client named")
}

// Rename updates the display name. With hasName false a replacement is
// requested from the provider. An empty result is ErrNoName and mutates
// nothing. The registry does not touch room state; the coordinator drives
// the room re-broadcast where one is due.
func (r *ClientRegistry) Rename(ctx context.Context, c *Client, requested string, hasName bool) (core.ClientInfo, error) {
	name := requested
	if !hasName {
		var err error
		name, err = r.names.RandomWord(ctx)
		if err != nil {
			return core.ClientInfo{}, fmt.Errorf("resolve replacement name: %w", err)
		}
	}
	if name == "" {
		return core.ClientInfo{}, core.ErrNoName
	}

	c.mu.Lock()
	c.name = name
	info := core.ClientInfo{ID: c.id, Name: c.name}
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"client_id": c.id,
		"name":      name,
	}).Info("Client renamed")
	return info, nil
}

// Unregister removes the participant from the visible set and marks it
// closed so an in-flight name resolution becomes a no-op. Idempotent.
func (r *ClientRegistry) Unregister(c *Client) {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()

	r.mu.Lock()
	delete(r.clients, c.id)
	r.mu.Unlock()

	if !already {
		logrus.WithField("client_id", c.id).Info("Client unregistered")
	}
}

// Get returns a visible participant by connection id.
func (r *ClientRegistry) Get(id string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[id]
}

// Len reports the size of the visible set.
func (r *ClientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
