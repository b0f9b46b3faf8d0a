package session

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/gtaEPIC/EZ-VDONINJA-LINK/core"
)

// Ack answers a request on its acknowledgement callback.
type Ack func(payload any)

// Coordinator routes inbound (channel, event) pairs to registry operations
// and drives the outbound notifications. It holds no state of its own
// beyond the two registries and the link base URL.
type Coordinator struct {
	clients  *ClientRegistry
	rooms    *RoomRegistry
	linkBase string
}

func NewCoordinator(clients *ClientRegistry, rooms *RoomRegistry, linkBase string) *Coordinator {
	return &Coordinator{
		clients:  clients,
		rooms:    rooms,
		linkBase: linkBase,
	}
}

// Connect registers a participant for a fresh connection.
func (co *Coordinator) Connect(conn core.Conn) *Client {
	c := co.clients.Register(conn)
	logrus.WithField("client_id", c.ID()).Info("Client connected")
	return c
}

// Disconnect tears a participant down: out of the visible set first, then
// out of its room (cascading room teardown), then the connection itself.
// Safe at any time, including while the name is still resolving.
func (co *Coordinator) Disconnect(c *Client) {
	co.clients.Unregister(c)
	co.rooms.Remove(c)
	c.Conn().Disconnect()
}

// HandleClientEvent dispatches an event from the client channel.
func (co *Coordinator) HandleClientEvent(ctx context.Context, c *Client, event string, data any, ack Ack) {
	switch event {
	case core.ClientHello:
		logrus.WithField("client_id", c.ID()).Debug("HELLO received")
	case core.ClientRename:
		co.rename(ctx, c, data, ack)
	default:
		logrus.WithFields(logrus.Fields{
			"client_id": c.ID(),
			"event":     event,
		}).Debug("Unknown client event")
	}
}

// HandleRoomEvent dispatches an event from the room channel.
func (co *Coordinator) HandleRoomEvent(ctx context.Context, c *Client, event string, data any, ack Ack) {
	switch event {
	case core.RoomCreate:
		co.create(c, data)
	case core.RoomUpdate:
		co.query(c, ack)
	case core.RoomJoin:
		co.join(c, data)
	case core.RoomLeave:
		co.leave(c, ack)
	case core.RoomLink:
		co.rooms.SendLink(c, co.linkBase)
	default:
		logrus.WithFields(logrus.Fields{
			"client_id": c.ID(),
			"event":     event,
		}).Debug("Unknown room event")
	}
}

func (co *Coordinator) rename(ctx context.Context, c *Client, data any, ack Ack) {
	var (
		info core.ClientInfo
		err  error
	)
	if data == nil {
		info, err = co.clients.Rename(ctx, c, "", false)
	} else {
		name, _ := payloadName(data)
		info, err = co.clients.Rename(ctx, c, name, true)
	}

	if errors.Is(err, core.ErrNoName) {
		if ack != nil {
			ack(core.ErrorInfo{Error: "No Name"})
		}
		logrus.WithField("client_id", c.ID()).Warn("Rename without a usable name")
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("client_id", c.ID()).Error("Rename failed")
		return
	}

	if c.Named() {
		co.rooms.BroadcastUpdate(c)
		if ack != nil {
			ack(info)
		} else if err := c.Conn().Emit(core.ClientChannel, core.ClientRename, info); err != nil {
			logrus.WithError(err).WithField("client_id", c.ID()).Warn("Failed to push RENAME")
		}
		return
	}

	// Still pending: the new value is stored but nothing is broadcast, the
	// participant is not registered yet.
	if ack != nil {
		ack(info)
	}
}

func (co *Coordinator) create(c *Client, data any) {
	name, _ := payloadName(data)
	if _, err := co.rooms.Create([]*Client{c}, name); err != nil {
		if errors.Is(err, core.ErrNameTaken) {
			co.notifyError(c, "Name Taken")
			return
		}
		logrus.WithError(err).WithField("client_id", c.ID()).Error("Room creation failed")
	}
}

func (co *Coordinator) query(c *Client, ack Ack) {
	if ack == nil {
		return
	}
	if info, ok := co.rooms.SnapshotOf(c); ok {
		ack(info)
		return
	}
	ack(nil)
}

func (co *Coordinator) join(c *Client, data any) {
	name, ok := payloadName(data)
	if !ok {
		// Recoverable, unlike the connection-dropping policy this replaces.
		co.notifyError(c, "Bad Request")
		logrus.WithError(core.ErrMalformedRequest).WithField("client_id", c.ID()).Warn("JOIN without a room name")
		return
	}
	if err := co.rooms.Join(name, c); errors.Is(err, core.ErrRoomNotFound) {
		co.notifyError(c, "Not Found")
		logrus.WithFields(logrus.Fields{
			"client_id": c.ID(),
			"room":      name,
		}).Warn("JOIN to unknown room")
	}
}

func (co *Coordinator) leave(c *Client, ack Ack) {
	if ack != nil {
		ack(nil)
	}
	if !co.rooms.Remove(c) {
		return
	}
	if err := c.Conn().Emit(core.RoomChannel, core.RoomLeave, nil); err != nil {
		logrus.WithError(err).WithField("client_id", c.ID()).Warn("Failed to push LEAVE")
	}
}

// notifyError reports a request failure to the requester only, using the
// error-shaped room update.
func (co *Coordinator) notifyError(c *Client, message string) {
	if err := c.Conn().Emit(core.RoomChannel, core.RoomUpdate, core.ErrorInfo{Error: message}); err != nil {
		logrus.WithError(err).WithField("client_id", c.ID()).Warn("Failed to push error")
	}
}

// Rooms exposes the live room directory.
func (co *Coordinator) Rooms() []core.RoomInfo {
	return co.rooms.Snapshots()
}

// payloadName pulls the "name" field out of an event payload. The second
// return is false when the payload is not an object or the name is missing
// or empty.
func payloadName(data any) (string, bool) {
	m, ok := data.(map[string]any)
	if !ok {
		return "", false
	}
	name, _ := m["name"].(string)
	return name, name != ""
}
