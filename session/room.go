package session

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/gtaEPIC/EZ-VDONINJA-LINK/core"
	"github.com/gtaEPIC/EZ-VDONINJA-LINK/names"
)

// roomPlaceholder names a room whose generated name has not resolved yet.
// Such a room is never registered, so the placeholder only shows up in logs.
const roomPlaceholder = "loading..."

// Room is a named grouping of participants. The id is internal; the name is
// the public join handle and is immutable once the room is registered.
type Room struct {
	id      string
	name    string
	members []*Client // insertion order
}

func (rm *Room) ID() string { return rm.id }

func (rm *Room) Name() string { return rm.name }

// info builds a fresh snapshot. Callers hold the registry lock.
func (rm *Room) info() core.RoomInfo {
	clients := make([]core.ClientInfo, 0, len(rm.members))
	for _, m := range rm.members {
		clients = append(clients, m.Info())
	}
	return core.RoomInfo{Name: rm.name, Clients: clients}
}

// RoomRegistry owns room lifecycle and membership. It is the single source
// of truth for "who is in which room": the rooms list, the member slices and
// the participant back-references are all guarded by one mutex, held for the
// full duration of every compound mutation.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms []*Room
	names names.Provider
	bcast core.Broadcaster
}

func NewRoomRegistry(provider names.Provider, bcast core.Broadcaster) *RoomRegistry {
	return &RoomRegistry{
		names: provider,
		bcast: bcast,
	}
}

// Create makes a room for the given initial members. With an explicit name
// the room is registered and the members attached immediately; names are
// enforced unique, a clash is ErrNameTaken and nothing is registered.
// Without a name the registry resolves one in the background and only then,
// as one locked unit, registers the room and attaches the members, so a
// room is never observable with a placeholder name and concurrent nameless
// creations cannot broadcast partial member lists.
func (r *RoomRegistry) Create(members []*Client, name string) (*Room, error) {
	if len(members) == 0 {
		return nil, core.ErrNoMembers
	}

	room := &Room{id: ulid.Make().String()}

	if name == "" {
		room.name = roomPlaceholder
		go r.resolveName(room, members)
		return room, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byNameLocked(name) != nil {
		return nil, core.ErrNameTaken
	}
	room.name = name
	r.registerLocked(room, members)
	return room, nil
}

func (r *RoomRegistry) resolveName(room *Room, members []*Client) {
	log := logrus.WithField("room_id", room.id)
	for {
		word, err := r.names.RandomWord(context.Background())
		if err != nil {
			log.WithError(err).Error("Room naming failed, room abandoned")
			return
		}

		r.mu.Lock()
		if r.byNameLocked(word) != nil {
			r.mu.Unlock()
			log.WithField("name", word).Debug("Generated room name taken, retrying")
			continue
		}
		room.name = word
		r.registerLocked(room, members)
		r.mu.Unlock()
		return
	}
}

// registerLocked inserts the room and attaches its initial members as one
// unit. Members that disconnected while the name was resolving are skipped;
// if none survive, the room is abandoned before it was ever observable.
func (r *RoomRegistry) registerLocked(room *Room, members []*Client) {
	live := make([]*Client, 0, len(members))
	for _, m := range members {
		if !m.Closed() {
			live = append(live, m)
		}
	}
	if len(live) == 0 {
		logrus.WithField("room_id", room.id).Debug("All initial members gone, room abandoned")
		return
	}

	r.rooms = append(r.rooms, room)
	logrus.WithFields(logrus.Fields{
		"room_id": room.id,
		"name":    room.name,
	}).Info("Room created")

	for _, m := range live {
		r.attachLocked(room, m)
	}
	// Members may close between the filter and the attach; a room that ended
	// up empty must not stay registered.
	if len(room.members) == 0 {
		r.closeLocked(room)
	}
}

// attachLocked adds a participant to a room: any prior room is left first
// (cascading teardown when it empties), then the back-reference is set, the
// member appended in insertion order, and the fresh snapshot broadcast to
// the whole room, newcomer included.
func (r *RoomRegistry) attachLocked(room *Room, c *Client) {
	if c.Closed() {
		logrus.WithFields(logrus.Fields{
			"room":      room.name,
			"client_id": c.id,
		}).Debug("Ignoring attach for closed client")
		return
	}
	if c.room != nil && c.room != room {
		r.detachLocked(c.room, c)
	}

	c.conn.Join(room.name)
	c.room = room
	if !room.contains(c) {
		room.members = append(room.members, c)
	}

	if err := c.conn.Emit(core.ClientChannel, core.ClientRoomJoin, room.info()); err != nil {
		logrus.WithError(err).WithField("client_id", c.id).Warn("Failed to push ROOM_JOIN")
	}
	r.broadcastLocked(room)

	logrus.WithFields(logrus.Fields{
		"room":      room.name,
		"client_id": c.id,
		"members":   len(room.members),
	}).Info("Client joined room")
}

func (r *RoomRegistry) detachLocked(room *Room, c *Client) {
	c.conn.Leave(room.name)
	for i, m := range room.members {
		if m == c {
			room.members = append(room.members[:i], room.members[i+1:]...)
			break
		}
	}
	c.room = nil

	if len(room.members) == 0 {
		r.closeLocked(room)
		return
	}
	r.broadcastLocked(room)
}

// closeLocked tears a room down: every remaining member is forced out of
// the broadcast group, then the room leaves the registry. No snapshot is
// sent, there is nobody left to receive one.
func (r *RoomRegistry) closeLocked(room *Room) {
	for _, m := range room.members {
		m.conn.Leave(room.name)
		m.room = nil
	}
	room.members = nil

	for i, rm := range r.rooms {
		if rm == room {
			r.rooms = append(r.rooms[:i], r.rooms[i+1:]...)
			break
		}
	}
	logrus.WithFields(logrus.Fields{
		"room_id": room.id,
		"name":    room.name,
	}).Info("Room closed")
}

func (r *RoomRegistry) broadcastLocked(room *Room) {
	if err := r.bcast.Broadcast(room.name, core.RoomChannel, core.RoomUpdate, room.info()); err != nil {
		logrus.WithError(err).WithField("room", room.name).Warn("Room update broadcast failed")
	}
}

func (r *RoomRegistry) byNameLocked(name string) *Room {
	for _, room := range r.rooms {
		if room.name == name {
			return room
		}
	}
	return nil
}

func (r *RoomRegistry) roomOfLocked(c *Client) *Room {
	for _, room := range r.rooms {
		for _, m := range room.members {
			if m.id == c.id {
				return room
			}
		}
	}
	return nil
}

func (rm *Room) contains(c *Client) bool {
	for _, m := range rm.members {
		if m == c {
			return true
		}
	}
	return false
}

// Join attaches the participant to the room with the given public name,
// implicitly leaving any previous room. Lookup and attach happen under one
// lock acquisition so the target cannot vanish in between.
func (r *RoomRegistry) Join(name string, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.byNameLocked(name)
	if room == nil {
		return core.ErrRoomNotFound
	}
	r.attachLocked(room, c)
	return nil
}

// Remove detaches the participant from its current room, cascading teardown
// when the room empties. Reports whether the participant was in a room at
// all; when it was not, nothing happens and nothing is broadcast.
func (r *RoomRegistry) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.room == nil {
		return false
	}
	r.detachLocked(c.room, c)
	return true
}

// BroadcastUpdate re-sends the snapshot of the participant's current room,
// if any. Used after a rename changed a member's identity.
func (r *RoomRegistry) BroadcastUpdate(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.room == nil {
		return
	}
	r.broadcastLocked(c.room)
}

// SnapshotOf finds the participant's room by membership and returns its
// fresh snapshot.
func (r *RoomRegistry) SnapshotOf(c *Client) (core.RoomInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.roomOfLocked(c)
	if room == nil {
		return core.RoomInfo{}, false
	}
	return room.info(), true
}

// SendLink broadcasts the generated meeting link for the participant's room
// to all of its members. Reports false when the participant is roomless.
func (r *RoomRegistry) SendLink(c *Client, baseURL string) bool {
	r.mu.Lock()
	room := r.roomOfLocked(c)
	r.mu.Unlock()
	if room == nil {
		return false
	}

	link := meetingLink(baseURL, room.name)
	if err := r.bcast.Broadcast(room.name, core.RoomChannel, core.RoomLink, core.LinkInfo{Link: link}); err != nil {
		logrus.WithError(err).WithField("room", room.name).Warn("Link broadcast failed")
	}
	return true
}

// meetingLink builds the external conferencing URL for a room. Device
// parameters are appended client-side.
func meetingLink(baseURL, roomName string) string {
	return baseURL + "?room=" + roomName + "&autostart&wc&ee&od&proaudio=1"
}

// FindByName returns the snapshot of the room with the given public name.
func (r *RoomRegistry) FindByName(name string) (core.RoomInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.byNameLocked(name)
	if room == nil {
		return core.RoomInfo{}, false
	}
	return room.info(), true
}

// Snapshots returns a fresh view of every registered room.
func (r *RoomRegistry) Snapshots() []core.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]core.RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		infos = append(infos, room.info())
	}
	return infos
}

// Len reports the number of registered rooms.
func (r *RoomRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
