package core

type (
	// ClientInfo is the wire identity of a participant.
	ClientInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// RoomInfo is the snapshot of a room pushed to its members on every
	// membership change. Always built fresh, never cached.
	RoomInfo struct {
		Name    string       `json:"name"`
		Clients []ClientInfo `json:"clients"`
	}

	// ErrorInfo is the error shape sent over the wire.
	ErrorInfo struct {
		Error string `json:"error"`
	}

	// LinkInfo carries the generated meeting link broadcast on LINK.
	LinkInfo struct {
		Link string `json:"link"`
	}

	// Conn is the per-participant view of the transport. The session core
	// never touches a socket directly.
	Conn interface {
		ID() string
		Emit(channel string, event string, payload any) error
		Join(room string)
		Leave(room string)
		Disconnect()
	}

	// Broadcaster delivers an event to every connection joined to a
	// broadcast group.
	Broadcaster interface {
		Broadcast(room string, channel string, event string, payload any) error
	}
)

// Event channels. Every inbound and outbound event travels on one of these.
const (
	ClientChannel = "client"
	RoomChannel   = "room"
)

// Client channel events.
const (
	ClientHello     = "HELLO"
	ClientRename    = "RENAME"
	ClientRoomJoin  = "ROOM_JOIN"
	ClientRoomLeave = "ROOM_LEAVE"
)

// Room channel events.
const (
	RoomCreate = "CREATE"
	RoomUpdate = "UPDATE"
	RoomJoin   = "JOIN"
	RoomLeave  = "LEAVE"
	RoomLink   = "LINK"
)
