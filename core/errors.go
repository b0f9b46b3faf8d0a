package core

import "fmt"

var (
	ErrNoMembers        = fmt.Errorf("a room needs at least one initial member")
	ErrNoName           = fmt.Errorf("no name")
	ErrRoomNotFound     = fmt.Errorf("room not found")
	ErrNameTaken        = fmt.Errorf("room name already taken")
	ErrMalformedRequest = fmt.Errorf("malformed request")
)
