package signaling

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrDuplicateRoom = errors.New("room already exists")
)
