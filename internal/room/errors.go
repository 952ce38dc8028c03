package room

import (
	"fmt"

	"github.com/nerrad567/homepanel-core/internal/fault"
)

var (
	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = fmt.Errorf("room: %w", fault.ErrNotFound)

	// ErrInvalidName is returned when a room name is empty or too long.
	ErrInvalidName = fmt.Errorf("room: %w: name", fault.ErrInvalidInput)

	// ErrUnknownMood is returned for a mood key with no preset table.
	ErrUnknownMood = fmt.Errorf("room: %w: unknown mood", fault.ErrInvalidInput)
)
