package room

import (
	"time"

	"github.com/nerrad567/homepanel-core/internal/device"
)

// MaxNameLength is the longest room name accepted.
const MaxNameLength = 100

// Room is a named place in a house. Devices belong to it by location.
type Room struct {
	ID        string    `json:"id"`
	HouseName string    `json:"houseName"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// House is a house known to the store, with its admin's user id when one
// is registered.
type House struct {
	Name    string
	AdminID string
}

// MoodResult is returned by ApplyMood.
type MoodResult struct {
	RoomID  string           `json:"roomId"`
	Room    string           `json:"room"`
	Mood    string           `json:"mood"`
	Devices []*device.Device `json:"devices"`
}

// DeleteResult is returned by DeleteRoom.
type DeleteResult struct {
	RoomID    string   `json:"roomId"`
	DeviceIDs []string `json:"deviceIds"`
}
