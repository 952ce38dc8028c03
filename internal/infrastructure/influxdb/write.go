package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementDeviceState = "device_state"
	measurementMood        = "room_mood"
)

// DeviceState is one observed device state after a mutation.
type DeviceState struct {
	House       string
	ID          string
	DeviceID    int64
	Type        string
	Location    string
	On          bool
	Temperature int
	Brightness  int
	Color       string
	Speed       int
	Operation   string
	At          time.Time
}

// WriteDeviceState records a device state sample. Only the attributes
// relevant to the device type are written as fields. Non-blocking.
func (c *Client) WriteDeviceState(s DeviceState) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(deviceStatePoint(s))
}

// WriteMoodApplied records that a mood preset touched n devices in a room.
func (c *Client) WriteMoodApplied(house, room, mood string, n int, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(moodPoint(house, room, mood, n, at))
}

func deviceStatePoint(s DeviceState) *write.Point {
	at := s.At
	if at.IsZero() {
		at = time.Now()
	}

	on := 0
	if s.On {
		on = 1
	}
	fields := map[string]any{"on": on}
	switch s.Type {
	case "AC/Heater":
		fields["temperature"] = s.Temperature
	case "Lights":
		fields["brightness"] = s.Brightness
		fields["color"] = s.Color
	case "Fan":
		fields["speed"] = s.Speed
	}

	return write.NewPoint(
		measurementDeviceState,
		map[string]string{
			"house":     s.House,
			"id":        s.ID,
			"device_id": strconv.FormatInt(s.DeviceID, 10),
			"type":      s.Type,
			"location":  s.Location,
			"operation": s.Operation,
		},
		fields,
		at,
	)
}

func moodPoint(house, room, mood string, n int, at time.Time) *write.Point {
	return write.NewPoint(
		measurementMood,
		map[string]string{"house": house, "room": room, "mood": mood},
		map[string]any{"devices": n},
		at,
	)
}
