package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every Homepanel topic.
const DefaultTopicPrefix = "homepanel"

// Topics builds Homepanel MQTT topics under a configurable prefix.
//
// House events are published flat per house so a subscriber for one
// household never sees another's traffic:
//
//	topics := mqtt.Topics{Prefix: "homepanel"}
//	topics.HouseEvent("Oak Lodge", "deviceUpdated")
//	// Returns: "homepanel/house/Oak Lodge/events/deviceUpdated"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// HouseEvent returns the topic for a named broadcast event of one house.
//
// Example: homepanel/house/Oak Lodge/events/deviceUpdated
func (t Topics) HouseEvent(house, event string) string {
	return fmt.Sprintf("%s/house/%s/events/%s", t.prefix(), Segment(house), Segment(event))
}

// HouseDeviceState returns the retained state topic for one device.
//
// Example: homepanel/house/Oak Lodge/devices/dev-0f8e2c1a-5b3d-4e7f-9a10-2c4b6d8e0f12/state
func (t Topics) HouseDeviceState(house, deviceID string) string {
	return fmt.Sprintf("%s/house/%s/devices/%s/state", t.prefix(), Segment(house), Segment(deviceID))
}

// AllHouseEvents returns a pattern matching every event of one house.
//
// Pattern: homepanel/house/{house}/events/+
func (t Topics) AllHouseEvents(house string) string {
	return fmt.Sprintf("%s/house/%s/events/+", t.prefix(), Segment(house))
}

// AllEvents returns a pattern matching every event of every house.
//
// Pattern: homepanel/house/+/events/+
func (t Topics) AllEvents() string {
	return t.prefix() + "/house/+/events/+"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: homepanel/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// segmentReplacer percent-escapes the MQTT level separator, the wildcards
// and the escape character itself, so distinct names map to distinct levels.
var segmentReplacer = strings.NewReplacer("%", "%25", "/", "%2F", "+", "%2B", "#", "%23")

// emptySegment stands in for an empty name. Escaping never produces it.
const emptySegment = "%00"

// Segment makes s safe to use as a single topic level. House names are
// free text and may contain separators or wildcard characters.
func Segment(s string) string {
	if s == "" {
		return emptySegment
	}
	return segmentReplacer.Replace(s)
}
