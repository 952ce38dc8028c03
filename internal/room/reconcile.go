package room

import (
	"sort"

	"github.com/nerrad567/homepanel-core/internal/device"
)

// MissingRooms returns the device locations that have no room, sorted and
// without duplicates. Empty locations and the default location are never
// turned into rooms.
func MissingRooms(rooms []Room, locations []string) []string {
	have := make(map[string]struct{}, len(rooms))
	for _, r := range rooms {
		have[r.Name] = struct{}{}
	}

	var missing []string
	for _, loc := range locations {
		name := NormalizeName(loc)
		if name == "" || name == device.DefaultLocation {
			continue
		}
		if _, ok := have[name]; ok {
			continue
		}
		have[name] = struct{}{}
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return missing
}
