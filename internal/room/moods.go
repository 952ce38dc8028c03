package room

import (
	"sort"

	"github.com/nerrad567/homepanel-core/internal/device"
)

// Mood keys.
const (
	MoodGoodNight = "goodNight"
	MoodCalm      = "calm"
	MoodChill     = "chill"
	MoodRelax     = "relax"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func on(p device.Preset) device.Preset {
	p.Status = device.StatusOn
	return p
}

// moods maps a mood key to the preset applied to each device type.
// Brightness is a percentage.
var moods = map[string]map[device.Type]device.Preset{
	MoodGoodNight: {
		device.TypeLights:   {Status: device.StatusOff},
		device.TypeFan:      on(device.Preset{Speed: intp(2)}),
		device.TypeACHeater: on(device.Preset{Temperature: intp(22)}),
	},
	MoodCalm: {
		device.TypeLights:   on(device.Preset{Brightness: intp(40), Color: strp("#ffcc80")}),
		device.TypeFan:      on(device.Preset{Speed: intp(1)}),
		device.TypeACHeater: on(device.Preset{Temperature: intp(24)}),
	},
	MoodChill: {
		device.TypeLights:   on(device.Preset{Brightness: intp(60), Color: strp("#e0f7fa")}),
		device.TypeFan:      on(device.Preset{Speed: intp(3)}),
		device.TypeACHeater: on(device.Preset{Temperature: intp(21)}),
	},
	MoodRelax: {
		device.TypeLights:   on(device.Preset{Brightness: intp(20), Color: strp("#ffb74d")}),
		device.TypeFan:      on(device.Preset{Speed: intp(1)}),
		device.TypeACHeater: on(device.Preset{Temperature: intp(24)}),
	},
}

// Presets returns the per-type presets of a mood.
func Presets(mood string) (map[device.Type]device.Preset, bool) {
	p, ok := moods[mood]
	return p, ok
}

// Moods returns the known mood keys, sorted.
func Moods() []string {
	keys := make([]string, 0, len(moods))
	for k := range moods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
