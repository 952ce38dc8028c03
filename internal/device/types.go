package device

import "time"

// Type is the device category. It decides which attributes a device
// carries and which setters apply.
type Type string

// Known device types.
const (
	TypeACHeater Type = "AC/Heater"
	TypeLights   Type = "Lights"
	TypeFan      Type = "Fan"
)

// IsValid reports whether t is a known device type.
func (t Type) IsValid() bool {
	switch t {
	case TypeACHeater, TypeLights, TypeFan:
		return true
	}
	return false
}

// Status is the power state of a device.
type Status string

// Power states.
const (
	StatusOn  Status = "on"
	StatusOff Status = "off"
)

// Attribute defaults and bounds.
const (
	DefaultLocation    = "Unknown"
	DefaultTemperature = 24
	DefaultBrightness  = 100
	DefaultColor       = "#ffffff"
	DefaultSpeed       = 1

	MinTemperature = 16
	MaxTemperature = 30
	MinBrightness  = 1
	MaxBrightness  = 100
	MinSpeed       = 1
	MaxSpeed       = 5

	MaxNameLength  = 100
	MaxColorLength = 32
)

// Device is a controllable appliance of one house.
type Device struct {
	ID            string    `json:"id"`
	DeviceID      int64     `json:"deviceId"`
	HouseName     string    `json:"houseName"`
	Name          string    `json:"name"`
	Type          Type      `json:"type"`
	Location      string    `json:"location"`
	Status        Status    `json:"status"`
	Approved      bool      `json:"approved"`
	Temperature   int       `json:"temperature"`
	Brightness    int       `json:"brightness"`
	Color         string    `json:"color"`
	Speed         int       `json:"speed"`
	Value         int       `json:"value"` // legacy mirror of Temperature
	Owner         string    `json:"owner,omitempty"`
	LastToggledBy string    `json:"lastToggledBy,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`

	// ActivityLog is populated by Service.Get only.
	ActivityLog []ActivityEntry `json:"activityLog,omitempty"`
}

// IsOn reports whether the device is powered on.
func (d *Device) IsOn() bool {
	return d.Status == StatusOn
}

// Clone returns an independent copy of d.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	if d.ActivityLog != nil {
		cpy.ActivityLog = append([]ActivityEntry(nil), d.ActivityLog...)
	}
	return &cpy
}

// StateKey identifies the device's retained MQTT state topic.
func (d *Device) StateKey() string {
	return d.ID
}

// Snapshot returns the identifying summary carried by conflict errors.
func (d *Device) Snapshot() Snapshot {
	return Snapshot{ID: d.ID, Name: d.Name, Type: d.Type, Location: d.Location, Status: d.Status}
}

// Snapshot identifies an existing device in a duplicate-name conflict.
type Snapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Location string `json:"location"`
	Status   Status `json:"status"`
}

// ActivityEntry is one line of a device's append-only activity log.
type ActivityEntry struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDevice returns a device of type t with the type defaults applied:
// off, approved, and every attribute at its default value.
func NewDevice(house, name string, t Type, location string) *Device {
	return &Device{
		HouseName:   house,
		Name:        name,
		Type:        t,
		Location:    location,
		Status:      StatusOff,
		Approved:    true,
		Temperature: DefaultTemperature,
		Brightness:  DefaultBrightness,
		Color:       DefaultColor,
		Speed:       DefaultSpeed,
		Value:       DefaultTemperature,
	}
}

// Preset is a set of attribute values applied to a device regardless of
// its current state. Nil fields are left untouched.
type Preset struct {
	Status      Status
	Temperature *int
	Brightness  *int
	Color       *string
	Speed       *int
}

// ApplyTo writes the preset onto d.
func (p Preset) ApplyTo(d *Device) {
	if p.Status != "" {
		d.Status = p.Status
	}
	if p.Temperature != nil {
		d.Temperature = *p.Temperature
		d.Value = *p.Temperature
	}
	if p.Brightness != nil {
		d.Brightness = *p.Brightness
	}
	if p.Color != nil {
		d.Color = *p.Color
	}
	if p.Speed != nil {
		d.Speed = *p.Speed
	}
}
