package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/fault"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/homepanel-core/internal/metrics"
	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

// maxCASAttempts bounds reload-and-reapply after a lost version race.
const maxCASAttempts = 3

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AuditWriter appends audit entries.
type AuditWriter interface {
	Create(ctx context.Context, log *audit.AuditLog) error
}

// Telemetry receives device state samples. *influxdb.Client implements it.
type Telemetry interface {
	WriteDeviceState(s influxdb.DeviceState)
}

// Service is the device state engine. Every mutation follows the same
// path: load, house check, authorisation check, validation, idempotence
// short-circuit, mutate, persist with CAS plus one activity entry, then
// best-effort audit, telemetry and broadcast.
type Service struct {
	repo      Repository
	audit     AuditWriter
	sink      broadcast.Sink
	telemetry Telemetry
	logger    Logger
	now       func() time.Time
}

// NewService creates a device state engine.
func NewService(repo Repository, auditor AuditWriter, sink broadcast.Sink) *Service {
	if sink == nil {
		sink = broadcast.Nop{}
	}
	return &Service{
		repo:   repo,
		audit:  auditor,
		sink:   sink,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetTelemetry enables state history writes.
func (s *Service) SetTelemetry(t Telemetry) {
	s.telemetry = t
}

// AddInput describes a new device.
type AddInput struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Location string `json:"location"`
}

// Add creates a device in the caller's house. Admin only.
func (s *Service) Add(ctx context.Context, p *tenancy.Principal, in AddInput) (*Device, error) {
	if err := requireHouse(p); err != nil {
		return nil, err
	}
	if err := tenancy.RequireAdmin(p); err != nil {
		return nil, err
	}

	name := NormalizeName(in.Name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateType(in.Type); err != nil {
		return nil, err
	}
	location := NormalizeName(in.Location)
	if location == "" {
		return nil, fmt.Errorf("%w: required", ErrInvalidLocation)
	}

	now := s.now().UTC()
	d := NewDevice(p.HouseName, name, in.Type, location)
	d.Owner = p.UserID
	d.LastToggledBy = p.UserID
	d.LastUpdated = now
	d.CreatedAt = now

	if err := s.repo.Create(ctx, d, s.entry(p, "Device added", now)); err != nil {
		metrics.RecordMutation("add", outcomeOf(err))
		return nil, err
	}
	metrics.RecordMutation("add", metrics.OutcomeApplied)

	s.writeAudit(ctx, p, d, audit.TypeInfo, "Device added by admin", map[string]any{"name": d.Name, "type": d.Type, "location": d.Location})
	s.writeTelemetry(d, "add")
	s.sink.Publish(d.HouseName, broadcast.DeviceAdded, d.Clone())

	s.logger.Info("device added", "house", d.HouseName, "id", d.ID, "device_id", d.DeviceID, "name", d.Name)
	return d, nil
}

// List returns the caller's house devices ordered by deviceId.
func (s *Service) List(ctx context.Context, p *tenancy.Principal) ([]Device, error) {
	if err := requireHouse(p); err != nil {
		return nil, err
	}
	return s.repo.ListByHouse(ctx, p.HouseName)
}

// ListPending returns the caller's house devices awaiting approval. Admin only.
func (s *Service) ListPending(ctx context.Context, p *tenancy.Principal) ([]Device, error) {
	devices, err := s.List(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := tenancy.RequireAdmin(p); err != nil {
		return nil, err
	}
	pending := []Device{}
	for _, d := range devices {
		if !d.Approved {
			pending = append(pending, d)
		}
	}
	return pending, nil
}

// Get returns one device with its activity log.
func (s *Service) Get(ctx context.Context, p *tenancy.Principal, id string) (*Device, error) {
	d, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if d.ActivityLog, err = s.repo.Activity(ctx, d.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// Activity returns the activity log of one device, oldest first.
func (s *Service) Activity(ctx context.Context, p *tenancy.Principal, id string) ([]ActivityEntry, error) {
	d, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return s.repo.Activity(ctx, d.ID)
}

// change is the outcome of applying an operation to a loaded device.
type change struct {
	skip     bool   // state already matches; no write
	activity string // activity log line ("" for none)
	audit    string // audit action
	toggles  bool   // sets lastToggledBy
}

// Toggle flips the power state. The device must be approved.
func (s *Service) Toggle(ctx context.Context, p *tenancy.Principal, id string) (*Device, error) {
	return s.mutate(ctx, p, id, "toggle", func(d *Device) (change, error) {
		if !d.Approved {
			return change{}, ErrNotApproved
		}
		if d.IsOn() {
			d.Status = StatusOff
		} else {
			d.Status = StatusOn
		}
		return change{
			activity: "turned " + string(d.Status),
			audit:    "Toggled: " + string(d.Status),
			toggles:  true,
		}, nil
	})
}

// SetTemperature sets an AC/Heater target temperature (16-30).
func (s *Service) SetTemperature(ctx context.Context, p *tenancy.Principal, id string, v int) (*Device, error) {
	return s.mutate(ctx, p, id, "temperature", func(d *Device) (change, error) {
		if err := requireType(d, TypeACHeater, "temperature"); err != nil {
			return change{}, err
		}
		if err := checkRange("temperature", v, MinTemperature, MaxTemperature); err != nil {
			return change{}, err
		}
		if d.Temperature == v {
			return change{skip: true}, nil
		}
		d.Temperature = v
		d.Value = v
		return change{
			activity: fmt.Sprintf("Temperature set to %d°C", v),
			audit:    "Temperature set to " + strconv.Itoa(v),
			toggles:  true,
		}, nil
	})
}

// SetBrightness sets a Lights brightness percentage (1-100).
func (s *Service) SetBrightness(ctx context.Context, p *tenancy.Principal, id string, v int) (*Device, error) {
	return s.mutate(ctx, p, id, "brightness", func(d *Device) (change, error) {
		if err := requireType(d, TypeLights, "brightness"); err != nil {
			return change{}, err
		}
		if err := checkRange("brightness", v, MinBrightness, MaxBrightness); err != nil {
			return change{}, err
		}
		if d.Brightness == v {
			return change{skip: true}, nil
		}
		d.Brightness = v
		msg := "Brightness set to " + strconv.Itoa(v)
		return change{activity: msg, audit: msg, toggles: true}, nil
	})
}

// SetColor sets a Lights colour token.
func (s *Service) SetColor(ctx context.Context, p *tenancy.Principal, id string, c string) (*Device, error) {
	return s.mutate(ctx, p, id, "color", func(d *Device) (change, error) {
		if err := requireType(d, TypeLights, "color"); err != nil {
			return change{}, err
		}
		color, err := NormalizeColor(c)
		if err != nil {
			return change{}, err
		}
		if d.Color == color {
			return change{skip: true}, nil
		}
		d.Color = color
		return change{activity: "Color changed", audit: "Color changed", toggles: true}, nil
	})
}

// SetSpeed sets a Fan speed step (1-5).
func (s *Service) SetSpeed(ctx context.Context, p *tenancy.Principal, id string, v int) (*Device, error) {
	return s.mutate(ctx, p, id, "speed", func(d *Device) (change, error) {
		if err := requireType(d, TypeFan, "speed"); err != nil {
			return change{}, err
		}
		if err := checkRange("speed", v, MinSpeed, MaxSpeed); err != nil {
			return change{}, err
		}
		if d.Speed == v {
			return change{skip: true}, nil
		}
		d.Speed = v
		msg := "Speed set to " + strconv.Itoa(v)
		return change{activity: msg, audit: msg, toggles: true}, nil
	})
}

// Approve marks a device as approved for control. Admin only.
func (s *Service) Approve(ctx context.Context, p *tenancy.Principal, id string) (*Device, error) {
	approved := false
	d, err := s.mutateAs(ctx, p, id, "approve", tenancy.RequireAdmin, func(d *Device) (change, error) {
		approved = !d.Approved
		if !approved {
			return change{skip: true}, nil
		}
		d.Approved = true
		return change{audit: "Device approved"}, nil
	})
	if err != nil {
		return nil, err
	}
	if approved {
		s.sink.Publish(d.HouseName, broadcast.DeviceApproved, d.Clone())
	}
	return d, nil
}

// Delete removes a device. Admin only.
func (s *Service) Delete(ctx context.Context, p *tenancy.Principal, id string) error {
	d, err := s.load(ctx, p, id)
	if err != nil {
		return err
	}
	if err := tenancy.RequireAdmin(p); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, d.ID); err != nil {
		return err
	}
	metrics.RecordMutation("delete", metrics.OutcomeApplied)

	s.writeAudit(ctx, p, d, audit.TypeInfo, "Device removed by admin", map[string]any{"name": d.Name})
	s.sink.Publish(d.HouseName, broadcast.DeviceRemoved, map[string]string{"deviceId": d.ID})
	s.logger.Info("device removed", "house", d.HouseName, "id", d.ID)
	return nil
}

// ApplyPresets writes the preset for each device type to every device at
// location in the caller's house. Presets apply unconditionally; devices
// whose type has no preset are left alone. Each updated device gets one
// activity entry and a deviceUpdated broadcast. No audit entry is written;
// the caller records one combined entry.
func (s *Service) ApplyPresets(ctx context.Context, p *tenancy.Principal, location string, presets map[Type]Preset, activity string) ([]*Device, error) {
	if err := requireHouse(p); err != nil {
		return nil, err
	}
	if err := tenancy.RequireAuthorized(p); err != nil {
		return nil, err
	}

	devices, err := s.repo.ListByLocation(ctx, p.HouseName, location)
	if err != nil {
		return nil, err
	}

	updated := make([]*Device, 0, len(devices))
	for i := range devices {
		preset, ok := presets[devices[i].Type]
		if !ok {
			continue
		}
		d, err := s.persist(ctx, p, &devices[i], "mood", func(d *Device) (change, error) {
			preset.ApplyTo(d)
			return change{activity: activity, toggles: true}, nil
		})
		if errors.Is(err, ErrDeviceNotFound) {
			continue // deleted concurrently
		}
		if err != nil {
			return updated, err
		}
		updated = append(updated, d)
	}
	return updated, nil
}

// mutate runs a member-level mutation (authorised members and admins).
func (s *Service) mutate(ctx context.Context, p *tenancy.Principal, id, op string, apply func(*Device) (change, error)) (*Device, error) {
	return s.mutateAs(ctx, p, id, op, tenancy.RequireAuthorized, apply)
}

func (s *Service) mutateAs(ctx context.Context, p *tenancy.Principal, id, op string,
	guard func(*tenancy.Principal) error, apply func(*Device) (change, error),
) (*Device, error) {
	d, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := guard(p); err != nil {
		metrics.RecordMutation(op, metrics.OutcomeRejected)
		return nil, err
	}
	return s.persist(ctx, p, d, op, apply)
}

// persist applies the change to d and writes it, reloading and
// re-applying on a lost CAS race.
func (s *Service) persist(ctx context.Context, p *tenancy.Principal, d *Device, op string, apply func(*Device) (change, error)) (*Device, error) {
	for attempt := 0; ; attempt++ {
		ch, err := apply(d)
		if err != nil {
			metrics.RecordMutation(op, metrics.OutcomeRejected)
			return nil, err
		}
		if ch.skip {
			metrics.RecordMutation(op, metrics.OutcomeNoop)
			return d, nil
		}

		now := s.now().UTC()
		d.LastUpdated = now
		if ch.toggles {
			d.LastToggledBy = p.UserID
		}
		var entry *ActivityEntry
		if ch.activity != "" {
			entry = s.entry(p, ch.activity, now)
		}

		err = s.repo.Update(ctx, d, entry)
		if err == nil {
			metrics.RecordMutation(op, metrics.OutcomeApplied)
			if ch.audit != "" {
				s.writeAudit(ctx, p, d, audit.TypeInfo, ch.audit, nil)
			}
			s.writeTelemetry(d, op)
			s.sink.Publish(d.HouseName, broadcast.DeviceUpdated, d.Clone())
			return d, nil
		}
		if !errors.Is(err, ErrVersionConflict) || attempt+1 >= maxCASAttempts {
			metrics.RecordMutation(op, outcomeOf(err))
			return nil, err
		}

		s.logger.Debug("device version conflict, retrying", "id", d.ID, "attempt", attempt+1)
		if d, err = s.repo.GetByID(ctx, d.ID); err != nil {
			return nil, err
		}
	}
}

// load fetches a device and verifies it belongs to the caller's house.
func (s *Service) load(ctx context.Context, p *tenancy.Principal, id string) (*Device, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckHouse(p, d.HouseName); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) entry(p *tenancy.Principal, action string, at time.Time) *ActivityEntry {
	name := p.DisplayName
	if name == "" {
		name = p.UserID
	}
	return &ActivityEntry{UserID: p.UserID, UserName: name, Action: action, Timestamp: at}
}

// writeAudit appends an audit entry. Failures are logged, never returned.
func (s *Service) writeAudit(ctx context.Context, p *tenancy.Principal, d *Device, typ, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Create(ctx, &audit.AuditLog{
		HouseName: d.HouseName,
		Type:      typ,
		Action:    action,
		DeviceID:  d.ID,
		UserID:    p.UserID,
		Details:   details,
	})
	if err != nil {
		s.logger.Warn("writing audit log failed", "device", d.ID, "action", action, "error", err)
	}
}

func (s *Service) writeTelemetry(d *Device, op string) {
	if s.telemetry == nil {
		return
	}
	s.telemetry.WriteDeviceState(influxdb.DeviceState{
		House:       d.HouseName,
		ID:          d.ID,
		DeviceID:    d.DeviceID,
		Type:        string(d.Type),
		Location:    d.Location,
		On:          d.IsOn(),
		Temperature: d.Temperature,
		Brightness:  d.Brightness,
		Color:       d.Color,
		Speed:       d.Speed,
		Operation:   op,
		At:          d.LastUpdated,
	})
}

// requireHouse rejects nil or house-less principals.
func requireHouse(p *tenancy.Principal) error {
	if p == nil {
		return tenancy.ErrCrossHouse
	}
	return tenancy.CheckHouse(p, p.HouseName)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, fault.ErrConflict):
		return metrics.OutcomeConflict
	case fault.Kind(err) != nil:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
