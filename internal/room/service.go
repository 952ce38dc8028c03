package room

import (
	"context"
	"time"

	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/metrics"
	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

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

// DeviceEngine applies presets to the devices at a location.
// *device.Service implements it.
type DeviceEngine interface {
	ApplyPresets(ctx context.Context, p *tenancy.Principal, location string,
		presets map[device.Type]device.Preset, activity string) ([]*device.Device, error)
}

// LocationSource lists the device locations of a house.
// *device.SQLiteRepository implements it.
type LocationSource interface {
	Locations(ctx context.Context, house string) ([]string, error)
}

// AuditWriter appends audit entries.
type AuditWriter interface {
	Create(ctx context.Context, log *audit.AuditLog) error
}

// Telemetry records mood applications. *influxdb.Client implements it.
type Telemetry interface {
	WriteMoodApplied(house, room, mood string, n int, at time.Time)
}

// Service orchestrates rooms and moods.
type Service struct {
	repo      Repository
	devices   DeviceEngine
	locations LocationSource
	audit     AuditWriter
	sink      broadcast.Sink
	telemetry Telemetry
	logger    Logger
	now       func() time.Time
}

// NewService creates a room service.
func NewService(repo Repository, devices DeviceEngine, locations LocationSource, auditor AuditWriter, sink broadcast.Sink) *Service {
	if sink == nil {
		sink = broadcast.Nop{}
	}
	return &Service{
		repo:      repo,
		devices:   devices,
		locations: locations,
		audit:     auditor,
		sink:      sink,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetTelemetry enables mood telemetry writes.
func (s *Service) SetTelemetry(t Telemetry) {
	s.telemetry = t
}

// Reconcile creates a room for every device location of house that has
// none. It is idempotent and safe to run concurrently. actor is recorded
// as the creator of synthesised rooms and may be empty.
func (s *Service) Reconcile(ctx context.Context, house, actor string) (int, error) {
	rooms, err := s.repo.ListByHouse(ctx, house)
	if err != nil {
		return 0, err
	}
	locations, err := s.locations.Locations(ctx, house)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, name := range MissingRooms(rooms, locations) {
		_, inserted, err := s.repo.Ensure(ctx, house, name, actor)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
			metrics.ReconcilerRoomsCreatedTotal.Inc()
			s.logger.Info("room synthesised from device location", "house", house, "room", name)
		}
	}
	return created, nil
}

// CreateRoom returns the room with the given name, creating it if needed.
func (s *Service) CreateRoom(ctx context.Context, p *tenancy.Principal, name string) (*Room, error) {
	if err := requireHouse(p); err != nil {
		return nil, err
	}
	if err := tenancy.RequireAuthorized(p); err != nil {
		return nil, err
	}
	name = NormalizeName(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	room, created, err := s.repo.Ensure(ctx, p.HouseName, name, p.UserID)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("room created", "house", room.HouseName, "id", room.ID, "name", room.Name)
	}
	return room, nil
}

// ListRooms reconciles the caller's house and returns its rooms by name.
// A failed reconcile is logged and the stored rooms are still returned.
func (s *Service) ListRooms(ctx context.Context, p *tenancy.Principal) ([]Room, error) {
	if err := requireHouse(p); err != nil {
		return nil, err
	}
	if _, err := s.Reconcile(ctx, p.HouseName, p.UserID); err != nil {
		s.logger.Warn("room reconcile failed", "house", p.HouseName, "error", err)
	}
	return s.repo.ListByHouse(ctx, p.HouseName)
}

// ApplyMood applies a mood's presets to every device in the room.
func (s *Service) ApplyMood(ctx context.Context, p *tenancy.Principal, roomID, mood string) (*MoodResult, error) {
	presets, ok := Presets(mood)
	if !ok {
		return nil, ErrUnknownMood
	}
	room, err := s.load(ctx, p, roomID)
	if err != nil {
		return nil, err
	}
	if err := tenancy.RequireAuthorized(p); err != nil {
		return nil, err
	}

	updated, err := s.devices.ApplyPresets(ctx, p, room.Name, presets, mood+" mood applied")
	if err != nil {
		return nil, err
	}

	entry := &audit.AuditLog{
		HouseName: room.HouseName,
		Type:      audit.TypeInfo,
		Action:    mood + " mode activated in " + room.Name,
		UserID:    p.UserID,
		Details:   map[string]any{"roomId": room.ID, "mood": mood, "devices": len(updated)},
	}
	if len(updated) > 0 {
		entry.DeviceID = updated[0].ID
	}
	s.writeAudit(ctx, entry)

	if s.telemetry != nil {
		s.telemetry.WriteMoodApplied(room.HouseName, room.Name, mood, len(updated), s.now())
	}

	result := &MoodResult{RoomID: room.ID, Room: room.Name, Mood: mood, Devices: updated}
	s.sink.Publish(room.HouseName, broadcast.RoomMoodApplied, result)
	s.logger.Info("mood applied", "house", room.HouseName, "room", room.Name, "mood", mood, "devices", len(updated))
	return result, nil
}

// DeleteRoom removes a room and every device located in it. Admin only.
func (s *Service) DeleteRoom(ctx context.Context, p *tenancy.Principal, roomID string) (*DeleteResult, error) {
	room, err := s.load(ctx, p, roomID)
	if err != nil {
		return nil, err
	}
	if err := tenancy.RequireAdmin(p); err != nil {
		return nil, err
	}

	ids, err := s.repo.DeleteCascade(ctx, room)
	if err != nil {
		metrics.RecordMutation("room_delete", metrics.OutcomeError)
		return nil, err
	}
	metrics.RecordMutation("room_delete", metrics.OutcomeApplied)

	s.writeAudit(ctx, &audit.AuditLog{
		HouseName: room.HouseName,
		Type:      audit.TypeInfo,
		Action:    "Room " + room.Name + " deleted",
		UserID:    p.UserID,
		Details:   map[string]any{"roomId": room.ID, "deviceIds": ids},
	})

	for _, id := range ids {
		s.sink.Publish(room.HouseName, broadcast.DeviceRemoved, map[string]string{"deviceId": id})
	}
	result := &DeleteResult{RoomID: room.ID, DeviceIDs: ids}
	s.sink.Publish(room.HouseName, broadcast.DevicesRemoved, result)
	s.sink.Publish(room.HouseName, broadcast.RoomRemoved, map[string]string{"roomId": room.ID})

	s.logger.Info("room deleted", "house", room.HouseName, "id", room.ID, "devices", len(ids))
	return result, nil
}

// load fetches a room and verifies it belongs to the caller's house.
func (s *Service) load(ctx context.Context, p *tenancy.Principal, id string) (*Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tenancy.CheckHouse(p, room.HouseName); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) writeAudit(ctx context.Context, entry *audit.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("writing audit log failed", "action", entry.Action, "error", err)
	}
}

func requireHouse(p *tenancy.Principal) error {
	if p == nil {
		return tenancy.ErrCrossHouse
	}
	return tenancy.CheckHouse(p, p.HouseName)
}
