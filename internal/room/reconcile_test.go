package room

import (
	"context"
	"reflect"
	"testing"

	"github.com/nerrad567/homepanel-core/internal/device"
)

func TestMissingRooms(t *testing.T) {
	tests := []struct {
		name      string
		rooms     []string
		locations []string
		want      []string
	}{
		{"nothing to do", []string{"Hall"}, []string{"Hall"}, nil},
		{"sorted", nil, []string{"Kitchen", "Bedroom", "Attic"}, []string{"Attic", "Bedroom", "Kitchen"}},
		{"duplicates collapse", nil, []string{"Hall", "Hall", " Hall "}, []string{"Hall"}},
		{"skips empty and default", nil, []string{"", "   ", device.DefaultLocation, "Porch"}, []string{"Porch"}},
		{"existing rooms excluded", []string{"Hall", "Porch"}, []string{"Porch", "Study", "Hall"}, []string{"Study"}},
		{"case sensitive", []string{"hall"}, []string{"Hall"}, []string{"Hall"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms := make([]Room, len(tt.rooms))
			for i, n := range tt.rooms {
				rooms[i] = Room{Name: n}
			}
			if got := MissingRooms(rooms, tt.locations); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingRooms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDevice(t, "Oak", "Lamp", device.TypeLights, "Kitchen")
	f.addDevice(t, "Oak", "Fan", device.TypeFan, "Bedroom")
	f.addDevice(t, "Oak", "Spare", device.TypeFan, device.DefaultLocation)
	f.addDevice(t, "Elm", "Heater", device.TypeACHeater, "Cellar")

	n, err := f.svc.Reconcile(ctx, "Oak", "usr-admin")
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if n != 2 {
		t.Errorf("created = %d, want 2", n)
	}
	if got := f.roomNames(t, "Oak"); !reflect.DeepEqual(got, []string{"Bedroom", "Kitchen"}) {
		t.Errorf("rooms = %v", got)
	}
	if got := f.roomNames(t, "Elm"); len(got) != 0 {
		t.Errorf("other house rooms = %v, want none", got)
	}

	n, err = f.svc.Reconcile(ctx, "Oak", "usr-admin")
	if err != nil || n != 0 {
		t.Errorf("second Reconcile() = %d, %v; want 0, nil", n, err)
	}
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDevice(t, "Oak", "Lamp", device.TypeLights, "Kitchen")
	f.addDevice(t, "Elm", "Heater", device.TypeACHeater, "Cellar")

	_, err := f.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, authorized, house_name, created_at, updated_at)
		VALUES ('usr-oak', 'Olive', 'olive@example.com', 'x', 'admin', 1, 'Oak', '2026-03-01T00:00:00.000000Z', '2026-03-01T00:00:00.000000Z')`)
	if err != nil {
		t.Fatalf("seeding admin: %v", err)
	}

	sw, err := NewSweeper(f.svc, "@every 1h")
	if err != nil {
		t.Fatalf("NewSweeper() error = %v", err)
	}
	if err := sw.Sweep(ctx); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	oak, err := f.repo.ListByHouse(ctx, "Oak")
	if err != nil || len(oak) != 1 {
		t.Fatalf("Oak rooms = %v, %v", oak, err)
	}
	if oak[0].CreatedBy != "usr-oak" {
		t.Errorf("Oak room CreatedBy = %q, want house admin", oak[0].CreatedBy)
	}

	elm, err := f.repo.ListByHouse(ctx, "Elm")
	if err != nil || len(elm) != 1 {
		t.Fatalf("Elm rooms = %v, %v", elm, err)
	}
	if elm[0].CreatedBy != "" {
		t.Errorf("Elm room CreatedBy = %q, want empty without an admin", elm[0].CreatedBy)
	}
}

func TestNewSweeperRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	if _, err := NewSweeper(f.svc, "every ten minutes"); err == nil {
		t.Error("NewSweeper() should reject an unparseable schedule")
	}
}

func TestSweeperStartStop(t *testing.T) {
	f := newFixture(t)
	sw, err := NewSweeper(f.svc, "@every 1h")
	if err != nil {
		t.Fatalf("NewSweeper() error = %v", err)
	}
	sw.Start(context.Background())
	sw.Stop()
	sw.run() // after Stop the context is cancelled; must not sweep
}
