package user

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/fault"
	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{
		Name: " Alex ", Email: " Alex@Example.COM ", Password: "secret1", HouseName: " Oak ",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.Name != "Alex" || u.Email != "alex@example.com" || u.HouseName != "Oak" {
		t.Errorf("normalisation: %+v", u)
	}
	if u.Role != tenancy.RoleAdmin || !u.Authorized {
		t.Errorf("role = %s authorized = %v, want authorised admin", u.Role, u.Authorized)
	}
	if u.PasswordHash == "secret1" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if u.PasswordResetStatus != ResetNone {
		t.Errorf("PasswordResetStatus = %q", u.PasswordResetStatus)
	}

	stored, err := f.repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Email != u.Email || stored.Role != tenancy.RoleAdmin {
		t.Errorf("stored = %+v", stored)
	}

	logs, _ := f.audits.List(ctx, audit.Filter{HouseName: "Oak"}) //nolint:errcheck // checked below
	if len(logs.Logs) != 1 || logs.Logs[0].Type != audit.TypeSecurity {
		t.Errorf("audit = %+v", logs.Logs)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if _, err := uuid.Parse(strings.TrimPrefix(a, "usr-")); err != nil || !strings.HasPrefix(a, "usr-") {
		t.Errorf("GenerateID() = %q, want usr- followed by a UUID", a)
	}
	if a == b {
		t.Errorf("GenerateID() repeated %q", a)
	}
}

func TestRegisterRejections(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Oak", "alex@example.com")

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"second admin", RegisterInput{Name: "B", Email: "b@example.com", Password: "secret1", HouseName: "Oak"}, ErrAdminExists},
		{"email taken", RegisterInput{Name: "B", Email: "ALEX@example.com", Password: "secret1", HouseName: "Elm"}, ErrEmailExists},
		{"short password", RegisterInput{Name: "B", Email: "b@example.com", Password: "12345", HouseName: "Elm"}, ErrPasswordTooWeak},
		{"bad email", RegisterInput{Name: "B", Email: "not-an-email", Password: "secret1", HouseName: "Elm"}, ErrInvalidEmail},
		{"no name", RegisterInput{Name: " ", Email: "b@example.com", Password: "secret1", HouseName: "Elm"}, ErrInvalidName},
		{"no house", RegisterInput{Name: "B", Email: "b@example.com", Password: "secret1", HouseName: ""}, ErrInvalidHouse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Register(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}

	// Exactly six characters is long enough.
	if _, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "B", Email: "b@example.com", Password: "123456", HouseName: "Elm",
	}); err != nil {
		t.Errorf("Register(6-char password) error = %v", err)
	}
}

func TestSingleAdminEnforcedByStorage(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Oak", "alex@example.com")

	err := f.repo.Create(context.Background(), &User{
		Name: "Rogue", Email: "rogue@example.com", PasswordHash: "x",
		Role: tenancy.RoleAdmin, Authorized: true, HouseName: "Oak",
	})
	if !errors.Is(err, ErrAdminExists) || !errors.Is(err, fault.ErrConflict) {
		t.Errorf("Create(second admin) error = %v, want ErrAdminExists", err)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	ctx := context.Background()

	u, err := f.svc.Authenticate(ctx, " ALEX@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if u.ID != admin.ID {
		t.Errorf("Authenticate() = %s, want %s", u.ID, admin.ID)
	}

	for _, tc := range []struct{ email, password string }{
		{"alex@example.com", "wrong-pass"},
		{"nobody@example.com", "secret1"},
	} {
		if _, err := f.svc.Authenticate(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate(%s) error = %v, want ErrInvalidCredentials", tc.email, err)
		}
	}
}

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	ctx := context.Background()

	u, err := f.svc.AddMember(ctx, admin.Principal(), MemberInput{Name: "Sam", Email: "sam@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if u.Role != tenancy.RoleUser || !u.Authorized || u.HouseName != "Oak" {
		t.Errorf("member = %+v", u)
	}
	if names := f.events.Names(); !reflect.DeepEqual(names, []string{broadcast.MemberAdded}) {
		t.Errorf("events = %v", names)
	}

	tests := []struct {
		name string
		p    *tenancy.Principal
		in   MemberInput
		want error
	}{
		{"member caller", u.Principal(), MemberInput{Name: "X", Email: "x@example.com", Password: "secret1"}, fault.ErrUnauthorized},
		{"second admin", admin.Principal(), MemberInput{Name: "X", Email: "x@example.com", Password: "secret1", Role: tenancy.RoleAdmin}, ErrAdminExists},
		{"bad role", admin.Principal(), MemberInput{Name: "X", Email: "x@example.com", Password: "secret1", Role: "owner"}, ErrInvalidRole},
		{"email taken", admin.Principal(), MemberInput{Name: "X", Email: "sam@example.com", Password: "secret1"}, ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.AddMember(ctx, tt.p, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("AddMember() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestListMembersAdminFirst(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "zed@example.com")
	f.addMember(t, admin, "Bea", "bea@example.com")
	f.addMember(t, admin, "Abe", "abe@example.com")
	f.register(t, "Elm", "elm@example.com")

	members, err := f.svc.ListMembers(context.Background(), admin.Principal())
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	var names []string
	for _, m := range members {
		names = append(names, m.Name)
	}
	if want := []string{"Admin of Oak", "Abe", "Bea"}; !reflect.DeepEqual(names, want) {
		t.Errorf("members = %v, want %v", names, want)
	}
}

func TestAuthorize(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	ctx := context.Background()

	// A member who signed up without the admin starts unauthorised.
	pending := &User{Name: "Pat", Email: "pat@example.com", PasswordHash: "x", Role: tenancy.RoleUser, HouseName: "Oak"}
	if err := f.repo.Create(ctx, pending); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if pending.Principal().Authorized {
		t.Fatal("pending member should not be authorised")
	}

	if _, err := f.svc.Authorize(ctx, pending.Principal(), pending.ID); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("Authorize(self) error = %v, want Unauthorized", err)
	}
	other := f.register(t, "Elm", "elm@example.com")
	if _, err := f.svc.Authorize(ctx, other.Principal(), pending.ID); !errors.Is(err, fault.ErrForbidden) {
		t.Errorf("Authorize(other house) error = %v, want Forbidden", err)
	}

	u, err := f.svc.Authorize(ctx, admin.Principal(), pending.ID)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !u.Authorized {
		t.Error("member not authorised")
	}
	if names := f.events.Names(); !reflect.DeepEqual(names, []string{broadcast.MemberUpdated}) {
		t.Errorf("events = %v", names)
	}

	f.events.Reset()
	if _, err := f.svc.Authorize(ctx, admin.Principal(), pending.ID); err != nil {
		t.Fatalf("second Authorize() error = %v", err)
	}
	if len(f.events.Events()) != 0 {
		t.Error("re-authorising published an event")
	}
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	sam := f.addMember(t, admin, "Sam", "sam@example.com")
	ctx := context.Background()

	tests := []struct {
		name string
		p    *tenancy.Principal
		id   string
		role tenancy.Role
		want error
	}{
		{"own role", admin.Principal(), admin.ID, tenancy.RoleUser, ErrSelfRoleChange},
		{"promote with admin present", admin.Principal(), sam.ID, tenancy.RoleAdmin, ErrAdminExists},
		{"invalid role", admin.Principal(), sam.ID, "owner", ErrInvalidRole},
		{"member caller", sam.Principal(), sam.ID, tenancy.RoleUser, fault.ErrUnauthorized},
		{"missing", admin.Principal(), "usr-missing", tenancy.RoleUser, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.ChangeRole(ctx, tt.p, tt.id, tt.role); !errors.Is(err, tt.want) {
				t.Errorf("ChangeRole() error = %v, want %v", err, tt.want)
			}
		})
	}

	u, err := f.svc.ChangeRole(ctx, admin.Principal(), sam.ID, tenancy.RoleUser)
	if err != nil || u.Role != tenancy.RoleUser {
		t.Errorf("ChangeRole(same role) = %+v, %v", u, err)
	}
}

func TestDeleteClearsDeviceReferences(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	sam := f.addMember(t, admin, "Sam", "sam@example.com")
	ctx := context.Background()

	_, err := f.db.ExecContext(ctx, `
		INSERT INTO devices (id, house_name, device_id, name, type, last_toggled_by, last_updated, created_at)
		VALUES ('dev-1', 'Oak', 1, 'Lamp', 'Lights', ?, '2026-03-01T00:00:00.000000Z', '2026-03-01T00:00:00.000000Z'),
		       ('dev-2', 'Oak', 2, 'Fan', 'Fan', ?, '2026-03-01T00:00:00.000000Z', '2026-03-01T00:00:00.000000Z')`,
		sam.ID, admin.ID)
	if err != nil {
		t.Fatalf("seeding devices: %v", err)
	}

	if err := f.svc.Delete(ctx, sam.Principal(), sam.ID); !errors.Is(err, fault.ErrUnauthorized) {
		t.Errorf("Delete(by member) error = %v, want Unauthorized", err)
	}
	if err := f.svc.Delete(ctx, admin.Principal(), admin.ID); !errors.Is(err, ErrAdminUndeletable) {
		t.Errorf("Delete(admin) error = %v, want ErrAdminUndeletable", err)
	}

	if err := f.svc.Delete(ctx, admin.Principal(), sam.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.repo.GetByID(ctx, sam.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("user still present: %v", err)
	}

	refs := map[string]*string{}
	rows, err := f.db.QueryContext(ctx, "SELECT id, last_toggled_by FROM devices")
	if err != nil {
		t.Fatalf("querying devices: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var by *string
		if err := rows.Scan(&id, &by); err != nil {
			t.Fatalf("scanning: %v", err)
		}
		refs[id] = by
	}
	if refs["dev-1"] != nil {
		t.Errorf("dev-1 last_toggled_by = %q, want NULL", *refs["dev-1"])
	}
	if refs["dev-2"] == nil || *refs["dev-2"] != admin.ID {
		t.Error("dev-2 reference to another user must survive")
	}

	events := f.events.Events()
	if len(events) != 1 || events[0].Name != broadcast.UserDeleted {
		t.Fatalf("events = %v", f.events.Names())
	}
	if p := events[0].Payload.(map[string]string); p["userId"] != sam.ID {
		t.Errorf("payload = %v", p)
	}

	logs, _ := f.audits.List(ctx, audit.Filter{HouseName: "Oak", Types: []string{audit.TypeSecurity}}) //nolint:errcheck // checked below
	if logs.Logs[0].Action != "Member deleted: sam@example.com" {
		t.Errorf("audit = %q", logs.Logs[0].Action)
	}
}

// ─── Profile ───────────────────────────────────────────────────────

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	sam := f.addMember(t, admin, "Sam", "sam@example.com")
	ctx := context.Background()

	u, err := f.svc.UpdateProfile(ctx, sam.Principal(), ProfileInput{
		Name:  strPtr("  Samantha "),
		Photo: strPtr("uploads/sam.png"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if u.Name != "Samantha" || u.Photo != "uploads/sam.png" {
		t.Errorf("user = %+v", u)
	}

	stored, err := f.repo.GetByID(ctx, sam.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Name != "Samantha" || stored.Photo != "uploads/sam.png" || stored.Role != tenancy.RoleUser {
		t.Errorf("stored = %+v", stored)
	}
	if names := f.events.Names(); !reflect.DeepEqual(names, []string{broadcast.MemberUpdated}) {
		t.Errorf("events = %v", names)
	}

	// Only the name changes; the photo is left alone.
	f.events.Reset()
	if u, err = f.svc.UpdateProfile(ctx, sam.Principal(), ProfileInput{Name: strPtr("Sam")}); err != nil {
		t.Fatalf("UpdateProfile(name) error = %v", err)
	}
	if u.Name != "Sam" || u.Photo != "uploads/sam.png" {
		t.Errorf("user = %+v", u)
	}

	// An empty photo clears it.
	if u, err = f.svc.UpdateProfile(ctx, sam.Principal(), ProfileInput{Photo: strPtr("")}); err != nil {
		t.Fatalf("UpdateProfile(clear photo) error = %v", err)
	}
	if u.Photo != "" {
		t.Errorf("photo = %q, want cleared", u.Photo)
	}
	if len(f.events.Events()) != 2 {
		t.Errorf("events = %v", f.events.Names())
	}
}

func TestUpdateProfileNoop(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	ctx := context.Background()

	before, err := f.repo.GetByID(ctx, admin.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	f.events.Reset()

	for _, in := range []ProfileInput{{}, {Name: strPtr(admin.Name)}, {Photo: strPtr("")}} {
		if _, err := f.svc.UpdateProfile(ctx, admin.Principal(), in); err != nil {
			t.Fatalf("UpdateProfile(%+v) error = %v", in, err)
		}
	}

	after, err := f.repo.GetByID(ctx, admin.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("updated_at moved from %v to %v", before.UpdatedAt, after.UpdatedAt)
	}
	if len(f.events.Events()) != 0 {
		t.Errorf("events = %v, want none", f.events.Names())
	}
}

func TestUpdateProfileRejections(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	ctx := context.Background()

	tests := []struct {
		name string
		p    *tenancy.Principal
		in   ProfileInput
		want error
	}{
		{"blank name", admin.Principal(), ProfileInput{Name: strPtr("   ")}, ErrInvalidName},
		{"long name", admin.Principal(), ProfileInput{Name: strPtr(strings.Repeat("a", MaxNameLength+1))}, ErrInvalidName},
		{"long photo", admin.Principal(), ProfileInput{Photo: strPtr(strings.Repeat("p", MaxPhotoLength+1))}, ErrInvalidPhoto},
		{"control characters", admin.Principal(), ProfileInput{Photo: strPtr("a\x00b")}, ErrInvalidPhoto},
		{"no caller", nil, ProfileInput{Name: strPtr("X")}, fault.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.UpdateProfile(ctx, tt.p, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("UpdateProfile() error = %v, want %v", err, tt.want)
			}
		})
	}

	stored, _ := f.repo.GetByID(ctx, admin.ID) //nolint:errcheck // checked below
	if stored.Name != admin.Name || stored.Photo != "" {
		t.Errorf("rejected edits were stored: %+v", stored)
	}
}

func TestUpdatePhoto(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "Oak", "alex@example.com")
	sam := f.addMember(t, admin, "Sam", "sam@example.com")
	bea := f.addMember(t, admin, "Bea", "bea@example.com")
	other := f.register(t, "Elm", "elm@example.com")
	ctx := context.Background()

	tests := []struct {
		name  string
		p     *tenancy.Principal
		id    string
		photo string
		want  error
	}{
		{"member on another account", sam.Principal(), bea.ID, "x.png", ErrNotOwnPhoto},
		{"other house admin", other.Principal(), sam.ID, "x.png", fault.ErrForbidden},
		{"missing photo", sam.Principal(), sam.ID, "  ", ErrInvalidPhoto},
		{"missing account", admin.Principal(), "usr-missing", "x.png", ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.UpdatePhoto(ctx, tt.p, tt.id, tt.photo); !errors.Is(err, tt.want) {
				t.Errorf("UpdatePhoto() error = %v, want %v", err, tt.want)
			}
		})
	}
	if !errors.Is(ErrNotOwnPhoto, fault.ErrUnauthorized) {
		t.Error("ErrNotOwnPhoto should carry the Unauthorized kind")
	}

	t.Run("own photo", func(t *testing.T) {
		f.events.Reset()
		u, err := f.svc.UpdatePhoto(ctx, sam.Principal(), sam.ID, "uploads/sam.png")
		if err != nil {
			t.Fatalf("UpdatePhoto() error = %v", err)
		}
		if u.Photo != "uploads/sam.png" {
			t.Errorf("photo = %q", u.Photo)
		}
		if names := f.events.Names(); !reflect.DeepEqual(names, []string{broadcast.MemberUpdated}) {
			t.Errorf("events = %v", names)
		}
	})

	t.Run("admin on member", func(t *testing.T) {
		if _, err := f.svc.UpdatePhoto(ctx, admin.Principal(), bea.ID, "uploads/bea.png"); err != nil {
			t.Fatalf("UpdatePhoto() error = %v", err)
		}
		stored, err := f.repo.GetByID(ctx, bea.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if stored.Photo != "uploads/bea.png" {
			t.Errorf("stored photo = %q", stored.Photo)
		}

		logs, _ := f.audits.List(ctx, audit.Filter{HouseName: "Oak", Types: []string{audit.TypeSecurity}}) //nolint:errcheck // checked below
		if len(logs.Logs) == 0 || logs.Logs[0].Action != "Photo updated for user bea@example.com" {
			t.Errorf("audit = %+v", logs.Logs)
		}
		if logs.Logs[0].UserID != admin.ID {
			t.Errorf("audit actor = %q, want %q", logs.Logs[0].UserID, admin.ID)
		}
	})
}
