package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/auth"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/config"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/logging"
	"github.com/nerrad567/homepanel-core/internal/room"
	"github.com/nerrad567/homepanel-core/internal/user"
	_ "github.com/nerrad567/homepanel-core/migrations"
)

const (
	testSecret   = "test-secret-key-at-least-32-characters-long"
	testPassword = "secret1"
)

// testEnv is a fully wired API server over a temp-file database.
type testEnv struct {
	db      *sql.DB
	srv     *Server
	handler http.Handler
	events  *broadcast.Recorder
	devices *device.SQLiteRepository
}

type envOption func(*Deps)

func withRateLimit(perMinute, loginPerMinute int) envOption {
	return func(d *Deps) {
		d.Security.RateLimit = config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: perMinute,
			LoginPerMinute:    loginPerMinute,
		}
	}
}

func withCheck(name string, c HealthChecker) envOption {
	return func(d *Deps) {
		if d.Checks == nil {
			d.Checks = make(map[string]HealthChecker)
		}
		d.Checks[name] = c
	}
}

func withAPIConfig(cfg config.APIConfig) envOption {
	return func(d *Deps) { d.Config = cfg }
}

// testDB opens a temp-file database with the real migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	auth.UseFastParams()

	db := testDB(t)
	log := logging.Discard()
	wsCfg := config.WebSocketConfig{
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
		TicketTTL:      60,
	}
	hub := NewHub(wsCfg, log)
	events := &broadcast.Recorder{}
	sink := broadcast.Fanout{hub, events}

	deviceRepo := device.NewSQLiteRepository(db)
	auditRepo := audit.NewSQLiteRepository(db)
	devices := device.NewService(deviceRepo, auditRepo, sink)
	rooms := room.NewService(room.NewSQLiteRepository(db), devices, deviceRepo, auditRepo, sink)
	users := user.NewService(user.NewSQLiteRepository(db), auditRepo, sink)

	deps := Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: wsCfg,
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testSecret, AccessTokenTTL: 15},
		},
		Logger:  log,
		Devices: devices,
		Rooms:   rooms,
		Users:   users,
		Audit:   audit.NewService(auditRepo),
		Hub:     hub,
		Version: "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return &testEnv{
		db:      db,
		srv:     srv,
		handler: srv.Handler(),
		events:  events,
		devices: deviceRepo,
	}
}

// do sends a request through the router. body is JSON-encoded unless it is
// already a string.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// register creates a house and returns the admin's token and account.
func (e *testEnv) register(t *testing.T, house, email string) (string, *user.User) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/register", "", user.RegisterInput{
		Name: "Admin of " + house, Email: email, Password: testPassword, HouseName: house,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d; body: %s", house, w.Code, w.Body.String())
	}
	resp := decode[loginResponse](t, w)
	return resp.AccessToken, resp.User
}

// addMember creates a member through the admin and logs them in.
func (e *testEnv) addMember(t *testing.T, adminToken, name, email string) (string, *user.User) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/members", adminToken, user.MemberInput{
		Name: name, Email: email, Password: testPassword,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add member %s: status = %d; body: %s", email, w.Code, w.Body.String())
	}
	return e.login(t, email), decodePtr[user.User](t, w)
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: email, Password: testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d; body: %s", email, w.Code, w.Body.String())
	}
	return decode[loginResponse](t, w).AccessToken
}

// addDevice creates a device through the API and returns it.
func (e *testEnv) addDevice(t *testing.T, token, name string, typ device.Type, location string) *device.Device {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/devices", token, device.AddInput{Name: name, Type: typ, Location: location})
	if w.Code != http.StatusCreated {
		t.Fatalf("add device %s: status = %d; body: %s", name, w.Code, w.Body.String())
	}
	return decodePtr[device.Device](t, w)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %T: %v; body: %s", v, err, w.Body.String())
	}
	return v
}

func decodePtr[T any](t *testing.T, w *httptest.ResponseRecorder) *T {
	t.Helper()
	v := decode[T](t, w)
	return &v
}

// expectError checks the status and error code of a failed request.
func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, status, w.Body.String())
	}
	if got := decode[Error](t, w).Code; got != code {
		t.Errorf("code = %q, want %q", got, code)
	}
}
