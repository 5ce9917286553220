package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blubywaff/ftag/internal/config"
	"github.com/blubywaff/ftag/internal/constants"
	"github.com/blubywaff/ftag/internal/database"
	"github.com/blubywaff/ftag/internal/utils"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		App: config.AppSettings{
			Environment: "testing",
			Version:     "1.2.3",
		},
		Server: config.ServerSettings{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     constants.DefaultReadTimeout,
			WriteTimeout:    constants.DefaultWriteTimeout,
			ShutdownTimeout: constants.DefaultShutdownTimeout,
		},
		CORS: config.CORSSettings{
			AllowedOrigins:   []string{"https://ftag.example"},
			AllowCredentials: true,
		},
		Storage: config.StorageSettings{
			Backend:  constants.StorageBackendMemory,
			BoltPath: filepath.Join(t.TempDir(), "ftag.db"),
		},
		Files: config.FilesSettings{
			Dir:           t.TempDir(),
			MaxUploadSize: 1 << 20,
		},
		ClientToken: config.ClientTokenSettings{
			Secret: "test-secret-for-client-tokens",
			Expiry: time.Hour,
			Issuer: "ftag",
			Cookie: "ftag_client",
		},
		RateLimit: config.RateLimitSettings{
			WritesPerSecond: 1,
			Burst:           2,
		},
		Settings: config.SettingsDefaults{
			DefaultTagView: "show",
		},
	}
}

func newTestServer(t *testing.T, cfg *config.AppConfig) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(cfg, &database.Pool{DB: db})
	require.NoError(t, err)
	return s, mock
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) (utils.Response, map[string]interface{}) {
	t.Helper()
	var raw struct {
		utils.Response
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	return raw.Response, raw.Data
}

func TestNew_StorageBackends(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, _ := newTestServer(t, testConfig(t))
		assert.NotNil(t, s.storage)
		assert.Nil(t, s.bolt)
		assert.NotNil(t, s.Handlers.ClientHandler)
		assert.NotNil(t, s.Handlers.SettingsHandler)
		assert.NotNil(t, s.Handlers.ResourceHandler)
	})

	t.Run("sql", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Backend = constants.StorageBackendSQL
		s, _ := newTestServer(t, cfg)
		assert.NotNil(t, s.storage)
		assert.Nil(t, s.bolt)
	})

	t.Run("bolt", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Backend = constants.StorageBackendBolt
		s, _ := newTestServer(t, cfg)
		require.NotNil(t, s.bolt)
		assert.NoError(t, s.bolt.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Backend = "redis"
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		_, err = New(cfg, &database.Pool{DB: db})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown storage backend")
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s, mock := newTestServer(t, testConfig(t))
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		rr := serve(s, httptest.NewRequest(http.MethodGet, constants.HealthPath, nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp, data := decode(t, rr)
		assert.True(t, resp.Success)
		assert.Equal(t, "healthy", data["status"])
		assert.Equal(t, "1.2.3", data["version"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database down", func(t *testing.T) {
		s, mock := newTestServer(t, testConfig(t))
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		rr := serve(s, httptest.NewRequest(http.MethodGet, constants.HealthPath, nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		resp, _ := decode(t, rr)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "service_unavailable", resp.Error.Code)
	})
}

func TestVersionAndRoutes(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rr := serve(s, httptest.NewRequest(http.MethodGet, constants.VersionPath, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	_, data := decode(t, rr)
	assert.Equal(t, "1.2.3", data["version"])
	assert.Equal(t, "testing", data["environment"])

	rr = serve(s, httptest.NewRequest(http.MethodGet, "/api/routes", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	_, data = decode(t, rr)
	assert.Contains(t, data, "settings")
	assert.Contains(t, data, "resources")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	resp, _ := decode(t, rr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, constants.MsgResourceNotFound, resp.Error.Message)

	rr = serve(s, httptest.NewRequest(http.MethodPatch, "/api/settings", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, constants.VersionPath, nil)
		req.Header.Set("Origin", "https://ftag.example")
		rr := serve(s, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "https://ftag.example", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/settings", nil)
		req.Header.Set("Origin", "https://ftag.example")
		rr := serve(s, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PUT")
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, constants.VersionPath, nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := serve(s, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"wildcard", []string{"*"}, "https://any.example", true},
		{"exact", []string{"https://a.example"}, "https://a.example", true},
		{"case insensitive", []string{"https://A.example"}, "https://a.example", true},
		{"not listed", []string{"https://a.example"}, "https://b.example", false},
		{"empty list", nil, "https://a.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, originAllowed(tt.allowed, tt.origin))
		})
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rr := serve(s, httptest.NewRequest(http.MethodGet, constants.VersionPath, nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestSettingsRoundTrip(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	// Server context: defaults, nothing persisted
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	_, data := decode(t, rr)
	assert.Equal(t, "show", data["defaultTagView"])
	assert.Equal(t, false, data["persisted"])

	// Become a client
	rr = serve(s, httptest.NewRequest(http.MethodPost, "/api/client", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "ftag_client", cookie.Name)

	req := httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"defaultTagView":"edit","defaultExcludes":"nsfw"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rr = serve(s, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	_, data = decode(t, rr)
	assert.Equal(t, "edit", data["defaultTagView"])
	assert.Equal(t, true, data["showTagEdit"])
	assert.Equal(t, true, data["persisted"])

	// A fresh request by the same client sees the saved settings
	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.AddCookie(cookie)
	rr = serve(s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	_, data = decode(t, rr)
	assert.Equal(t, "edit", data["defaultTagView"])
	assert.Equal(t, "nsfw", data["defaultExcludes"])

	// Another caller without the cookie still gets defaults
	rr = serve(s, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	_, data = decode(t, rr)
	assert.Equal(t, "show", data["defaultTagView"])

	req = httptest.NewRequest(http.MethodDelete, "/api/settings", nil)
	req.AddCookie(cookie)
	rr = serve(s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	_, data = decode(t, rr)
	assert.Equal(t, "show", data["defaultTagView"])
	assert.Equal(t, "", data["defaultExcludes"])
}

func TestForgetClientDropsStorage(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	rr := serve(s, httptest.NewRequest(http.MethodPost, "/api/client", nil))
	require.Equal(t, http.StatusCreated, rr.Code)
	cookie := rr.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"defaultTagView":"hide"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rr = serve(s, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/api/client", nil)
	req.AddCookie(cookie)
	rr = serve(s, req)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	// A token kept past the delete finds nothing stored
	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.AddCookie(cookie)
	rr = serve(s, req)
	require.Equal(t, http.StatusOK, rr.Code)
	_, data := decode(t, rr)
	assert.Equal(t, "show", data["defaultTagView"])
	assert.Equal(t, true, data["persisted"])

	// Forgetting needs a client identity
	rr = serve(s, httptest.NewRequest(http.MethodDelete, "/api/client", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}

func TestSettingsDefaultsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings = config.SettingsDefaults{DefaultTagView: "hide", DefaultExcludes: "nsfw"}
	s, _ := newTestServer(t, cfg)

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	_, data := decode(t, rr)
	assert.Equal(t, "hide", data["defaultTagView"])
	assert.Equal(t, "nsfw", data["defaultExcludes"])
	assert.Equal(t, false, data["showTags"])
}

func TestClientIdentityRejectsBadToken(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := serve(s, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRateLimitOnWrites(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/client", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		codes = append(codes, serve(s, req).Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// Reads are not limited
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/client", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		assert.Equal(t, http.StatusOK, serve(s, req).Code)
	}
}

func TestShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = constants.StorageBackendBolt
	s, mock := newTestServer(t, cfg)
	mock.ExpectClose()

	s.SetupMaintenanceTasks()
	require.NotNil(t, s.stopMaintenance)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	assert.Nil(t, s.stopMaintenance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile(t *testing.T) {
	s, mock := newTestServer(t, testConfig(t))
	mock.ExpectQuery("SELECT resource_id FROM resources").
		WillReturnRows(sqlmock.NewRows([]string{"resource_id"}))

	report, err := s.Reconcile(context.Background())

	require.NoError(t, err)
	assert.Empty(t, report.RemovedFiles)
	assert.Empty(t, report.RemovedRecords)
	assert.NoError(t, mock.ExpectationsWereMet())
}
