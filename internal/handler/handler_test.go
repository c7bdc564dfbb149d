package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/attendance"
	"clubhub/internal/auth"
	"clubhub/internal/cloudinary"
	"clubhub/internal/dashboard"
	"clubhub/internal/events"
	"clubhub/internal/httpmiddleware"
	"clubhub/internal/leaderboard"
	"clubhub/internal/metrics"
	"clubhub/internal/model"
	"clubhub/internal/projects"
	"clubhub/internal/store"
	"clubhub/internal/tasks"
	"clubhub/internal/users"
)

const testPassword = "s3cret-pass"

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	now    time.Time
	store  *store.Memory
	reg    *prometheus.Registry
	router *gin.Engine
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{t: t, now: base, store: store.NewMemory(), reg: prometheus.NewRegistry()}
	clock := func() time.Time { return f.now }
	m := metrics.New(f.reg)
	d := Deps{
		Store:       f.store,
		Sessions:    auth.NewManager(auth.NewMemorySessions(clock), "clubhub-test", "test-signing-key", 365*24*time.Hour, clock),
		Users:       users.NewService(f.store, clock),
		Projects:    projects.NewService(f.store, clock),
		Events:      events.NewService(f.store, clock),
		Attendance:  attendance.NewService(f.store, m, clock),
		Tasks:       tasks.NewService(f.store, m, clock),
		Leaderboard: leaderboard.NewService(f.store, 5, 50),
		Dashboard:   dashboard.NewService(f.store, clock),
		Metrics:     m,
		Gatherer:    f.reg,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         clock,
	}
	for _, o := range opts {
		o(&d)
	}
	f.router = NewRouter(d)
	return f
}

// member stores an active member directly, bypassing registration.
func (f *fixture) member(username string, admin bool, points int) model.User {
	f.t.Helper()
	u := model.User{
		Username:    username,
		Email:       username + "@club.test",
		FirstName:   username,
		IsMember:    true,
		IsActive:    true,
		IsClubAdmin: admin,
		Points:      points,
		SkillLevel:  model.SkillBeginner,
		CreatedAt:   f.now,
		UpdatedAt:   f.now,
	}
	require.NoError(f.t, u.SetPassword(testPassword))
	require.NoError(f.t, f.store.CreateUser(context.Background(), &u))
	return u
}

func (f *fixture) login(username string) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": testPassword})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct {
		Token string `json:"token"`
	}](f.t, w).Token
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	f.member("taken", false, 0)

	valid := gin.H{
		"username":  "new_member",
		"email":     "new@club.test",
		"password":  testPassword,
		"password2": testPassword,
	}
	with := func(k string, v any) gin.H {
		out := gin.H{}
		for kk, vv := range valid {
			out[kk] = vv
		}
		out[k] = v
		return out
	}

	tests := []struct {
		name      string
		body      gin.H
		wantCode  int
		wantField string
	}{
		{"password mismatch", with("password2", "different-pass"), http.StatusBadRequest, "password2"},
		{"missing email", with("email", ""), http.StatusBadRequest, "email"},
		{"bad username", with("username", "no spaces"), http.StatusBadRequest, "username"},
		{"weak password", gin.H{"username": "x1", "email": "x1@club.test", "password": "12345678", "password2": "12345678"}, http.StatusBadRequest, "password"},
		{"duplicate username", with("username", "taken"), http.StatusBadRequest, "username"},
		{"duplicate email", with("email", "TAKEN@club.test"), http.StatusBadRequest, "email"},
		{"ok", valid, http.StatusCreated, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/auth/register", "", tc.body)
			require.Equal(t, tc.wantCode, w.Code, w.Body.String())
			if tc.wantField != "" {
				assert.Contains(t, decode[errorBody](t, w).Fields, tc.wantField)
				return
			}
			u := decode[map[string]any](t, w)
			assert.Equal(t, "new_member", u["username"])
			assert.Equal(t, true, u["is_member"])
			assert.Equal(t, float64(0), u["points"])
			assert.NotContains(t, u, "password")
		})
	}
}

func TestLoginLogout(t *testing.T) {
	f := newFixture(t)
	f.member("alice", false, 0)
	inactive := f.member("gone", false, 0)
	inactive.IsActive = false
	require.NoError(t, f.store.UpdateUser(context.Background(), inactive))

	tests := []struct {
		name     string
		body     gin.H
		wantCode int
	}{
		{"missing password", gin.H{"username": "alice"}, http.StatusBadRequest},
		{"wrong password", gin.H{"username": "alice", "password": "nope-nope"}, http.StatusUnauthorized},
		{"unknown user", gin.H{"username": "bob", "password": testPassword}, http.StatusUnauthorized},
		{"inactive", gin.H{"username": "gone", "password": testPassword}, http.StatusUnauthorized},
		{"by email", gin.H{"username": "ALICE@club.test", "password": testPassword}, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/auth/login", "", tc.body)
			assert.Equal(t, tc.wantCode, w.Code, w.Body.String())
		})
	}

	w := f.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Login successful", body["detail"])
	token := body["token"].(string)

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.CookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// cookie and bearer both authenticate
	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie.Value})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/auth/profile", token, nil).Code)

	w = f.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logout successful", decode[map[string]string](t, w)["detail"])
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/auth/profile", token, nil).Code)
}

func TestRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	paths := []string{
		"/api/auth/profile", "/api/projects", "/api/events", "/api/tasks",
		"/api/attendance", "/api/users", "/api/leaderboard", "/api/dashboard",
	}
	for _, p := range paths {
		w := f.do(http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
		assert.NotEmpty(t, decode[errorBody](t, w).Error)
	}
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/projects", "garbage", nil).Code)
}

func TestProfileAndPassword(t *testing.T) {
	f := newFixture(t)
	f.member("alice", false, 0)
	token := f.login("alice")

	w := f.do(http.MethodPatch, "/api/auth/profile", token, gin.H{
		"bio":         "hello",
		"tech_skills": []string{"go", " go ", "sql"},
		"points":      999,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	u := decode[model.User](t, w)
	assert.Equal(t, "hello", u.Bio)
	assert.Equal(t, []string{"go", "sql"}, u.TechSkills)
	assert.Equal(t, 0, u.Points, "points are never client writable")
	assert.Equal(t, "alice", u.FirstName, "absent keys are kept")

	w = f.do(http.MethodPatch, "/api/auth/profile", token, gin.H{"skill_level": "guru"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Fields, "skill_level")

	w = f.do(http.MethodPost, "/api/auth/password-change", token, gin.H{"old_password": "wrong-one", "new_password": "another-pass"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "wrong password", decode[errorBody](t, w).Fields["old_password"])

	w = f.do(http.MethodPost, "/api/auth/password-change", token, gin.H{"old_password": testPassword, "new_password": "another-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Password updated successfully", decode[map[string]string](t, w)["detail"])

	w = f.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "another-pass"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	var f *fixture
	f = newFixture(t, func(d *Deps) {
		d.Limiter = httpmiddleware.NewSimpleTokenBucket(2, 2, func() time.Time { return f.now })
	})
	body := gin.H{"username": "nobody", "password": testPassword}
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/auth/login", "", body).Code)
	w := f.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	f.now = f.now.Add(time.Minute)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/auth/login", "", body).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	h := decode[map[string]any](t, w)
	assert.Equal(t, "ok", h["status"])
	assert.Equal(t, true, h["db"])
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = f.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeMedia struct {
	fail bool
	got  []byte
}

func (m *fakeMedia) UploadBase64(_ context.Context, data string) (*cloudinary.UploadResult, error) {
	return m.UploadBytes(context.Background(), []byte(data), "inline")
}

func (m *fakeMedia) UploadBytes(_ context.Context, data []byte, filename string) (*cloudinary.UploadResult, error) {
	if m.fail {
		return nil, errors.New("upstream down")
	}
	m.got = data
	return &cloudinary.UploadResult{SecureURL: "https://cdn.test/" + filename}, nil
}

func TestUploads(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t)
		f.member("alice", false, 0)
		w := f.do(http.MethodPost, "/api/auth/profile/avatar", f.login("alice"), gin.H{"data": "abc"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		f := newFixture(t, func(d *Deps) { d.Media = &fakeMedia{fail: true} })
		f.member("alice", false, 0)
		w := f.do(http.MethodPost, "/api/auth/profile/avatar", f.login("alice"), gin.H{"data": "abc"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("avatar multipart", func(t *testing.T) {
		media := &fakeMedia{}
		f := newFixture(t, func(d *Deps) { d.Media = media })
		f.member("alice", false, 0)
		token := f.login("alice")

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "me.png")
		require.NoError(t, err)
		_, _ = part.Write([]byte("png-bytes"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/profile/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "https://cdn.test/me.png", decode[model.User](t, w).Avatar)
		assert.Equal(t, []byte("png-bytes"), media.got)
	})

	t.Run("banner", func(t *testing.T) {
		media := &fakeMedia{}
		f := newFixture(t, func(d *Deps) { d.Media = media })
		f.member("admin", true, 0)
		f.member("alice", false, 0)
		admin, member := f.login("admin"), f.login("alice")
		ev := createEvent(t, f, admin, "Kickoff", f.now.Add(24*time.Hour))

		path := "/api/events/" + itoa(ev.ID) + "/banner"
		assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, path, member, gin.H{"data": "abc"}).Code)
		assert.Nil(t, media.got, "nothing is uploaded for a forbidden caller")
		assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/events/999/banner", admin, gin.H{"data": "abc"}).Code)

		w := f.do(http.MethodPost, path, admin, gin.H{"data": "abc"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "https://cdn.test/inline", decode[model.Event](t, w).Banner)
	})
}
