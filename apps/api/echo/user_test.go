package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yair681/pirhei-aharon/core/profile"
)

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Moshe", "moshe@test.il", "student")

	adminToken := app.login(t, testSuperAdminEmail)
	studentToken := app.login(t, "moshe@test.il")

	body := marshallObj(t, profile.NewProfile{Name: "Rivka", Email: "rivka@test.il", Password: testPassword, Role: "teacher"})

	tests := []struct {
		name     string
		token    string
		body     []byte
		wantCode int
	}{
		{name: "no token", body: body, wantCode: http.StatusUnauthorized},
		{name: "student token", token: studentToken, body: body, wantCode: http.StatusForbidden},
		{name: "invalid role", token: adminToken,
			body:     marshallObj(t, profile.NewProfile{Name: "X", Email: "x@test.il", Password: testPassword, Role: "boss"}),
			wantCode: http.StatusBadRequest},
		{name: "ok", token: adminToken, body: body, wantCode: http.StatusCreated},
		{name: "duplicate email", token: adminToken, body: body, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Moshe Levi", "moshe@test.il", "student")
	app.createUser(t, admin, "Rivka Cohen", "rivka@test.il", "teacher")

	adminToken := app.login(t, testSuperAdminEmail)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users?role=student", adminToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var profs []profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profs))
	require.Len(t, profs, 1)
	assert.Equal(t, "moshe@test.il", profs[0].Email)

	req, rec = newAuthRequest(http.MethodGet, "/v1/users?search=cohen", adminToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profs))
	require.Len(t, profs, 1)
	assert.Equal(t, "rivka@test.il", profs[0].Email)

	// non-admins cannot list users
	studentToken := app.login(t, "moshe@test.il")
	req, rec = newAuthRequest(http.MethodGet, "/v1/users", studentToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_userApi_update(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	prof := app.createUser(t, admin, "Moshe", "moshe@test.il", "student")
	adminToken := app.login(t, testSuperAdminEmail)

	req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+prof.ID, adminToken,
		marshallObj(t, profile.UpdateProfile{Role: "teacher"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "teacher", updated.Role)
	assert.Equal(t, "Moshe", updated.Name) // empty fields keep the original

	req, rec = newAuthRequest(http.MethodPut, "/v1/users/nope", adminToken,
		marshallObj(t, profile.UpdateProfile{Name: "X"}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	prof := app.createUser(t, admin, "Moshe", "moshe@test.il", "student")
	adminToken := app.login(t, testSuperAdminEmail)

	// the super-admin profile is protected, including from themself
	req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/users/"+prof.ID, adminToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/users/"+prof.ID, adminToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Moshe", "moshe@test.il", "student")
	token := app.login(t, "moshe@test.il")

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var prof profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prof))
	assert.Equal(t, "moshe@test.il", prof.Email)
}

func Test_userApi_watch(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Moshe", "moshe@test.il", "student")
	adminToken := app.login(t, testSuperAdminEmail)
	studentToken := app.login(t, "moshe@test.il")

	// non-admins cannot watch the roster
	req, rec := newAuthRequest(http.MethodGet, "/v1/users/watch", studentToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// stream until cancelled; a profile created mid-stream shows up as a
	// new snapshot event
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		_, err := app.profileSvc.Create(context.Background(), admin, profile.NewProfile{
			Name: "Rivka", Email: "rivka@test.il", Password: testPassword, Role: "teacher",
		})
		if err != nil {
			t.Errorf("creating profile: %v", err)
		}
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	req, rec = newAuthRequest(http.MethodGet, "/v1/users/watch?role=teacher", adminToken)
	app.server.ServeHTTP(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "data: ")
	assert.Contains(t, body, "rivka@test.il")
	assert.NotContains(t, body, "moshe@test.il") // filtered out by role
}

func Test_userApi_queryRoles(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Moshe", "moshe@test.il", "student")
	token := app.login(t, "moshe@test.il")

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(marshallObj(t, profile.Roles)), rec.Body.String())
}
