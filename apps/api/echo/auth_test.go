package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_authApi_bootstrap(t *testing.T) {
	app := setup(t)

	// bootstrap still required
	req, rec := newRequest(http.MethodGet, "/v1/auth/bootstrap")
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"required": true}`, rec.Body.String())

	// only the configured email may bootstrap
	req, rec = newRequest(http.MethodPost, "/v1/auth/bootstrap",
		marshallObj(t, RegisterSuperAdminRequest{Email: "lol@test.il", Password: testPassword}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// weak passwords are rejected
	req, rec = newRequest(http.MethodPost, "/v1/auth/bootstrap",
		marshallObj(t, RegisterSuperAdminRequest{Email: testSuperAdminEmail, Password: "lol"}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// successful bootstrap returns an authorized session
	req, rec = newRequest(http.MethodPost, "/v1/auth/bootstrap",
		marshallObj(t, RegisterSuperAdminRequest{Email: testSuperAdminEmail, Password: testPassword}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.Profile.IsSuperAdmin)
	assert.Equal(t, testSuperAdminEmail, resp.Profile.Email)

	// bootstrap is a one-shot operation
	req, rec = newRequest(http.MethodGet, "/v1/auth/bootstrap")
	app.server.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"required": false}`, rec.Body.String())

	req, rec = newRequest(http.MethodPost, "/v1/auth/bootstrap",
		marshallObj(t, RegisterSuperAdminRequest{Email: testSuperAdminEmail, Password: testPassword}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Moshe", "moshe@test.il", "student")

	tests := []struct {
		name     string
		body     LoginRequest
		wantCode int
	}{
		{name: "unknown email", body: LoginRequest{Email: "lol@test.il", Password: testPassword}, wantCode: http.StatusBadRequest},
		{name: "wrong password", body: LoginRequest{Email: "moshe@test.il", Password: "nope"}, wantCode: http.StatusBadRequest},
		{name: "missing fields", body: LoginRequest{}, wantCode: http.StatusBadRequest},
		{name: "ok", body: LoginRequest{Email: "moshe@test.il", Password: testPassword}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", marshallObj(t, tt.body))
			app.server.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, "moshe@test.il", resp.Profile.Email)
			}
		})
	}
}

func Test_authApi_login_unapprovedIdentityRejected(t *testing.T) {
	app := setup(t)
	app.bootstrap(t)

	// an identity that self-registered against the credential provider
	// but was never provisioned by an admin
	ident, err := app.creds.Create(context.Background(), "rogue@test.il", testPassword)
	require.NoError(t, err)

	req, rec := newRequest(http.MethodPost, "/v1/auth/login",
		marshallObj(t, LoginRequest{Email: "rogue@test.il", Password: testPassword}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// and the identity was forcibly signed out
	authed, err := app.creds.IsAuthenticated(context.Background(), ident)
	require.NoError(t, err)
	assert.False(t, authed)
}

func Test_authApi_logout_revokesSession(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Moshe", "moshe@test.il", "student")
	token := app.login(t, "moshe@test.il")

	// session works
	req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// logout
	req, rec = newAuthRequest(http.MethodPost, "/v1/auth/logout", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// the token is revoked even though it has not expired
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Moshe", "moshe@test.il", "student")
	token := app.login(t, "moshe@test.il")

	req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	// the refreshed token is accepted
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", resp.Token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
