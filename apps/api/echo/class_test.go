package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yair681/pirhei-aharon/core/class"
	"github.com/yair681/pirhei-aharon/core/profile"
)

func Test_classApi_lifecycle(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Rivka", "rivka@test.il", "teacher")
	app.createUser(t, admin, "Moshe", "moshe@test.il", "student")

	teacherToken := app.login(t, "rivka@test.il")
	studentToken := app.login(t, "moshe@test.il")

	// students cannot create classes
	req, rec := newAuthRequest(http.MethodPost, "/v1/classes", studentToken,
		marshallObj(t, class.NewClass{Name: "א1"}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/classes", teacherToken,
		marshallObj(t, class.NewClass{Name: "א1"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cls class.Class
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
	assert.Equal(t, "א1", cls.Name)
	assert.NotEmpty(t, cls.TeacherIDs)

	// the owner sees it, an unrelated student does not
	req, rec = newAuthRequest(http.MethodGet, "/v1/classes", teacherToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var visible []class.Class
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &visible))
	assert.Len(t, visible, 1)

	req, rec = newAuthRequest(http.MethodGet, "/v1/classes", studentToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &visible))
	assert.Empty(t, visible)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/classes/"+cls.ID, teacherToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func Test_classApi_watch(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Rivka", "rivka@test.il", "teacher")
	teacherToken := app.login(t, "rivka@test.il")
	adminToken := app.login(t, testSuperAdminEmail)

	// watching the full class list is admin-only
	req, rec := newAuthRequest(http.MethodGet, "/v1/classes/watch", teacherToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		teacher, err := app.profileSvc.GetByEmail(context.Background(), "rivka@test.il")
		if err == nil {
			_, err = app.classSvc.Create(context.Background(), teacher, class.NewClass{Name: "א1"})
		}
		if err != nil {
			t.Errorf("creating class: %v", err)
		}
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	req, rec = newAuthRequest(http.MethodGet, "/v1/classes/watch", adminToken)
	app.server.ServeHTTP(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "data: ")
	assert.Contains(t, body, "א1")
}

func Test_classApi_members(t *testing.T) {
	app := setup(t)
	admin := app.bootstrap(t)
	app.createUser(t, admin, "Rivka", "rivka@test.il", "teacher")
	student := app.createUser(t, admin, "Moshe", "moshe@test.il", "student")
	other := app.createUser(t, admin, "Dvora", "dvora@test.il", "student")

	teacherToken := app.login(t, "rivka@test.il")
	studentToken := app.login(t, "moshe@test.il")

	req, rec := newAuthRequest(http.MethodPost, "/v1/classes", teacherToken,
		marshallObj(t, class.NewClass{Name: "א1"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var cls class.Class
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))

	// students cannot manage membership
	req, rec = newAuthRequest(http.MethodPost, "/v1/classes/"+cls.ID+"/members", studentToken,
		marshallObj(t, MembershipRequest{UserID: student.ID, Role: "student"}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/classes/"+cls.ID+"/members", teacherToken,
		marshallObj(t, MembershipRequest{UserID: student.ID, Role: "student"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
	assert.True(t, cls.HasStudent(student.ID))

	// eligible members excludes current members
	req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+cls.ID+"/members/eligible?role=student", teacherToken)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var eligible []profile.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eligible))
	require.Len(t, eligible, 1)
	assert.Equal(t, other.ID, eligible[0].ID)

	// the owner cannot be removed
	req, rec = newAuthRequest(http.MethodDelete, "/v1/classes/"+cls.ID+"/members", teacherToken,
		marshallObj(t, MembershipRequest{UserID: cls.OwnerID, Role: "teacher"}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/classes/"+cls.ID+"/members", teacherToken,
		marshallObj(t, MembershipRequest{UserID: student.ID, Role: "student"}))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cls))
	assert.False(t, cls.HasStudent(student.ID))
}
