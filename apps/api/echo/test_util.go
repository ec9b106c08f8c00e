package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/auth"
	"github.com/yair681/pirhei-aharon/core/class"
	"github.com/yair681/pirhei-aharon/core/profile"
	"github.com/yair681/pirhei-aharon/core/stream"
	emailsvc "github.com/yair681/pirhei-aharon/services/email"
	logsvc "github.com/yair681/pirhei-aharon/services/logger"
	"github.com/yair681/pirhei-aharon/storage/credential"
	inmemdb "github.com/yair681/pirhei-aharon/storage/database/inmem"
	sessionstore "github.com/yair681/pirhei-aharon/storage/session"
)

const (
	testSuperAdminEmail = "yairfrish2@gmail.com"
	testPassword        = "s3cr3t!"
)

type testApp struct {
	server     Server
	conf       *core.Config
	profileSvc profile.Service
	classSvc   class.Service
	streamSvc  stream.Service
	gate       *auth.Gate
	creds      core.CredentialStore
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		Debug:           false,
		TestMode:        true,
		AppName:         "Pirhei Aharon",
		AppID:           "pirhei-aharon",
		SecretKey:       []byte("secret"),
		SuperAdminEmail: testSuperAdminEmail,
		AnonymousAccess: true,
	}
	conf.Server.JWTExpirationDelta = 10 * time.Minute
	conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour

	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	profileRepo := inmemdb.NewProfileRepository(db)
	classRepo := inmemdb.NewClassRepository(db)
	streamRepo := inmemdb.NewStreamRepository(db)
	creds := credstore.NewInmemStore()
	sessions := sessionstore.NewMemStore()

	std := log.New(os.Stdout, "TEST : ", log.LstdFlags)
	logger := logsvc.NewStdLogger(std)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	profileSvc := profile.NewService(conf, profileRepo, creds, mailSvc, validate, logger)
	classSvc := class.NewService(classRepo, profileRepo, validate, logger)
	streamSvc := stream.NewService(streamRepo, classRepo, validate, logger)
	gate := auth.NewGate(conf, creds, profileRepo, sessions, logger)

	server := NewServer(&Options{
		Conf:           conf,
		DisableReqLogs: true,
		Gate:           gate,
		ProfileSvc:     profileSvc,
		ClassSvc:       classSvc,
		StreamSvc:      streamSvc,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
	})

	return &testApp{
		server:     server,
		conf:       conf,
		profileSvc: profileSvc,
		classSvc:   classSvc,
		streamSvc:  streamSvc,
		gate:       gate,
		creds:      creds,
	}
}

func (app *testApp) bootstrap(t *testing.T) profile.Profile {
	t.Helper()
	admin, err := app.profileSvc.RegisterSuperAdmin(context.Background(), testSuperAdminEmail, testPassword)
	if err != nil {
		t.Fatalf("bootstrap() failed: %v", err)
	}
	return admin
}

func (app *testApp) createUser(t *testing.T, actor profile.Profile, name, email, role string) profile.Profile {
	t.Helper()
	prof, err := app.profileSvc.Create(context.Background(), actor, profile.NewProfile{
		Name: name, Email: email, Password: testPassword, Role: role,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return prof
}

// login goes through the gate and returns a signed token for the session.
func (app *testApp) login(t *testing.T, email string) string {
	t.Helper()
	sess, err := app.gate.Login(context.Background(), email, testPassword)
	if err != nil {
		t.Fatalf("login() failed: %v", err)
	}
	token, err := GenerateToken(app.conf, GetProfileClaims(app.conf, sess.Profile, sess.RecordID))
	if err != nil {
		t.Fatalf("login() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}
