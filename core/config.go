package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config carries every knob the application reads at startup. It is
// built once in main and passed by reference; nothing reads the
// environment after NewConfig returns.
type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (default), TEST, QA, PROD
	AppName  string

	// AppID is the namespace under which all records are partitioned.
	// It is a tenant prefix, not a security boundary.
	AppID string

	SecretKey []byte

	// SuperAdminEmail is the only email accepted by the super-admin
	// bootstrap registration.
	SuperAdminEmail string

	// AnonymousAccess re-establishes an unprivileged identity after
	// logout so public-scope reads keep working.
	AnonymousAccess bool

	DefaultFromEmail string
	SendgridAPIKey   string
	RollbarToken     string

	Server struct {
		Addr                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	Database struct {
		DSN string // empty: in-memory store
	}

	Redis struct {
		Addr     string // empty: in-memory session registry
		Password string
		DB       int
	}
}

// NewConfig loads configuration from defaults, an optional
// config/.env.<env> file and the environment (prefixed with the env name).
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("appName", "Pirhei Aharon")
	v.SetDefault("appID", "pirhei-aharon")
	v.SetDefault("secretKey", "+2b0e&s^$dzmq0t=wer)enb$+57=dz&u0xh2(h!x)#*c2(#yg4")
	v.SetDefault("superAdminEmail", "yairfrish2@gmail.com")
	v.SetDefault("anonymousAccess", true)
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("databaseDSN", "")
	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		Env:              env,
		AppName:          v.GetString("appName"),
		AppID:            v.GetString("appID"),
		SecretKey:        []byte(v.GetString("secretKey")),
		SuperAdminEmail:  v.GetString("superAdminEmail"),
		AnonymousAccess:  v.GetBool("anonymousAccess"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
	}
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")
	conf.Server.ShutdownTimeout = v.GetDuration("shutdownTimeout")
	conf.Database.DSN = v.GetString("databaseDSN")
	conf.Redis.Addr = v.GetString("redisAddr")
	conf.Redis.Password = v.GetString("redisPassword")
	conf.Redis.DB = v.GetInt("redisDB")
	return conf, nil
}
