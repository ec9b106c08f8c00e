package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"

	"github.com/yair681/pirhei-aharon/apps/api/echo"
	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/auth"
	"github.com/yair681/pirhei-aharon/core/class"
	"github.com/yair681/pirhei-aharon/core/profile"
	"github.com/yair681/pirhei-aharon/core/stream"
	emailsvc "github.com/yair681/pirhei-aharon/services/email"
	logsvc "github.com/yair681/pirhei-aharon/services/logger"
	"github.com/yair681/pirhei-aharon/storage/credential"
	"github.com/yair681/pirhei-aharon/storage/database"
	inmemdb "github.com/yair681/pirhei-aharon/storage/database/inmem"
	"github.com/yair681/pirhei-aharon/storage/database/sqlxrepos"
	sessionstore "github.com/yair681/pirhei-aharon/storage/session"
)

func main() {
	std := stdlog.New(os.Stdout, "API : ", stdlog.LstdFlags|stdlog.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatalf("loading config: %+v", err)
	}

	var logger core.Logger
	if conf.RollbarToken != "" && !conf.Debug {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	logger.Info(fmt.Sprintf("Application initializing : env %q", conf.Env))

	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)

	// storage
	var (
		profileRepo profile.Repository
		classRepo   class.Repository
		streamRepo  stream.Repository
		creds       core.CredentialStore
	)
	if dsn := conf.Database.DSN; dsn != "" {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		if err := sqlxrepos.EnsureSchema(db); err != nil {
			logger.Fatal("ensuring schema", err)
		}
		profileRepo = sqlxrepos.NewProfileRepository(db, dsn, logger)
		classRepo = sqlxrepos.NewClassRepository(db, dsn, logger)
		streamRepo = sqlxrepos.NewStreamRepository(db, dsn, logger)
		// credentials must live with the profiles: an in-memory store
		// over a persistent roster locks everyone out after a restart
		creds, err = credstore.NewSQLStore(db)
		if err != nil {
			logger.Fatal("opening credential store", err)
		}
	} else {
		db, err := inmemdb.Open()
		if err != nil {
			logger.Fatal("opening in-memory store", err)
		}
		defer func() { _ = db.Close() }()
		profileRepo = inmemdb.NewProfileRepository(db)
		classRepo = inmemdb.NewClassRepository(db)
		streamRepo = inmemdb.NewStreamRepository(db)
		creds = credstore.NewInmemStore()
	}

	var sessions core.SessionRegistry
	if conf.Redis.Addr != "" {
		sessions, err = sessionstore.NewRedisStore(conf)
		if err != nil {
			logger.Fatal("connecting to redis", err)
		}
	} else {
		sessions = sessionstore.NewMemStore()
	}

	var mailSvc core.EmailService
	if conf.SendgridAPIKey != "" && !conf.Debug {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	} else {
		mailSvc = emailsvc.NewConsoleService(conf)
	}

	// services
	profileSvc := profile.NewService(conf, profileRepo, creds, mailSvc, validate, logger)
	classSvc := class.NewService(classRepo, profileRepo, validate, logger)
	streamSvc := stream.NewService(streamRepo, classRepo, validate, logger)
	gate := auth.NewGate(conf, creds, profileRepo, sessions, logger)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Gate:       gate,
		ProfileSvc: profileSvc,
		ClassSvc:   classSvc,
		StreamSvc:  streamSvc,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
	})

	defer logger.Info("Application stopped")

	// =========================================================================
	// Start API Service

	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Addr))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal("server error", err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("could not stop server gracefully", err)

			if err = server.Close(); err != nil {
				logger.Fatal("could not force stop server", err)
			}
		}
	}
}
