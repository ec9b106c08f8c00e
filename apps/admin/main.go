package main

import (
	"log"
	"os"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/profile"
	logsvc "github.com/yair681/pirhei-aharon/services/logger"
	"github.com/yair681/pirhei-aharon/storage/credential"
	"github.com/yair681/pirhei-aharon/storage/database"
	inmemdb "github.com/yair681/pirhei-aharon/storage/database/inmem"
	"github.com/yair681/pirhei-aharon/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)

	// set up storage
	var profileRepo profile.Repository
	var creds core.CredentialStore
	var migrate func() error
	if dsn := conf.Database.DSN; dsn != "" {
		db, err := database.Open(conf)
		errAndDie(err)
		defer db.Close()
		profileRepo = sqlxrepos.NewProfileRepository(db, dsn, logsvc.NewStdLogger(logger))
		// shared with the API, so a user provisioned here can log in there
		creds, err = credstore.NewSQLStore(db)
		errAndDie(err)
		migrate = func() error { return sqlxrepos.EnsureSchema(db) }
	} else {
		db, err := inmemdb.Open()
		errAndDie(err)
		defer db.Close()
		profileRepo = inmemdb.NewProfileRepository(db)
		creds = credstore.NewInmemStore()
		migrate = func() error { return nil }
	}

	svc := profile.NewService(conf, profileRepo, creds, nil, validate, logsvc.NewStdLogger(logger))

	// start CLI
	cli := commandLine{
		conf:       conf,
		profileSvc: svc,
		migrate:    migrate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
