package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"

	"github.com/yair681/pirhei-aharon/core"
	"github.com/yair681/pirhei-aharon/core/profile"
)

type RollbarLogger struct {
	std *StdLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetCodeVersion(conf.AppID)
	return &RollbarLogger{std: NewStdLogger(std)}
}

// prepare sets the acting profile on the report when one is passed in
// the args, and strips it from the printable args.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var profSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		if prof, ok := arg.(profile.Profile); ok {
			if !profSet { // only set one person
				rollbar.SetPerson(prof.ID, prof.Name, prof.Email)
				profSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !profSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.std.Info(msg, args...)
}

func (l RollbarLogger) Error(msg string, err error, args ...interface{}) {
	newArgs := l.prepare(msg, args)
	if err != nil {
		newArgs = append(newArgs, err)
	}
	rollbar.Error(newArgs...)
	l.std.Error(msg, err, args...)
}

func (l RollbarLogger) Fatal(msg string, err error, args ...interface{}) {
	newArgs := l.prepare(msg, args)
	if err != nil {
		newArgs = append(newArgs, err)
	}
	rollbar.Critical(newArgs...)
	rollbar.Wait()
	l.std.Fatal(msg, err, args...)
}
