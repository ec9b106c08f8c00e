// Package logsvc implements the application logging contract. The std
// logger is the development default; rollbar forwards errors to the
// hosted tracker in deployed environments.
package logsvc

import (
	"fmt"
	"log"

	"github.com/yair681/pirhei-aharon/core"
)

type StdLogger struct {
	std *log.Logger
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	return &StdLogger{std: std}
}

func (l StdLogger) Info(msg string, args ...interface{}) {
	l.std.Println("INFO " + msg + formatArgs(args))
}

func (l StdLogger) Error(msg string, err error, args ...interface{}) {
	l.std.Printf("ERROR %s%s: %+v\n", msg, formatArgs(args), err)
}

func (l StdLogger) Fatal(msg string, err error, args ...interface{}) {
	l.std.Fatalf("FATAL %s%s: %+v\n", msg, formatArgs(args), err)
}

// formatArgs renders key-value pairs; a trailing odd value is kept as is.
func formatArgs(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	out := ""
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
		} else {
			out += fmt.Sprintf(" %v", args[i])
		}
	}
	return out
}
