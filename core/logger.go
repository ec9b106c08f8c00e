package core

// Logger is the application-wide logging contract. Extra args may carry
// structured context; implementations decide how to render them.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, err error, args ...interface{})
	Fatal(msg string, err error, args ...interface{})
}
