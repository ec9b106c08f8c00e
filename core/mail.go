package core

import "net/mail"

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		Body    string
	}

	// EmailService sends messages asynchronously; failures are logged,
	// never surfaced to the caller.
	EmailService interface {
		SendMessages(messages ...*EmailMessage)
	}
)
