package application

import "errors"

var (
	// ErrAuthFailed is returned by CloudClient.Login when the cloud rejects
	// the credentials. It is never retried.
	ErrAuthFailed = errors.New("cloud: authentication failed")

	// ErrMalformedCommand marks an inbound bus payload that could not be
	// turned into a cloud command.
	ErrMalformedCommand = errors.New("malformed command payload")

	ErrUnknownTopic = errors.New("no device owns topic")

	ErrStateMissing = errors.New("state attribute missing")
)
