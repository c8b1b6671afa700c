// Package queue defines the mail messages exchanged over RabbitMQ and the
// background consumer that delivers them.
package queue

import "fmt"

// DefaultMailQueue is the durable queue mail events are published to.
const DefaultMailQueue = "mail.outgoing"

// MailKind selects the template of an outgoing mail.
type MailKind string

const (
	MailEmailVerify   MailKind = "email_verify"
	MailPasswordReset MailKind = "password_reset"
)

// MailEvent asks the consumer to send one templated mail.  Token is the
// signed email token and BaseURL the public address links are built from.
type MailEvent struct {
	Kind     MailKind `json:"kind"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Token    string   `json:"token"`
	BaseURL  string   `json:"base_url"`
}

// Validate reports whether the event can be delivered.
func (e MailEvent) Validate() error {
	switch e.Kind {
	case MailEmailVerify, MailPasswordReset:
	default:
		return fmt.Errorf("unknown mail kind %q", e.Kind)
	}
	if e.Email == "" {
		return fmt.Errorf("%s mail without recipient", e.Kind)
	}
	if e.Token == "" {
		return fmt.Errorf("%s mail without token", e.Kind)
	}
	return nil
}
