// Package notify delivers password-reset tokens out of band.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Message carries a reset token to its recipient. Token is plaintext and
// must only ever reach the delivery channel.
type Message struct {
	Email     string
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Notifier sends reset messages.
type Notifier interface {
	SendPasswordReset(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) SendPasswordReset(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogNotifier writes reset messages, token included, to a logger. It is
// meant for local development, where the token has to be copied from the
// console, and is never installed unless passed to Builder.WithNotifier.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) SendPasswordReset(_ context.Context, msg Message) error {
	n.Logger.Info().
		Str("email", msg.Email).
		Str("token", msg.Token).
		Time("expires_at", msg.ExpiresAt).
		Msg("password reset token issued")
	return nil
}

// Discard drops every message.
var Discard Notifier = NotifierFunc(func(context.Context, Message) error { return nil })
