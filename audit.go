package authcore

import (
	"io"

	internalaudit "github.com/kandicepereira82/Vibecode-Studentopia-repo-sub000/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is one security-relevant engine event. Emails never appear in
// clear; metadata carries a short digest instead.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

type (
	NoOpSink       = internalaudit.NoOpSink
	ChannelSink    = internalaudit.ChannelSink
	JSONWriterSink = internalaudit.JSONWriterSink
	ZerologSink    = internalaudit.ZerologSink
	MultiSink      = internalaudit.MultiSink
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZerologSink logs events through logger: successes at info, failures at
// warn.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return internalaudit.NewZerologSink(logger)
}
