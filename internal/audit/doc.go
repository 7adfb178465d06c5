// Package audit relays security events to pluggable sinks without blocking
// the auth flows.
//
// [Dispatcher] buffers events and delivers them from one goroutine.
// Sinks: [NoOpSink], [ChannelSink], [JSONWriterSink], [ZerologSink] and
// [MultiSink].
//
// This package does not decide which events exist. The Engine does.
package audit
