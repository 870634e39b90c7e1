// Package audit records aggregation outcomes for operational visibility.
// The core engine (internal/tap) has no logging of its own — it is pure,
// synchronous, and referentially transparent — so every call site in the
// RPC shells reports through a Sink instead.
package audit

import (
	"go.uber.org/zap"

	"github.com/graphprotocol/tap-aggregator/internal/tap"
)

// Sink receives one event per aggregation attempt, successful or not.
type Sink interface {
	RecordSuccess(version tap.Version, allocationOrCollection string, receiptCount int)
	RecordFailure(version tap.Version, kind tap.ErrorKind, msg string)
}

// ZapSink logs through a *zap.Logger, the same library every other
// component in this service uses.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink wraps log.
func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log}
}

func (s *ZapSink) RecordSuccess(version tap.Version, key string, receiptCount int) {
	s.log.Info("aggregation succeeded",
		zap.String("version", version.String()),
		zap.String("key", key),
		zap.Int("receipt_count", receiptCount),
	)
}

func (s *ZapSink) RecordFailure(version tap.Version, kind tap.ErrorKind, msg string) {
	s.log.Warn("aggregation failed",
		zap.String("version", version.String()),
		zap.String("kind", kind.String()),
		zap.String("msg", msg),
	)
}

// NoopSink discards every event. Useful in tests that don't want a logger
// dependency.
type NoopSink struct{}

func (NoopSink) RecordSuccess(tap.Version, string, int)          {}
func (NoopSink) RecordFailure(tap.Version, tap.ErrorKind, string) {}
