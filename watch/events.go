package watch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// EventSink is notified on an Engine's connection-lifecycle
// transitions. It carries no event data — Event delivery is strictly
// via the Start callback or Sequence.Next.
type EventSink interface {
	// OnConnecting is called before a dial attempt begins.
	OnConnecting(context.Context)
	// OnConnected is called once the stream is open and headers
	// validated.
	OnConnected(context.Context)
	// OnReconnecting is called after a dial attempt fails, with the
	// backoff duration before the next attempt and the error that
	// caused the retry.
	OnReconnecting(context.Context, time.Duration, error)
	// OnDisconnected is called whenever the current connection is
	// torn down, whether cleanly, on error, or on reset, with a nil
	// err in each of those cases. It is also called with the last dial
	// error when ctx is done while connect is still retrying.
	OnDisconnected(context.Context, error)
	// OnFrameError is called when a frame fails to decode; the frame
	// is skipped and the connection is left open.
	OnFrameError(context.Context, error)
}

// DiscardEvents returns an EventSink that does nothing; the Engine's
// default.
func DiscardEvents() EventSink { return discardEvents{} }

type discardEvents struct{}

func (discardEvents) OnConnecting(context.Context)                         {}
func (discardEvents) OnConnected(context.Context)                          {}
func (discardEvents) OnReconnecting(context.Context, time.Duration, error) {}
func (discardEvents) OnDisconnected(context.Context, error)                {}
func (discardEvents) OnFrameError(context.Context, error)                  {}

// LogEvents returns an EventSink that logs each transition via the
// zerolog logger attached to the context (log.Ctx); with no logger
// attached, zerolog.DefaultContextLogger is used if set, and nothing
// is logged otherwise.
func LogEvents() EventSink { return logEvents{} }

type logEvents struct{}

func (logEvents) OnConnecting(ctx context.Context) {
	log.Ctx(ctx).Debug().Msg("watch connecting")
}

func (logEvents) OnConnected(ctx context.Context) {
	log.Ctx(ctx).Debug().Msg("watch connected")
}

func (logEvents) OnReconnecting(ctx context.Context, wait time.Duration, err error) {
	log.Ctx(ctx).Warn().Dur("wait", wait).Err(err).Msg("watch reconnecting")
}

func (logEvents) OnDisconnected(ctx context.Context, err error) {
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("watch disconnected")
		return
	}
	log.Ctx(ctx).Debug().Msg("watch disconnected")
}

func (logEvents) OnFrameError(ctx context.Context, err error) {
	log.Ctx(ctx).Debug().Err(err).Msg("failed to decode watch frame, skipping")
}
