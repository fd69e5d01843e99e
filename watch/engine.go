// Package watch implements the long-lived, self-reconnecting
// streaming connection this module is built around: a state machine
// that decodes newline-framed JSON events, resumes at the server's
// resourceVersion after a reconnect, detects a peer that has gone
// silent without closing the socket, and suppresses the duplicate
// deliveries that an unparameterized initial watch otherwise produces
// across reconnects.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/cloudlinks/k8swatch/k8serr"
	"github.com/cloudlinks/k8swatch/pathutil"
	"github.com/cloudlinks/k8swatch/transport"
)

// Engine owns one watch's connection lifecycle. The zero value is not
// usable; construct with New.
type Engine struct {
	cfg Config
	tr  *transport.Transport

	logger zerolog.Logger
	sink   EventSink

	stopRequested atomic.Bool

	stream *transport.Stream
	buf    []byte

	resourceVersion            string
	resourceVersionLastSuccess string
	handleStartTimestamp       time.Time
	lastBytesReadTimestamp     time.Time
	initialLoadFinished        bool

	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventSink attaches connection-lifecycle notifications.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithLogger attaches a logger for per-frame decode failures and
// reconnect events.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// withClock overrides the engine's notion of "now"; used by tests.
func withClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an Engine bound to tr. cfg.ResourceVersion, if set, seeds
// the initial connection's resume point.
func New(tr *transport.Transport, cfg Config, opts ...Option) *Engine {
	cfg = cfg.defaults()
	e := &Engine{
		cfg:             cfg,
		tr:              tr,
		sink:            DiscardEvents(),
		logger:          zerolog.Nop(),
		resourceVersion: cfg.ResourceVersion,
		now:             time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Stop requests that the Engine close its connection and return
// control at the top of the next read cycle. It is idempotent and
// safe to call before the Engine has ever connected.
func (e *Engine) Stop() {
	e.stopRequested.Store(true)
}

// Start drives the Engine in callback mode: callback is invoked once
// per delivered event, in order. Start runs until the Engine
// terminates (stop, or a clean end-of-stream when the caller
// configured a server-side timeoutSeconds) or until cycles
// read-iterations have elapsed, whichever comes first; cycles == 0
// means run forever.
func (e *Engine) Start(ctx context.Context, cycles int, callback func(Event, *Engine)) error {
	for i := 0; cycles == 0 || i < cycles; i++ {
		events, terminated, err := e.Step(ctx)
		if err != nil {
			return err
		}
		for _, ev := range events {
			callback(ev, e)
		}
		if terminated {
			return nil
		}
	}
	return nil
}

// Sequence is a pull-mode, restartable-on-reconnect view over an
// Engine's events.
type Sequence struct {
	e      *Engine
	ctx    context.Context
	cycles int

	iterations int
	pending    []Event
	done       bool
}

// Stream returns a pull-mode Sequence. Cycle semantics match Start.
func (e *Engine) Stream(ctx context.Context, cycles int) *Sequence {
	return &Sequence{e: e, ctx: ctx, cycles: cycles}
}

// Next returns the next event, or ok == false once the Sequence has
// terminated. Terminal errors propagate; per-frame decode failures
// never reach here (the Engine swallows and logs them).
func (s *Sequence) Next() (Event, bool, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, true, nil
		}
		if s.done || (s.cycles > 0 && s.iterations >= s.cycles) {
			return Event{}, false, nil
		}

		events, terminated, err := s.e.Step(s.ctx)
		if err != nil {
			return Event{}, false, err
		}
		s.pending = events
		if terminated {
			s.done = true
		}

		s.iterations++
	}
}

// Step performs exactly one read-iteration of the outer loop described
// in SPEC_FULL.md's Watch Engine section, and is the shared primitive
// both Start and Sequence.Next drive: connect if idle, trip the
// dead-peer timer, read once, split the parse buffer on newlines,
// decode and pre-process each complete frame, and apply the
// initial-load tripwire and duplicate-suppression rule. It returns the
// events this cycle delivered (zero, one, or several — a single read
// can surface multiple buffered frames at once) and whether the Engine
// has terminated.
func (e *Engine) Step(ctx context.Context) (events []Event, terminated bool, err error) {
	if e.stopRequested.Load() {
		e.closeStream()
		e.stopRequested.Store(false)
		return nil, true, nil
	}

	if ctx.Err() != nil {
		e.closeStream()
		return nil, true, nil
	}

	if e.stream != nil && e.cfg.DeadPeerDetectionTimeout > 0 {
		deadline := e.handleStartTimestamp.Add(e.cfg.DeadPeerDetectionTimeout)
		lastByteDeadline := e.lastBytesReadTimestamp.Add(e.cfg.DeadPeerDetectionTimeout)
		now := e.now()
		if !now.Before(deadline) && !now.Before(lastByteDeadline) {
			e.logger.Debug().Msg("dead peer detected, reconnecting")
			e.closeStream()
		}
	}

	if e.stream == nil {
		if err := e.connect(ctx); err != nil {
			return nil, false, err
		}
	}

	readBuf := make([]byte, e.cfg.StreamReadLength)
	deadline := e.now().Add(e.cfg.StreamReadTimeout)
	n, rerr, eof := e.stream.Read(readBuf, deadline)
	if rerr != nil {
		e.closeStream()
		return nil, false, rerr
	}

	if eof {
		e.closeStream()
		if e.cfg.timeoutSeconds() > 0 {
			return nil, true, nil
		}
		return nil, false, nil
	}

	if n > 0 {
		e.lastBytesReadTimestamp = e.now()
		e.buf = append(e.buf, readBuf[:n]...)
	} else if !e.initialLoadFinished {
		e.initialLoadFinished = true
	}

	segments, rest := splitLines(e.buf)
	e.buf = rest

	for _, segment := range segments {
		if len(segment) == 0 {
			continue
		}

		ev, resetNow, hardReset, derr := e.processFrame(segment)
		if derr != nil {
			e.logger.Debug().Err(derr).Msg("failed to decode watch frame, skipping")
			e.sink.OnFrameError(ctx, derr)
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
		if resetNow {
			if hardReset {
				e.resourceVersion = ""
			}
			e.closeStream()
			e.buf = nil
			break
		}
	}

	return events, false, nil
}

// processFrame decodes one newline-framed JSON segment and applies the
// pre-processing, tripwire, and duplicate-suppression rules. It
// returns the event to deliver (nil if suppressed or not deliverable),
// whether the connection must be reset, and — when resetting — whether
// the reset must also discard resourceVersion (the 410-gone case).
func (e *Engine) processFrame(segment []byte) (ev *Event, reset bool, hardReset bool, err error) {
	var frame map[string]interface{}
	if uerr := json.Unmarshal(segment, &frame); uerr != nil {
		return nil, false, false, uerr
	}

	if kind, _ := pathutil.Get(frame, "kind", ""); kind == "Status" {
		if status, _ := pathutil.Get(frame, "status", ""); status == "Failure" {
			return nil, true, false, nil
		}
	}

	typ, _ := pathutil.Get(frame, "type", "")
	typeStr, _ := typ.(string)
	if typeStr == "" {
		return nil, false, false, nil
	}

	if EventType(typeStr) == ErrorType {
		code, _ := pathutil.Get(frame, "object.code", float64(0))
		if codeNum, ok := code.(float64); ok && int(codeNum) == 410 {
			return nil, true, true, nil
		}
		return nil, true, false, nil
	}

	objectVal, _ := pathutil.Get(frame, "object", map[string]interface{}(nil))
	object, _ := objectVal.(map[string]interface{})

	candidate := Event{Type: EventType(typeStr), Object: object}
	rv := candidate.resourceVersion()

	if !e.initialLoadFinished && candidate.Type != Added {
		e.initialLoadFinished = true
	}

	deliver := !e.initialLoadFinished || rvGreater(rv, e.resourceVersionLastSuccess)
	if rvGreater(rv, e.resourceVersionLastSuccess) {
		e.resourceVersion = rv
		e.resourceVersionLastSuccess = rv
	}

	if !deliver {
		return nil, false, false, nil
	}

	if !e.cfg.DecodeResponse {
		candidate.Object = nil
		candidate.Raw = segment
	}
	return &candidate, false, false, nil
}

// connect dials the watch endpoint, retrying with exponential backoff
// (grounded in the teacher's RunListener accept loop) until it
// succeeds or ctx is done. A transient dial failure (DNS, TLS
// handshake, connection refused) is expected to clear on retry and is
// never surfaced to the caller as a terminal error.
func (e *Engine) connect(ctx context.Context) error {
	e.sink.OnConnecting(ctx)

	q := url.Values{}
	for k, v := range e.cfg.Query {
		q[k] = v
	}
	q.Set("watch", "true")
	if e.resourceVersion != "" {
		q.Set("resourceVersion", e.resourceVersion)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	for {
		stream, err := e.tr.OpenStream(ctx, e.cfg.Endpoint, q)
		if err == nil {
			e.stream = stream
			e.buf = nil
			e.handleStartTimestamp = e.now()
			e.lastBytesReadTimestamp = time.Time{}
			e.sink.OnConnected(ctx)
			return nil
		}

		wrapped := fmt.Errorf("%w: %s", k8serr.TransportOpen, err)
		if ctx.Err() != nil {
			e.sink.OnDisconnected(ctx, wrapped)
			return ctx.Err()
		}

		wait := bo.NextBackOff()
		e.sink.OnReconnecting(ctx, wait, wrapped)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.sink.OnDisconnected(ctx, wrapped)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (e *Engine) closeStream() {
	if e.stream == nil {
		return
	}
	_ = e.stream.Close()
	e.stream = nil
	e.sink.OnDisconnected(context.Background(), nil)
}

// splitLines splits buf on '\n', returning the complete lines (with
// their trailing newline stripped) and the trailing partial segment
// still awaiting its terminator.
func splitLines(buf []byte) (complete [][]byte, rest []byte) {
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			complete = append(complete, buf[start:i])
			start = i + 1
		}
	}
	return complete, buf[start:]
}
