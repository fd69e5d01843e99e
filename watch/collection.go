package watch

import (
	"context"
	"sync/atomic"
)

// Collection round-robins across an ordered set of Engines, merging
// their events into one lazy sequence. It is single-threaded and
// deterministic: two engines that both have events ready in the same
// pass are interleaved in insertion order, never delivered
// concurrently.
type Collection struct {
	engines []*Engine
	stopped atomic.Bool
}

// NewCollection builds a Collection over engines, in the order they
// should be polled.
func NewCollection(engines ...*Engine) *Collection {
	return &Collection{engines: engines}
}

// Stop sets the collection-level stop flag and propagates Stop to
// every child Engine.
func (c *Collection) Stop() {
	c.stopped.Store(true)
	for _, e := range c.engines {
		e.Stop()
	}
}

// Next advances every still-active child by exactly one read cycle, in
// order, and returns the events produced this pass. An engine that
// reports termination is removed from future passes. Next returns
// ok == false once the collection has been stopped and every child
// has drained, or once every child has independently terminated.
//
// A child stuck retrying a dead endpoint blocks the whole pass: its
// Step call won't return until connect succeeds or ctx is done, since
// the reconnect-with-backoff loop lives inside connect itself. Pool
// engines pointed at endpoints expected to fail independently with
// separate goroutines instead of one Collection.
func (c *Collection) Next(ctx context.Context) (events []Event, ok bool, err error) {
	if len(c.engines) == 0 {
		return nil, false, nil
	}

	remaining := c.engines[:0:0]
	for _, e := range c.engines {
		evs, terminated, serr := e.Step(ctx)
		if serr != nil {
			return nil, false, serr
		}
		events = append(events, evs...)
		if !terminated {
			remaining = append(remaining, e)
		}
	}
	c.engines = remaining

	if len(c.engines) == 0 {
		return events, len(events) > 0, nil
	}
	return events, true, nil
}
