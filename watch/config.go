package watch

import (
	"net/url"
	"strconv"
	"time"
)

// Config parameters of one Watch, immutable once the Engine is built.
type Config struct {
	// Endpoint is the collection's list/watch path, e.g.
	// "/api/v1/namespaces/default/pods".
	Endpoint string
	// Query carries label/field selectors and, optionally,
	// timeoutSeconds. "watch" and "resourceVersion" are managed by the
	// Engine itself and should not be set here.
	Query url.Values
	// ResourceVersion seeds the initial request. Leave empty to start
	// from the server's current state (triggering the initial-load
	// burst described in SPEC_FULL.md's Watch Engine section).
	ResourceVersion string
	// DecodeResponse mirrors transport.Options.DecodeResponse: when
	// false, Event.Object is nil and Event.Raw carries the undecoded
	// frame bytes instead.
	DecodeResponse bool

	StreamReadLength         int
	StreamReadTimeout        time.Duration
	DeadPeerDetectionTimeout time.Duration
}

// defaults fills any zero-valued tunable with its spec default:
// 8192-byte reads, a 100ms per-read deadline, and a 600s dead-peer
// timeout.
func (c Config) defaults() Config {
	if c.StreamReadLength == 0 {
		c.StreamReadLength = 8192
	}
	if c.StreamReadTimeout == 0 {
		c.StreamReadTimeout = 100 * time.Millisecond
	}
	if c.DeadPeerDetectionTimeout == 0 {
		c.DeadPeerDetectionTimeout = 600 * time.Second
	}
	if c.Query == nil {
		c.Query = url.Values{}
	}
	return c
}

// timeoutSeconds reports the server-side watch timeout the caller
// asked for via the query, or 0 if none was set.
func (c Config) timeoutSeconds() int {
	v := c.Query.Get("timeoutSeconds")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
