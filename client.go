// Package k8swatch is the facade binding credential resolution,
// transport, watch, and list into the surface applications use:
// Request for one-shot verbs, CreateWatch for a long-lived streaming
// connection, and CreateList for a paginated collection traversal.
package k8swatch

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudlinks/k8swatch/credentials"
	"github.com/cloudlinks/k8swatch/list"
	"github.com/cloudlinks/k8swatch/transport"
	"github.com/cloudlinks/k8swatch/watch"
)

// Config configures a Client.
type Config struct {
	// Credentials seeds the resolver: a static bearer token/TLS
	// material, or the ServerURL/CAFile alone when ExecProvider or
	// AuthProvider will fill in the rest.
	Credentials credentials.Credentials

	ExecProvider *credentials.ExecConfig
	AuthProvider *credentials.AuthProviderConfig

	// Defaults is the client-level transport.Options default; every
	// call-site Options value overrides it, per spec.md §3's
	// resolution order.
	Defaults transport.Options

	Logger  zerolog.Logger
	Timeout time.Duration
}

// Client binds a credential Resolver and a Transport into one
// user-facing surface.
type Client struct {
	resolver *credentials.Resolver
	tr       *transport.Transport
}

// New builds a Client from Config.
func New(cfg Config) (*Client, error) {
	var opts []credentials.Option
	if cfg.ExecProvider != nil {
		opts = append(opts, credentials.WithExecProvider(*cfg.ExecProvider))
	}
	if cfg.AuthProvider != nil {
		opts = append(opts, credentials.WithAuthProvider(*cfg.AuthProvider))
	}
	resolver := credentials.NewResolver(cfg.Credentials, opts...)

	tr, err := transport.New(transport.Config{
		Resolver: resolver,
		Defaults: cfg.Defaults,
		Logger:   cfg.Logger,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return &Client{resolver: resolver, tr: tr}, nil
}

// Request issues one verb against endpoint. Per-call opts override the
// Client's configured Defaults.
func (c *Client) Request(ctx context.Context, endpoint string, verb transport.Verb, query url.Values, body interface{}, opts ...transport.Options) (*transport.Response, error) {
	return c.tr.Request(ctx, endpoint, verb, query, body, opts...)
}

// CreateWatch builds a watch.Engine against this Client's Transport.
func (c *Client) CreateWatch(cfg watch.Config, opts ...watch.Option) *watch.Engine {
	return watch.New(c.tr, cfg, opts...)
}

// CreateList builds a list.Iterator against this Client's Transport.
func (c *Client) CreateList(cfg list.Config) *list.Iterator {
	return list.New(c.tr, cfg)
}

// Close releases any temp credential files the resolver materialized.
func (c *Client) Close() error {
	return c.resolver.Close()
}
