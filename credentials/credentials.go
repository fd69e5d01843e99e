// Package credentials resolves the TLS and bearer-token material a
// Transport needs for one request, refreshing it on demand when it has
// expired. It never parses a kubeconfig itself — that remains an
// external collaborator's job (spec.md §1) — it only knows how to hold
// a Credentials value and, when configured with an auth-provider or
// exec-provider, refresh one.
package credentials

import (
	"context"
	"sync"
	"time"
)

// Provider identifies which refresh strategy, if any, backs a set of
// Credentials.
type Provider int

const (
	// ProviderStatic credentials never refresh themselves; the bearer
	// token and TLS material are whatever the caller supplied.
	ProviderStatic Provider = iota
	// ProviderExec credentials refresh via an exec-provider plugin
	// that emits an ExecCredential document on stdout.
	ProviderExec
	// ProviderAuthProvider credentials refresh via a kubeconfig
	// auth-provider command and a pair of dotted paths.
	ProviderAuthProvider
)

// Credentials is the resolved TLS and bearer-token material a
// Transport needs for one request: a server URL, optional CA/client
// cert/key material, a bearer token, an optional expiry, and whether
// the peer name should be verified. It is constructed once per
// kubeconfig context and mutated in place only by a Resolver.
type Credentials struct {
	ServerURL      string
	CAFile         string
	ClientCertFile string
	ClientKeyFile  string
	BearerToken    string
	// Expiry is a unix-seconds timestamp, or nil if the token never
	// expires (or its expiry is unknown).
	Expiry         *int64
	VerifyPeerName bool

	Provider Provider

	exec         *ExecConfig
	authProvider *AuthProviderConfig
}

// Clone returns a shallow copy safe to hand to a caller without
// exposing the Resolver's internal pointer.
func (c Credentials) Clone() Credentials {
	clone := c
	if c.Expiry != nil {
		e := *c.Expiry
		clone.Expiry = &e
	}
	return clone
}

// Resolver produces a current, valid Credentials snapshot, refreshing
// the underlying material when it has expired. All mutation happens
// behind a single mutex so a caller driving several Watches from
// separate goroutines never observes a half-refreshed Credentials
// value (spec.md §5's single-writer-lock requirement).
type Resolver struct {
	mu    sync.Mutex
	creds Credentials
	mat   *materializer

	now func() time.Time
}

// An Option configures a Resolver.
type Option func(*Resolver)

// WithExecProvider configures the resolver to refresh via an
// exec-provider plugin.
func WithExecProvider(cfg ExecConfig) Option {
	return func(r *Resolver) {
		r.creds.Provider = ProviderExec
		r.creds.exec = &cfg
	}
}

// WithAuthProvider configures the resolver to refresh via a
// kubeconfig auth-provider command.
func WithAuthProvider(cfg AuthProviderConfig) Option {
	return func(r *Resolver) {
		r.creds.Provider = ProviderAuthProvider
		r.creds.authProvider = &cfg
	}
}

// withClock overrides the resolver's notion of "now"; used by tests.
func withClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a Resolver seeded with an initial Credentials
// value (typically produced by a kubeconfig loader or FromInCluster).
func NewResolver(initial Credentials, opts ...Option) *Resolver {
	r := &Resolver{
		creds: initial,
		mat:   newMaterializer(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Snapshot returns the current, valid Credentials, refreshing first if
// the configured expiry has passed or if no bearer token has ever been
// obtained and a refresh provider is configured.
func (r *Resolver) Snapshot(ctx context.Context) (Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.needsRefresh() {
		if err := r.refresh(ctx); err != nil {
			return Credentials{}, err
		}
	}

	return r.creds.Clone(), nil
}

func (r *Resolver) needsRefresh() bool {
	if r.creds.Expiry != nil && r.now().Unix() >= *r.creds.Expiry {
		return true
	}
	if r.creds.BearerToken == "" && r.creds.Provider != ProviderStatic {
		return true
	}
	return false
}

func (r *Resolver) refresh(ctx context.Context) error {
	switch r.creds.Provider {
	case ProviderExec:
		return r.refreshExec(ctx)
	case ProviderAuthProvider:
		return r.refreshAuthProvider(ctx)
	default:
		return nil
	}
}

// Close removes any temp credential files this resolver's materializer
// has written.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mat.closeAll()
}
