// Package transport issues requests and opens watch streams against a
// Kubernetes-style HTTP API, given credentials from the credentials
// package. It knows the verb table of spec.md §6, the query-merge rule
// of §6.1, and the header set of §4.2 (Accept and Content-Encoding are
// always sent, Authorization whenever a bearer token is present); it
// knows nothing about
// resourceVersion, continue-tokens, or event framing — those belong to
// the watch and list packages built on top of it.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"sigs.k8s.io/yaml"

	"github.com/cloudlinks/k8swatch/credentials"
	"github.com/cloudlinks/k8swatch/k8serr"
	"github.com/cloudlinks/k8swatch/version"
)

// Transport is the shared HTTP client a Client facade, a list
// Iterator, and a watch Engine all issue calls through.
type Transport struct {
	resolver *credentials.Resolver
	client   *http.Client
	defaults Options
	logger   zerolog.Logger
}

// Config configures a Transport.
type Config struct {
	Resolver *credentials.Resolver
	// Defaults is the client-level Options default; a call-site
	// Options value passed to Request always takes precedence over it,
	// per spec.md §3's resolution order. The zero value selects
	// SystemDefault.
	Defaults Options
	Logger   zerolog.Logger
	Timeout  time.Duration
}

// New builds a Transport. The resolver is required; everything else
// has a workable zero value.
func New(cfg Config) (*Transport, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: transport requires a credentials resolver", k8serr.ConfigMissing)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// cfg.Logger's zero value is itself a safe no-op logger (zerolog
	// guards its nil writer before use), so an uninitialized Config
	// here behaves the same as passing zerolog.Nop() explicitly.
	defaults := cfg.Defaults
	if defaults == (Options{}) {
		defaults = SystemDefault()
	}
	t := &Transport{
		resolver: cfg.Resolver,
		defaults: defaults,
		logger:   cfg.Logger,
	}

	base := &http.Transport{}
	t.client = &http.Client{
		Transport: newLoggingRoundTripper(cfg.Logger, base),
		Timeout:   timeout,
	}

	return t, nil
}

// Response is the decoded result of a non-streaming request.
type Response struct {
	StatusCode int
	Header     http.Header
	// Body holds the raw bytes when decoding was not requested.
	Body []byte
	// Decoded holds the parsed document when Options.DecodeResponse is
	// set (the system default): the tree encoding/json produces, with
	// JSON objects as map[string]interface{}. DecodeAssociative does
	// not change how the body is decoded; object-key order is not
	// preserved.
	Decoded interface{}
}

// Request issues a single request against endpoint using verb,
// merging query per spec.md §6.1 and encoding body as JSON or YAML
// per the verb table. When opts is given, its last value replaces the
// Transport's configured defaults for this call only.
func (t *Transport) Request(ctx context.Context, endpoint string, verb Verb, query url.Values, body interface{}, opts ...Options) (*Response, error) {
	effective := t.defaults
	if len(opts) > 0 {
		effective = opts[len(opts)-1]
	}

	creds, err := t.resolver.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	mapping := resolve(verb)

	var bodyBytes []byte
	if body != nil {
		if mapping.yamlBody {
			bodyBytes, err = yaml.Marshal(body)
		} else {
			bodyBytes, err = json.Marshal(body)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: encoding request body: %s", k8serr.ConfigParse, err)
		}
	}

	fullURL := buildURL(creds.ServerURL, endpoint, query)
	req, err := http.NewRequestWithContext(ctx, mapping.method, fullURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", k8serr.BadPath, err)
	}

	for k, v := range headersFor(creds, mapping.contentType) {
		req.Header[k] = v
	}

	if err := applyTLS(t.client, creds); err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", k8serr.TransportOpen, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", k8serr.TransportRead, err)
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}
	if effective.DecodeResponse && len(raw) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("%w: decoding response body: %s", k8serr.ConfigParse, err)
		}
		out.Decoded = decoded
	}

	return out, nil
}

func headersFor(creds credentials.Credentials, contentType string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json, */*")
	h.Set("Content-Type", contentType)
	h.Set("Content-Encoding", "gzip")
	h.Set("User-Agent", version.UserAgent())
	if creds.BearerToken != "" {
		h.Set("Authorization", "Bearer "+creds.BearerToken)
	}
	return h
}

func (t *Transport) baseHeaders(creds credentials.Credentials) http.Header {
	return headersFor(creds, "application/json")
}

// applyTLS refreshes the client transport's TLS configuration from the
// latest credential snapshot. Credentials can rotate (an exec-provider
// may hand back a new client certificate) between calls, so this runs
// on every request rather than once at construction.
func applyTLS(client *http.Client, creds credentials.Credentials) error {
	tlsCfg, err := buildTLSConfig(creds)
	if err != nil {
		return err
	}
	if rt, ok := client.Transport.(*loggingRoundTripper); ok {
		if base, ok := rt.next.(*http.Transport); ok {
			base.TLSClientConfig = tlsCfg
		}
	}
	return nil
}
