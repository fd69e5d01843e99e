package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudlinks/k8swatch/k8serr"
)

// Stream is a long-lived byte stream opened against the API server's
// raw socket rather than through net/http's client, because
// http.Response.Body exposes no way to set a per-Read deadline that
// returns an empty read instead of an error (spec.md §4.4's dead-peer
// detector needs exactly that). The dial and HTTP/1.1 request/response
// handshake below mirror the CONNECT-tunnel dial pattern this module's
// point-to-point request path was built from, adapted to a plain GET
// against a streaming watch endpoint instead of a CONNECT tunnel.
type Stream struct {
	conn net.Conn
	br   *bufio.Reader
	resp *http.Response
}

// OpenStream dials the server directly, issues an HTTP/1.1 request for
// endpoint+query with "Connection: close" (so the server closes the
// socket when its response ends and Read reports end-of-stream), and
// returns the raw body stream once headers have
// been read and the status validated. Closing the returned Stream
// closes the underlying connection.
func (t *Transport) OpenStream(ctx context.Context, endpoint string, query url.Values) (*Stream, error) {
	creds, err := t.resolver.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	target, err := url.Parse(buildURL(creds.ServerURL, endpoint, query))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", k8serr.BadPath, err)
	}

	addr := target.Host
	if target.Port() == "" {
		if target.Scheme == "https" {
			addr = net.JoinHostPort(target.Hostname(), "443")
		} else {
			addr = net.JoinHostPort(target.Hostname(), "80")
		}
	}

	var conn net.Conn
	if target.Scheme == "https" {
		tlsCfg, err := buildTLSConfig(creds)
		if err != nil {
			return nil, err
		}
		conn, err = (&tls.Dialer{Config: tlsCfg}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", k8serr.TransportOpen, err)
		}
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", k8serr.TransportOpen, err)
		}
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			_ = conn.Close()
		}()
	}

	req := &http.Request{
		Method: "GET",
		URL:    target,
		Host:   target.Host,
		Header: t.baseHeaders(creds),
		Close:  true,
	}
	req = req.WithContext(ctx)

	if err := req.Write(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s", k8serr.TransportOpen, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s", k8serr.TransportOpen, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: unexpected status %d", k8serr.TransportOpen, resp.StatusCode)
	}

	return &Stream{conn: conn, br: br, resp: resp}, nil
}

// Read fills p with whatever is available before deadline elapses. A
// zero deadline means no deadline. A timeout with no bytes read
// returns (0, nil, false) rather than an error — the watch engine's
// read cycle depends on being able to tell "nothing arrived yet" apart
// from "the peer is gone". A clean end of stream is reported as
// eof == true with a nil error, so the caller can tell a clean close
// apart from a timeout.
func (s *Stream) Read(p []byte, deadline time.Time) (n int, err error, eof bool) {
	if !deadline.IsZero() {
		if derr := s.conn.SetReadDeadline(deadline); derr != nil {
			return 0, fmt.Errorf("%w: %s", k8serr.TransportRead, derr), false
		}
	}

	n, err = s.br.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, nil, false
		}
		if err == io.EOF {
			return n, nil, true
		}
		return n, fmt.Errorf("%w: %s", k8serr.TransportRead, err), false
	}
	return n, nil, false
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}
