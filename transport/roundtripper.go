package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// loggingRoundTripper wraps an http.RoundTripper, logging one
// structured event per request at debug level: method, path, status,
// duration, and a request-id freshly generated for each request.
type loggingRoundTripper struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

func newLoggingRoundTripper(logger zerolog.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingRoundTripper{next: next, logger: logger}
}

func (rt *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	requestID := uuid.NewString()
	start := time.Now()

	resp, err := rt.next.RoundTrip(req)

	evt := rt.logger.Debug().
		Str("request-id", requestID).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))

	if err != nil {
		evt.Err(err).Msg("request failed")
		return resp, err
	}

	evt.Int("status", resp.StatusCode).Msg("request complete")
	return resp, nil
}
