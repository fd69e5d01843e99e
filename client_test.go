package k8swatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	k8swatch "github.com/cloudlinks/k8swatch"
	"github.com/cloudlinks/k8swatch/credentials"
	"github.com/cloudlinks/k8swatch/list"
	"github.com/cloudlinks/k8swatch/transport"
	"github.com/cloudlinks/k8swatch/watch"
)

func TestClientRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"kind":"PodList"}`))
	}))
	defer srv.Close()

	c, err := k8swatch.New(k8swatch.Config{
		Credentials: credentials.Credentials{ServerURL: srv.URL, BearerToken: "tok", Provider: credentials.ProviderStatic},
	})
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Request(context.Background(), "/api/v1/pods", transport.GET, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "PodList", resp.Decoded.(map[string]interface{})["kind"])
}

func TestClientCreateList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[1,2],"metadata":{}}`))
	}))
	defer srv.Close()

	c, err := k8swatch.New(k8swatch.Config{
		Credentials: credentials.Credentials{ServerURL: srv.URL, BearerToken: "tok", Provider: credentials.ProviderStatic},
	})
	require.NoError(t, err)
	defer c.Close()

	it := c.CreateList(list.Config{Endpoint: "/api/v1/pods"})
	result, err := it.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, result["items"], 2)
}

func TestClientCreateWatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte(`{"type":"ADDED","object":{"metadata":{"resourceVersion":"1"}}}` + "\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	c, err := k8swatch.New(k8swatch.Config{
		Credentials: credentials.Credentials{ServerURL: srv.URL, BearerToken: "tok", Provider: credentials.ProviderStatic},
	})
	require.NoError(t, err)
	defer c.Close()

	e := c.CreateWatch(watch.Config{Endpoint: "/api/v1/pods", DecodeResponse: true})
	seq := e.Stream(context.Background(), 1)
	_, ok, err := seq.Next()
	require.NoError(t, err)
	assert.True(t, ok)
}
