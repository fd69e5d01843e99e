package list_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlinks/k8swatch/credentials"
	"github.com/cloudlinks/k8swatch/list"
	"github.com/cloudlinks/k8swatch/transport"
)

var pages = []string{
	`{"items":[1,2],"metadata":{"continue":"A"}}`,
	`{"items":[3],"metadata":{"continue":"B"}}`,
	`{"items":[4,5],"metadata":{}}`,
}

func newIterator(t *testing.T) (*list.Iterator, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cont := r.URL.Query().Get("continue")
		idx := 0
		switch cont {
		case "":
			idx = 0
		case "A":
			idx = 1
		case "B":
			idx = 2
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pages[idx]))
	}))

	resolver := credentials.NewResolver(credentials.Credentials{
		ServerURL:   srv.URL,
		BearerToken: "tok",
		Provider:    credentials.ProviderStatic,
	})
	tr, err := transport.New(transport.Config{Resolver: resolver})
	require.NoError(t, err)

	return list.New(tr, list.Config{Endpoint: "/api/v1/widgets"}), srv
}

func toFloats(items []interface{}) []float64 {
	out := make([]float64, len(items))
	for i, v := range items {
		out[i] = v.(float64)
	}
	return out
}

func TestGetConcatenatesAllPages(t *testing.T) {
	it, srv := newIterator(t)
	defer srv.Close()

	result, err := it.Get(context.Background(), 0)
	require.NoError(t, err)

	items, _ := result["items"].([]interface{})
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, toFloats(items))
	assert.Empty(t, result["metadata"].(map[string]interface{}))
}

func TestGetMaxPagesOffByOnePreserved(t *testing.T) {
	it, srv := newIterator(t)
	defer srv.Close()

	result, err := it.Get(context.Background(), 1)
	require.NoError(t, err)

	items, _ := result["items"].([]interface{})
	// maxPages=1 yields pages 1 and 2 (items 1,2,3), not just page 1.
	assert.Equal(t, []float64{1, 2, 3}, toFloats(items))
}

func TestStreamYieldsEveryItemAcrossPages(t *testing.T) {
	it, srv := newIterator(t)
	defer srv.Close()

	seq := it.Stream(context.Background())
	var got []float64
	for {
		v, ok, err := seq.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v.(float64))
	}
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got)
}

func TestGetAndStreamRoundTrip(t *testing.T) {
	it1, srv1 := newIterator(t)
	defer srv1.Close()
	full, err := it1.Get(context.Background(), 0)
	require.NoError(t, err)
	fullItems := toFloats(full["items"].([]interface{}))

	it2, srv2 := newIterator(t)
	defer srv2.Close()
	seq := it2.Stream(context.Background())
	var streamed []float64
	for {
		v, ok, err := seq.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		streamed = append(streamed, v.(float64))
	}

	assert.Equal(t, fullItems, streamed)
}

func TestContinueTokenRoundTripsThroughJSON(t *testing.T) {
	var page map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(pages[0]), &page))
	assert.Equal(t, "A", page["metadata"].(map[string]interface{})["continue"])
}
