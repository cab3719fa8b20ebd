package ipfs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey3/metrics"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestWeb3StoragePut(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "my-survey-questions.json", r.Header.Get("X-Name"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "my-survey-questions.json", header.Filename)

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"question":"What is up?"}]`, string(data))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cid":"bafyquestions"}`))
	})

	p := NewWeb3Storage(server.URL+"/", "secret-token", 5*time.Second, nil)
	cid, err := p.Put(context.Background(), "my-survey-questions.json", []map[string]string{
		{"question": "What is up?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "bafyquestions", cid)
}

func TestWeb3StoragePutFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusForbidden)
		},
		"empty cid": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := newTestServer(t, handler)
			m := metrics.New(prometheus.NewRegistry())
			p := NewWeb3Storage(server.URL, "t", 5*time.Second, m)

			_, err := p.Put(context.Background(), "x.json", map[string]string{})
			assert.Error(t, err)
		})
	}
}

func TestGatewayURL(t *testing.T) {
	g := NewGateway("w3s.link", time.Second, 0, nil)
	assert.Equal(t, "https://w3s.link/ipfs/bafy123/my-survey-metadata.json", g.URL("bafy123", "my-survey-metadata.json"))
}

func testGateway(t *testing.T, retries int, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := newTestServer(t, handler)
	return &Gateway{
		BaseURL:    server.URL,
		Client:     server.Client(),
		Retries:    retries,
		MinBackoff: time.Millisecond,
	}
}

func TestGatewayFetch(t *testing.T) {
	g := testGateway(t, 0, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/bafy1/a-metadata.json", r.URL.Path)
		w.Write([]byte(`{"title":"A survey title"}`))
	})

	var v map[string]any
	require.NoError(t, FetchJSON(context.Background(), g, "bafy1", "a-metadata.json", &v))
	assert.Equal(t, "A survey title", v["title"])
}

func TestGatewayRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	g := testGateway(t, 2, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`"ok"`))
	})

	data, err := g.Fetch(context.Background(), "bafy", "f.json")
	require.NoError(t, err)
	assert.Equal(t, `"ok"`, string(data))
	assert.EqualValues(t, 3, calls.Load())
}

func TestGatewayGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	g := testGateway(t, 2, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := g.Fetch(context.Background(), "bafy", "f.json")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGatewayDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	g := testGateway(t, 3, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := g.Fetch(context.Background(), "bafy", "f.json")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

type countingFetcher struct {
	calls atomic.Int32
	data  []byte
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, cid, filename string) ([]byte, error) {
	f.calls.Add(1)
	return f.data, f.err
}

func TestCachedGateway(t *testing.T) {
	blob, err := json.Marshal(map[string]string{"title": "Cached"})
	require.NoError(t, err)
	next := &countingFetcher{data: blob}

	c, err := OpenCache("", next, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer c.Close()

	for range 3 {
		data, err := c.Fetch(context.Background(), "bafy", "m.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"Cached"}`, string(data))
	}
	assert.EqualValues(t, 1, next.calls.Load())

	_, err = c.Fetch(context.Background(), "bafy", "other.json")
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedGatewayDoesNotCacheFailures(t *testing.T) {
	next := &countingFetcher{err: &StatusError{URL: "u", Status: 500}}
	c, err := OpenCache(t.TempDir(), next, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Fetch(context.Background(), "bafy", "m.json")
	require.Error(t, err)
	_, err = c.Fetch(context.Background(), "bafy", "m.json")
	require.Error(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}
