// internal/analytics/client_test.go
package analytics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/wanderer/internal/config"
)

var testCreds = Credentials{Username: "svc.user", Secret: "s3cr3t", ProjectID: "1234"}

func testParams(t *testing.T) ExportParams {
	t.Helper()
	r, err := ParseDateRange("2023-09-21", "2023-09-22")
	require.NoError(t, err)
	return ExportParams{Range: r}
}

// newTestClient points a Client at handler and counts the requests it serves.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(config.MixpanelConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return client, &hits
}

func TestFetchEvents_Request(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/2.0/export", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "2023-09-21", q.Get("from_date"))
		assert.Equal(t, "2023-09-22", q.Get("to_date"))
		assert.Equal(t, "1234", q.Get("project_id"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, `["Page viewed","Button clicked"]`, q.Get("event"))
		assert.Equal(t, `properties["$distinct_id"] == "abc"`, q.Get("where"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "svc.user", user)
		assert.Equal(t, "s3cr3t", pass)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "gzip, br", r.Header.Get("Accept-Encoding"))

		fmt.Fprintln(w, `{"event":"Page viewed","properties":{"time":1695254400}}`)
		fmt.Fprintln(w, `{"event":"Button clicked","properties":{"time":1695254401}}`)
	})

	params := testParams(t)
	params.Limit = 100
	params.Events = []string{"Page viewed", "Button clicked"}
	params.Where = `properties["$distinct_id"] == "abc"`

	events, err := client.FetchEvents(context.Background(), testCreds, params)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 2, events.Len())
	assert.Equal(t, map[string]int{"Page viewed": 1, "Button clicked": 1}, events.CountByName())
}

func TestFetchEvents_OmitsOptionalParams(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		for _, key := range []string{"limit", "event", "where"} {
			assert.False(t, q.Has(key), key)
		}
	})

	events, err := client.FetchEvents(context.Background(), testCreds, testParams(t))
	require.NoError(t, err)
	assert.Zero(t, events.Len())
}

func TestFetchEvents_SkipsInvalidRecords(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"event":"signup","properties":{}},{"bad":1}]`)
	})

	events, err := client.FetchEvents(context.Background(), testCreds, testParams(t))
	require.NoError(t, err)
	require.Equal(t, 1, events.Len())
	assert.Equal(t, "signup", events.Slice()[0].Name)
	assert.Equal(t, 1, events.Skipped())
}

func TestFetchEvents_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			var authErr *AuthenticationError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
			assert.Contains(t, authErr.Message, "bad credentials")
		}},
		{http.StatusForbidden, func(t *testing.T, err error) {
			var authErr *AuthenticationError
			require.True(t, errors.As(err, &authErr))
		}},
		{http.StatusTooManyRequests, func(t *testing.T, err error) {
			var netErr *NetworkError
			require.True(t, errors.As(err, &netErr))
			assert.Equal(t, http.StatusTooManyRequests, netErr.StatusCode)
			assert.Contains(t, err.Error(), "2023-09-21..2023-09-22")
		}},
		{http.StatusBadGateway, func(t *testing.T, err error) {
			var netErr *NetworkError
			require.True(t, errors.As(err, &netErr))
		}},
		{http.StatusBadRequest, func(t *testing.T, err error) {
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Contains(t, apiErr.Body, "bad credentials")
		}},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error": "bad credentials"}`, tt.status)
			})
			events, err := client.FetchEvents(context.Background(), testCreds, testParams(t))
			require.Error(t, err)
			assert.Nil(t, events)
			tt.check(t, err)
		})
	}
}

func TestFetchEvents_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(config.MixpanelConfig{BaseURL: url, Timeout: 2 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = client.FetchEvents(context.Background(), testCreds, testParams(t))
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %v", err)
	assert.Zero(t, netErr.StatusCode)
}

func TestFetchEvents_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"event":`)
	})
	_, err := client.FetchEvents(context.Background(), testCreds, testParams(t))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "2023-09-21..2023-09-22")
}

func TestFetchEvents_CompressedBodies(t *testing.T) {
	const body = `{"event":"compressed","properties":{"time":1695254400}}` + "\n"

	t.Run("gzip", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, _ = zw.Write([]byte(body))
			assert.NoError(t, zw.Close())
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(buf.Bytes())
		})
		events, err := client.FetchEvents(context.Background(), testCreds, testParams(t))
		require.NoError(t, err)
		require.Equal(t, 1, events.Len())
		assert.Equal(t, "compressed", events.Slice()[0].Name)
	})

	t.Run("br", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			_, _ = bw.Write([]byte(body))
			assert.NoError(t, bw.Close())
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(buf.Bytes())
		})
		events, err := client.FetchEvents(context.Background(), testCreds, testParams(t))
		require.NoError(t, err)
		require.Equal(t, 1, events.Len())
	})

	t.Run("Unsupported", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "zstd")
			_, _ = w.Write([]byte("whatever"))
		})
		_, err := client.FetchEvents(context.Background(), testCreds, testParams(t))
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
	})
}

func TestFetchEvents_ValidatesBeforeIO(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.FetchEvents(context.Background(), Credentials{Username: "u"}, testParams(t))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = client.FetchEvents(context.Background(), testCreds, ExportParams{})
	require.True(t, errors.As(err, &verr))

	assert.Zero(t, hits.Load())
}

func TestFetchEvents_CancelledContext(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchEvents(ctx, testCreds, testParams(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var netErr *NetworkError
	assert.False(t, errors.As(err, &netErr), "cancellation is not a transient failure")
	assert.Zero(t, hits.Load())
}

func TestNewClient_Endpoint(t *testing.T) {
	logger := zaptest.NewLogger(t)

	c, err := NewClient(config.MixpanelConfig{}, logger)
	require.NoError(t, err)
	assert.Equal(t, "https://data-eu.mixpanel.com/api/2.0/export", c.Endpoint())

	c, err = NewClient(config.MixpanelConfig{DataLocation: "data-in"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "https://data-in.mixpanel.com/api/2.0/export", c.Endpoint())

	c, err = NewClient(config.MixpanelConfig{BaseURL: "http://127.0.0.1:9999/"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999/api/2.0/export", c.Endpoint())

	_, err = NewClient(config.MixpanelConfig{DataLocation: "data-mars"}, logger)
	assert.Error(t, err)
	_, err = NewClient(config.MixpanelConfig{BaseURL: "not a url"}, logger)
	assert.Error(t, err)
}
