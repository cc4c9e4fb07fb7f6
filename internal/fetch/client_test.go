package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	q, err := BuildQuery([]string{"widely", "newly", "widely", " "})
	require.NoError(t, err)
	assert.Equal(t, "baseline_status:widely OR baseline_status:newly", q)

	_, err = BuildQuery(nil)
	assert.ErrorIs(t, err, ErrNoStatuses)

	_, err = BuildQuery([]string{"", "  "})
	assert.ErrorIs(t, err, ErrNoStatuses)
}

func TestFetchFeatures_Paginates(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "baseline-warden/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "baseline_status:widely OR baseline_status:limited", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page_token") {
		case "":
			_, _ = w.Write([]byte(`{"data":[{"feature_id":"grid","name":"Grid","baseline":{"status":"widely","low_date":"2017-10-17"}}],"metadata":{"next_page_token":"p2"}}`))
		case "p2":
			_, _ = w.Write([]byte(`{"data":[{"feature_id":"dialog","name":"Dialog","baseline":{"status":"limited"}}],"metadata":{"total":2}}`))
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("page_token"))
		}
	}))
	defer srv.Close()

	c := NewClient("test", WithWebStatusURL(srv.URL))
	res, err := c.FetchFeatures(context.Background(), []string{"widely", "limited"}, "")
	require.NoError(t, err)

	assert.EqualValues(t, 2, calls.Load())
	require.Len(t, res.Features, 2)
	assert.Equal(t, "grid", res.Features[0].FeatureID)
	assert.Equal(t, "dialog", res.Features[1].FeatureID)
	require.NotNil(t, res.Total)
	assert.Equal(t, 2, *res.Total)
}

func TestFetchFeatures_CustomQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "name:grid", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"data":[],"metadata":{}}`))
	}))
	defer srv.Close()

	c := NewClient("test", WithWebStatusURL(srv.URL))
	res, err := c.FetchFeatures(context.Background(), nil, "name:grid")
	require.NoError(t, err)
	assert.Empty(t, res.Features)
	assert.Nil(t, res.Total)
}

func TestFetchFeatures_NoStatuses(t *testing.T) {
	t.Parallel()
	c := NewClient("test", WithWebStatusURL("http://127.0.0.1:0"))
	_, err := c.FetchFeatures(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrNoStatuses)
}

func TestFetchFeatures_RepeatedToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[],"metadata":{"next_page_token":"same"}}`))
	}))
	defer srv.Close()

	c := NewClient("test", WithWebStatusURL(srv.URL))
	_, err := c.FetchFeatures(context.Background(), []string{"widely"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated")
}

func TestFetch_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test", WithWebStatusURL(srv.URL), WithDatasetURL(srv.URL))
	_, err := c.FetchFeatures(context.Background(), []string{"widely"}, "")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, "rate limited", se.Body)

	_, err = c.FetchDataset(context.Background())
	require.True(t, errors.As(err, &se))
}

func TestFetch_InvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient("test", WithDatasetURL(srv.URL))
	_, err := c.FetchDataset(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestFetch_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"features": map[string]any{}})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("test", WithDatasetURL(srv.URL))
	_, err := c.FetchDataset(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
