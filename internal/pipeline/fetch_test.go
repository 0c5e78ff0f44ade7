package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// newVariationServer serves sampleRecordSet for P21917, a non-JSON body for
// GARBAGE and 404 for anything else.
func newVariationServer(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt64(hits, 1)
		}
		if r.URL.Query().Get("format") != "json" {
			http.Error(w, "format required", http.StatusBadRequest)
			return
		}
		switch strings.TrimPrefix(r.URL.Path, "/proteins/api/variation/") {
		case "P21917", "Q00001":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, sampleRecordSet)
		case "GARBAGE":
			io.WriteString(w, "<html>maintenance</html>")
		default:
			http.Error(w, `{"errorMessage":["not found"]}`, http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t,
		"https://www.ebi.ac.uk/proteins/api/variation/P21917?format=json",
		BuildURL("https://www.ebi.ac.uk/proteins/api/variation/{id}?format=json", "P21917"),
	)
	assert.Equal(t, "http://h/v/a%2Fb?format=json", BuildURL("http://h/v/{id}?format=json", "a/b"))
}

func TestFetchOne_SavesDecodableArtifact(t *testing.T) {
	srv := newVariationServer(t, nil)
	p := newTestPipeline(t, srv.URL)

	path, err := p.FetchOne(context.Background(), "P21917")
	require.NoError(t, err)
	assert.Equal(t, p.Artifacts().JSONPath("P21917"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	stored, err := DecodeRecordSet(data)
	require.NoError(t, err)
	want, err := DecodeRecordSet([]byte(sampleRecordSet))
	require.NoError(t, err)
	assert.Equal(t, want, stored)
	assert.Contains(t, string(data), "\n    \"accession\"", "stored with four-space indent")
}

func TestFetchOne_NonOKLeavesExistingArtifact(t *testing.T) {
	srv := newVariationServer(t, nil)
	p := newTestPipeline(t, srv.URL)
	require.NoError(t, p.Artifacts().EnsureOutputDirsExist())

	existing := p.Artifacts().JSONPath("MISSING")
	require.NoError(t, os.WriteFile(existing, []byte(`{"features": []}`), 0644))

	_, err := p.FetchOne(context.Background(), "MISSING")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "MISSING", statusErr.Identifier)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, `{"features": []}`, string(data))
}

func TestFetchOne_NonJSONBody(t *testing.T) {
	srv := newVariationServer(t, nil)
	p := newTestPipeline(t, srv.URL)

	_, err := p.FetchOne(context.Background(), "GARBAGE")
	assert.ErrorIs(t, err, ErrNotRecordSet)
	assert.NoFileExists(t, p.Artifacts().JSONPath("GARBAGE"))
}

func TestFetchOne_TransportError(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})}
	p := newTestPipeline(t, "http://ebi.invalid", WithHTTPClient(client))

	_, err := p.FetchOne(context.Background(), "P21917")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoFileExists(t, p.Artifacts().JSONPath("P21917"))
}

func TestFetchOne_NoCustomHeaders(t *testing.T) {
	var seen *http.Request
	client := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"features": []}`)),
			Header:     make(http.Header),
		}, nil
	})}
	p := newTestPipeline(t, "https://www.ebi.ac.uk", WithHTTPClient(client))

	_, err := p.FetchOne(context.Background(), "P21917")
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, http.MethodGet, seen.Method)
	assert.Equal(t, "/proteins/api/variation/P21917", seen.URL.Path)
	assert.Equal(t, "json", seen.URL.Query().Get("format"))
	assert.Empty(t, seen.Header)
}

func TestFetchAll_ContinuesAfterFailures(t *testing.T) {
	var hits int64
	srv := newVariationServer(t, &hits)
	p := newTestPipeline(t, srv.URL)

	res := p.FetchAll(context.Background(), []string{"P21917", "MISSING", "GARBAGE", "Q00001", "P21917"})

	assert.Equal(t, int64(5), hits)
	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Diagnostics, 5)
	assert.Equal(t, "MISSING", res.Diagnostics[1].Item)
	assert.Contains(t, res.Diagnostics[1].Message, "404")

	assert.FileExists(t, p.Artifacts().JSONPath("P21917"))
	assert.FileExists(t, p.Artifacts().JSONPath("Q00001"))
	assert.NoFileExists(t, p.Artifacts().JSONPath("MISSING"))
}

func TestFetchAll_WorkerPool(t *testing.T) {
	var hits int64
	srv := newVariationServer(t, &hits)
	p := newTestPipeline(t, srv.URL)
	p.cfg.Fetch.Workers = 3

	ids := []string{"P21917", "Q00001", "MISSING", "P21917", "Q00001", "MISSING"}
	res := p.FetchAll(context.Background(), ids)

	assert.Equal(t, int64(len(ids)), hits)
	assert.Equal(t, 4, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
}

func TestFetchAll_StopsWhenCancelled(t *testing.T) {
	var hits int64
	srv := newVariationServer(t, &hits)
	p := newTestPipeline(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.FetchAll(ctx, []string{"P21917", "Q00001"})
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, 0, res.Succeeded)
}
