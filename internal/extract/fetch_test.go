package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gugu/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestFetcher(t testing.TB, tel telemetry.API) *Fetcher {
	fetcher, err := NewFetcher(FetcherOptions{AttemptTimeout: 2 * time.Second}, tel)
	require.NoError(t, err)
	return fetcher
}

func decodeRows(body []byte) (Page, error) {
	return Page{Rows: [][]string{{string(body)}}}, nil
}

func TestFetchExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	recorder := &telemetry.Recorder{}
	fetcher := newTestFetcher(t, recorder)

	_, err := fetcher.Fetch(context.Background(), server.URL, decodeRows, 3, time.Millisecond)
	require.ErrorIs(t, err, ErrNetworkExhausted)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.Equal(t, server.URL, exhausted.URL)
	require.ErrorContains(t, exhausted.Last, "500")

	require.EqualValues(t, 3, hits.Load())
	require.Equal(t, []string{
		"extract: " + report_fetch_attempt,
		"extract: " + report_fetch_attempt,
		"extract: " + report_fetch_attempt,
	}, recorder.IDs("warning"))
	require.True(t, recorder.Has("broken", "extract: "+report_fetch_exhausted))
}

func TestFetchSucceedsOnThirdAttempt(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, nil)
	page, err := fetcher.Fetch(context.Background(), server.URL, decodeRows, 3, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"ok"}}, page.Rows)
	require.EqualValues(t, 3, hits.Load())
}

func TestFetchStopsAtFirstSuccess(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL, decodeRows, 5, time.Millisecond)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())
}

func TestFetchRetriesDecodeErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "<garbage")
	}))
	defer server.Close()

	decode := func(body []byte) (Page, error) {
		return Page{}, malformed("cannot read %q", body)
	}

	fetcher := newTestFetcher(t, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL, decode, 2, time.Millisecond)
	require.ErrorIs(t, err, ErrNetworkExhausted)
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.EqualValues(t, 2, hits.Load())
}

func TestFetchDoesNotRetrySchemaMismatch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "a,b,c")
	}))
	defer server.Close()

	decode := func(body []byte) (Page, error) {
		return Page{}, fmt.Errorf("%w: 3 cells for 2 columns", ErrSchemaMismatch)
	}

	fetcher := newTestFetcher(t, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL, decode, 3, time.Millisecond)
	require.ErrorIs(t, err, ErrSchemaMismatch)
	require.NotErrorIs(t, err, ErrNetworkExhausted)
	require.EqualValues(t, 1, hits.Load())
}

func TestFetchRetryBelowOne(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, nil)
	_, err := fetcher.Fetch(context.Background(), server.URL, decodeRows, 0, time.Millisecond)
	require.ErrorIs(t, err, ErrNetworkExhausted)
	require.EqualValues(t, 1, hits.Load())
}

func TestFetchPausesBetweenAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, nil)
	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), server.URL, decodeRows, 3, 50*time.Millisecond)
	require.Error(t, err)
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestFetchCancelledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			time.AfterFunc(50*time.Millisecond, cancel)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	recorder := &telemetry.Recorder{}
	fetcher := newTestFetcher(t, recorder)

	start := time.Now()
	_, err := fetcher.Fetch(ctx, server.URL, decodeRows, 3, 10*time.Second)
	require.Less(t, time.Since(start), 5*time.Second)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 1, exhausted.Attempts)
	require.ErrorIs(t, err, ErrNetworkExhausted)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorContains(t, exhausted.Last, "500")

	require.EqualValues(t, 1, hits.Load())
	require.True(t, recorder.Has("broken", "extract: "+report_fetch_exhausted))
}
