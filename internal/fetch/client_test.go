package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/session"
	"github.com/stretchr/testify/require"
)

func mustUrl(t testing.TB, raw string) *url.URL {
	link, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return link
}

func newTestClient(opts Options) (*Client, *telemetry.Recorder) {
	tel := telemetry.NewRecorder()
	return NewClient(opts, tel), tel
}

func newTestSession() *session.Store {
	return session.NewStore(0, chrono.NewStandardTime(), telemetry.NewRecorder())
}

func TestSessionCookiesRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			w.Header().Add("Set-Cookie", "PHPSESSID=abc123; Path=/; HttpOnly")
			w.Header().Add("Set-Cookie", "lang=de; Path=/")
			io.WriteString(w, "ok")
		case "/next":
			io.WriteString(w, r.Header.Get("Cookie"))
		}
	}))
	defer srv.Close()

	client, _ := newTestClient(Options{Timeout: time.Second})
	sess := newTestSession()

	_, err := client.Get(context.Background(), mustUrl(t, srv.URL+"/start"), sess)
	require.NoError(t, err)

	page, err := client.Get(context.Background(), mustUrl(t, srv.URL+"/next"), sess)
	require.NoError(t, err)
	require.Equal(t, "PHPSESSID=abc123; lang=de", string(page.Body))

	page, err = client.Get(context.Background(), mustUrl(t, srv.URL+"/next"), newTestSession())
	require.NoError(t, err)
	require.Equal(t, "", string(page.Body))
}

func TestPostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		io.WriteString(w, r.Method+" "+r.Header.Get("Content-Type")+" "+string(body))
	}))
	defer srv.Close()

	client, _ := newTestClient(Options{Timeout: time.Second})
	page, err := client.PostForm(context.Background(), mustUrl(t, srv.URL), "a[]=1&b=2", newTestSession())
	require.NoError(t, err)
	require.Equal(t, "POST application/x-www-form-urlencoded a[]=1&b=2", string(page.Body))
}

func TestHttpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "  "+strings.Repeat("x", 1000))
	}))
	defer srv.Close()

	client, tel := newTestClient(Options{Timeout: time.Second})
	_, err := client.Get(context.Background(), mustUrl(t, srv.URL), nil)

	var httpErr *HttpError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	require.Equal(t, strings.Repeat("x", snippetLength)+"...", httpErr.Snippet)
	require.Len(t, tel.Reports("broken", report_client_do), 1)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)

	client, _ := newTestClient(Options{Timeout: 50 * time.Millisecond})
	_, err := client.Get(context.Background(), mustUrl(t, srv.URL), nil)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCache(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		io.WriteString(w, "detail")
	}))
	defer srv.Close()

	client, _ := newTestClient(Options{Timeout: time.Second, CacheSize: 8, CacheTTL: time.Minute})
	link := mustUrl(t, srv.URL+"/kurs/1")

	first, err := client.Do(context.Background(), Request{Url: link, Cacheable: true})
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := client.Do(context.Background(), Request{Url: link, Cacheable: true})
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, "detail", string(second.Body))

	_, err = client.Get(context.Background(), link, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), atomic.LoadInt64(&hits))
}

func TestRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client, _ := newTestClient(Options{Timeout: time.Second, RequestsPerSecond: 20})
	start := time.Now()
	for range 25 {
		_, err := client.Get(context.Background(), mustUrl(t, srv.URL), nil)
		require.NoError(t, err)
	}
	// a burst of 20 followed by 5 requests at 20/s
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
