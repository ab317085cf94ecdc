package vhs

import (
	"embed"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/fetch"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/session"
)

//go:embed testdata/*.html
var testdata embed.FS

func fixture(t testing.TB, name string) []byte {
	content, err := testdata.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	return content
}

// fakeSite serves the fixtures the way the course site does, result pages
// beyond the first require the session cookie issued by the search.
type fakeSite struct {
	t      testing.TB
	server *httptest.Server

	mutex    sync.Mutex
	hits     map[string]int
	bodies   []string
	failPage string
	pages    map[string]string
	details  map[string]string
}

func newFakeSite(t testing.TB) *fakeSite {
	site := &fakeSite{
		t:    t,
		hits: map[string]int{},
		pages: map[string]string{
			"2": "results_page2.html",
			"3": "results_page3.html",
		},
		details: map[string]string{
			"252-G1001": "detail.html",
			"252-A1001": "detail.html",
			"252-A1002": "detail_structured.html",
			"252-A4200": "detail_plain.html",
		},
	}
	site.server = httptest.NewServer(http.HandlerFunc(site.serve))
	t.Cleanup(site.server.Close)
	return site
}

func (f *fakeSite) Hits(key string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.hits[key]
}

func (f *fakeSite) Bodies() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.bodies...)
}

func (f *fakeSite) serve(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	key := r.Method + " " + r.URL.Path
	if page := r.URL.Query().Get("seite"); page != "" {
		key += "?seite=" + page
	}
	f.hits[key]++
	failPage := f.failPage
	f.mutex.Unlock()

	w.Header().Set("content-type", "text/html; charset=utf-8")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/kurse":
		w.Write(fixture(f.t, "listing.html"))

	case r.Method == http.MethodPost && r.URL.Path == "/kurse/suche":
		body, _ := io.ReadAll(r.Body)
		f.mutex.Lock()
		f.bodies = append(f.bodies, string(body))
		f.mutex.Unlock()
		w.Header().Add("Set-Cookie", "PHPSESSID=search42; Path=/; HttpOnly")
		w.Write(fixture(f.t, "results_page1.html"))

	case r.Method == http.MethodGet && r.URL.Path == "/kurse/suche":
		if !strings.Contains(r.Header.Get("cookie"), "PHPSESSID=search42") {
			http.Error(w, "Sitzung abgelaufen", http.StatusForbidden)
			return
		}
		page := r.URL.Query().Get("seite")
		if failPage != "" && page == failPage {
			http.Error(w, "Interner Fehler", http.StatusInternalServerError)
			return
		}
		name, ok := f.pages[page]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(fixture(f.t, name))

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/kurse/kurs/"):
		name, ok := f.details[strings.TrimPrefix(r.URL.Path, "/kurse/kurs/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(fixture(f.t, name))

	default:
		http.NotFound(w, r)
	}
}

func newTestScraper(t testing.TB, baseUrl string) (Scraper, *telemetry.Recorder) {
	tel := telemetry.NewRecorder()
	client := fetch.NewClient(fetch.Options{
		Timeout:   5 * time.Second,
		CacheSize: 16,
		CacheTTL:  time.Minute,
	}, tel)
	scraper, err := NewScraper(baseUrl, client, tel)
	if err != nil {
		t.Fatal(err)
	}
	return scraper, tel
}

func newTestSession() *session.Store {
	return session.NewStore(time.Hour, chrono.NewStandardTime(), telemetry.NewRecorder())
}
