package courses

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/normalize"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/scrapers/vhs"
)

func fixture(t testing.TB, name string) []byte {
	content, err := os.ReadFile(filepath.Join("..", "scrapers", "vhs", "testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return content
}

type fakeSite struct {
	server   *httptest.Server
	mutex    sync.Mutex
	hits     map[string]int
	reported string
}

func newFakeSite(t *testing.T) *fakeSite {
	pages := map[string]string{"2": "results_page2.html", "3": "results_page3.html"}
	details := map[string]string{
		"252-A1001": "detail.html",
		"252-A1002": "detail_structured.html",
		"252-A4200": "detail_plain.html",
	}

	site := &fakeSite{hits: map[string]int{}}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mutex.Lock()
		site.hits[r.Method+" "+r.URL.Path]++
		reported := site.reported
		site.mutex.Unlock()

		switch {
		case r.URL.Path == "/kurse":
			w.Write(fixture(t, "listing.html"))
		case r.Method == http.MethodPost && r.URL.Path == "/kurse/suche":
			w.Header().Add("Set-Cookie", "PHPSESSID=s1; Path=/")
			body := fixture(t, "results_page1.html")
			if reported != "" {
				body = bytes.ReplaceAll(body, []byte("5 Kurse gefunden"), []byte(reported))
			}
			w.Write(body)
		case r.URL.Path == "/kurse/suche":
			name, ok := pages[r.URL.Query().Get("seite")]
			if !ok || !strings.Contains(r.Header.Get("cookie"), "PHPSESSID=s1") {
				http.NotFound(w, r)
				return
			}
			w.Write(fixture(t, name))
		case strings.HasPrefix(r.URL.Path, "/kurse/kurs/"):
			name, ok := details[strings.TrimPrefix(r.URL.Path, "/kurse/kurs/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(fixture(t, name))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(site.server.Close)
	return site
}

func (f *fakeSite) Hits(key string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.hits[key]
}

func newTestService(t *testing.T, baseUrl string) (Service, *telemetry.Recorder) {
	config := DefaultConfig()
	config.BaseUrl = baseUrl
	config.RequestsPerSecond = 0
	config.TimeoutMs = 5000

	tel := telemetry.NewRecorder()
	service, err := NewService(config, chrono.NewStandardTime(), tel)
	require.NoError(t, err)
	return service, tel
}

func courseIds(courses []Course) []string {
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.Id
	}
	return ids
}

func TestCourses(t *testing.T) {
	site := newFakeSite(t)
	service, _ := newTestService(t, site.server.URL)

	result, err := service.Courses(context.Background(), Request{Location: "anklam"})
	require.NoError(t, err)
	require.Equal(t, "Anklam", result.Location.Name)
	require.Equal(t, 5, result.Total)
	require.ElementsMatch(t, []string{"252-A1001", "252-A1002", "252-A3010", "252-A4100", "252-A4200"}, courseIds(result.Courses))
	require.Nil(t, result.Stats)

	// page 1 comes first, its rows keep their order
	require.Equal(t, []string{"252-A1001", "252-A1002"}, courseIds(result.Courses[:2]))
	// the copy on page 2 links relative, the first seen row is kept
	require.Equal(t, "https://www.vhs-vg.de/kurse/kurs/252-A1002", result.Courses[1].DetailUrl)

	require.Len(t, result.Warnings, 1)
	require.Zero(t, site.Hits("GET /kurse/kurs/252-A1001"))
}

func TestCoursesCountMismatch(t *testing.T) {
	site := newFakeSite(t)
	site.reported = "7 Kurse gefunden"
	service, tel := newTestService(t, site.server.URL)

	result, err := service.Courses(context.Background(), Request{Location: "Anklam"})
	require.NoError(t, err)
	require.Contains(t, result.Warnings, "site reports 7 courses, found 5")
	require.Len(t, tel.Reports("warning", report_service_courses), 1)
}

func TestCoursesWithDetails(t *testing.T) {
	site := newFakeSite(t)
	service, _ := newTestService(t, site.server.URL)

	result, err := service.Courses(context.Background(), Request{
		Location:       "Anklam",
		IncludeDetails: true,
		BatchSize:      2,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Stats)
	require.Equal(t, 5, result.Stats.Attempted)
	require.Equal(t, 3, result.Stats.Succeeded)
	require.Equal(t, 2, result.Stats.Failed)
	require.Equal(t, result.Stats.Attempted, result.Stats.Succeeded+result.Stats.Failed)

	byId := map[string]Course{}
	for _, c := range result.Courses {
		byId[c.Id] = c
	}

	english := byId["252-A1001"]
	require.True(t, english.HasDetails)
	require.Equal(t, "VHS-Kurs: Englisch A1 für Einsteiger", english.Title)
	require.Len(t, english.Schedule, 3)
	require.Equal(t, 5, english.NumberOfDates)
	require.NotNil(t, english.Location)
	require.Equal(t, normalize.AddressGreifswald, english.Location.Address)

	rhetorik := byId["252-A4200"]
	require.Equal(t, normalize.AddressAnklam, rhetorik.Location.Address)

	// failed detail pages keep the listing row
	yoga := byId["252-A3010"]
	require.False(t, yoga.HasDetails)
	require.Equal(t, "Yoga am Abend", yoga.Title)

	failures := 0
	for _, w := range result.Warnings {
		if strings.Contains(w, "details:") {
			failures++
		}
	}
	require.Equal(t, 2, failures)
	require.Equal(t, 1, site.Hits("GET /kurse/kurs/252-A1001"))
}

func TestCoursesUnknownLocation(t *testing.T) {
	site := newFakeSite(t)
	service, _ := newTestService(t, site.server.URL)

	_, err := service.Courses(context.Background(), Request{Location: "Anklm"})
	require.ErrorIs(t, err, vhs.ErrLocationNotFound)
	require.Zero(t, site.Hits("GET /kurse"))
}

func TestCoursesFormNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>Wartungsarbeiten</p></body></html>"))
	}))
	defer srv.Close()

	service, tel := newTestService(t, srv.URL)
	_, err := service.Courses(context.Background(), Request{Location: "Pasewalk"})
	require.ErrorIs(t, err, vhs.ErrFormNotFound)
	require.NotEmpty(t, tel.Reports("broken", report_service_courses))
}

func TestDetails(t *testing.T) {
	site := newFakeSite(t)
	service, _ := newTestService(t, site.server.URL)

	details, _, err := service.Details(context.Background(), "252-A4200", "Pasewalk")
	require.NoError(t, err)
	require.Equal(t, normalize.AddressPasewalk, details.Location.Address)

	_, _, err = service.Details(context.Background(), "252-A4200", "Rostock")
	require.ErrorIs(t, err, vhs.ErrLocationNotFound)
}

func TestNextBatchSize(t *testing.T) {
	cases := []struct {
		name      string
		size      int
		errorRate float64
		latency   time.Duration
		want      int
	}{
		{name: "errors shrink", size: 8, errorRate: 0.25, latency: 100 * time.Millisecond, want: 6},
		{name: "slow shrinks", size: 8, latency: 1500 * time.Millisecond, want: 6},
		{name: "never below one", size: 1, errorRate: 1, want: 1},
		{name: "fast grows", size: 6, latency: 200 * time.Millisecond, want: 7},
		{name: "grows by a tenth", size: 12, latency: 200 * time.Millisecond, want: 13},
		{name: "capped", size: 16, latency: 200 * time.Millisecond, want: 16},
		{name: "some errors hold", size: 6, errorRate: 0.1, latency: 200 * time.Millisecond, want: 6},
		{name: "medium latency holds", size: 6, latency: 800 * time.Millisecond, want: 6},
		{name: "exactly a fifth holds", size: 10, errorRate: 0.2, latency: 800 * time.Millisecond, want: 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, NextBatchSize(c.size, 16, c.errorRate, c.latency))
		})
	}
}
