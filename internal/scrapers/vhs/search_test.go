package vhs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSearchBody(t *testing.T) {
	body, err := BuildSearchBody("Anklam")
	require.NoError(t, err)
	require.Equal(t,
		"katortfilter[]=Anklam&katortfilter[]=__reset__"+
			"&kategoriefilter[]=__reset__"+
			"&kattagfilter[]=__reset__"+
			"&katzeitfilter[]=__reset__"+
			"&katdozentfilter[]=__reset__"+
			"&katmonatfilter[]=__reset__"+
			"&katnichtbegonnen=1&katnichtausgebucht=1&katsuche=Suchen",
		body,
	)

	again, err := BuildSearchBody("  Anklam ")
	require.NoError(t, err)
	require.Equal(t, body, again)
}

func TestBuildSearchBodyEscapes(t *testing.T) {
	body, err := BuildSearchBody("Ueckermünde & Umgebung")
	require.NoError(t, err)
	require.Contains(t, body, "katortfilter[]=Ueckerm%C3%BCnde+%26+Umgebung&katortfilter[]=__reset__")
}

func TestBuildSearchBodyInvalid(t *testing.T) {
	for _, name := range []string{"", "   "} {
		_, err := BuildSearchBody(name)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestParseSearchForm(t *testing.T) {
	base, err := url.Parse("https://www.vhs-vg.de/kurse?x=1")
	require.NoError(t, err)

	action, err := parseSearchForm(base, fixture(t, "listing.html"))
	require.NoError(t, err)
	require.Equal(t, "https://www.vhs-vg.de/kurse/suche", action.String())

	_, err = parseSearchForm(base, []byte(`<html><body><form action="/suche"></form></body></html>`))
	require.ErrorIs(t, err, ErrFormNotFound)

	_, err = parseSearchForm(base, []byte(`<div id="kw-filter"><form class="kw-filter-form" method="post"></form></div>`))
	require.ErrorIs(t, err, ErrMissingAction)
}

func TestResolveSearchForm(t *testing.T) {
	site := newFakeSite(t)
	scraper, _ := newTestScraper(t, site.server.URL)

	form, err := scraper.ResolveSearchForm(context.Background(), newTestSession())
	require.NoError(t, err)
	require.Equal(t, site.server.URL+"/kurse/suche", form.Action.String())
	require.Equal(t, 1, site.Hits("GET /kurse"))
}

func TestResolveSearchFormHttpError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Wartungsarbeiten", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	scraper, tel := newTestScraper(t, srv.URL)
	_, err := scraper.ResolveSearchForm(context.Background(), newTestSession())
	require.Error(t, err)
	require.NotEmpty(t, tel.Reports("broken", report_scraper_resolve_search_form))
}
