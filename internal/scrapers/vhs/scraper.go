// Package vhs scrapes the course search of the Volkshochschule
// Vorpommern-Greifswald.
package vhs

import (
	"fmt"
	"net/url"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/assert"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/fetch"

	"go.opentelemetry.io/otel"
)

const DefaultBaseUrl = "https://www.vhs-vg.de"

const (
	report_scraper_resolve_search_form = "scraper.resolve-search-form"
	report_scraper_search              = "scraper.search"
	report_scraper_crawl_page          = "scraper.crawl-page"
	report_scraper_parse_listing       = "scraper.parse-listing"
	report_scraper_fetch_details       = "scraper.fetch-details"
	report_scraper_parse_details       = "scraper.parse-details"
)

var tracer = otel.Tracer("vhs/scrapers/vhs")

// Scraper issues every request through one fetch client, the caller decides
// which session each request runs under.
type Scraper struct {
	base  *url.URL
	fetch *fetch.Client
	tel   telemetry.API
}

func NewScraper(baseUrl string, client *fetch.Client, tel telemetry.API) (Scraper, error) {
	assert.NotNil(client)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("vhs_scraper", tel)

	base, err := url.Parse(baseUrl)
	if err != nil {
		return Scraper{}, fmt.Errorf("%w: base url %q: %w", ErrInvalidArgument, baseUrl, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return Scraper{}, fmt.Errorf("%w: base url %q is not absolute", ErrInvalidArgument, baseUrl)
	}

	return Scraper{
		base:  base,
		fetch: client,
		tel:   tel,
	}, nil
}

func (s Scraper) BaseUrl() *url.URL {
	return s.base
}

// DetailUrl is the canonical url of a course detail page.
func (s Scraper) DetailUrl(courseId string) *url.URL {
	return s.base.JoinPath("kurse", "kurs", courseId)
}
