package vhs

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/fetch"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/session"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	ListingPath = "/kurse"

	searchFormSelector = "#kw-filter form.kw-filter-form"
	resetMarker        = "__reset__"
)

// filter groups of the search form in the order the site submits them
var filterGroups = []string{
	"katortfilter",
	"kategoriefilter",
	"kattagfilter",
	"katzeitfilter",
	"katdozentfilter",
	"katmonatfilter",
}

// defaults applied to every search, courses that already started and fully
// booked courses are left out
var defaultFilters = [][2]string{
	{"katnichtbegonnen", "1"},
	{"katnichtausgebucht", "1"},
	{"katsuche", "Suchen"},
}

// BuildSearchBody encodes the search form for one location. Every filter group
// other than the location carries only its reset marker. The brackets of the
// field names are left unescaped the way browsers submit the form.
func BuildSearchBody(locationName string) (string, error) {
	locationName = strings.TrimSpace(locationName)
	if locationName == "" {
		return "", fmt.Errorf("%w: empty location name", ErrInvalidArgument)
	}

	var fields []string
	for _, group := range filterGroups {
		if group == "katortfilter" {
			fields = append(fields, group+"[]="+url.QueryEscape(locationName))
		}
		fields = append(fields, group+"[]="+resetMarker)
	}
	for _, f := range defaultFilters {
		fields = append(fields, f[0]+"="+url.QueryEscape(f[1]))
	}
	return strings.Join(fields, "&"), nil
}

// SearchForm is the resolved search form of the listing page.
type SearchForm struct {
	Action *url.URL
	// Listing is the page the form was found on.
	Listing fetch.Page
}

// ResolveSearchForm fetches the listing page and returns the absolute action url
// of its search form.
func (s Scraper) ResolveSearchForm(ctx context.Context, sess *session.Store) (SearchForm, error) {
	ctx, span := tracer.Start(ctx, "ResolveSearchForm")
	defer span.End()

	listingUrl := s.base.JoinPath(ListingPath)
	page, err := s.fetch.Get(ctx, listingUrl, sess)
	if err != nil {
		s.tel.ReportBroken(report_scraper_resolve_search_form, err, listingUrl.String())
		return SearchForm{}, err
	}

	action, err := parseSearchForm(page.Url, page.Body)
	if err != nil {
		s.tel.ReportBroken(report_scraper_resolve_search_form, err, page.Url.String())
		return SearchForm{}, err
	}
	return SearchForm{Action: action, Listing: page}, nil
}

func parseSearchForm(base *url.URL, body []byte) (*url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	form := doc.Find(searchFormSelector).First()
	if form.Length() == 0 {
		return nil, ErrFormNotFound
	}
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return nil, ErrMissingAction
	}

	actionUrl := htmlutil.Resolve(base, action)
	if actionUrl == nil {
		return nil, fmt.Errorf("%w: unresolvable action %q", ErrMissingAction, action)
	}
	return actionUrl, nil
}
