package vhs

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/fetch"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/session"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const DefaultPageConcurrency = 4

var paginationSelectors = []string{
	".kw-paginator",
	"ul.pagination",
	"nav[aria-label='Seitennavigation']",
}

// Crawl is every result page of one search.
type Crawl struct {
	Pages    []Listing
	Warnings []string
}

// PaginationLinks returns the distinct absolute page links of the pagination
// control of a result page in document order. Links to the current page and
// to any url in exclude are left out.
func PaginationLinks(base *url.URL, body []byte, exclude ...*url.URL) ([]*url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	return paginationLinks(base, doc, exclude), nil
}

func paginationLinks(base *url.URL, doc *goquery.Document, exclude []*url.URL) []*url.URL {
	var region *goquery.Selection
	for _, selector := range paginationSelectors {
		region = doc.Find(selector)
		if region.Length() > 0 {
			break
		}
	}
	if region == nil || region.Length() == 0 {
		return nil
	}

	seen := map[string]bool{}
	for _, u := range exclude {
		if u != nil {
			seen[u.String()] = true
		}
	}

	candidates := region.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return !isCurrentPage(a)
	})
	var links []*url.URL
	for _, anchor := range htmlutil.GetAnchors(base, candidates) {
		key := anchor.Url.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, anchor.Url)
	}
	return links
}

func isCurrentPage(a *goquery.Selection) bool {
	if a.AttrOr("aria-current", "") != "" {
		return true
	}
	if a.HasClass("active") || a.HasClass("current") {
		return true
	}
	parent := a.Parent()
	return parent.HasClass("active") || parent.HasClass("current")
}

type CrawlOptions struct {
	// PageConcurrency bounds the pagination pages fetched at once, it
	// defaults to DefaultPageConcurrency.
	PageConcurrency int
}

// Crawl submits the search for one location and fetches every result page
// under the same session. A failed pagination page becomes a warning, a missing
// search form or search request failure ends the crawl.
func (s Scraper) Crawl(ctx context.Context, sess *session.Store, locationName string, opts CrawlOptions) (Crawl, error) {
	ctx, span := tracer.Start(ctx, "Crawl")
	defer span.End()
	span.SetAttributes(attribute.String("location", locationName))

	body, err := BuildSearchBody(locationName)
	if err != nil {
		return Crawl{}, err
	}

	form, err := s.ResolveSearchForm(ctx, sess)
	if err != nil {
		return Crawl{}, err
	}

	first, err := s.fetch.Do(ctx, fetch.Request{
		Method:  http.MethodPost,
		Url:     form.Action,
		Form:    body,
		Referer: form.Listing.Url.String(),
		Session: sess,
	})
	if err != nil {
		s.tel.ReportBroken(report_scraper_search, err, locationName)
		return Crawl{}, fmt.Errorf("search %q: %w", locationName, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(first.Body))
	if err != nil {
		s.tel.ReportBroken(report_scraper_search, err, locationName)
		return Crawl{}, fmt.Errorf("parse search result: %w", err)
	}

	firstListing := s.parseListingDocument(first.Url, doc)
	result := Crawl{
		Pages:    []Listing{firstListing},
		Warnings: append([]string(nil), firstListing.Warnings...),
	}

	links := paginationLinks(first.Url, doc, []*url.URL{form.Action, first.Url})
	span.SetAttributes(attribute.Int("pages", len(links)+1))
	if len(links) == 0 {
		return result, nil
	}

	limit := opts.PageConcurrency
	if limit <= 0 {
		limit = DefaultPageConcurrency
	}

	pages := make([]*Listing, len(links))
	var warningsLock sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, link := range links {
		group.Go(func() error {
			page, err := s.fetch.Do(groupCtx, fetch.Request{
				Method:  http.MethodGet,
				Url:     link,
				Referer: first.Url.String(),
				Session: sess,
			})
			if err != nil {
				s.tel.ReportWarning(report_scraper_crawl_page, err, link.String())
				warningsLock.Lock()
				result.Warnings = append(result.Warnings, fmt.Sprintf("result page %s: %v", link, err))
				warningsLock.Unlock()
				return nil
			}
			listing, err := s.ParseListing(page.Url, page.Body)
			if err != nil {
				warningsLock.Lock()
				result.Warnings = append(result.Warnings, fmt.Sprintf("result page %s: %v", link, err))
				warningsLock.Unlock()
				return nil
			}
			pages[i] = &listing
			return nil
		})
	}
	// page failures are collected as warnings, the group never fails
	_ = group.Wait()

	for _, listing := range pages {
		if listing == nil {
			continue
		}
		result.Pages = append(result.Pages, *listing)
		result.Warnings = append(result.Warnings, listing.Warnings...)
	}
	return result, nil
}
