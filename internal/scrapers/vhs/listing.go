package vhs

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/normalize"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	listingRowSelector = "table.kw-kursuebersicht tbody tr"
	bookableClass      = "kw-status-buchbar"
)

var (
	occupancyRegex     = regexp.MustCompile(`^\s*(\d+)\s+von\s+(\d+)\s*$`)
	reportedTotalRegex = regexp.MustCompile(`(?i)(\d+)\s+(?:kurse?|veranstaltungen|angebote?|treffer)\s+gefunden`)
)

// ParseListing extracts the course rows of one result page.
func (s Scraper) ParseListing(base *url.URL, body []byte) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		s.tel.ReportBroken(report_scraper_parse_listing, err, base.String())
		return Listing{}, fmt.Errorf("parse result page: %w", err)
	}
	return s.parseListingDocument(base, doc), nil
}

func (s Scraper) parseListingDocument(base *url.URL, doc *goquery.Document) Listing {
	listing := Listing{
		Url:           base.String(),
		ReportedTotal: reportedTotal(doc),
	}

	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		s.tel.ReportWarning(report_scraper_parse_listing, msg, base.String())
		listing.Warnings = append(listing.Warnings, msg)
	}

	doc.Find(listingRowSelector).Each(func(i int, row *goquery.Selection) {
		link := row.Find("td.kw-kurs-titel a[href]").First()
		title := htmlutil.CleanText(link.Text())
		detailUrl := htmlutil.Resolve(base, link.AttrOr("href", ""))
		if title == "" || detailUrl == nil {
			return
		}

		course := CourseSummary{
			Id:           htmlutil.CleanText(row.Find("td.kw-kurs-nr").Text()),
			Title:        title,
			DetailUrl:    detailUrl.String(),
			LocationText: htmlutil.CleanText(row.Find("td.kw-kurs-ort").Text()),
			Available:    true,
			Bookable:     row.Find("." + bookableClass).Length() > 0,
		}

		dateText := htmlutil.CleanText(row.Find("td.kw-kurs-beginn").Text())
		parsed, err := normalize.ParseDateTime(dateText)
		if err != nil {
			warn("course %q: %v", course.Key(), err)
		} else {
			course.Start = parsed.Time
			if tr, err := normalize.ParseTimeRange(dateText); err == nil && parsed.HasTime {
				end := normalize.DateOf(parsed.Time).At(tr.End.Hour, tr.End.Minute)
				if end.After(course.Start) {
					course.End = &end
				}
			}
		}

		occupancy := htmlutil.CleanText(row.Find("td.kw-kurs-belegung").Text())
		available, ok := parseOccupancy(occupancy)
		if ok {
			course.Available = available
		} else {
			warn("course %q: unexpected occupancy %q", course.Key(), occupancy)
		}

		listing.Courses = append(listing.Courses, course)
	})

	return listing
}

// parseOccupancy reads "X von Y", a course is available while X < Y.
func parseOccupancy(text string) (bool, bool) {
	match := occupancyRegex.FindStringSubmatch(text)
	if match == nil {
		return false, false
	}
	taken, err := strconv.Atoi(match[1])
	if err != nil {
		return false, false
	}
	capacity, err := strconv.Atoi(match[2])
	if err != nil {
		return false, false
	}
	return taken < capacity, true
}

func reportedTotal(doc *goquery.Document) int {
	match := reportedTotalRegex.FindStringSubmatch(htmlutil.CleanText(doc.Find(".kw-ergebnis-anzahl, .kw-result-count").Text()))
	if match == nil {
		return -1
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return -1
	}
	return n
}
