package vhs

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/fetch"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/normalize"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/session"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/htmlutil"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// TitlePrefix is put in front of every course title.
const TitlePrefix = "VHS-Kurs: "

const (
	scheduleRowSelector    = "table.kw-termine tbody tr"
	descriptionSelector    = "div.kw-kurs-beschreibung"
	detailHeadingSelector  = "h1"
	detailStatusSelector   = ".kw-kurs-status"
	scheduleCellSeparator  = " • "
	maxDescriptionFallback = 3
)

// paragraph containers tried in order when the page has no description block
var descriptionFallbacks = []string{
	"article .kw-kurs-detail p",
	"#content article p",
	"main article p",
	"main p",
}

// labels of the course fact sheet, compared after folding
var (
	startLabels    = []string{"beginn", "kursbeginn", "termin", "startdatum"}
	durationLabels = []string{"dauer", "kursdauer", "zeitraum"}
	countLabels    = []string{"anzahl termine", "termine", "anzahl der termine", "kurstage"}
	venueLabels    = []string{"kursort", "ort", "veranstaltungsort"}
	roomLabels     = []string{"raum", "kursraum"}
)

// FetchDetails fetches and parses the detail page of one course. A hint of
// the site the course belongs to resolves bare "VHS" venues.
func (s Scraper) FetchDetails(ctx context.Context, sess *session.Store, courseId, locationId string) (CourseDetails, []string, error) {
	ctx, span := tracer.Start(ctx, "FetchDetails")
	defer span.End()
	span.SetAttributes(attribute.String("course.id", courseId))

	courseId = strings.TrimSpace(courseId)
	if courseId == "" {
		return CourseDetails{}, nil, fmt.Errorf("%w: empty course id", ErrInvalidArgument)
	}

	link := s.DetailUrl(courseId)
	page, err := s.fetch.Do(ctx, fetch.Request{
		Method:    http.MethodGet,
		Url:       link,
		Session:   sess,
		Cacheable: true,
	})
	if err != nil {
		s.tel.ReportBroken(report_scraper_fetch_details, err, courseId)
		return CourseDetails{}, nil, fmt.Errorf("course %s: %w", courseId, err)
	}

	details, warnings, err := s.ParseDetails(page.Url, courseId, locationId, page.Body)
	if err != nil {
		return CourseDetails{}, nil, fmt.Errorf("course %s: %w", courseId, err)
	}
	return details, warnings, nil
}

// labeledFields collects the label/value pairs of definition lists and two
// column tables, keyed by the folded label without a trailing colon.
func labeledFields(doc *goquery.Document) map[string]string {
	fields := map[string]string{}
	add := func(label, value string) {
		key := strings.TrimRight(textutil.Fold(label), ": ")
		value = htmlutil.CleanText(value)
		if key == "" || value == "" {
			return
		}
		if _, ok := fields[key]; !ok {
			fields[key] = value
		}
	}

	doc.Find("dl dt").Each(func(_ int, dt *goquery.Selection) {
		add(dt.Text(), dt.NextFiltered("dd").Text())
	})
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest("table.kw-termine").Length() > 0 {
			return
		}
		th := tr.Find("th").First()
		td := tr.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return
		}
		add(th.Text(), td.Text())
	})
	return fields
}

func lookup(fields map[string]string, labels []string) string {
	for _, label := range labels {
		if value, ok := fields[label]; ok {
			return value
		}
	}
	return ""
}

// startCandidate is one place a start instant may be read from.
type startCandidate struct {
	source string
	parsed normalize.Parsed
	ok     bool
}

// pickStart returns the start instant. A candidate carrying a time of day
// beats one that only names a date; among equals, the earlier candidate wins.
// Candidates are ordered schedule, label, structured data.
func pickStart(candidates []startCandidate) (startCandidate, bool) {
	rules := []func(c startCandidate) bool{
		func(c startCandidate) bool { return c.ok && c.parsed.HasTime },
		func(c startCandidate) bool { return c.ok },
	}
	for _, rule := range rules {
		for _, c := range candidates {
			if rule(c) {
				return c, true
			}
		}
	}
	return startCandidate{}, false
}

// ApplyTitlePrefix puts TitlePrefix in front of title unless it already starts
// with it. Blank titles stay blank.
func ApplyTitlePrefix(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(title), strings.ToLower(TitlePrefix)) {
		return title
	}
	return TitlePrefix + title
}

func (s Scraper) parseSchedule(doc *goquery.Document, courseId string, warn func(string, ...any)) []CourseSession {
	var schedule []CourseSession
	doc.Find(scheduleRowSelector).Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			text := htmlutil.CleanText(td.Text())
			if text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) == 0 {
			return
		}
		row := strings.Join(cells, scheduleCellSeparator)
		entry, err := normalize.ParseScheduleRow(row)
		if err != nil {
			warn("course %s: skipped schedule row: %v", courseId, err)
			return
		}
		schedule = append(schedule, CourseSession{
			Date:     entry.Date,
			Start:    entry.Start,
			End:      entry.End,
			Location: entry.Location,
			Room:     entry.Room,
		})
	})
	return schedule
}

func description(doc *goquery.Document, structured structuredCourse) string {
	if text := htmlutil.PlainText(doc.Find(descriptionSelector).First()); text != "" {
		return text
	}
	if structured.Description != "" {
		return structured.Description
	}
	for _, selector := range descriptionFallbacks {
		var paragraphs []string
		doc.Find(selector).EachWithBreak(func(_ int, p *goquery.Selection) bool {
			text := htmlutil.CleanText(p.Text())
			if text != "" {
				paragraphs = append(paragraphs, text)
			}
			return len(paragraphs) < maxDescriptionFallback
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func numberOfDates(fields map[string]string, durationText string, schedule []CourseSession) int {
	if stated := lookup(fields, countLabels); stated != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(stated)); err == nil && n >= 0 {
			return n
		}
		if n, ok := normalize.ParseSessionCount(stated); ok {
			return n
		}
	}
	if n, ok := normalize.ParseSessionCount(durationText); ok {
		return n
	}
	return len(schedule)
}

// ParseDetails parses a course detail page. Only a document that cannot be
// read at all is an error, anything missing from it is left empty.
func (s Scraper) ParseDetails(base *url.URL, courseId, locationId string, body []byte) (CourseDetails, []string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		s.tel.ReportBroken(report_scraper_parse_details, err, courseId)
		return CourseDetails{}, nil, fmt.Errorf("parse detail page: %w", err)
	}

	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		s.tel.ReportWarning(report_scraper_parse_details, msg, base.String())
		warnings = append(warnings, msg)
	}

	structured, hasStructured, err := parseStructuredData(doc)
	if err != nil {
		warn("course %s: %v", courseId, err)
	}
	fields := labeledFields(doc)
	schedule := s.parseSchedule(doc, courseId, warn)

	details := CourseDetails{
		Id:        courseId,
		Schedule:  schedule,
		Bookable:  doc.Find(detailStatusSelector+" ."+bookableClass).Length() > 0,
		HasStatus: doc.Find(detailStatusSelector).Length() > 0,
	}

	title := htmlutil.CleanText(doc.Find(detailHeadingSelector).First().Text())
	if title == "" {
		title = structured.Name
	}
	details.Title = ApplyTitlePrefix(title)
	details.Description = description(doc, structured)

	details.DurationText = lookup(fields, durationLabels)
	if details.DurationText == "" {
		details.DurationText = structured.Duration
	}

	var candidates []startCandidate
	if len(schedule) > 0 {
		first := schedule[0]
		candidates = append(candidates, startCandidate{
			source: "schedule",
			parsed: normalize.Parsed{Time: first.Start, HasTime: true},
			ok:     true,
		})
	}
	if label := lookup(fields, startLabels); label != "" {
		parsed, err := normalize.ParseDateTime(label)
		candidates = append(candidates, startCandidate{source: "label", parsed: parsed, ok: err == nil})
	}
	if hasStructured && structured.StartDate != "" {
		parsed, err := normalize.ParseDateTime(structured.StartDate)
		candidates = append(candidates, startCandidate{source: "structured-data", parsed: parsed, ok: err == nil})
	}
	if start, ok := pickStart(candidates); ok {
		details.Start = start.parsed.Time
		s.tel.ReportDebug("picked start", courseId, start.source)
	} else {
		warn("course %s: no start date", courseId)
	}

	if len(schedule) > 0 && !details.Start.IsZero() {
		end := details.Start.Add(schedule[0].End.Sub(schedule[0].Start))
		details.End = &end
	}

	details.NumberOfDates = numberOfDates(fields, details.DurationText, schedule)

	details.Location.Name = lookup(fields, venueLabels)
	if details.Location.Name == "" {
		details.Location.Name = structured.LocationName
	}
	details.Location.Room = lookup(fields, roomLabels)
	if len(schedule) > 0 {
		if details.Location.Name == "" {
			details.Location.Name = schedule[0].Location
		}
		if details.Location.Room == "" {
			details.Location.Room = schedule[0].Room
		}
	}
	details.Location.Address = structured.Address
	if details.Location.Address == "" {
		details.Location.Address = normalize.Address(details.Location.Name, locationId)
	}

	return details, warnings, nil
}
