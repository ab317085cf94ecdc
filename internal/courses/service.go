// Package courses assembles the courses of one location from the result pages
// and, optionally, the detail pages of the course site.
package courses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/batch"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/assert"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/fetch"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/scrapers/vhs"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	report_service_courses      = "service.courses"
	report_service_details      = "service.details"
	report_service_batch_policy = "service.batch-policy"
)

var tracer = otel.Tracer("vhs/courses")

type Service struct {
	scraper vhs.Scraper
	config  Config
	time    chrono.TimeAPI
	tel     telemetry.API
}

func NewService(config Config, time chrono.TimeAPI, tel telemetry.API) (Service, error) {
	assert.NotNil(time)
	assert.NotNil(tel)

	client := fetch.NewClient(config.FetchOptions(), tel)
	scraper, err := vhs.NewScraper(config.BaseUrl, client, tel)
	if err != nil {
		return Service{}, err
	}

	return Service{
		scraper: scraper,
		config:  config,
		time:    time,
		tel:     telemetry.NewScopedAPI("courses", tel),
	}, nil
}

func (s Service) Scraper() vhs.Scraper {
	return s.scraper
}

type Request struct {
	// Location is a location id or display name.
	Location       string
	IncludeDetails bool
	// BatchSize overrides the configured initial detail batch size.
	BatchSize int
}

type Result struct {
	Location vhs.Location `json:"location"`
	Courses  []Course     `json:"courses"`
	Total    int          `json:"total"`
	Warnings []string     `json:"warnings,omitempty"`
	// Stats is only set when details were requested.
	Stats *batch.Stats `json:"stats,omitempty"`
}

func (s Service) newPool() session.Pool {
	size := s.config.SessionPoolSize
	if size <= 0 {
		size = 1
	}
	return session.NewPool(size, s.config.SessionIdleTimeout(), s.time, s.tel)
}

// merge flattens the result pages into courses, the first row seen for a key
// wins.
func merge(pages []vhs.Listing) []Course {
	seen := map[string]bool{}
	var out []Course
	for _, page := range pages {
		for _, summary := range page.Courses {
			key := summary.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, fromSummary(summary))
		}
	}
	return out
}

func reportedTotal(pages []vhs.Listing) int {
	for _, page := range pages {
		if page.ReportedTotal >= 0 {
			return page.ReportedTotal
		}
	}
	return -1
}

// Courses crawls the search results of one location. A search form that
// cannot be found or an unknown location fails the call, everything else
// degrades into warnings.
func (s Service) Courses(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "Courses")
	defer span.End()

	location, err := vhs.FindLocation(req.Location)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("location", location.Id))

	pool := s.newPool()
	defer pool.Reset()

	crawl, err := s.scraper.Crawl(
		ctx,
		pool.Pick("search:"+location.Id),
		location.Name,
		vhs.CrawlOptions{PageConcurrency: s.config.PageConcurrency},
	)
	if err != nil {
		s.tel.ReportBroken(report_service_courses, err, location.Id)
		return Result{}, err
	}

	result := Result{
		Location: location,
		Courses:  merge(crawl.Pages),
		Warnings: crawl.Warnings,
	}
	if reported := reportedTotal(crawl.Pages); reported >= 0 && reported != len(result.Courses) {
		msg := fmt.Sprintf("site reports %d courses, found %d", reported, len(result.Courses))
		s.tel.ReportWarning(report_service_courses, msg, location.Id)
		result.Warnings = append(result.Warnings, msg)
	}

	if req.IncludeDetails {
		stats, warnings := s.enrich(ctx, pool, location, result.Courses, req.BatchSize)
		result.Stats = &stats
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Total = len(result.Courses)
	s.tel.ReportCount(report_service_courses, int64(result.Total))
	return result, nil
}

type detailResult struct {
	details  vhs.CourseDetails
	warnings []string
}

// enrich fetches the detail page of every course with an id in adaptive
// batches, spreading the courses over the session pool. courses is updated in
// place with enriched copies.
func (s Service) enrich(ctx context.Context, pool session.Pool, location vhs.Location, courses []Course, batchSize int) (batch.Stats, []string) {
	var warnings []string
	var items []int
	for i, c := range courses {
		if c.Id == "" {
			warnings = append(warnings, fmt.Sprintf("course %q has no id, details skipped", c.DetailUrl))
			continue
		}
		items = append(items, i)
	}

	if batchSize <= 0 {
		batchSize = s.config.BatchSize
	}
	ceiling := s.config.ConcurrencyCeiling

	outcomes, stats := batch.Run(
		ctx,
		items,
		func(ctx context.Context, i int) (detailResult, error) {
			id := courses[i].Id
			details, detailWarnings, err := s.scraper.FetchDetails(ctx, pool.Pick(id), id, location.Id)
			return detailResult{details: details, warnings: detailWarnings}, err
		},
		batch.Options[int, detailResult]{
			InitialBatchSize:   batchSize,
			ConcurrencyCeiling: ceiling,
			Key:                func(i int) string { return courses[i].Id },
			OnBatchComplete: func(report batch.Report[int, detailResult]) int {
				next := NextBatchSize(report.Size, ceiling, report.ErrorRate(), report.MeanLatency())
				s.tel.ReportDebug(
					report_service_batch_policy,
					report.Index, report.Size, next,
					report.ErrorRate(), report.MeanLatency().Round(time.Millisecond),
				)
				return next
			},
		},
	)

	for _, o := range outcomes {
		if o.Err != nil {
			warnings = append(warnings, fmt.Sprintf("course %s: details: %v", courses[o.Item].Id, o.Err))
			if !errors.Is(o.Err, context.Canceled) {
				s.tel.ReportWarning(report_service_details, o.Err, courses[o.Item].Id)
			}
			continue
		}
		courses[o.Item] = courses[o.Item].withDetails(o.Value.details)
		if !o.CacheHit {
			warnings = append(warnings, o.Value.warnings...)
		}
	}
	return stats, warnings
}

// Details fetches a single course detail page. locationId may be empty.
func (s Service) Details(ctx context.Context, courseId, locationId string) (vhs.CourseDetails, []string, error) {
	ctx, span := tracer.Start(ctx, "Details")
	defer span.End()

	if locationId != "" {
		location, err := vhs.FindLocation(locationId)
		if err != nil {
			return vhs.CourseDetails{}, nil, err
		}
		locationId = location.Id
	}

	pool := s.newPool()
	defer pool.Reset()

	courseId = strings.TrimSpace(courseId)
	return s.scraper.FetchDetails(ctx, pool.Pick(courseId), courseId, locationId)
}
