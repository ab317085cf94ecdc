// Package telemetry carries the reporting interface every component logs
// through, plus its slog, OpenTelemetry and in-memory implementations.
package telemetry

import (
	"fmt"
)

// API is what components report breakage, warnings, debug output and counts
// to. Tests swap in a Recorder to assert on what was reported.
type API interface {
	// ReportBroken reports a component that failed in a way someone should
	// look at.
	//
	// The id names the component, lowercase, methods joined with dashes, ex.
	// `scraper.fetch-details`. Details such as the url or the underlying error
	// go into params, not the id. Inside a ScopedAPI the package is already
	// part of the id.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that did not stop the
	// component, a skipped row or a page that could not be fetched.
	ReportWarning(id string, params ...any)

	// ReportDebug is dropped unless verbose output was requested.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the value of a counter at this point in time,
	// successive reports are samples, not increments.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id (or debug message) with "<namespace>: ".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
