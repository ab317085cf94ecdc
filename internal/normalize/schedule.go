package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/lib/textutil"
)

// SingleTimeDuration is the length assumed for a session that only names a
// start time.
const SingleTimeDuration = 3 * time.Hour

var scheduleSeparators = strings.NewReplacer("•", "\x00", "·", "\x00", "|", "\x00")

var roomRegex = regexp.MustCompile(`(?i)^(?:raum|saal|zimmer|kursraum|seminarraum|werkstatt|küche|turnhalle|aula)\b`)

// ScheduleEntry is one parsed row of a course schedule.
type ScheduleEntry struct {
	Date     Date
	Start    time.Time
	End      time.Time
	Location string
	Room     string
}

// ParseScheduleRow parses a row like "Mittwoch • 12.11.2025 • 17:00 - 20:15 Uhr •
// VHS in Greifswald • Raum 12". The date and time segments may appear in any
// order. A row that only names a start time ends SingleTimeDuration later.
func ParseScheduleRow(row string) (ScheduleEntry, error) {
	var (
		date      Date
		hasDate   bool
		timeRange *TimeRange
		single    *ClockTime
		rest      []string
	)

	for _, segment := range strings.Split(scheduleSeparators.Replace(row), "\x00") {
		segment = textutil.CollapseWhitespace(segment)
		if segment == "" || isWeekday(segment) {
			continue
		}

		residual := segment
		consumed := false
		if !hasDate {
			if d, after, ok := findGermanDate(segment); ok {
				date, hasDate = d, true
				residual = after
				consumed = true
			}
		}
		if timeRange == nil && single == nil {
			if tr, err := ParseTimeRange(residual); err == nil {
				timeRange = &tr
				consumed = true
			} else if clock, ok := findClockTime(residual); ok && looksLikeTime(residual) {
				single = &clock
				consumed = true
			}
		}
		if !consumed {
			rest = append(rest, segment)
		}
	}

	if !hasDate {
		return ScheduleEntry{}, fmt.Errorf("%w: %q", ErrUnparseableDate, row)
	}

	entry := ScheduleEntry{Date: date}
	switch {
	case timeRange != nil:
		entry.Start = date.At(timeRange.Start.Hour, timeRange.Start.Minute)
		entry.End = date.At(timeRange.End.Hour, timeRange.End.Minute)
		if !entry.End.After(entry.Start) {
			// a range that ends before it starts runs past midnight
			entry.End = entry.End.AddDate(0, 0, 1)
		}
	case single != nil:
		entry.Start = date.At(single.Hour, single.Minute)
		entry.End = entry.Start.Add(SingleTimeDuration)
	default:
		return ScheduleEntry{}, fmt.Errorf("%w: %q", ErrUnparseableTimeRange, row)
	}

	for _, segment := range rest {
		switch {
		case entry.Room == "" && roomRegex.MatchString(segment):
			entry.Room = segment
		case entry.Location == "":
			entry.Location = segment
		case entry.Room == "":
			entry.Room = segment
		}
	}

	return entry, nil
}

// looksLikeTime guards against treating house numbers or room numbers like
// "Raum 1.12" as a time of day.
func looksLikeTime(text string) bool {
	folded := textutil.Fold(text)
	if strings.Contains(folded, "uhr") || strings.HasPrefix(folded, "um ") || strings.HasPrefix(folded, "ab ") {
		return true
	}
	return clockTimeRegex.FindString(text) == strings.TrimSpace(text)
}
