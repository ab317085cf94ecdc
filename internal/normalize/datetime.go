package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/textutil"
)

var (
	ErrUnparseableDate      = errors.New("normalize: unparseable date")
	ErrUnparseableTimeRange = errors.New("normalize: unparseable time range")
)

var (
	germanDateRegex   = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	timeRangeRegex    = regexp.MustCompile(`(\d{1,2})[:.](\d{2})\s*(?:Uhr)?\s*(?:-|–|—|bis)\s*(\d{1,2})[:.](\d{2})(?:\s*Uhr)?`)
	clockTimeRegex    = regexp.MustCompile(`(?i)(?:um\s+|ab\s+)?(\d{1,2})[:.](\d{2})(?:\s*Uhr)?`)
	hourOnlyRegex     = regexp.MustCompile(`(?i)(?:um\s+|ab\s+)?(\d{1,2})\s*Uhr`)
	// "um 17:00", "ab 9", "17.30 Uhr", "9 Uhr"
	markedClockRegex  = regexp.MustCompile(`(?i)(?:\b(?:um|ab)\s+(\d{1,2})(?:[:.](\d{2}))?(?:\s*uhr\b)?|\b(\d{1,2})(?:[:.](\d{2}))?\s*uhr\b)`)
	dateContinuation  = regexp.MustCompile(`^\.\d`)
	sessionCountRegex = regexp.MustCompile(`(?i)(\d+)\s*(?:x\s|mal\s|termine?\b|treffen\b|abende?\b|sitzungen\b|vormittage?\b|nachmittage?\b|kurstage?\b|tage?\b|veranstaltungen\b)`)
)

var germanWeekdayAbbrevs = []string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"}

var germanWeekdays = map[string]bool{
	"montag": true, "dienstag": true, "mittwoch": true, "donnerstag": true,
	"freitag": true, "samstag": true, "sonnabend": true, "sonntag": true,
	"mo": true, "di": true, "mi": true, "do": true, "fr": true, "sa": true, "so": true,
}

func isWeekday(text string) bool {
	return germanWeekdays[strings.Trim(textutil.Fold(text), ".,")]
}

// Parsed is the result of ParseDateTime.
type Parsed struct {
	Time time.Time
	// HasTime is false if the source only named a calendar date, Time is then
	// midnight in Europe/Berlin.
	HasTime bool
}

// ClockTime is an hour and minute on an unspecified day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func newClockTime(hour, minute string) (ClockTime, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return ClockTime{}, false
	}
	m, err := strconv.Atoi(minute)
	if err != nil {
		return ClockTime{}, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ClockTime{}, false
	}
	return ClockTime{Hour: h, Minute: m}, true
}

// TimeRange is a start and end wall-clock time parsed from "17:00 - 20:15 Uhr".
type TimeRange struct {
	Start ClockTime
	End   ClockTime
}

// findGermanDate locates the first DD.MM.YYYY in text and returns it with the
// text that follows it.
func findGermanDate(text string) (Date, string, bool) {
	loc := germanDateRegex.FindStringSubmatchIndex(text)
	if loc == nil {
		return Date{}, "", false
	}
	day, _ := strconv.Atoi(text[loc[2]:loc[3]])
	month, _ := strconv.Atoi(text[loc[4]:loc[5]])
	year, _ := strconv.Atoi(text[loc[6]:loc[7]])
	if !validDate(year, month, day) {
		return Date{}, "", false
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, text[loc[1]:], true
}

// findClockTime locates the first wall-clock time in text.
func findClockTime(text string) (ClockTime, bool) {
	match := clockTimeRegex.FindStringSubmatch(text)
	if match != nil {
		return newClockTime(match[1], match[2])
	}
	match = hourOnlyRegex.FindStringSubmatch(text)
	if match != nil {
		return newClockTime(match[1], "00")
	}
	return ClockTime{}, false
}

// findMarkedClockTime locates the first time of day in text that is marked as
// one by "um", "ab" or "Uhr", or that is all the text there is. Values like a
// second date or "Raum 1.12" are not times.
func findMarkedClockTime(text string) (ClockTime, bool) {
	for _, loc := range markedClockRegex.FindAllStringSubmatchIndex(text, -1) {
		if dateContinuation.MatchString(text[loc[1]:]) {
			continue
		}
		group := func(i int) string {
			if loc[2*i] < 0 {
				return ""
			}
			return text[loc[2*i]:loc[2*i+1]]
		}
		hour, minute := group(1), group(2)
		if hour == "" {
			hour, minute = group(3), group(4)
		}
		if minute == "" {
			minute = "00"
		}
		if clock, ok := newClockTime(hour, minute); ok {
			return clock, true
		}
	}
	trimmed := strings.Trim(text, " ,;•·|")
	if trimmed != "" && clockTimeRegex.FindString(trimmed) == trimmed {
		return findClockTime(trimmed)
	}
	return ClockTime{}, false
}

var isoLayouts = []struct {
	layout  string
	zoned   bool
	hasTime bool
}{
	{layout: time.RFC3339Nano, zoned: true, hasTime: true},
	{layout: "2006-01-02T15:04Z07:00", zoned: true, hasTime: true},
	{layout: "2006-01-02T15:04:05", hasTime: true},
	{layout: "2006-01-02T15:04", hasTime: true},
	{layout: "2006-01-02 15:04:05", hasTime: true},
	{layout: "2006-01-02 15:04", hasTime: true},
	{layout: "2006-01-02"},
}

func parseISO(text string) (Parsed, bool) {
	for _, l := range isoLayouts {
		var t time.Time
		var err error
		if l.zoned {
			t, err = time.Parse(l.layout, text)
		} else {
			t, err = time.ParseInLocation(l.layout, text, chrono.Berlin())
		}
		if err == nil {
			return Parsed{Time: t.In(chrono.Berlin()), HasTime: l.hasTime}, true
		}
	}
	return Parsed{}, false
}

// ParseDateTime parses "Mi., 12.11.2025, um 17:00 Uhr", "Mittwoch • 12.11.2025 •
// 17:00 - 20:15 Uhr" (the start of the range is used) and ISO-8601 values into an
// instant in Europe/Berlin. A missing time of day means midnight.
func ParseDateTime(text string) (Parsed, error) {
	text = textutil.CollapseWhitespace(text)
	if text == "" {
		return Parsed{}, ErrUnparseableDate
	}

	date, rest, ok := findGermanDate(text)
	if ok {
		if tr, err := ParseTimeRange(rest); err == nil {
			return Parsed{Time: date.At(tr.Start.Hour, tr.Start.Minute), HasTime: true}, nil
		}
		if clock, ok := findMarkedClockTime(rest); ok {
			return Parsed{Time: date.At(clock.Hour, clock.Minute), HasTime: true}, nil
		}
		return Parsed{Time: date.At(0, 0)}, nil
	}

	parsed, ok := parseISO(text)
	if ok {
		return parsed, nil
	}
	return Parsed{}, fmt.Errorf("%w: %q", ErrUnparseableDate, text)
}

// ParseTimeRange parses "HH:MM - HH:MM Uhr".
func ParseTimeRange(text string) (TimeRange, error) {
	match := timeRangeRegex.FindStringSubmatch(text)
	if match == nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrUnparseableTimeRange, text)
	}
	start, ok := newClockTime(match[1], match[2])
	if !ok {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrUnparseableTimeRange, text)
	}
	end, ok := newClockTime(match[3], match[4])
	if !ok {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrUnparseableTimeRange, text)
	}
	return TimeRange{Start: start, End: end}, nil
}

// FormatGermanDate renders t the way the course site writes a start date,
// "Mi., 12.11.2025, um 17:00 Uhr".
func FormatGermanDate(t time.Time) string {
	local := t.In(chrono.Berlin())
	return fmt.Sprintf(
		"%s., %02d.%02d.%04d, um %02d:%02d Uhr",
		germanWeekdayAbbrevs[local.Weekday()],
		local.Day(), local.Month(), local.Year(),
		local.Hour(), local.Minute(),
	)
}

// ParseSessionCount reads the number of dates out of texts like "5 Termine"
// or "10 x 90 Minuten".
func ParseSessionCount(text string) (int, bool) {
	match := sessionCountRegex.FindStringSubmatch(text + " ")
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
