package normalize

import (
	"fmt"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
)

// Date is a calendar date in the civil calendar of Europe/Berlin, it carries
// no time of day and no offset.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the Berlin calendar date of t.
func DateOf(t time.Time) Date {
	local := t.In(chrono.Berlin())
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}
}

// At returns the instant at the given wall-clock time on d in Europe/Berlin.
func (d Date) At(hour, minute int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, chrono.Berlin())
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	t, err := time.Parse("2006-01-02", string(text))
	if err != nil {
		return err
	}
	*d = Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
	return nil
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day
}
