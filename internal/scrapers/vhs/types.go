package vhs

import (
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/normalize"
)

// CourseSummary is one row of the search result table.
type CourseSummary struct {
	Id           string     `json:"id"`
	Title        string     `json:"title"`
	DetailUrl    string     `json:"detailUrl"`
	Start        time.Time  `json:"start"`
	End          *time.Time `json:"end,omitempty"`
	LocationText string     `json:"locationText"`
	Available    bool       `json:"available"`
	Bookable     bool       `json:"bookable"`
}

// Key identifies a course across result pages, the course id if known,
// otherwise the detail url.
func (c CourseSummary) Key() string {
	if c.Id != "" {
		return c.Id
	}
	return c.DetailUrl
}

type CourseSession struct {
	Date     normalize.Date `json:"date"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Location string         `json:"location,omitempty"`
	Room     string         `json:"room,omitempty"`
}

type CourseLocation struct {
	Name    string `json:"name"`
	Room    string `json:"room,omitempty"`
	Address string `json:"address"`
}

// CourseDetails is the content of a course detail page.
type CourseDetails struct {
	Id          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	// End is Start plus the length of the first session. Courses whose
	// sessions differ in length are not covered by this.
	End           *time.Time      `json:"end,omitempty"`
	DurationText  string          `json:"durationText"`
	NumberOfDates int             `json:"numberOfDates"`
	Schedule      []CourseSession `json:"schedule"`
	Location      CourseLocation  `json:"location"`
	Bookable      bool            `json:"bookable"`
	// HasStatus is false if the page carries no booking status at all,
	// Bookable then says nothing.
	HasStatus     bool            `json:"-"`
}

// Listing is one parsed result page.
type Listing struct {
	Url     string
	Courses []CourseSummary
	// ReportedTotal is the result count the site prints above the table,
	// -1 if the page carries none.
	ReportedTotal int
	Warnings      []string
}
