package courses

import (
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/scrapers/vhs"
)

// Course is a listing row, with the fields of its detail page when those were
// requested.
type Course struct {
	Id           string     `json:"id"`
	Title        string     `json:"title"`
	DetailUrl    string     `json:"detailUrl"`
	Start        time.Time  `json:"start"`
	End          *time.Time `json:"end,omitempty"`
	LocationText string     `json:"locationText"`
	Available    bool       `json:"available"`
	Bookable     bool       `json:"bookable"`

	HasDetails    bool                `json:"-"`
	Description   string              `json:"description,omitempty"`
	DurationText  string              `json:"durationText,omitempty"`
	NumberOfDates int                 `json:"numberOfDates,omitempty"`
	Schedule      []vhs.CourseSession `json:"schedule,omitempty"`
	Location      *vhs.CourseLocation `json:"location,omitempty"`
}

func fromSummary(summary vhs.CourseSummary) Course {
	return Course{
		Id:           summary.Id,
		Title:        summary.Title,
		DetailUrl:    summary.DetailUrl,
		Start:        summary.Start,
		End:          summary.End,
		LocationText: summary.LocationText,
		Available:    summary.Available,
		Bookable:     summary.Bookable,
	}
}

func (c Course) Key() string {
	if c.Id != "" {
		return c.Id
	}
	return c.DetailUrl
}

// withDetails returns a copy of c with the detail fields filled in. Values the
// detail page lacks keep the listing value.
func (c Course) withDetails(details vhs.CourseDetails) Course {
	enriched := c
	enriched.HasDetails = true
	if details.Title != "" {
		enriched.Title = details.Title
	}
	if !details.Start.IsZero() {
		enriched.Start = details.Start
		enriched.End = details.End
	}
	if details.HasStatus {
		enriched.Bookable = details.Bookable
	}
	enriched.Description = details.Description
	enriched.DurationText = details.DurationText
	enriched.NumberOfDates = details.NumberOfDates
	enriched.Schedule = details.Schedule
	location := details.Location
	enriched.Location = &location
	return enriched
}
