package vhs

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

var courseTypes = map[string]bool{
	"course":         true,
	"courseinstance": true,
	"event":          true,
	"educationevent": true,
}

// structuredCourse is the subset of a schema.org Course or Event block the
// detail parser reads.
type structuredCourse struct {
	Name         string
	Description  string
	StartDate    string
	Duration     string
	LocationName string
	Address      string
}

// parseStructuredData reads the first course-like object out of the
// ld+json blocks of a page. The blocks are parsed as json5 since trailing
// commas and comments show up in hand edited pages.
func parseStructuredData(doc *goquery.Document) (structuredCourse, bool, error) {
	var firstErr error
	var found structuredCourse
	ok := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := strings.TrimSpace(script.Text())
		if text == "" {
			return true
		}
		var value any
		err := json5.Unmarshal([]byte(text), &value)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("parse ld+json: %w", err)
			}
			return true
		}
		obj := findCourseObject(value)
		if obj == nil {
			return true
		}
		found = structuredFromObject(obj)
		ok = true
		return false
	})

	if ok {
		return found, true, nil
	}
	return structuredCourse{}, false, firstErr
}

func findCourseObject(value any) map[string]any {
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if obj := findCourseObject(item); obj != nil {
				return obj
			}
		}
	case map[string]any:
		if isCourseType(v["@type"]) {
			return v
		}
		if graph, ok := v["@graph"]; ok {
			return findCourseObject(graph)
		}
	}
	return nil
}

func isCourseType(value any) bool {
	switch v := value.(type) {
	case string:
		return courseTypes[strings.ToLower(v)]
	case []any:
		for _, item := range v {
			if isCourseType(item) {
				return true
			}
		}
	}
	return false
}

func stringField(obj map[string]any, key string) string {
	value, ok := obj[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func firstObject(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				return obj
			}
		}
	}
	return nil
}

func structuredFromObject(obj map[string]any) structuredCourse {
	course := structuredCourse{
		Name:        stringField(obj, "name"),
		Description: stringField(obj, "description"),
		StartDate:   stringField(obj, "startDate"),
		Duration:    stringField(obj, "duration"),
	}

	// a Course keeps its dates and place on its instances
	if instance := firstObject(obj["hasCourseInstance"]); instance != nil {
		if course.StartDate == "" {
			course.StartDate = stringField(instance, "startDate")
		}
		if _, ok := obj["location"]; !ok {
			obj = instance
		}
	}

	switch location := obj["location"].(type) {
	case string:
		course.LocationName = strings.TrimSpace(location)
	default:
		place := firstObject(location)
		if place == nil {
			break
		}
		course.LocationName = stringField(place, "name")
		course.Address = postalAddress(place["address"])
	}
	return course
}

// postalAddress renders a PostalAddress as "street, zip city".
func postalAddress(value any) string {
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	addr := firstObject(value)
	if addr == nil {
		return ""
	}
	street := stringField(addr, "streetAddress")
	city := strings.TrimSpace(stringField(addr, "postalCode") + " " + stringField(addr, "addressLocality"))
	switch {
	case street != "" && city != "":
		return street + ", " + city
	case street != "":
		return street
	}
	return city
}
