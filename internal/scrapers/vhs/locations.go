package vhs

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/normalize"
	"github.com/Missing-API/vhs-vg-courses-sub000/lib/textutil"

	"github.com/antzucaro/matchr"
)

const (
	suggestionThreshold = 0.7
	maxSuggestions      = 3
)

// Location is one site of the Volkshochschule. Name is the value the search
// form filters by.
type Location struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

var Locations = []Location{
	{Id: normalize.LocationGreifswald, Name: "Greifswald", Address: normalize.AddressGreifswald},
	{Id: normalize.LocationAnklam, Name: "Anklam", Address: normalize.AddressAnklam},
	{Id: normalize.LocationPasewalk, Name: "Pasewalk", Address: normalize.AddressPasewalk},
}

// FindLocation looks a location up by id or display name, ignoring case and
// diacritics. Unknown queries fail with a *LocationNotFoundError.
func FindLocation(query string) (Location, error) {
	folded := textutil.Fold(query)
	for _, loc := range Locations {
		if folded == loc.Id || folded == textutil.Fold(loc.Name) {
			return loc, nil
		}
	}
	// "VHS Anklam", "vhs-pasewalk"
	var contained []Location
	for _, loc := range Locations {
		if textutil.MatchName(query, []string{loc.Id}) {
			contained = append(contained, loc)
		}
	}
	if len(contained) == 1 {
		return contained[0], nil
	}

	type scored struct {
		name  string
		score float64
	}
	var candidates []scored
	for _, loc := range Locations {
		score := max(
			matchr.JaroWinkler(folded, loc.Id, false),
			matchr.JaroWinkler(folded, textutil.Fold(loc.Name), false),
		)
		if score >= suggestionThreshold {
			candidates = append(candidates, scored{name: loc.Name, score: score})
		}
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	err := &LocationNotFoundError{Query: strings.TrimSpace(query)}
	for i := 0; i < len(candidates) && i < maxSuggestions; i++ {
		err.Suggestions = append(err.Suggestions, candidates[i].name)
	}
	return Location{}, err
}
