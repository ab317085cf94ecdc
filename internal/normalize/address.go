package normalize

import (
	"strings"

	"github.com/Missing-API/vhs-vg-courses-sub000/lib/textutil"
)

// location ids of the three course sites
const (
	LocationGreifswald = "greifswald"
	LocationAnklam     = "anklam"
	LocationPasewalk   = "pasewalk"
)

// canonical addresses of the course sites
const (
	AddressGreifswald = "Volkshochschule Greifswald, Martin-Luther-Straße 7a, 17489 Greifswald"
	AddressAnklam     = "Volkshochschule Anklam, Leipziger Allee 26, 17389 Anklam"
	AddressPasewalk   = "Volkshochschule Pasewalk, Haußmannstraße 30, 17309 Pasewalk"
)

// SiteAddress returns the canonical address of a course site, or "" if
// locationId names no site.
func SiteAddress(locationId string) string {
	switch strings.ToLower(strings.TrimSpace(locationId)) {
	case LocationGreifswald:
		return AddressGreifswald
	case LocationAnklam:
		return AddressAnklam
	case LocationPasewalk:
		return AddressPasewalk
	}
	return ""
}

// AddressRule maps venue labels to a canonical address. Tokens are compared
// against the folded venue text, so they must be lower-case and free of
// diacritics.
type AddressRule struct {
	// All tokens must occur in the venue.
	All []string
	// At least one of Any must occur, if Any is set.
	Any []string
	// LocationId restricts the rule to one site hint, if set.
	LocationId string
	Address    string
	// Example is a venue label the rule is known to map.
	Example string
}

func (r AddressRule) matches(folded, locationId string) bool {
	if r.LocationId != "" && r.LocationId != locationId {
		return false
	}
	for _, token := range r.All {
		if !strings.Contains(folded, token) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, token := range r.Any {
		if strings.Contains(folded, token) {
			return true
		}
	}
	return false
}

var siteTokens = []string{"vhs", "volkshochschule"}

// AddressRules is evaluated top to bottom, the first match wins. Specific
// venues come before the generic site rules.
var AddressRules = []AddressRule{
	{
		All:     []string{"pommersch", "landesmuseum"},
		Address: "Pommersches Landesmuseum, Rakower Straße 9, 17489 Greifswald",
		Example: "Pommersches Landesmuseum, Greifswald",
	},
	{
		All:     []string{"stadtbibliothek"},
		Any:     []string{"fallada", "greifswald"},
		Address: "Stadtbibliothek Hans Fallada, Knopfstraße 18-20, 17489 Greifswald",
		Example: "Stadtbibliothek \"Hans Fallada\" Greifswald",
	},
	{
		All:     []string{"spiritus"},
		Address: "Soziokulturelles Zentrum St. Spiritus, Lange Straße 49/51, 17489 Greifswald",
		Example: "St. Spiritus, Lange Straße 49/51",
	},
	{
		All:     []string{"lilienthal", "museum"},
		Address: "Otto-Lilienthal-Museum, Ellbogenstraße 1, 17389 Anklam",
		Example: "Otto-Lilienthal-Museum Anklam",
	},
	{
		All:     []string{"kulturforum"},
		Any:     []string{"historisches u", "pasewalk"},
		Address: "Kulturforum Historisches U, Prenzlauer Straße 23a, 17309 Pasewalk",
		Example: "Kulturforum Historisches U, Pasewalk",
	},
	{
		All:     []string{"kreisverwaltung"},
		Any:     []string{"demminer", "anklam"},
		Address: "Kreisverwaltung Vorpommern-Greifswald, Demminer Straße 71-74, 17389 Anklam",
		Example: "Kreisverwaltung, Demminer Straße 71-74, Anklam",
	},
	{
		All:     []string{"martin-luther"},
		Any:     []string{"7a", "greifswald"},
		Address: AddressGreifswald,
		Example: "Martin-Luther-Straße 7a, Greifswald",
	},
	{
		All:     []string{"leipziger allee"},
		Address: AddressAnklam,
		Example: "Leipziger Allee 26",
	},
	{
		All:     []string{"haussmannstr"},
		Address: AddressPasewalk,
		Example: "Haußmannstraße 30, Pasewalk",
	},
	{
		All:     []string{"greifswald"},
		Any:     siteTokens,
		Address: AddressGreifswald,
		Example: "VHS in Greifswald",
	},
	{
		All:     []string{"anklam"},
		Any:     siteTokens,
		Address: AddressAnklam,
		Example: "Volkshochschule Anklam",
	},
	{
		All:     []string{"pasewalk"},
		Any:     siteTokens,
		Address: AddressPasewalk,
		Example: "vhs Pasewalk",
	},
}

// Address maps a free-text venue label to a canonical postal address.
// locationId is an optional site hint, a bare "VHS" venue resolves to that
// site's address. An unmapped venue yields "".
func Address(venue, locationId string) string {
	folded := textutil.Fold(venue)
	if folded == "" {
		return ""
	}
	locationId = strings.ToLower(strings.TrimSpace(locationId))

	for _, rule := range AddressRules {
		if rule.matches(folded, locationId) {
			return rule.Address
		}
	}

	if isGenericSiteToken(folded) {
		return SiteAddress(locationId)
	}
	return ""
}

func isGenericSiteToken(folded string) bool {
	trimmed := strings.Trim(folded, " .,:;-")
	for _, prefix := range []string{"", "die ", "der "} {
		for _, token := range siteTokens {
			if trimmed == prefix+token {
				return true
			}
		}
	}
	return trimmed == "vhs-gebaude" || trimmed == "vhs gebaude" || trimmed == "hauptgebaude"
}
