// Package domain models resolved locations for the classifieds marketplace.
//
// # Data Source
//
// Addresses come from a Geoapify-compatible geocoding provider. Both the
// reverse endpoint and the autocomplete endpoint return a list of results,
// each with a "formatted" display string and a bag of hierarchical address
// properties:
//
//	suburb, neighbourhood, district, street   candidates for Locality
//	city, town, village, county               candidates for City
//	state, postcode, country                  copied as-is
//
// Result order is the provider's ranking; only the first result is used when
// building a [GeocodedAddress].
//
// # Field Precedence
//
// Locality takes the first non-empty of suburb, neighbourhood, district,
// street. City takes the first non-empty of city, town, village, county.
// Country falls back to the configured home market when the provider omits
// it. See [ComposeAddress] and [FromCandidate].
//
// # Coordinates
//
// A reverse-resolved address always carries the coordinates the caller asked
// about, not the coordinates the provider snapped to. Drag a map pin to a
// point between two buildings and the pin must stay where it was dropped.
//
// # City Heuristic
//
// Some provider records have no city-like property at all. [BestEffortCity]
// then guesses from the comma-separated formatted string:
//
//	"8th Cross, BTM 2nd Stage, Bengaluru, Karnataka, 560076, India"
//	 segment 0   segment 1      segment 2 ← guess
//
// The guess is advisory and is frequently wrong for rural records.
//
// # Distances
//
// Distances are great-circle kilometers on a sphere of radius 6371 km
// (haversine). Display labels use three fixed tiers:
//
//	< 1 km     whole meters        "350m"
//	1–10 km    one decimal place   "2.5km"
//	≥ 10 km    rounded integer     "15km"
package domain
