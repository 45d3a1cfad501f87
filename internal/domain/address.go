package domain

import (
	"fmt"
	"strings"
)

// Accuracy tags how a position was obtained.
type Accuracy string

const (
	AccuracyHigh   Accuracy = "high"   // device GPS
	AccuracyMedium Accuracy = "medium" // network-assisted
	AccuracyLow    Accuracy = "low"    // coarse, IP-based
)

// Point is a WGS-84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the point lies within WGS-84 bounds.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %f out of range", p.Lon)
	}
	return nil
}

// GeocodedAddress is the canonical output of every resolution path.
type GeocodedAddress struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Address   string   `json:"address"`
	Locality  string   `json:"locality,omitempty"`
	City      string   `json:"city"`
	State     string   `json:"state,omitempty"`
	Pincode   string   `json:"pincode,omitempty"`
	Country   string   `json:"country,omitempty"`
	Accuracy  Accuracy `json:"accuracy,omitempty"`
}

// Point returns the address coordinates.
func (a GeocodedAddress) Point() Point {
	return Point{Lat: a.Latitude, Lon: a.Longitude}
}

// Coordinates implements Locatable.
func (a GeocodedAddress) Coordinates() (float64, float64, bool) {
	return a.Latitude, a.Longitude, true
}

// SearchCandidate is one autocomplete result.
type SearchCandidate struct {
	Lat                  float64        `json:"lat"`
	Lon                  float64        `json:"lon"`
	DisplayName          string         `json:"display_name"`
	RawAddressComponents map[string]any `json:"raw_address_components,omitempty"`
	PlaceID              string         `json:"place_id,omitempty"`
}

// ProviderResult is one record returned by the upstream geocoding provider.
type ProviderResult struct {
	Formatted  string
	Lat        float64
	Lon        float64
	PlaceID    string
	Properties map[string]any
}

// Candidate converts a provider record into a search candidate. The
// properties bag is handed over untouched.
func (r ProviderResult) Candidate() SearchCandidate {
	return SearchCandidate{
		Lat:                  r.Lat,
		Lon:                  r.Lon,
		DisplayName:          r.Formatted,
		RawAddressComponents: r.Properties,
		PlaceID:              r.PlaceID,
	}
}

var (
	localityKeys = []string{"suburb", "neighbourhood", "district", "street"}
	cityKeys     = []string{"city", "town", "village", "county"}
)

// ComposeAddress builds an address for the given coordinates from a provider
// record. The record's own coordinates are ignored.
func ComposeAddress(lat, lon float64, r ProviderResult, defaultCountry string) GeocodedAddress {
	addr := fromProperties(r.Properties, defaultCountry)
	addr.Latitude = lat
	addr.Longitude = lon
	addr.Address = r.Formatted
	return addr
}

// FromCandidate maps a pre-resolved search candidate into an address using
// the same precedence rules as reverse resolution.
func FromCandidate(c SearchCandidate, defaultCountry string) GeocodedAddress {
	addr := fromProperties(c.RawAddressComponents, defaultCountry)
	addr.Latitude = c.Lat
	addr.Longitude = c.Lon
	addr.Address = c.DisplayName
	return addr
}

// CoordinatesOnly is the address emitted when no provider record exists for
// a point. Address and city stay empty; country is the home market.
func CoordinatesOnly(lat, lon float64, defaultCountry string) GeocodedAddress {
	return GeocodedAddress{Latitude: lat, Longitude: lon, Country: defaultCountry}
}

func fromProperties(props map[string]any, defaultCountry string) GeocodedAddress {
	country := property(props, "country")
	if country == "" {
		country = defaultCountry
	}
	return GeocodedAddress{
		Locality: firstProperty(props, localityKeys),
		City:     firstProperty(props, cityKeys),
		State:    property(props, "state"),
		Pincode:  property(props, "postcode"),
		Country:  country,
	}
}

func firstProperty(props map[string]any, keys []string) string {
	for _, k := range keys {
		if v := property(props, k); v != "" {
			return v
		}
	}
	return ""
}

// property reads a string-ish property. Postcodes sometimes arrive as JSON
// numbers.
func property(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// BestEffortCity guesses a city from a comma-separated formatted address:
// the third segment when there are at least three, otherwise the second.
// Returns "" when there is nothing to guess from. The result is advisory.
func BestEffortCity(address string) string {
	parts := strings.Split(address, ",")
	switch {
	case len(parts) >= 3:
		return strings.TrimSpace(parts[2])
	case len(parts) == 2:
		return strings.TrimSpace(parts[1])
	default:
		return ""
	}
}

// WithCityFallback fills an empty City from BestEffortCity.
func WithCityFallback(addr GeocodedAddress) GeocodedAddress {
	if addr.City == "" {
		addr.City = BestEffortCity(addr.Address)
	}
	return addr
}
