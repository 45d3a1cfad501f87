package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

const (
	testCountry   = "India"
	testFormatted = "8th Cross, BTM 2nd Stage, Bengaluru, Karnataka, 560076, India"
)

func TestComposeAddress_UsesInputCoordinates(t *testing.T) {
	r := ProviderResult{
		Formatted: testFormatted,
		Lat:       12.9100,
		Lon:       77.6100,
		Properties: map[string]any{
			"suburb":   "BTM Layout",
			"city":     "Bengaluru",
			"state":    "Karnataka",
			"postcode": "560076",
			"country":  "India",
		},
	}

	got := ComposeAddress(12.9166, 77.6101, r, testCountry)

	want := GeocodedAddress{
		Latitude:  12.9166,
		Longitude: 77.6101,
		Address:   testFormatted,
		Locality:  "BTM Layout",
		City:      "Bengaluru",
		State:     "Karnataka",
		Pincode:   "560076",
		Country:   "India",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("address mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeAddress_Precedence(t *testing.T) {
	tests := []struct {
		name         string
		props        map[string]any
		wantLocality string
		wantCity     string
	}{
		{
			name:         "suburb beats neighbourhood",
			props:        map[string]any{"suburb": "S", "neighbourhood": "N", "district": "D", "street": "St"},
			wantLocality: "S",
		},
		{
			name:         "neighbourhood beats district",
			props:        map[string]any{"neighbourhood": "N", "district": "D", "street": "St"},
			wantLocality: "N",
		},
		{
			name:         "street as last resort",
			props:        map[string]any{"street": "St", "suburb": ""},
			wantLocality: "St",
		},
		{
			name:     "town when city missing",
			props:    map[string]any{"town": "T", "village": "V", "county": "C"},
			wantCity: "T",
		},
		{
			name:     "village before county",
			props:    map[string]any{"village": "V", "county": "C"},
			wantCity: "V",
		},
		{
			name:     "county last",
			props:    map[string]any{"county": "C"},
			wantCity: "C",
		},
		{
			name: "nothing known",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComposeAddress(1, 2, ProviderResult{Properties: tt.props}, testCountry)
			assert.Equal(t, tt.wantLocality, got.Locality)
			assert.Equal(t, tt.wantCity, got.City)
		})
	}
}

func TestComposeAddress_DefaultCountry(t *testing.T) {
	got := ComposeAddress(1, 2, ProviderResult{}, testCountry)
	assert.Equal(t, testCountry, got.Country)
	assert.Empty(t, got.City)
}

func TestComposeAddress_NumericPostcode(t *testing.T) {
	got := ComposeAddress(1, 2, ProviderResult{Properties: map[string]any{"postcode": float64(560076)}}, testCountry)
	assert.Equal(t, "560076", got.Pincode)
}

func TestFromCandidate(t *testing.T) {
	c := SearchCandidate{
		Lat:         12.9166,
		Lon:         77.6101,
		DisplayName: "BTM 2nd Stage, Bengaluru",
		RawAddressComponents: map[string]any{
			"neighbourhood": "BTM 2nd Stage",
			"county":        "Bangalore Urban",
		},
		PlaceID: "abc",
	}

	got := FromCandidate(c, testCountry)

	assert.Equal(t, 12.9166, got.Latitude)
	assert.Equal(t, 77.6101, got.Longitude)
	assert.Equal(t, "BTM 2nd Stage, Bengaluru", got.Address)
	assert.Equal(t, "BTM 2nd Stage", got.Locality)
	assert.Equal(t, "Bangalore Urban", got.City)
	assert.Equal(t, testCountry, got.Country)
}

func TestProviderResult_CandidatePassesPropertiesThrough(t *testing.T) {
	props := map[string]any{"road": "8th Cross", "rank": map[string]any{"importance": 0.4}}
	c := ProviderResult{Formatted: "x", Lat: 1, Lon: 2, PlaceID: "p1", Properties: props}.Candidate()

	assert.Equal(t, "x", c.DisplayName)
	assert.Equal(t, "p1", c.PlaceID)
	if diff := cmp.Diff(props, c.RawAddressComponents); diff != "" {
		t.Fatalf("properties changed (-want +got):\n%s", diff)
	}
}

func TestBestEffortCity(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{testFormatted, "Bengaluru"},
		{"Koramangala, Bengaluru, Karnataka", "Karnataka"},
		{"Koramangala, Bengaluru", "Bengaluru"},
		{"Koramangala", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, BestEffortCity(tt.address))
		})
	}
}

func TestWithCityFallback_KeepsKnownCity(t *testing.T) {
	addr := GeocodedAddress{City: "Mysuru", Address: testFormatted}
	assert.Equal(t, "Mysuru", WithCityFallback(addr).City)

	addr.City = ""
	assert.Equal(t, "Bengaluru", WithCityFallback(addr).City)
}

func TestPoint_Validate(t *testing.T) {
	assert.NoError(t, Point{Lat: 12.97, Lon: 77.59}.Validate())
	assert.Error(t, Point{Lat: 91, Lon: 0}.Validate())
	assert.Error(t, Point{Lat: 0, Lon: -181}.Validate())
}
