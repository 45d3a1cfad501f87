package domain

import (
	"fmt"
	"math"
	"sort"
)

const (
	earthRadiusKm = 6371.0

	// DefaultRadiusKm is the "nearby" radius used when callers do not pick one.
	DefaultRadiusKm = 10.0
)

// Locatable is anything that may carry coordinates. ok is false when the item
// has no location.
type Locatable interface {
	Coordinates() (lat, lon float64, ok bool)
}

// Annotated pairs an item with its distance from the user. Distance is nil
// when either endpoint lacks coordinates.
type Annotated[T Locatable] struct {
	Item     T
	Distance *float64
}

// DistanceKm returns the haversine great-circle distance in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a just past 1 for antipodal pairs.
	a = math.Min(a, 1)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Annotate computes each item's distance from user. A nil user leaves every
// distance absent. Items are copied, never modified.
func Annotate[T Locatable](items []T, user *Point) []Annotated[T] {
	out := make([]Annotated[T], len(items))
	for i, item := range items {
		out[i].Item = item
		if user == nil {
			continue
		}
		lat, lon, ok := item.Coordinates()
		if !ok {
			continue
		}
		d := DistanceKm(user.Lat, user.Lon, lat, lon)
		out[i].Distance = &d
	}
	return out
}

// SortByDistance returns a new slice ordered by ascending distance. Items
// without a distance go last in their original relative order.
func SortByDistance[T Locatable](items []Annotated[T]) []Annotated[T] {
	out := make([]Annotated[T], len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Distance, out[j].Distance
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	return out
}

// FilterWithinRadius keeps the items whose distance is inside radiusKm.
func FilterWithinRadius[T Locatable](items []Annotated[T], radiusKm float64) []Annotated[T] {
	out := make([]Annotated[T], 0, len(items))
	for _, it := range items {
		if IsWithinRadius(it.Distance, radiusKm) {
			out = append(out, it)
		}
	}
	return out
}

// IsWithinRadius reports whether distance is known and no greater than
// radiusKm.
func IsWithinRadius(distance *float64, radiusKm float64) bool {
	if distance == nil {
		return false
	}
	return *distance <= radiusKm
}

// FormatDistance renders a distance for display: meters below 1 km, one
// decimal below 10 km, whole kilometers above. The tier is chosen after
// rounding, so 0.9996 km reads "1.0km" rather than "1000m".
func FormatDistance(km float64) string {
	if m := math.Round(km * 1000); m < 1000 {
		return fmt.Sprintf("%dm", int(m))
	}
	if tenths := math.Round(km * 10); tenths < 100 {
		return fmt.Sprintf("%.1fkm", tenths/10)
	}
	return fmt.Sprintf("%dkm", int(math.Round(km)))
}
