package geo

import (
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMeters is the mean radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// Distance returns the Haversine great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	latDelta := toRadians(b.Latitude - a.Latitude)
	lonDelta := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(latDelta/2)*math.Sin(latDelta/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(lonDelta/2)*math.Sin(lonDelta/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ParseCoordinate coerces a loosely typed document field into a float.
// Numbers of any width and numeric strings are accepted; everything else,
// including a missing field or a blank string, yields NaN.
func ParseCoordinate(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Destination returns the point reached by travelling distance meters from p
// along the initial bearing (degrees clockwise from north).
func Destination(p Point, distance, bearing float64) Point {
	delta := distance / EarthRadiusMeters
	theta := toRadians(bearing)
	phi1 := toRadians(p.Latitude)
	lambda1 := toRadians(p.Longitude)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return Point{
		Latitude:  phi2 * 180 / math.Pi,
		Longitude: wrapLongitude(lambda2 * 180 / math.Pi),
	}
}
