// Package geo implements geohash encoding, geohash range planning for radius
// queries against a geohash-ordered index, and great-circle distance.
package geo

import (
	"math"
	"strings"
)

const (
	// DefaultPrecision is the geohash length stored on presence records.
	DefaultPrecision = 10

	bitsPerChar = 5
	maxBits     = 22 * bitsPerChar

	base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

	// rangeEnd sorts after every base32 character.
	rangeEnd = "~"

	// coverageSlack pads the radius against rounding at the disk edge.
	coverageSlack = 1.01
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether both coordinates are finite and within range.
func (p Point) Valid() bool {
	return IsFinite(p.Latitude) && IsFinite(p.Longitude) &&
		p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Bound is a half-open [Start, End) range over geohash strings.
type Bound struct {
	Start string
	End   string
}

// Contains reports whether hash falls inside the bound.
func (b Bound) Contains(hash string) bool {
	return hash >= b.Start && hash < b.End
}

// Encode converts a point to a geohash of the given length.
// Precision outside 1..22 falls back to DefaultPrecision.
func Encode(lat, lon float64, precision int) string {
	if precision < 1 || precision > maxBits/bitsPerChar {
		precision = DefaultPrecision
	}

	latRange := [2]float64{-90, 90}
	lonRange := [2]float64{-180, 180}

	var hash strings.Builder
	hash.Grow(precision)

	value := 0
	bits := 0
	even := true
	for hash.Len() < precision {
		if even {
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon > mid {
				value = value<<1 | 1
				lonRange[0] = mid
			} else {
				value <<= 1
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				value = value<<1 | 1
				latRange[0] = mid
			} else {
				value <<= 1
				latRange[1] = mid
			}
		}
		even = !even

		bits++
		if bits == bitsPerChar {
			hash.WriteByte(base32[value])
			bits = 0
			value = 0
		}
	}

	return hash.String()
}

// QueryBounds returns geohash ranges that together cover every point within
// radiusMeters of center. The ranges over-approximate the disk: callers must
// re-check the exact distance of whatever the ranges return.
//
// The disk is boxed on the same sphere Distance measures on. Cells are chosen
// at the deepest bit count whose cells are at least as tall and wide as the
// box half-extents, so the cells holding the center, the four edge midpoints
// and the four corners cover the whole box. Duplicate ranges are dropped and
// the first occurrence keeps its position. A disk reaching a pole spans every
// longitude and gets the whole keyspace.
func QueryBounds(center Point, radiusMeters float64) []Bound {
	delta := radiusMeters * coverageSlack / EarthRadiusMeters
	latDegrees := delta * 180 / math.Pi
	north := center.Latitude + latDegrees
	south := center.Latitude - latDegrees
	if north >= 90 || south <= -90 {
		return []Bound{{Start: string(base32[0]), End: rangeEnd}}
	}

	// Widest longitude half-span of a cap that does not contain a pole.
	ratio := math.Min(1, math.Sin(delta)/math.Cos(center.Latitude*math.Pi/180))
	lonDegrees := math.Asin(ratio) * 180 / math.Pi

	queryBits := cellBits(latDegrees, lonDegrees)
	precision := int(math.Ceil(float64(queryBits) / bitsPerChar))

	west := wrapLongitude(center.Longitude - lonDegrees)
	east := wrapLongitude(center.Longitude + lonDegrees)
	points := []Point{
		{center.Latitude, center.Longitude},
		{center.Latitude, west},
		{center.Latitude, east},
		{north, center.Longitude},
		{north, west},
		{south, center.Longitude},
		{north, east},
		{south, west},
		{south, east},
	}

	bounds := make([]Bound, 0, len(points))
	seen := make(map[Bound]struct{}, len(points))
	for _, p := range points {
		b := queryForHash(Encode(p.Latitude, p.Longitude, precision), queryBits)
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		bounds = append(bounds, b)
	}
	return bounds
}

// queryForHash widens hash to the prefix range sharing its first bits bits.
func queryForHash(hash string, bits int) Bound {
	precision := int(math.Ceil(float64(bits) / bitsPerChar))
	if len(hash) < precision {
		return Bound{Start: hash, End: hash + rangeEnd}
	}

	hash = hash[:precision]
	base := hash[:len(hash)-1]
	last := strings.IndexByte(base32, hash[len(hash)-1])
	significant := bits - len(base)*bitsPerChar
	unused := bitsPerChar - significant

	start := (last >> unused) << unused
	end := start + 1<<unused
	if end > len(base32)-1 {
		return Bound{Start: base + string(base32[start]), End: base + rangeEnd}
	}
	return Bound{Start: base + string(base32[start]), End: base + string(base32[end])}
}

// cellBits returns the deepest bit count whose cells are at least latDegrees
// tall and lonDegrees wide. Longitude takes the odd bits.
func cellBits(latDegrees, lonDegrees float64) int {
	lonBits := halvings(360, lonDegrees)
	latBits := halvings(180, latDegrees)
	return max(1, min(2*lonBits, 2*latBits+1, maxBits))
}

// halvings counts how often span can be halved while staying at least size.
func halvings(span, size float64) int {
	n := 0
	for n < maxBits && span/2 >= size {
		span /= 2
		n++
	}
	return n
}

func wrapLongitude(longitude float64) float64 {
	if longitude <= 180 && longitude >= -180 {
		return longitude
	}
	adjusted := longitude + 180
	if adjusted > 0 {
		return math.Mod(adjusted, 360) - 180
	}
	return 180 - math.Mod(-adjusted, 360)
}
