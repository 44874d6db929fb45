// Package alerts runs the fire report pipeline: plan geohash bounds, collect
// nearby devices, filter them, and dispatch push alerts.
package alerts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/eternisai/fire-alerts/internal/geo"
)

const (
	DefaultRadiusMeters = 5000.0
	DefaultDescription  = "Fire reported by community member"
)

var ErrInvalidReport = errors.New("invalid report")

// Report is a fire report as read from /reports/{id}.
type Report struct {
	ID           string
	Latitude     float64
	Longitude    float64
	ReporterUID  string
	Description  string
	RadiusMeters float64
}

// Center returns the report location.
func (r Report) Center() geo.Point {
	return geo.Point{Latitude: r.Latitude, Longitude: r.Longitude}
}

// RadiusKm is the radius rounded to whole kilometers, as shown to recipients.
func (r Report) RadiusKm() int {
	return int(math.Round(r.RadiusMeters / 1000))
}

// ParseReport reads a report document. Coordinates may be numbers or numeric
// strings. A missing, zero or non-numeric radius falls back to defaultRadius.
func ParseReport(id string, data map[string]interface{}, defaultRadius float64) (Report, error) {
	if defaultRadius <= 0 || !geo.IsFinite(defaultRadius) {
		defaultRadius = DefaultRadiusMeters
	}

	r := Report{
		ID:           id,
		Latitude:     geo.ParseCoordinate(data["latitude"]),
		Longitude:    geo.ParseCoordinate(data["longitude"]),
		RadiusMeters: defaultRadius,
		Description:  DefaultDescription,
	}

	if !r.Center().Valid() {
		return r, fmt.Errorf("%w: coordinates (%v, %v)", ErrInvalidReport, data["latitude"], data["longitude"])
	}

	if radius := geo.ParseCoordinate(data["radiusMeters"]); geo.IsFinite(radius) && radius != 0 {
		if radius < 0 {
			return r, fmt.Errorf("%w: negative radius %v", ErrInvalidReport, radius)
		}
		r.RadiusMeters = radius
	}

	if uid, ok := data["reporterUid"].(string); ok {
		r.ReporterUID = uid
	}
	if desc, ok := data["description"].(string); ok && strings.TrimSpace(desc) != "" {
		r.Description = desc
	}

	return r, nil
}
