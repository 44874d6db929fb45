package alerts

import (
	"errors"
	"testing"
)

func TestParseReport(t *testing.T) {
	for _, tt := range []struct {
		name       string
		data       map[string]interface{}
		wantRadius float64
		wantDesc   string
		wantKm     int
	}{
		{
			name:       "defaults",
			data:       map[string]interface{}{"latitude": 37.0, "longitude": -122.0},
			wantRadius: 5000,
			wantDesc:   DefaultDescription,
			wantKm:     5,
		},
		{
			name:       "numeric strings",
			data:       map[string]interface{}{"latitude": "37.0", "longitude": " -122.0 ", "radiusMeters": "2600"},
			wantRadius: 2600,
			wantDesc:   DefaultDescription,
			wantKm:     3,
		},
		{
			name:       "integer radius and description",
			data:       map[string]interface{}{"latitude": int64(37), "longitude": -122, "radiusMeters": int64(1400), "description": "Brush fire"},
			wantRadius: 1400,
			wantDesc:   "Brush fire",
			wantKm:     1,
		},
		{
			name:       "zero radius falls back",
			data:       map[string]interface{}{"latitude": 37.0, "longitude": -122.0, "radiusMeters": 0},
			wantRadius: 5000,
			wantDesc:   DefaultDescription,
			wantKm:     5,
		},
		{
			name:       "blank description falls back",
			data:       map[string]interface{}{"latitude": 37.0, "longitude": -122.0, "description": "   "},
			wantRadius: 5000,
			wantDesc:   DefaultDescription,
			wantKm:     5,
		},
		{
			name:       "garbage radius falls back",
			data:       map[string]interface{}{"latitude": 37.0, "longitude": -122.0, "radiusMeters": "wide"},
			wantRadius: 5000,
			wantDesc:   DefaultDescription,
			wantKm:     5,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReport("id", tt.data, 0)
			if err != nil {
				t.Fatalf("ParseReport() error = %v", err)
			}
			if r.RadiusMeters != tt.wantRadius {
				t.Errorf("RadiusMeters = %v, want %v", r.RadiusMeters, tt.wantRadius)
			}
			if r.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", r.Description, tt.wantDesc)
			}
			if r.RadiusKm() != tt.wantKm {
				t.Errorf("RadiusKm() = %d, want %d", r.RadiusKm(), tt.wantKm)
			}
		})
	}
}

func TestParseReport_ConfiguredDefaultRadius(t *testing.T) {
	r, err := ParseReport("id", map[string]interface{}{"latitude": 1.0, "longitude": 1.0}, 8000)
	if err != nil {
		t.Fatal(err)
	}
	if r.RadiusMeters != 8000 {
		t.Errorf("RadiusMeters = %v, want 8000", r.RadiusMeters)
	}
}

func TestParseReport_Invalid(t *testing.T) {
	for _, data := range []map[string]interface{}{
		{},
		{"latitude": 37.0},
		{"latitude": true, "longitude": 1.0},
		{"latitude": 37.0, "longitude": 181.0},
		{"latitude": 37.0, "longitude": -122.0, "radiusMeters": -1},
	} {
		if _, err := ParseReport("id", data, 0); !errors.Is(err, ErrInvalidReport) {
			t.Errorf("ParseReport(%v) error = %v, want ErrInvalidReport", data, err)
		}
	}
}
