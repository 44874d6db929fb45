package presence

import (
	"math"
	"testing"

	"google.golang.org/genproto/googleapis/type/latlng"
)

func TestCandidateFromPresence(t *testing.T) {
	got := CandidateFromPresence("doc-1", map[string]interface{}{
		"uid":       "u1",
		"latitude":  37.01,
		"longitude": "-122.02",
		"geohash":   "9q94hxyz00",
		"fcmToken":  "tok",
	})

	if got.DocID != "doc-1" || got.UID != "u1" || got.FCMToken != "tok" || got.Geohash != "9q94hxyz00" {
		t.Errorf("CandidateFromPresence() = %+v", got)
	}
	if got.Latitude != 37.01 || got.Longitude != -122.02 {
		t.Errorf("coordinates = (%v, %v), want (37.01, -122.02)", got.Latitude, got.Longitude)
	}
	if got.Source != SourcePresence {
		t.Errorf("Source = %q, want %q", got.Source, SourcePresence)
	}
}

func TestCandidateFromPresence_LooseFields(t *testing.T) {
	got := CandidateFromPresence("doc-2", map[string]interface{}{
		"uid":       42,
		"latitude":  nil,
		"longitude": true,
		"fcmToken":  []string{"not", "a", "token"},
	})

	if got.UID != "" {
		t.Errorf("UID = %q, want empty for a non-string uid", got.UID)
	}
	if got.FCMToken != "" {
		t.Errorf("FCMToken = %q, want empty", got.FCMToken)
	}
	if !math.IsNaN(got.Latitude) || !math.IsNaN(got.Longitude) {
		t.Errorf("coordinates = (%v, %v), want NaN", got.Latitude, got.Longitude)
	}
}

func TestUserFromDocument(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]interface{}
		wantLoc bool
		wantLat float64
		wantLon float64
	}{
		{
			name: "map location",
			data: map[string]interface{}{
				"location": map[string]interface{}{"latitude": 37.5, "longitude": -122.5},
				"fcmToken": "tok",
			},
			wantLoc: true,
			wantLat: 37.5,
			wantLon: -122.5,
		},
		{
			name: "geopoint location",
			data: map[string]interface{}{
				"location": &latlng.LatLng{Latitude: 10, Longitude: 20},
				"fcmToken": "tok",
			},
			wantLoc: true,
			wantLat: 10,
			wantLon: 20,
		},
		{
			name:    "missing location",
			data:    map[string]interface{}{"fcmToken": "tok"},
			wantLoc: false,
		},
		{
			name:    "unsupported location type",
			data:    map[string]interface{}{"location": "somewhere", "fcmToken": "tok"},
			wantLoc: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserFromDocument("u1", tt.data)
			if got.ID != "u1" || got.FCMToken != "tok" {
				t.Errorf("UserFromDocument() = %+v", got)
			}
			if !tt.wantLoc {
				if got.Location != nil {
					t.Errorf("Location = %+v, want nil", got.Location)
				}
				return
			}
			if got.Location == nil {
				t.Fatal("Location = nil")
			}
			if got.Location.Latitude != tt.wantLat || got.Location.Longitude != tt.wantLon {
				t.Errorf("Location = %+v, want (%v, %v)", *got.Location, tt.wantLat, tt.wantLon)
			}
		})
	}
}
