package presence

import (
	"github.com/eternisai/fire-alerts/internal/geo"
	"google.golang.org/genproto/googleapis/type/latlng"
)

// Source names the collection a candidate was read from.
type Source string

const (
	SourcePresence     Source = "presence"
	SourceUserRegistry Source = "user_registry"
)

// Candidate is a device location that may receive an alert.
// Latitude and Longitude are NaN when the stored value could not be parsed.
type Candidate struct {
	DocID     string
	UID       string
	Latitude  float64
	Longitude float64
	Geohash   string
	FCMToken  string
	Source    Source
}

// Point returns the candidate location.
func (c Candidate) Point() geo.Point {
	return geo.Point{Latitude: c.Latitude, Longitude: c.Longitude}
}

// PresenceRecord is the document layout of /user_presence/{docId}, written by
// the presence tracker in the mobile clients.
type PresenceRecord struct {
	UID       string  `firestore:"uid"`
	Latitude  float64 `firestore:"latitude"`
	Longitude float64 `firestore:"longitude"`
	Geohash   string  `firestore:"geohash"`
	FCMToken  string  `firestore:"fcmToken"`
}

// UserRecord is the subset of /users/{uid} used by the registry fallback.
type UserRecord struct {
	ID       string
	Location *geo.Point
	FCMToken string
}

// CandidateFromPresence builds a candidate from raw presence document fields.
// Fields are read loosely: coordinates may be numbers or numeric strings.
func CandidateFromPresence(docID string, data map[string]interface{}) Candidate {
	return Candidate{
		DocID:     docID,
		UID:       stringField(data, "uid"),
		Latitude:  geo.ParseCoordinate(data["latitude"]),
		Longitude: geo.ParseCoordinate(data["longitude"]),
		Geohash:   stringField(data, "geohash"),
		FCMToken:  stringField(data, "fcmToken"),
		Source:    SourcePresence,
	}
}

// UserFromDocument builds a registry record from raw /users document fields.
// location may be a {latitude, longitude} map or a Firestore GeoPoint.
func UserFromDocument(docID string, data map[string]interface{}) UserRecord {
	u := UserRecord{
		ID:       docID,
		FCMToken: stringField(data, "fcmToken"),
	}

	switch loc := data["location"].(type) {
	case *latlng.LatLng:
		if loc != nil {
			u.Location = &geo.Point{Latitude: loc.GetLatitude(), Longitude: loc.GetLongitude()}
		}
	case map[string]interface{}:
		u.Location = &geo.Point{
			Latitude:  geo.ParseCoordinate(loc["latitude"]),
			Longitude: geo.ParseCoordinate(loc["longitude"]),
		}
	}

	return u
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}
