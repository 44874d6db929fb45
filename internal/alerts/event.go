package alerts

import (
	"encoding/json"
	"strings"
	"time"
)

// ReportCreatedEvent is the body of POST /v1/events/report-created. It is
// either a Firestore document-created event (Value set) or a plain report
// (ReportID plus optional Report fields).
type ReportCreatedEvent struct {
	Value *firestoreDocument `json:"value"`

	ReportID string                 `json:"reportId"`
	Report   map[string]interface{} `json:"report"`
}

// firestoreDocument uses the Firestore REST value encoding.
type firestoreDocument struct {
	Name   string                    `json:"name"`
	Fields map[string]firestoreValue `json:"fields"`
}

type firestoreValue struct {
	BooleanValue   *bool        `json:"booleanValue"`
	IntegerValue   *json.Number `json:"integerValue"`
	DoubleValue    interface{}  `json:"doubleValue"` // number, or "NaN"/"Infinity"
	StringValue    *string      `json:"stringValue"`
	TimestampValue *string      `json:"timestampValue"`
	GeoPointValue  *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"geoPointValue"`
	MapValue *struct {
		Fields map[string]firestoreValue `json:"fields"`
	} `json:"mapValue"`
	ArrayValue *struct {
		Values []firestoreValue `json:"values"`
	} `json:"arrayValue"`
}

// Resolve returns the report id and, when the event carries them, its fields.
func (e ReportCreatedEvent) Resolve() (string, map[string]interface{}) {
	if e.Value != nil {
		return documentID(e.Value.Name), decodeFields(e.Value.Fields)
	}
	return e.ReportID, e.Report
}

func documentID(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

func decodeFields(fields map[string]firestoreValue) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v.decode()
	}
	return out
}

func (v firestoreValue) decode() interface{} {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != nil:
		if n, err := v.IntegerValue.Int64(); err == nil {
			return n
		}
		return v.IntegerValue.String()
	case v.DoubleValue != nil:
		return v.DoubleValue
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.TimestampValue != nil:
		if t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue); err == nil {
			return t
		}
		return *v.TimestampValue
	case v.GeoPointValue != nil:
		return map[string]interface{}{
			"latitude":  v.GeoPointValue.Latitude,
			"longitude": v.GeoPointValue.Longitude,
		}
	case v.MapValue != nil:
		return decodeFields(v.MapValue.Fields)
	case v.ArrayValue != nil:
		values := make([]interface{}, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			values = append(values, item.decode())
		}
		return values
	}
	return nil
}
