package notifications

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"
	"time"

	"firebase.google.com/go/v4/messaging"
)

const (
	DefaultTitle        = "🔥 Fire Alert - Community Report"
	DefaultBodyTemplate = "Fire reported {{.RadiusKm}}km from you: {{.Description}}"

	// AlertType is the data payload "type" the clients route on.
	AlertType = "fire_report"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Alert is the content of one fire alert, shared by every recipient.
type Alert struct {
	Title       string
	Body        string
	ReportID    string
	Latitude    float64
	Longitude   float64
	RadiusKm    int
	Description string
	Timestamp   time.Time
}

// Data returns the structured payload delivered alongside the notification.
// FCM data values must be strings.
func (a Alert) Data() map[string]string {
	return map[string]string{
		"type":        AlertType,
		"reportId":    a.ReportID,
		"latitude":    strconv.FormatFloat(a.Latitude, 'f', -1, 64),
		"longitude":   strconv.FormatFloat(a.Longitude, 'f', -1, 64),
		"radiusKm":    strconv.Itoa(a.RadiusKm),
		"description": a.Description,
		"timestamp":   a.Timestamp.UTC().Format(timestampLayout),
	}
}

// ParseBodyTemplate parses a notification body template. The template is
// executed against an Alert.
func ParseBodyTemplate(text string) (*template.Template, error) {
	if text == "" {
		text = DefaultBodyTemplate
	}
	tmpl, err := template.New("body").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	return tmpl, nil
}

// RenderBody executes tmpl against the alert.
func RenderBody(tmpl *template.Template, a Alert) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, a); err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return buf.String(), nil
}

// BuildMessage creates the single-recipient FCM message for token.
func BuildMessage(token string, alert Alert, look Appearance) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: alert.Title,
			Body:  alert.Body,
		},
		Data: alert.Data(),
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: look.ChannelID,
				Icon:      look.Icon,
				Color:     look.Color,
				Sound:     look.Sound,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: alert.Title,
						Body:  alert.Body,
					},
					Sound:    look.Sound,
					Category: look.Category,
				},
			},
		},
	}
}
