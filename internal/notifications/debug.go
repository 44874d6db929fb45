package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"golang.org/x/oauth2/google"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// GenerateDebugCurl creates a curl command that replays message against the
// FCM v1 API, platform hints included.
func GenerateDebugCurl(ctx context.Context, credJSON string, projectID string, message *messaging.Message) string {
	creds, err := google.CredentialsFromJSON(ctx, []byte(credJSON), fcmScope)
	if err != nil {
		return fmt.Sprintf("# ERROR: Failed to parse credentials: %v", err)
	}

	token, err := creds.TokenSource.Token()
	if err != nil {
		return fmt.Sprintf("# ERROR: Failed to get OAuth token: %v", err)
	}

	payloadJSON, err := json.Marshal(map[string]interface{}{"message": message})
	if err != nil {
		return fmt.Sprintf("# ERROR: Failed to marshal payload: %v", err)
	}

	return fmt.Sprintf(`curl -X POST \
  'https://fcm.googleapis.com/v1/projects/%s/messages:send' \
  -H 'Authorization: Bearer %s' \
  -H 'Content-Type: application/json' \
  -d '%s'`,
		projectID,
		token.AccessToken,
		strings.ReplaceAll(string(payloadJSON), "'", `'\''`))
}
