// Package firebase bootstraps the Firebase app shared by the presence store,
// the report trigger and the push dispatcher.
package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client wraps the Firebase services used by the alert pipeline.
type Client struct {
	Firestore *firestore.Client
	Messaging *messaging.Client
}

// NewClient initializes Firestore and Cloud Messaging. An empty credJSON
// falls back to application default credentials, which also covers the
// Firestore emulator (FIRESTORE_EMULATOR_HOST).
func NewClient(ctx context.Context, projectID, credJSON string) (*Client, error) {
	var opts []option.ClientOption
	if credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to get Messaging client: %w", err)
	}

	return &Client{
		Firestore: firestoreClient,
		Messaging: messagingClient,
	}, nil
}

// Close closes the Firestore client.
func (c *Client) Close() error {
	if c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}
