package presence

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/eternisai/fire-alerts/internal/geo"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore reads the presence index and the user registry from Firestore.
type FirestoreStore struct {
	client             *firestore.Client
	presenceCollection string
	usersCollection    string
}

// NewFirestoreStore creates a store over the given collections.
func NewFirestoreStore(client *firestore.Client, presenceCollection, usersCollection string) *FirestoreStore {
	return &FirestoreStore{
		client:             client,
		presenceCollection: presenceCollection,
		usersCollection:    usersCollection,
	}
}

// QueryRange returns presence records whose geohash lies in [b.Start, b.End),
// ordered by geohash.
// Requires a single-field index on geohash (created by default).
func (s *FirestoreStore) QueryRange(ctx context.Context, b geo.Bound) ([]Candidate, error) {
	if s == nil || s.client == nil {
		return nil, status.Error(codes.Internal, "firestore client is nil")
	}

	docs, err := s.client.Collection(s.presenceCollection).
		OrderBy("geohash", firestore.Asc).
		StartAt(b.Start).
		EndBefore(b.End).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s geohash [%s, %s): %w", s.presenceCollection, b.Start, b.End, err)
	}

	candidates := make([]Candidate, 0, len(docs))
	for _, doc := range docs {
		candidates = append(candidates, CandidateFromPresence(doc.Ref.ID, doc.Data()))
	}
	return candidates, nil
}

// ListUsers streams the whole user registry.
func (s *FirestoreStore) ListUsers(ctx context.Context) ([]UserRecord, error) {
	if s == nil || s.client == nil {
		return nil, status.Error(codes.Internal, "firestore client is nil")
	}

	iter := s.client.Collection(s.usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []UserRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.usersCollection, err)
		}
		users = append(users, UserFromDocument(doc.Ref.ID, doc.Data()))
	}
	return users, nil
}

// UpsertPresence writes a presence record keyed by uid, computing the geohash
// when it is empty. Used by tooling that seeds the index.
func (s *FirestoreStore) UpsertPresence(ctx context.Context, rec PresenceRecord) error {
	if s == nil || s.client == nil {
		return status.Error(codes.Internal, "firestore client is nil")
	}
	if rec.UID == "" {
		return status.Error(codes.InvalidArgument, "uid must be non-empty")
	}
	if rec.Geohash == "" {
		rec.Geohash = geo.Encode(rec.Latitude, rec.Longitude, geo.DefaultPrecision)
	}

	_, err := s.client.Collection(s.presenceCollection).Doc(rec.UID).Set(ctx, rec)
	if err != nil {
		return fmt.Errorf("write presence for %s: %w", rec.UID, err)
	}
	return nil
}
