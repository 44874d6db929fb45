package alerts

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrReportNotFound = errors.New("report not found")

// ReportStore reads fire reports and records dispatch summaries on them.
type ReportStore struct {
	client     *firestore.Client
	collection string
}

// NewReportStore creates a store over the reports collection.
func NewReportStore(client *firestore.Client, collection string) *ReportStore {
	return &ReportStore{
		client:     client,
		collection: collection,
	}
}

// GetReport returns the raw fields of a report document.
func (s *ReportStore) GetReport(ctx context.Context, reportID string) (map[string]interface{}, error) {
	if s == nil || s.client == nil {
		return nil, status.Error(codes.Internal, "firestore client is nil")
	}

	doc, err := s.client.Collection(s.collection).Doc(reportID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
		}
		return nil, fmt.Errorf("read report %s: %w", reportID, err)
	}
	return doc.Data(), nil
}

// RecordDispatch merges an alertDispatch summary into the report document.
// Other report fields are left untouched.
func (s *ReportStore) RecordDispatch(ctx context.Context, r *Result) error {
	if s == nil || s.client == nil {
		return status.Error(codes.Internal, "firestore client is nil")
	}

	summary := map[string]interface{}{
		"alertDispatch": map[string]interface{}{
			"status":       string(r.Status),
			"invocationId": r.InvocationID,
			"recipients":   r.Recipients,
			"sent":         r.Sent,
			"failed":       r.Failed,
			"usedFallback": r.UsedFallback,
			"completedAt":  firestore.ServerTimestamp,
		},
	}

	_, err := s.client.Collection(s.collection).Doc(r.ReportID).Set(ctx, summary, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("record dispatch for %s: %w", r.ReportID, err)
	}
	return nil
}
