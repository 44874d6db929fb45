package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/eternisai/fire-alerts/internal/logger"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	TriggerListener = "firestore_listener"
	TriggerHTTP     = "http_event"
)

// Listener watches the reports collection and runs the pipeline for every
// document created while it is running.
//
// The first snapshot, holding every report that exists at startup, is
// skipped. Reports created while no listener was running (deploys, crashes,
// scale to zero) therefore never get an alert from the listener; replay them
// through the HTTP trigger (POST /v1/events/report-created with the report id)
// if they still matter.
type Listener struct {
	client     *firestore.Client
	collection string
	handler    ReportHandler
	logger     *logger.Logger

	wg    sync.WaitGroup
	ready chan struct{}
}

// NewListener creates a listener on collection.
func NewListener(client *firestore.Client, collection string, handler ReportHandler, logger *logger.Logger) *Listener {
	return &Listener{
		client:     client,
		collection: collection,
		handler:    handler,
		logger:     logger.WithComponent("report-listener"),
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the startup snapshot has been skipped; reports created
// after that are alerted.
func (l *Listener) Ready() <-chan struct{} {
	return l.ready
}

// Run blocks until ctx is canceled or the snapshot stream fails. In-flight
// reports are allowed to finish before Run returns.
func (l *Listener) Run(ctx context.Context) error {
	defer l.wg.Wait()

	it := l.client.Collection(l.collection).Snapshots(ctx)
	defer it.Stop()

	l.logger.Info("listening for new fire reports", slog.String("collection", l.collection))

	initial := true
	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
				l.logger.Info("report listener stopped")
				return nil
			}
			return fmt.Errorf("watch %s: %w", l.collection, err)
		}

		if initial {
			initial = false
			l.logger.Warn("initial snapshot skipped, reports created while the listener was down are not alerted",
				slog.Int("existing_reports", snap.Size))
			close(l.ready)
			continue
		}

		for _, change := range snap.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			l.dispatch(ctx, change.Doc.Ref.ID, change.Doc.Data())
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, reportID string, data map[string]interface{}) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		// Detached from the watch context so shutdown does not cut a dispatch short.
		runCtx := logger.WithTrigger(context.WithoutCancel(ctx), TriggerListener)
		if _, err := l.handler.HandleReport(runCtx, reportID, data); err != nil {
			l.logger.WithContext(runCtx).Error("report pipeline failed",
				slog.String("report_id", reportID),
				slog.String("error", err.Error()))
		}
	}()
}
