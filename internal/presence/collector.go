package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eternisai/fire-alerts/internal/geo"
	"github.com/eternisai/fire-alerts/internal/logger"
	"golang.org/x/sync/errgroup"
)

// ErrBoundQuery marks a failed range query against the presence index.
// A bound failure aborts collection: merging the remaining bounds would
// under-notify without any signal.
var ErrBoundQuery = errors.New("presence bound query failed")

// RangeQuerier queries the geohash-ordered presence index.
type RangeQuerier interface {
	QueryRange(ctx context.Context, b geo.Bound) ([]Candidate, error)
}

// UserRegistry lists every registered user.
type UserRegistry interface {
	ListUsers(ctx context.Context) ([]UserRecord, error)
}

// Collection is the merged, unfiltered output of a collect pass.
type Collection struct {
	// Candidates holds presence hits in bound order, duplicates included,
	// or registry users within radius when the fallback ran.
	Candidates []Candidate

	// PerBound is the number of records each bound returned.
	PerBound []int

	UsedFallback    bool
	FallbackScanned int

	// FallbackErr is set when the registry scan failed. The failure is
	// not fatal: collection then reports no candidates.
	FallbackErr error
}

// Collector gathers alert candidates around a point.
type Collector struct {
	index    RangeQuerier
	registry UserRegistry
	logger   *logger.Logger
}

// NewCollector creates a collector. registry may be nil to disable the fallback scan.
func NewCollector(index RangeQuerier, registry UserRegistry, logger *logger.Logger) *Collector {
	return &Collector{
		index:    index,
		registry: registry,
		logger:   logger,
	}
}

// Collect runs one range query per bound concurrently and merges the results
// once all of them are in. When the index yields nothing, the user registry
// is scanned instead and filtered by radius at the source.
func (c *Collector) Collect(ctx context.Context, center geo.Point, radiusMeters float64, bounds []geo.Bound) (*Collection, error) {
	log := c.logger.WithContext(ctx).WithComponent("candidate-collector")

	results := make([][]Candidate, len(bounds))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range bounds {
		g.Go(func() error {
			records, err := c.index.QueryRange(gctx, b)
			if err != nil {
				return fmt.Errorf("%w: bound %d/%d [%s, %s): %w", ErrBoundQuery, i+1, len(bounds), b.Start, b.End, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("presence query failed", slog.String("error", err.Error()))
		return nil, err
	}

	out := &Collection{PerBound: make([]int, len(bounds))}
	for i, records := range results {
		out.PerBound[i] = len(records)
		out.Candidates = append(out.Candidates, records...)
		log.Debug("bound queried",
			slog.Int("bound", i+1),
			slog.String("start", bounds[i].Start),
			slog.String("end", bounds[i].End),
			slog.Int("records", len(records)))
	}

	log.Info("presence candidates collected",
		slog.Int("bounds", len(bounds)),
		slog.Int("candidates", len(out.Candidates)))

	if len(out.Candidates) > 0 || c.registry == nil {
		return out, nil
	}

	out.UsedFallback = true
	c.scanRegistry(ctx, log, center, radiusMeters, out)
	return out, nil
}

func (c *Collector) scanRegistry(ctx context.Context, log *logger.Logger, center geo.Point, radiusMeters float64, out *Collection) {
	log.Info("no presence candidates, scanning user registry")

	users, err := c.registry.ListUsers(ctx)
	if err != nil {
		out.FallbackErr = err
		log.Error("user registry scan failed, treating as empty",
			slog.String("error", err.Error()))
		return
	}
	out.FallbackScanned = len(users)

	for _, u := range users {
		if u.Location == nil || u.FCMToken == "" {
			continue
		}
		if !geo.IsFinite(u.Location.Latitude) || !geo.IsFinite(u.Location.Longitude) {
			continue
		}

		dist := geo.Distance(*u.Location, center)
		if dist > radiusMeters {
			continue
		}

		out.Candidates = append(out.Candidates, Candidate{
			DocID:     u.ID,
			UID:       u.ID,
			Latitude:  u.Location.Latitude,
			Longitude: u.Location.Longitude,
			FCMToken:  u.FCMToken,
			Source:    SourceUserRegistry,
		})
		log.Debug("registry user within radius",
			slog.String("uid", u.ID),
			slog.Float64("distance_m", dist))
	}

	log.Info("user registry scanned",
		slog.Int("users", len(users)),
		slog.Int("candidates", len(out.Candidates)))
}
