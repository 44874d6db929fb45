package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/eternisai/fire-alerts/internal/geo"
	"github.com/eternisai/fire-alerts/internal/logger"
	"github.com/eternisai/fire-alerts/internal/notifications"
	"github.com/eternisai/fire-alerts/internal/presence"
	"github.com/eternisai/fire-alerts/internal/recipients"
)

// Status is the final state of one pipeline run.
type Status string

const (
	StatusInvalidReport Status = "invalid_report"
	StatusQueryFailed   Status = "query_failed"
	StatusNoRecipients  Status = "no_recipients"
	StatusDisabled      Status = "disabled"
	StatusDispatched    Status = "dispatched"
)

// Result summarizes one pipeline run.
type Result struct {
	ReportID        string                              `json:"reportId"`
	InvocationID    string                              `json:"invocationId"`
	Status          Status                              `json:"status"`
	Error           string                              `json:"error,omitempty"`
	Bounds          int                                 `json:"bounds"`
	Candidates      int                                 `json:"candidates"`
	CandidateSource presence.Source                     `json:"candidateSource,omitempty"`
	UsedFallback    bool                                `json:"usedFallback"`
	FallbackScanned int                                 `json:"fallbackScanned,omitempty"`
	FallbackError   string                              `json:"fallbackError,omitempty"`
	Filtered        map[recipients.Reason]int           `json:"filtered,omitempty"`
	Recipients      int                                 `json:"recipients"`
	Attempted       int                                 `json:"attempted"`
	Sent            int                                 `json:"sent"`
	Failed          int                                 `json:"failed"`
	FailureReasons  map[notifications.FailureReason]int `json:"failureReasons,omitempty"`
	CompletedAt     time.Time                           `json:"completedAt"`
}

// Collector gathers unfiltered candidates for a set of bounds.
type Collector interface {
	Collect(ctx context.Context, center geo.Point, radiusMeters float64, bounds []geo.Bound) (*presence.Collection, error)
}

// Dispatcher delivers an alert to each token.
type Dispatcher interface {
	Dispatch(ctx context.Context, tokens []string, alert notifications.Alert) notifications.Tally
}

// SummaryRecorder persists the outcome of a run next to the report.
type SummaryRecorder interface {
	RecordDispatch(ctx context.Context, r *Result) error
}

// EventPublisher announces finished runs.
type EventPublisher interface {
	PublishDispatched(ctx context.Context, r *Result) error
}

// ReportHandler runs the pipeline for one report. Both trigger adapters use it.
type ReportHandler interface {
	HandleReport(ctx context.Context, reportID string, data map[string]interface{}) (*Result, error)
}

// PipelineConfig wires a Pipeline. Summary, Events and Metrics are optional.
type PipelineConfig struct {
	Collector  Collector
	Dispatcher Dispatcher
	Summary    SummaryRecorder
	Events     EventPublisher
	Metrics    *Metrics
	Logger     *logger.Logger

	DefaultRadiusMeters float64
	Title               string
	BodyTemplate        *template.Template

	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline is the report trigger: it runs planner, collector, filter and
// dispatcher in sequence for each new report.
type Pipeline struct {
	cfg PipelineConfig
	log *logger.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Collector == nil || cfg.Dispatcher == nil {
		return nil, errors.New("alerts: collector and dispatcher are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Title == "" {
		cfg.Title = notifications.DefaultTitle
	}
	if cfg.BodyTemplate == nil {
		tmpl, err := notifications.ParseBodyTemplate("")
		if err != nil {
			return nil, err
		}
		cfg.BodyTemplate = tmpl
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Pipeline{
		cfg: cfg,
		log: cfg.Logger.WithComponent("report-trigger"),
	}, nil
}

// HandleReport processes one newly created report. Invalid reports yield a
// result with StatusInvalidReport and a nil error; nothing is queried or sent.
// A failed presence query returns an error and nothing is sent. Delivery
// failures are only counted.
func (p *Pipeline) HandleReport(ctx context.Context, reportID string, data map[string]interface{}) (*Result, error) {
	if logger.InvocationIDFromContext(ctx) == "" {
		ctx = logger.WithInvocationID(ctx, logger.GenerateInvocationID())
	}
	ctx = logger.WithReportID(ctx, reportID)

	start := p.cfg.Now()
	result := &Result{
		ReportID:     reportID,
		InvocationID: logger.InvocationIDFromContext(ctx),
	}

	err := p.log.LogOperation(ctx, "handle_report", func() error {
		return p.run(ctx, reportID, data, result)
	})
	if err != nil {
		result.Error = err.Error()
	}

	result.CompletedAt = p.cfg.Now()
	p.cfg.Metrics.Observe(result, result.CompletedAt.Sub(start))

	if result.Status != StatusInvalidReport && result.Status != StatusQueryFailed {
		p.afterDispatch(ctx, result)
	}

	return result, err
}

func (p *Pipeline) run(ctx context.Context, reportID string, data map[string]interface{}, result *Result) error {
	log := p.log.WithContext(ctx)

	report, err := ParseReport(reportID, data, p.cfg.DefaultRadiusMeters)
	if err != nil {
		result.Status = StatusInvalidReport
		log.Warn("invalid fire report, skipping", slog.String("error", err.Error()))
		return nil
	}

	log.Info("processing fire report",
		slog.Float64("latitude", report.Latitude),
		slog.Float64("longitude", report.Longitude),
		slog.Float64("radius_m", report.RadiusMeters),
		slog.Bool("has_reporter", report.ReporterUID != ""))

	bounds := geo.QueryBounds(report.Center(), report.RadiusMeters)
	result.Bounds = len(bounds)

	collection, err := p.cfg.Collector.Collect(ctx, report.Center(), report.RadiusMeters, bounds)
	if err != nil {
		result.Status = StatusQueryFailed
		return fmt.Errorf("collect candidates: %w", err)
	}

	result.Candidates = len(collection.Candidates)
	result.UsedFallback = collection.UsedFallback
	result.FallbackScanned = collection.FallbackScanned
	result.CandidateSource = presence.SourcePresence
	if collection.UsedFallback {
		result.CandidateSource = presence.SourceUserRegistry
	}
	if collection.FallbackErr != nil {
		result.FallbackError = collection.FallbackErr.Error()
	}

	set := recipients.Filter(collection.Candidates, report.Center(), report.RadiusMeters, report.ReporterUID)
	result.Filtered = set.Stats.Dropped
	result.Recipients = set.Len()

	log.Info("recipients selected",
		slog.Int("candidates", result.Candidates),
		slog.Int("recipients", result.Recipients),
		slog.Bool("used_fallback", result.UsedFallback),
		slog.Any("filtered", set.Stats.Dropped))

	alert := p.buildAlert(ctx, report)
	tally := p.cfg.Dispatcher.Dispatch(ctx, set.Tokens, alert)

	result.Attempted = tally.Attempted
	result.Sent = tally.SuccessCount
	result.Failed = tally.FailureCount
	result.FailureReasons = tally.FailureReasons()

	switch {
	case tally.Disabled:
		result.Status = StatusDisabled
	case set.Len() == 0:
		result.Status = StatusNoRecipients
	default:
		result.Status = StatusDispatched
	}

	log.Info("fire report processed",
		slog.String("status", string(result.Status)),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed))

	return nil
}

func (p *Pipeline) buildAlert(ctx context.Context, report Report) notifications.Alert {
	alert := notifications.Alert{
		Title:       p.cfg.Title,
		ReportID:    report.ID,
		Latitude:    report.Latitude,
		Longitude:   report.Longitude,
		RadiusKm:    report.RadiusKm(),
		Description: report.Description,
		Timestamp:   p.cfg.Now(),
	}

	body, err := notifications.RenderBody(p.cfg.BodyTemplate, alert)
	if err != nil {
		p.log.WithContext(ctx).Error("body template failed, using default text",
			slog.String("error", err.Error()))
		body = fmt.Sprintf("Fire reported %dkm from you: %s", alert.RadiusKm, alert.Description)
	}
	alert.Body = body

	return alert
}

// afterDispatch runs the optional side effects. Their failures never change the result.
func (p *Pipeline) afterDispatch(ctx context.Context, result *Result) {
	log := p.log.WithContext(ctx)

	if p.cfg.Summary != nil {
		if err := p.cfg.Summary.RecordDispatch(ctx, result); err != nil {
			log.Warn("failed to record dispatch summary", slog.String("error", err.Error()))
		}
	}
	if p.cfg.Events != nil {
		if err := p.cfg.Events.PublishDispatched(ctx, result); err != nil {
			log.Warn("failed to publish dispatch event", slog.String("error", err.Error()))
		}
	}
}
