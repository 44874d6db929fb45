package alerts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/eternisai/fire-alerts/internal/errors"
	"github.com/eternisai/fire-alerts/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReportReader loads a report when an event only carries its id.
type ReportReader interface {
	GetReport(ctx context.Context, reportID string) (map[string]interface{}, error)
}

type Handler struct {
	pipeline ReportHandler
	reports  ReportReader
	logger   *logger.Logger
}

// NewHandler creates the HTTP trigger. reports may be nil, in which case
// events must carry the report fields.
func NewHandler(pipeline ReportHandler, reports ReportReader, logger *logger.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		reports:  reports,
		logger:   logger.WithComponent("http-trigger"),
	}
}

// NewRouter mounts the health and metrics endpoints, plus the trigger when h
// is non-nil. eventAuth runs in front of the trigger only.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, eventAuth ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	if h != nil {
		v1 := router.Group("/v1", eventAuth...)
		{
			v1.POST("/events/report-created", h.ReportCreated)
		}
	}

	return router
}

// POST /v1/events/report-created
//
// Always answers 200 once the pipeline ran, failed queries included, so the
// event source does not redeliver and duplicate alerts.
func (h *Handler) ReportCreated(c *gin.Context) {
	var event ReportCreatedEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		apierrors.AbortWithBadRequest(c, "invalid event: "+err.Error(), nil)
		return
	}

	reportID, data := event.Resolve()
	if reportID == "" {
		apierrors.AbortWithBadRequest(c, "event has no report id", nil)
		return
	}

	ctx := logger.WithTrigger(c.Request.Context(), TriggerHTTP)
	ctx = logger.WithInvocationID(ctx, logger.GenerateInvocationID())

	if data == nil {
		if h.reports == nil {
			apierrors.AbortWithBadRequest(c, "event has no report fields", map[string]interface{}{"report_id": reportID})
			return
		}

		var err error
		data, err = h.reports.GetReport(ctx, reportID)
		if errors.Is(err, ErrReportNotFound) {
			apierrors.AbortWithReportNotFound(c, reportID)
			return
		}
		if err != nil {
			h.logger.WithContext(ctx).Error("failed to load report",
				slog.String("report_id", reportID),
				slog.String("error", err.Error()))
			apierrors.AbortWithInternal(c, "failed to load report", nil)
			return
		}
	}

	result, err := h.pipeline.HandleReport(ctx, reportID, data)
	if err != nil {
		h.logger.WithContext(ctx).Error("report pipeline failed",
			slog.String("report_id", reportID),
			slog.String("error", err.Error()))
	}
	if result == nil {
		apierrors.AbortWithInternal(c, "report pipeline failed", nil)
		return
	}

	c.JSON(http.StatusOK, result)
}
