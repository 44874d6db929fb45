package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/eternisai/fire-alerts/internal/logger"
	"golang.org/x/time/rate"
)

// Sender submits a single FCM message. *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Options configures a Service.
type Options struct {
	Enabled bool

	// SendInterval is the minimum spacing between two submissions.
	// Zero disables pacing.
	SendInterval time.Duration

	Appearance Appearance

	// DebugCurl logs a replayable curl command for every failed send.
	// Requires CredJSON and ProjectID.
	DebugCurl bool
	CredJSON  string
	ProjectID string
}

// Service delivers fire alerts via Firebase Cloud Messaging, one token at a time.
type Service struct {
	sender  Sender
	logger  *logger.Logger
	opts    Options
	limiter *rate.Limiter
}

// NewService creates a new push notification service.
func NewService(sender Sender, logger *logger.Logger, opts Options) *Service {
	if opts.Appearance == (Appearance{}) {
		opts.Appearance = DefaultAppearance()
	}

	limit := rate.Inf
	if opts.SendInterval > 0 {
		limit = rate.Every(opts.SendInterval)
	}

	return &Service{
		sender:  sender,
		logger:  logger,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Dispatch sends alert to every token in order. A failed token never stops
// the remaining sends; failures are only tallied.
func (s *Service) Dispatch(ctx context.Context, tokens []string, alert Alert) Tally {
	log := s.logger.WithContext(ctx).WithComponent("push-notifications")

	if !s.opts.Enabled {
		log.Info("push notifications disabled, skipping",
			slog.String("report_id", alert.ReportID),
			slog.Int("recipients", len(tokens)))
		return Tally{Disabled: true}
	}

	if len(tokens) == 0 {
		log.Info("no recipients, nothing to send",
			slog.String("report_id", alert.ReportID))
		return Tally{}
	}

	log.Info(strings.Repeat("=", 80))
	log.Info("🔔 SENDING FIRE ALERTS",
		slog.String("report_id", alert.ReportID),
		slog.String("title", alert.Title),
		slog.Int("device_count", len(tokens)))

	tally := Tally{Results: make([]SendResult, 0, len(tokens))}
	for idx, token := range tokens {
		result := s.sendToDevice(ctx, log, token, alert)
		tally.Attempted++
		tally.Results = append(tally.Results, result)

		if result.Success {
			tally.SuccessCount++
			log.Debug(fmt.Sprintf("device %d/%d sent", idx+1, len(tokens)),
				slog.String("token", result.Token),
				slog.String("response", result.Response))
		} else {
			tally.FailureCount++
			log.Warn(fmt.Sprintf("device %d/%d failed", idx+1, len(tokens)),
				slog.String("token", result.Token),
				slog.String("reason", string(result.Reason)),
				slog.String("error", result.Error))
		}
	}

	log.Info("📊 NOTIFICATION SUMMARY",
		slog.Int("total_devices", len(tokens)),
		slog.Int("successful", tally.SuccessCount),
		slog.Int("failed", tally.FailureCount))

	switch {
	case tally.FailureCount == 0:
		log.Info("✅ ALL NOTIFICATIONS SENT SUCCESSFULLY")
	case tally.SuccessCount > 0:
		log.Warn("⚠️  PARTIAL SUCCESS",
			slog.String("status", fmt.Sprintf("%d/%d sent", tally.SuccessCount, len(tokens))))
	default:
		log.Error("❌ ALL NOTIFICATIONS FAILED")
	}
	log.Info(strings.Repeat("=", 80))

	return tally
}

func (s *Service) sendToDevice(ctx context.Context, log *logger.Logger, token string, alert Alert) SendResult {
	redacted := logger.RedactToken(token)

	if err := s.limiter.Wait(ctx); err != nil {
		return SendResult{
			Token:  redacted,
			Error:  err.Error(),
			Reason: ReasonCanceled,
		}
	}

	message := BuildMessage(token, alert, s.opts.Appearance)
	response, err := s.sender.Send(ctx, message)
	if err != nil {
		if s.opts.DebugCurl && s.opts.CredJSON != "" {
			log.Debug("replay failed send",
				slog.String("token", redacted),
				slog.String("curl", GenerateDebugCurl(ctx, s.opts.CredJSON, s.opts.ProjectID, message)))
		}
		return SendResult{
			Token:  redacted,
			Error:  err.Error(),
			Reason: Classify(err),
		}
	}

	return SendResult{
		Token:    redacted,
		Success:  true,
		Response: response,
	}
}

// Classify maps an FCM send error onto a failure reason.
func Classify(err error) FailureReason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	case messaging.IsUnregistered(err):
		return ReasonUnregistered
	case messaging.IsInvalidArgument(err):
		return ReasonInvalidArgument
	case messaging.IsSenderIDMismatch(err):
		return ReasonSenderMismatch
	case messaging.IsQuotaExceeded(err):
		return ReasonQuotaExceeded
	case messaging.IsUnavailable(err):
		return ReasonUnavailable
	case messaging.IsThirdPartyAuthError(err):
		return ReasonThirdPartyAuth
	case messaging.IsInternal(err):
		return ReasonInternal
	default:
		return ReasonUnknown
	}
}
