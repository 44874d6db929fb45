package notifications

// FailureReason classifies a rejected delivery.
type FailureReason string

const (
	ReasonUnregistered    FailureReason = "unregistered"
	ReasonInvalidArgument FailureReason = "invalid_argument"
	ReasonSenderMismatch  FailureReason = "sender_id_mismatch"
	ReasonQuotaExceeded   FailureReason = "quota_exceeded"
	ReasonUnavailable     FailureReason = "unavailable"
	ReasonThirdPartyAuth  FailureReason = "third_party_auth"
	ReasonInternal        FailureReason = "internal"
	ReasonCanceled        FailureReason = "canceled"
	ReasonUnknown         FailureReason = "unknown"
)

// Appearance holds the platform delivery hints attached to every alert.
type Appearance struct {
	ChannelID string `yaml:"channel"`
	Icon      string `yaml:"icon"`
	Color     string `yaml:"color"`
	Sound     string `yaml:"sound"`
	Category  string `yaml:"category"`
}

// DefaultAppearance returns the hints the mobile clients register for fire alerts.
func DefaultAppearance() Appearance {
	return Appearance{
		ChannelID: "fire_alerts",
		Icon:      "ic_fire_alert",
		Color:     "#FF6B00",
		Sound:     "default",
		Category:  "fire_alerts",
	}
}

// SendResult represents the result of sending an alert to one token.
type SendResult struct {
	Token    string // redacted
	Success  bool
	Response string
	Error    string
	Reason   FailureReason
}

// Tally is the outcome of a dispatch.
type Tally struct {
	Attempted    int
	SuccessCount int
	FailureCount int
	Disabled     bool
	Results      []SendResult
}

// Failures returns the failed results in send order.
func (t Tally) Failures() []SendResult {
	var out []SendResult
	for _, r := range t.Results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// FailureReasons counts failures per reason.
func (t Tally) FailureReasons() map[FailureReason]int {
	counts := map[FailureReason]int{}
	for _, r := range t.Results {
		if !r.Success {
			counts[r.Reason]++
		}
	}
	return counts
}
