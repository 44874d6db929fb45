package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eternisai/fire-alerts/internal/notifications"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// TriggerMode selects which report trigger adapters run.
type TriggerMode string

const (
	TriggerModeListener TriggerMode = "listener"
	TriggerModeHTTP     TriggerMode = "http"
	TriggerModeBoth     TriggerMode = "both"
)

// Listener reports whether the Firestore snapshot listener should run.
func (m TriggerMode) Listener() bool {
	return m == TriggerModeListener || m == TriggerModeBoth
}

// HTTP reports whether the event endpoint should be served.
func (m TriggerMode) HTTP() bool {
	return m == TriggerModeHTTP || m == TriggerModeBoth
}

type Config struct {
	Port    string
	GinMode string

	// Firebase
	FirebaseProjectID string
	FirebaseCredJSON  string

	// Collections
	ReportsCollection  string
	PresenceCollection string
	UsersCollection    string

	DefaultRadiusMeters float64
	TriggerMode         TriggerMode

	// Push Notifications
	PushNotificationsEnabled bool
	PushSendInterval         time.Duration
	PushDebugCurl            bool

	// Event trigger authentication
	TriggerAuthEnabled       bool
	TriggerAuthJWKSURL       string
	TriggerAuthAudience      string
	TriggerAuthAllowedEmails []string

	// Dispatch side effects
	RecordDispatchSummary bool
	NatsURL               string
	AlertEventsSubject    string

	// Logging
	LogLevel  string
	LogFormat string

	// Server
	ServerShutdownTimeoutSeconds int

	Alert AlertConfig `yaml:"alert"`
}

// AlertConfig is the notification content block of the config file.
type AlertConfig struct {
	Title        string `yaml:"title"`
	BodyTemplate string `yaml:"body_template"`

	notifications.Appearance `yaml:",inline"`
}

var AppConfig *Config

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		// Firebase
		FirebaseProjectID: getEnvOrDefault("FIREBASE_PROJECT_ID", ""),
		FirebaseCredJSON:  getEnvOrDefault("FIREBASE_CRED_JSON", ""),

		// Collections
		ReportsCollection:  getEnvOrDefault("REPORTS_COLLECTION", "reports"),
		PresenceCollection: getEnvOrDefault("PRESENCE_COLLECTION", "user_presence"),
		UsersCollection:    getEnvOrDefault("USERS_COLLECTION", "users"),

		DefaultRadiusMeters: getEnvFloat("DEFAULT_RADIUS_METERS", 5000),
		TriggerMode:         TriggerMode(getEnvOrDefault("TRIGGER_MODE", string(TriggerModeListener))),

		// Push Notifications
		PushNotificationsEnabled: getEnvOrDefault("PUSH_NOTIFICATIONS_ENABLED", "true") == "true",
		PushSendInterval:         getEnvAsDuration("PUSH_SEND_INTERVAL", 100*time.Millisecond),
		PushDebugCurl:            getEnvOrDefault("PUSH_DEBUG_CURL", "false") == "true",

		// Event trigger authentication
		TriggerAuthEnabled:       getEnvOrDefault("TRIGGER_AUTH_ENABLED", "false") == "true",
		TriggerAuthJWKSURL:       getEnvOrDefault("TRIGGER_AUTH_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		TriggerAuthAudience:      getEnvOrDefault("TRIGGER_AUTH_AUDIENCE", ""),
		TriggerAuthAllowedEmails: getEnvAsList("TRIGGER_AUTH_ALLOWED_EMAILS"),

		// Dispatch side effects
		RecordDispatchSummary: getEnvOrDefault("RECORD_DISPATCH_SUMMARY", "false") == "true",
		NatsURL:               getEnvOrDefault("NATS_URL", ""),
		AlertEventsSubject:    getEnvOrDefault("ALERT_EVENTS_SUBJECT", "alerts.dispatched"),

		// Logging
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),

		// Server
		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		Alert: DefaultAlertConfig(),
	}

	// The config file only carries the alert block; a missing file keeps the defaults.
	configFilePath := getEnvOrDefault("CONFIG_FILE", "config.yaml")
	configFile, err := os.Open(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("No config file at %v, using default alert content", configFilePath)
	case err != nil:
		log.Fatalf("Failed to open config file: %v", err)
	default:
		defer configFile.Close()
		log.Printf("Loading config file: %v", configFilePath)
		if err := LoadConfigFile(configFile, AppConfig); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}

	if err := AppConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if AppConfig.FirebaseProjectID == "" {
		log.Println("Warning: Firebase project ID is missing. Please set FIREBASE_PROJECT_ID environment variable.")
	}
	if !AppConfig.PushNotificationsEnabled {
		log.Println("Warning: push notifications are disabled, reports will be processed without sending alerts")
	}

	log.Println("Firebase project ID: ", AppConfig.FirebaseProjectID)
}

// DefaultAlertConfig returns the built-in alert content.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		Title:        notifications.DefaultTitle,
		BodyTemplate: notifications.DefaultBodyTemplate,
		Appearance:   notifications.DefaultAppearance(),
	}
}

// Validate checks values that would otherwise only fail at dispatch time.
func (c *Config) Validate() error {
	switch c.TriggerMode {
	case TriggerModeListener, TriggerModeHTTP, TriggerModeBoth:
	default:
		return fmt.Errorf("bad TRIGGER_MODE %q: must be one of %q, %q, %q",
			c.TriggerMode, TriggerModeListener, TriggerModeHTTP, TriggerModeBoth)
	}

	if c.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("DEFAULT_RADIUS_METERS must be positive, got %v", c.DefaultRadiusMeters)
	}
	if c.PushSendInterval < 0 {
		return fmt.Errorf("PUSH_SEND_INTERVAL must not be negative, got %v", c.PushSendInterval)
	}
	if c.ReportsCollection == "" || c.PresenceCollection == "" || c.UsersCollection == "" {
		return errors.New("collection names must be non-empty")
	}

	if c.TriggerAuthEnabled && c.TriggerAuthAudience == "" {
		return errors.New("TRIGGER_AUTH_AUDIENCE is required when TRIGGER_AUTH_ENABLED is true")
	}

	if _, err := notifications.ParseBodyTemplate(c.Alert.BodyTemplate); err != nil {
		return fmt.Errorf("alert.body_template: %w", err)
	}
	if c.Alert.Color != "" && !hexColor.MatchString(c.Alert.Color) {
		return fmt.Errorf("alert.color %q must be in #RRGGBB format", c.Alert.Color)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as float, using default %f: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

// LoadConfigFile decodes the YAML config file over config. Keys absent from
// the file keep their current values.
func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	return nil
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
