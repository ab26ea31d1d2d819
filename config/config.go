package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`

		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	// Directory configuration for entry submission and rating.
	Directory *DirectoryConfig `json:"directory" yaml:"directory"`

	// Subscription configuration for bbox subscriptions and confirmation tokens.
	Subscription *SubscriptionConfig `json:"subscription" yaml:"subscription"`

	// Dispatch configuration for the notification dispatcher pool.
	Dispatch *DispatchConfig `json:"dispatch" yaml:"dispatch"`

	// Notifier configuration for the outbound email channel.
	Notifier *NotifierConfig `json:"notifier" yaml:"notifier"`

	// PubSub configuration for mirroring change events to external consumers.
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// DirectoryConfig defines limits for the entry directory.
type DirectoryConfig struct {
	// Maximum number of entries returned by a bbox listing.
	MaxBboxResults int `json:"maxBboxResults" yaml:"maxBboxResults"`

	// Maximum number of category identifiers per entry.
	MaxCategories int `json:"maxCategories" yaml:"maxCategories"`
}

// SubscriptionConfig defines bbox subscription behaviour.
type SubscriptionConfig struct {
	// Require a subscription-specific token on top of the email confirmation.
	RequireSubscriptionConfirmation bool `json:"requireSubscriptionConfirmation" yaml:"requireSubscriptionConfirmation"`

	// Lifetime of confirmation tokens.
	TokenTTL time.Duration `json:"tokenTtl" yaml:"tokenTtl"`

	// Grid cell size in degrees for the bbox spatial index.
	IndexCellSizeDeg float64 `json:"indexCellSizeDeg" yaml:"indexCellSizeDeg"`
}

// DispatchConfig defines the notification dispatcher pool.
type DispatchConfig struct {
	// Number of concurrent dispatcher workers.
	Workers int `json:"workers" yaml:"workers"`

	// Maximum delivery attempts per (event, user) pair before it is marked failed.
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts"`

	// Initial and maximum backoff between retries of a retryable failure.
	InitialBackoff time.Duration `json:"initialBackoff" yaml:"initialBackoff"`
	MaxBackoff     time.Duration `json:"maxBackoff" yaml:"maxBackoff"`

	// How often the pool polls the durable queue when the bus is idle.
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`

	// Number of queue items claimed per poll.
	BatchSize int `json:"batchSize" yaml:"batchSize"`

	// Upper bound on Notifier calls per second across the pool.
	RatePerSecond float64 `json:"ratePerSecond" yaml:"ratePerSecond"`

	// Grace period for draining in-flight sends on shutdown.
	DrainTimeout time.Duration `json:"drainTimeout" yaml:"drainTimeout"`
}

// NotifierConfig defines the outbound notification channel.
type NotifierConfig struct {
	// Provider type: "smtp" for real delivery or "log" for development.
	Provider string `json:"provider" yaml:"provider"`

	// Base URL used in email bodies for entry and confirmation links.
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	SMTP *SMTPConfig `json:"smtp" yaml:"smtp"`
}

// SMTPConfig defines the SMTP relay used by the smtp notifier.
type SMTPConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	From     string `json:"from" yaml:"from"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// PubSubConfig defines the optional external change-event mirror.
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub.
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider).
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider).
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider).
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	cfg.Postgres.Replicas = buildReplicasFromEnv()

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills in sane defaults for optional sections so that the
// services never have to nil-check tuning knobs.
func applyDefaults(cfg *Config) {
	if cfg.Directory == nil {
		cfg.Directory = &DirectoryConfig{}
	}
	if cfg.Directory.MaxBboxResults <= 0 {
		cfg.Directory.MaxBboxResults = 500
	}
	if cfg.Directory.MaxCategories <= 0 {
		cfg.Directory.MaxCategories = 10
	}

	if cfg.Subscription == nil {
		cfg.Subscription = &SubscriptionConfig{}
	}
	if cfg.Subscription.TokenTTL <= 0 {
		cfg.Subscription.TokenTTL = 48 * time.Hour
	}
	if cfg.Subscription.IndexCellSizeDeg <= 0 {
		cfg.Subscription.IndexCellSizeDeg = 5.0
	}

	if cfg.Dispatch == nil {
		cfg.Dispatch = &DispatchConfig{}
	}
	if cfg.Dispatch.Workers <= 0 {
		cfg.Dispatch.Workers = 4
	}
	if cfg.Dispatch.MaxAttempts <= 0 {
		cfg.Dispatch.MaxAttempts = 5
	}
	if cfg.Dispatch.InitialBackoff <= 0 {
		cfg.Dispatch.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.Dispatch.MaxBackoff <= 0 {
		cfg.Dispatch.MaxBackoff = 30 * time.Second
	}
	if cfg.Dispatch.PollInterval <= 0 {
		cfg.Dispatch.PollInterval = 5 * time.Second
	}
	if cfg.Dispatch.BatchSize <= 0 {
		cfg.Dispatch.BatchSize = 50
	}
	if cfg.Dispatch.RatePerSecond <= 0 {
		cfg.Dispatch.RatePerSecond = 20
	}
	if cfg.Dispatch.DrainTimeout <= 0 {
		cfg.Dispatch.DrainTimeout = 15 * time.Second
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
