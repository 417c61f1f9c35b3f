package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Processing ProcessingConfig `yaml:"processing" envconfig:"PROCESSING"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console stderr file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_if=Output file,required_if=Output both"`
}

// ProcessingConfig tunes the ingestion pipeline
type ProcessingConfig struct {
	// BatchSize is the number of rows built between progress notifications.
	BatchSize int `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"min=1,max=100000"`
	// Workers > 1 builds batches and folds statistics concurrently.
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
	// MinItemObservations: items observed this many times or fewer are left out of item analysis.
	// It can only be raised above 10.
	MinItemObservations int `yaml:"min_item_observations" envconfig:"MIN_ITEM_OBSERVATIONS" validate:"min=10"`
	// ActivityWindow decides when a vehicle or inspector counts as inactive.
	ActivityWindow time.Duration `yaml:"activity_window" envconfig:"ACTIVITY_WINDOW" validate:"min=0"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"min=0,max=1"`
}

// EnvPrefix namespaces all environment variables, e.g. INSPECT_PROCESSING_WORKERS
const EnvPrefix = "INSPECT"

// ConfigFileEnv points Load at an explicit YAML file
const ConfigFileEnv = "INSPECT_CONFIG_FILE"

// Load builds the configuration from defaults, an optional YAML file and the environment.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	return loadWith(getConfigFilePath())
}

// LoadFile is Load with an explicit YAML file instead of the searched locations.
// Environment variables still take precedence over the file.
func LoadFile(path string) (*Config, error) {
	return loadWith(path)
}

// loadWith overlays the YAML file at path (if any), then the environment, on the defaults
func loadWith(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values on cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stderr",
			FilePath: "logs/processor.log",
		},
		Processing: ProcessingConfig{
			BatchSize:           500,
			Workers:             1,
			MinItemObservations: 10,
			ActivityWindow:      30 * 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "vehinspect",
			Environment:   "development",
			EnableTracing: false,
			EnableMetrics: true,
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
	}
}
