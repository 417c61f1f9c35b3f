// Package config loads the processor configuration.
//
// # Configuration Sources
//
// Values are resolved in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables use the INSPECT_ prefix followed by the section
// and field name:
//
//	INSPECT_CONFIG_FILE=/etc/vehinspect/config.yaml
//	INSPECT_LOGGING_LEVEL=debug
//	INSPECT_PROCESSING_WORKERS=4
//	INSPECT_PROCESSING_MIN_ITEM_OBSERVATIONS=10
//	INSPECT_TELEMETRY_ENABLE_TRACING=true
//
// When INSPECT_CONFIG_FILE is unset, config.yaml and configs/config.yaml are
// searched relative to the working directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return fmt.Errorf("load config: %w", err)
//	}
//	processor := dataprocessing.NewProcessor(logger, cfg.Processing)
//
// # Validation
//
// Load and LoadFile validate the merged result with struct tags, so a
// returned *Config always satisfies the documented ranges.
package config
