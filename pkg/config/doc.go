// Package config provides configuration management for guardrail.
//
// Configuration is loaded from a YAML file with environment variable
// overrides, validated, and optionally watched for changes.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("guardrail.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("guardrail.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GUARDRAIL_SECTION_FIELD:
//
//   - GUARDRAIL_RESILIENCE_RATE_LIMIT_RPM overrides resilience.rate_limit_rpm
//   - GUARDRAIL_AUDIT_DIR overrides audit.dir
//   - GUARDRAIL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Unlike numeric fields, booleans cannot be defaulted after parsing, so the
// file is decoded on top of Default() and an explicit false is kept.
//
// # Hot Reload
//
// Watcher observes the configuration file and hands each successfully
// reloaded Config to a callback. Only settings that are safe to change at
// runtime (limiter capacity, matching tolerances, log level) are expected to
// be applied by the callback.
package config
