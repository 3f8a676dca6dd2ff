package config

import (
	"fmt"
	"os"
	"time"
)

// ConfigLoadResult carries a loaded configuration value together with any
// warnings and a flag telling whether the default replaced an invalid
// environment value.
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvWithFallback loads a string from the environment, validating it
// and falling back to the default on failure. An unset variable uses the
// default silently; only invalid values produce a warning. The function
// never fails: the caller always gets a usable value.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return ConfigLoadResult{
				Value: defaultValue,
				Warnings: []string{fmt.Sprintf(
					"Invalid %s='%s': %v, falling back to default '%s'",
					envKey, value, err, defaultValue)},
				FallbackApplied: true,
			}
		}
	}
	return ConfigLoadResult{Value: value}
}

// LoadEnvDuration loads a duration with the same fail-open behavior as
// LoadEnvWithFallback.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	parsed, err := time.ParseDuration(valueStr)
	if err != nil {
		return ConfigLoadResult{
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, valueStr, err, defaultValue)},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return ConfigLoadResult{
				Value: defaultValue,
				Warnings: []string{fmt.Sprintf(
					"Invalid %s='%s': %v, falling back to default '%v'",
					envKey, valueStr, err, defaultValue)},
				FallbackApplied: true,
			}
		}
	}
	return ConfigLoadResult{Value: parsed}
}

// LoadEnvInt loads an integer with the same fail-open behavior as
// LoadEnvWithFallback.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)
	if valueStr == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	var parsed int
	if _, err := fmt.Sscanf(valueStr, "%d", &parsed); err != nil {
		return ConfigLoadResult{
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf(
				"Invalid %s='%s': invalid integer format, falling back to default '%d'",
				envKey, valueStr, defaultValue)},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return ConfigLoadResult{
				Value: defaultValue,
				Warnings: []string{fmt.Sprintf(
					"Invalid %s='%s': %v, falling back to default '%d'",
					envKey, valueStr, err, defaultValue)},
				FallbackApplied: true,
			}
		}
	}
	return ConfigLoadResult{Value: parsed}
}
