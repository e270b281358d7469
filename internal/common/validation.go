package common

import (
	"fmt"
	"slices"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat applies the configured default and validates the result
func ResolveOutputFormat(cfg *CommandConfig, defaultFormat string, supportedFormats []string) error {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaultFormat
	}
	return ValidateOutputFormat(cfg.OutputFormat, supportedFormats)
}
