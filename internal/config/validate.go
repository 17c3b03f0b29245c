package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/reporter"
)

var knownSources = map[string]bool{
	"file": true,
	"dnac": true,
	"snmp": true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

const (
	minTimeout       = time.Second
	maxConcurrentCap = 64
)

// Validate checks the config and returns every problem found. Concurrency
// and timeout are clamped into a usable range instead of being reported.
func Validate(cfg *models.Config) []error {
	var errs []error

	if !knownFormat(cfg.OutputFormat) {
		errs = append(errs, fmt.Errorf("unknown output format %q", cfg.OutputFormat))
	}
	if !knownSources[strings.ToLower(cfg.Source)] {
		errs = append(errs, fmt.Errorf("unknown inventory source %q (want file, dnac or snmp)", cfg.Source))
	}

	if cfg.Severity != "" && models.ParseSeverity(cfg.Severity) == models.SeverityNone {
		errs = append(errs, fmt.Errorf("unknown severity %q", cfg.Severity))
	}
	if cfg.FailOn != "" && models.ParseSeverity(cfg.FailOn) == models.SeverityNone {
		errs = append(errs, fmt.Errorf("unknown fail_on severity %q", cfg.FailOn))
	}

	if cfg.LogLevel != "" && !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, fmt.Errorf("unknown log_level %q", cfg.LogLevel))
	}

	errs = appendURLError(errs, "psirt.token_url", cfg.PSIRT.TokenURL)
	errs = appendURLError(errs, "psirt.base_url", cfg.PSIRT.BaseURL)
	errs = appendURLError(errs, "dnac.host", cfg.DNAC.Host)

	switch strings.ToLower(cfg.Source) {
	case "dnac":
		if cfg.DNAC.Host == "" {
			errs = append(errs, fmt.Errorf("dnac.host is required for the dnac source"))
		}
	case "snmp":
		if len(cfg.SNMP.Targets) == 0 {
			errs = append(errs, fmt.Errorf("snmp.targets is required for the snmp source"))
		}
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	} else if cfg.MaxConcurrent > maxConcurrentCap {
		cfg.MaxConcurrent = maxConcurrentCap
	}
	if cfg.Timeout < minTimeout {
		cfg.Timeout = minTimeout
	}

	return errs
}

// RequireCredentials reports an error when the advisory API credentials are missing
func RequireCredentials(cfg *models.Config) error {
	var missing []string
	if cfg.PSIRT.ClientID == "" {
		missing = append(missing, "client id (CISCO_CLIENT_ID)")
	}
	if cfg.PSIRT.ClientSecret == "" {
		missing = append(missing, "client secret (CISCO_CLIENT_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing PSIRT API %s", strings.Join(missing, " and "))
	}
	return nil
}

func knownFormat(format string) bool {
	format = strings.ToLower(format)
	return format == "md" || slices.Contains(reporter.Formats, format)
}

func appendURLError(errs []error, key, raw string) []error {
	if raw == "" {
		return errs
	}
	u, err := url.Parse(raw)
	if err != nil {
		return append(errs, fmt.Errorf("%s %q is not a valid URL: %w", key, raw, err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return append(errs, fmt.Errorf("%s scheme must be http or https, got %q", key, u.Scheme))
	}
	return errs
}
