package models

import "time"

// Config holds configuration for a correlation run
type Config struct {
	// Inventory settings
	Source string   `mapstructure:"source"` // "file", "dnac", "snmp"
	Paths  []string `mapstructure:"paths"`

	// Feature map override (TOML); empty uses the built-in table
	FeatureMap string `mapstructure:"feature_map"`

	// Output settings
	OutputFormat string `mapstructure:"format"` // "terminal", "json", "sarif", "pdf", "markdown"
	OutputFile   string `mapstructure:"output"`
	TopN         int    `mapstructure:"top_n"`
	Severity     string `mapstructure:"severity"` // Restrict printed results to one severity
	FailOn       string `mapstructure:"fail_on"`  // Exit 1 if any advisory >= this severity

	// Cache settings
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	NoCache  bool          `mapstructure:"no_cache"`

	// API settings
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`

	PSIRT PSIRTConfig `mapstructure:"psirt"`
	DNAC  DNACConfig  `mapstructure:"dnac"`
	SNMP  SNMPConfig  `mapstructure:"snmp"`

	// History
	Persist bool   `mapstructure:"persist"`
	DBPath  string `mapstructure:"db_path"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "json" or "console"
	Trace     bool   `mapstructure:"trace"`

	// Server
	Addr string `mapstructure:"addr"`
}

// PSIRTConfig holds credentials and endpoints for the advisory API
type PSIRTConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenURL     string `mapstructure:"token_url"`
	BaseURL      string `mapstructure:"base_url"`
}

// DNACConfig holds credentials for the network controller
type DNACConfig struct {
	Host               string `mapstructure:"host"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// SNMPConfig holds SNMP polling settings
type SNMPConfig struct {
	Targets   []string      `mapstructure:"targets"`
	Community string        `mapstructure:"community"`
	Port      uint16        `mapstructure:"port"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source:       "file",
		Paths:        []string{"."},
		OutputFormat: "terminal",
		TopN:         10,
		CacheTTL:     24 * time.Hour,
		NoCache:      false,
		Timeout:      60 * time.Second,
		// One request per distinct (OS type, version) pair, bounded
		MaxConcurrent: 8,
		PSIRT: PSIRTConfig{
			TokenURL: "https://id.cisco.com/oauth2/default/v1/token",
			BaseURL:  "https://apix.cisco.com/security/advisories/v2",
		},
		SNMP: SNMPConfig{
			Community: "public",
			Port:      161,
			Timeout:   2 * time.Second,
		},
		LogLevel:  "info",
		LogFormat: "console",
		Addr:      ":8080",
	}
}
