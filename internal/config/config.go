// Package config loads run configuration from file, environment and flags.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "PSIRTCHECK"

// envAliases are accepted in addition to the prefixed variable names
var envAliases = map[string][]string{
	"psirt.client_id":     {"CISCO_CLIENT_ID"},
	"psirt.client_secret": {"CISCO_CLIENT_SECRET"},
	"dnac.host":           {"DNAC_HOST"},
	"dnac.username":       {"DNAC_USER"},
	"dnac.password":       {"DNAC_PASS"},
}

// New returns a viper instance carrying the defaults and environment bindings
func New() *viper.Viper {
	v := viper.New()
	d := models.DefaultConfig()

	v.SetDefault("source", d.Source)
	v.SetDefault("paths", d.Paths)
	v.SetDefault("feature_map", d.FeatureMap)
	v.SetDefault("format", d.OutputFormat)
	v.SetDefault("output", d.OutputFile)
	v.SetDefault("top_n", d.TopN)
	v.SetDefault("severity", d.Severity)
	v.SetDefault("fail_on", d.FailOn)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("no_cache", d.NoCache)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_concurrent", d.MaxConcurrent)
	v.SetDefault("psirt.client_id", d.PSIRT.ClientID)
	v.SetDefault("psirt.client_secret", d.PSIRT.ClientSecret)
	v.SetDefault("psirt.token_url", d.PSIRT.TokenURL)
	v.SetDefault("psirt.base_url", d.PSIRT.BaseURL)
	v.SetDefault("dnac.host", d.DNAC.Host)
	v.SetDefault("dnac.username", d.DNAC.Username)
	v.SetDefault("dnac.password", d.DNAC.Password)
	v.SetDefault("dnac.insecure_skip_verify", d.DNAC.InsecureSkipVerify)
	v.SetDefault("snmp.targets", d.SNMP.Targets)
	v.SetDefault("snmp.community", d.SNMP.Community)
	v.SetDefault("snmp.port", d.SNMP.Port)
	v.SetDefault("snmp.timeout", d.SNMP.Timeout)
	v.SetDefault("persist", d.Persist)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("trace", d.Trace)
	v.SetDefault("addr", d.Addr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

// Load reads the config file (explicit, or psirt-check.{yaml,toml,json} from
// ~/.config/psirt-check or the working directory) into v and decodes the result.
// A missing default config file is not an error.
func Load(v *viper.Viper, cfgFile string) (*models.Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("psirt-check")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "psirt-check"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := models.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
