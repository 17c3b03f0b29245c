package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ethanolivertroy/psirt-check/internal/config"
	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/risk"
)

// version is set at build time with -ldflags "-X .../cmd.version=..."
var version = "dev"

// errFailOn signals that an advisory met the --fail-on threshold
var errFailOn = errors.New("advisories at or above the fail-on severity were found")

var (
	v          = config.New()
	cfg        *models.Config
	flagConfig string
	stopLogger func()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "psirt-check [inventory paths...]",
	Short: "Correlate a Cisco device inventory with PSIRT security advisories",
	Long: `psirt-check reads a network device inventory, asks the Cisco PSIRT openVuln
API which advisories affect each device's software, and keeps only those whose
feature is enabled in the device's running configuration.

Devices are then ranked by risk (critical=5, high=3, medium=1, low=0.5) and an
executive summary is produced for the highest-risk devices.

Inventory sources:
  - file: JSON, YAML, TOML or CSV inventory files (default)
  - dnac: Cisco DNA Center / Catalyst Center API
  - snmp: poll sysDescr/sysName from SNMP v2c targets

PSIRT API credentials are read from CISCO_CLIENT_ID and CISCO_CLIENT_SECRET
(or psirt.client_id / psirt.client_secret in the config file).

Examples:
  # Correlate every *inventory* file under the current directory
  psirt-check

  # Correlate a single inventory file, top 5 devices only
  psirt-check ./site-a/inventory.yaml --top 5

  # Pull the inventory from DNA Center
  psirt-check --source dnac

  # Output SARIF for GitHub Code Scanning
  psirt-check --format sarif --output results.sarif

  # Fail a pipeline when any high or critical advisory applies
  psirt-check --fail-on high`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	Version:           version,
	PersistentPreRunE: loadConfig,
	RunE:              runCheck,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// It exits 1 when the fail-on threshold is met and 2 on any other error.
func Execute() {
	err := rootCmd.Execute()
	if stopLogger != nil {
		stopLogger()
	}
	if err != nil {
		if errors.Is(err, errFailOn) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func init() {
	d := models.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default: ~/.config/psirt-check/psirt-check.yaml)")
	pf.String("source", d.Source, "Inventory source: file, dnac, snmp")
	pf.Int("top", d.TopN, "Number of devices to rank and summarize (0 = all)")
	pf.String("feature-map", "", "TOML file replacing the built-in feature keyword table")
	pf.Bool("no-cache", d.NoCache, "Disable the advisory response cache")
	pf.Duration("timeout", d.Timeout, "HTTP request timeout")
	pf.Int("concurrency", d.MaxConcurrent, "Maximum concurrent advisory lookups")
	pf.Bool("persist", d.Persist, "Record the run in the history database")
	pf.String("db", "", "History database path (default: ~/.local/share/psirt-check/history.db)")
	pf.Bool("trace", d.Trace, "Write OpenTelemetry spans to stderr")
	pf.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	pf.String("log-format", d.LogFormat, "Log format: console, json")

	f := rootCmd.Flags()
	f.StringP("output", "o", "", "Output file path (default: stdout)")
	f.StringP("format", "f", d.OutputFormat, "Output format: terminal, json, sarif, pdf, markdown")
	f.String("severity", "", "Only print advisories of this severity")
	f.String("fail-on", "", "Exit 1 if any applicable advisory is at or above this severity")

	bindFlags(v, map[string]*cobra.Command{
		"source":         rootCmd,
		"top_n":          rootCmd,
		"feature_map":    rootCmd,
		"no_cache":       rootCmd,
		"timeout":        rootCmd,
		"max_concurrent": rootCmd,
		"persist":        rootCmd,
		"db_path":        rootCmd,
		"trace":          rootCmd,
		"log_level":      rootCmd,
		"log_format":     rootCmd,
		"output":         rootCmd,
		"format":         rootCmd,
		"severity":       rootCmd,
		"fail_on":        rootCmd,
	})

	rootCmd.AddCommand(featuresCmd, serveCmd, historyCmd)
}

// flagNames maps config keys to flag names where they differ
var flagNames = map[string]string{
	"top_n":          "top",
	"feature_map":    "feature-map",
	"no_cache":       "no-cache",
	"max_concurrent": "concurrency",
	"db_path":        "db",
	"log_level":      "log-level",
	"log_format":     "log-format",
	"fail_on":        "fail-on",
}

func bindFlags(v *viper.Viper, keys map[string]*cobra.Command) {
	for key, c := range keys {
		name := key
		if n, ok := flagNames[key]; ok {
			name = n
		}
		flag := c.Flags().Lookup(name)
		if flag == nil {
			flag = c.PersistentFlags().Lookup(name)
		}
		if flag == nil {
			panic("no flag for config key " + key)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}

// loadConfig resolves file, environment and flag settings and starts logging
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(v, flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if errs := config.Validate(loaded); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	stop, err := logging.Init(loaded.LogFormat, loaded.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	stopLogger = stop
	cfg = loaded
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if len(args) > 0 {
		cfg.Paths = args
	}

	shutdown, err := startTracing(cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	// Create scanner
	s, err := newScanner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize scanner: %w", err)
	}

	// Run correlation
	report, err := s.Scan(ctx)
	if err != nil {
		return fmt.Errorf("correlation failed: %w", err)
	}

	if err := writeReport(cfg, report); err != nil {
		return err
	}

	if cfg.Persist {
		if err := persist(ctx, cfg, report); err != nil {
			return err
		}
	}

	// Exit with error code if advisories meet the threshold
	if cfg.FailOn != "" && risk.AtOrAbove(report.Results, models.ParseSeverity(cfg.FailOn)) {
		return errFailOn
	}
	return nil
}
