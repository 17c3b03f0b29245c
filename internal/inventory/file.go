package inventory

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/parsers"
)

// FileProvider loads devices from inventory files. Paths may name files
// directly or directories, which are walked for files whose name contains
// "inventory".
type FileProvider struct {
	Paths  []string
	logger *zap.Logger
}

// NewFileProvider creates a provider over the given paths
func NewFileProvider(paths ...string) *FileProvider {
	return &FileProvider{Paths: paths, logger: logging.L("inventory")}
}

// Devices parses every inventory file found under the configured paths
func (p *FileProvider) Devices(ctx context.Context) ([]models.Device, error) {
	var records []parsers.Record

	for _, path := range p.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
		}

		if !info.IsDir() {
			// Explicit files must parse
			parser := parsers.ForFile(filepath.Base(path))
			if parser == nil {
				return nil, fmt.Errorf("unsupported inventory format: %s", path)
			}
			recs, err := parseFile(parser, path)
			if err != nil {
				return nil, err
			}
			records = append(records, recs...)
			continue
		}

		err = filepath.WalkDir(path, func(fp string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				name := d.Name()
				if fp != path && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}

			if !strings.Contains(strings.ToLower(d.Name()), "inventory") {
				return nil
			}
			parser := parsers.ForFile(d.Name())
			if parser == nil {
				return nil
			}

			recs, err := parseFile(parser, fp)
			if err != nil {
				// Log but don't fail on individual file parse errors
				p.logger.Warn("skipping inventory file", zap.String("path", fp), zap.Error(err))
				return nil
			}
			records = append(records, recs...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return p.toDevices(records)
}

func (p *FileProvider) toDevices(records []parsers.Record) ([]models.Device, error) {
	devices := make([]models.Device, 0, len(records))
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		device := rec.Device()
		if device.Hostname == "" {
			p.logger.Warn("skipping inventory record without hostname", zap.String("path", rec.SourceFile))
			continue
		}
		if seen[device.Hostname] {
			p.logger.Warn("duplicate hostname in inventory", zap.String(logging.KeyHostname, device.Hostname))
		}
		seen[device.Hostname] = true

		if rec.ConfigFile != "" && device.Config == "" {
			config, err := readConfig(rec.SourceFile, rec.ConfigFile)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", device.Hostname, err)
			}
			device.Config = config
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func parseFile(parser parsers.Parser, path string) ([]parsers.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	return parser.Parse(path, content)
}

// readConfig loads a running configuration, resolving relative paths
// against the directory of the inventory file that referenced it
func readConfig(inventoryFile, configFile string) (string, error) {
	if !filepath.IsAbs(configFile) {
		configFile = filepath.Join(filepath.Dir(inventoryFile), configFile)
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	return strings.ToLower(string(data)), nil
}
