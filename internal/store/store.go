// Package store persists the history of correlation runs in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// ErrNotFound is returned when a run ID is unknown
var ErrNotFound = errors.New("run not found")

// RunModel is one correlation run
type RunModel struct {
	ID              string    `gorm:"primaryKey"`
	CreatedAt       time.Time `gorm:"index"`
	Devices         int
	AffectedDevices int
	Advisories      int
	Critical        int
	High            int
	Medium          int
	Low             int
	FetchFailures   int
	Summary         string
	DeviceRisks     []DeviceRiskModel `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the default table name
func (RunModel) TableName() string { return "runs" }

// DeviceRiskModel is one ranked device of a run
type DeviceRiskModel struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"index"`
	Rank        int
	Hostname    string `gorm:"index"`
	OSType      string
	Version     string
	Score       float64
	Total       int
	Critical    int
	High        int
	Medium      int
	Low         int
	AdvisoryIDs string // comma separated
}

// TableName overrides the default table name
func (DeviceRiskModel) TableName() string { return "device_risks" }

// Store wraps the run history database
type Store struct {
	db *gorm.DB
}

// DefaultPath returns ~/.local/share/psirt-check/history.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "psirt-check", "history.db"), nil
}

// Open opens (creating if needed) the database at path and migrates the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Every connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&RunModel{}, &DeviceRiskModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveReport records a run and its ranked devices. A report without a run
// ID is assigned one.
func (s *Store) SaveReport(ctx context.Context, report *models.Report) error {
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	created := report.GeneratedAt
	if created.IsZero() {
		created = time.Now()
	}

	run := RunModel{
		ID:              report.RunID,
		CreatedAt:       created.UTC(),
		Devices:         len(report.Results),
		AffectedDevices: report.AffectedDevices(),
		Advisories:      report.AdvisoryCount(),
		Critical:        report.SeverityCounts.Critical,
		High:            report.SeverityCounts.High,
		Medium:          report.SeverityCounts.Medium,
		Low:             report.SeverityCounts.Low,
		FetchFailures:   len(report.Diagnostics),
		Summary:         report.Summary,
	}

	for _, e := range report.Ranked {
		var counts models.SeverityCounts
		ids := make([]string, 0, len(e.Result.Advisories))
		for _, adv := range e.Result.Advisories {
			counts.Add(adv.Severity())
			ids = append(ids, adv.Key())
		}
		run.DeviceRisks = append(run.DeviceRisks, DeviceRiskModel{
			RunID:       report.RunID,
			Rank:        e.Rank,
			Hostname:    e.Result.Device.Hostname,
			OSType:      string(e.Result.OSType),
			Version:     e.Result.Device.SoftwareVersion,
			Score:       e.Score,
			Total:       len(e.Result.Advisories),
			Critical:    counts.Critical,
			High:        counts.High,
			Medium:      counts.Medium,
			Low:         counts.Low,
			AdvisoryIDs: strings.Join(ids, ","),
		})
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, without their devices.
// limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunModel, error) {
	var runs []RunModel
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a run with its ranked devices in rank order
func (s *Store) GetRun(ctx context.Context, id string) (*RunModel, error) {
	var run RunModel
	err := s.db.WithContext(ctx).
		Preload("DeviceRisks", func(db *gorm.DB) *gorm.DB { return db.Order("device_risks.rank ASC") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return &run, nil
}

// DeviceHistory returns a device's ranked entries across runs, newest first
func (s *Store) DeviceHistory(ctx context.Context, hostname string, limit int) ([]DeviceRiskModel, error) {
	var risks []DeviceRiskModel
	q := s.db.WithContext(ctx).
		Select("device_risks.*").
		Joins("JOIN runs ON runs.id = device_risks.run_id").
		Where("device_risks.hostname = ?", hostname).
		Order("runs.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&risks).Error; err != nil {
		return nil, fmt.Errorf("failed to load device history: %w", err)
	}
	return risks, nil
}
