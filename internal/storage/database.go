package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrIncidentIntegrity is returned when more than one open incident exists
// for a target. The invariant is at most one; a violation is surfaced rather
// than silently picking the newest row.
var ErrIncidentIntegrity = errors.New("multiple open incidents for target")

type Database struct {
	db *gorm.DB
}

func New(dbPath string) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Target{}, &Check{}, &Incident{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn inside a single transaction. All incident mutations for
// one check cycle go through here so a concurrent reader never observes a
// partial update.
func (d *Database) Transaction(fn func(tx *Database) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

// UpsertTarget creates or updates a target keyed by name.
func (d *Database) UpsertTarget(t *Target) error {
	var existing Target
	err := d.db.Where("name = ?", t.Name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return d.db.Create(t).Error
	}
	if err != nil {
		return err
	}

	existing.URL = t.URL
	existing.Method = t.Method
	existing.ExpectedStatus = t.ExpectedStatus
	existing.Timeout = t.Timeout
	existing.Contains = t.Contains
	existing.Enabled = t.Enabled
	existing.AlertChannels = t.AlertChannels
	if err := d.db.Save(&existing).Error; err != nil {
		return err
	}
	*t = existing
	return nil
}

func (d *Database) GetTarget(id uint) (*Target, error) {
	var t Target
	err := d.db.First(&t, id).Error
	return &t, err
}

func (d *Database) GetTargetByName(name string) (*Target, error) {
	var t Target
	err := d.db.Where("name = ?", name).First(&t).Error
	return &t, err
}

func (d *Database) ListTargets() ([]Target, error) {
	var targets []Target
	err := d.db.Order("id asc").Find(&targets).Error
	return targets, err
}

func (d *Database) ListEnabledTargets() ([]Target, error) {
	var targets []Target
	err := d.db.Where("enabled = ?", true).Order("id asc").Find(&targets).Error
	return targets, err
}

// RecordCheck appends one check row. Checks are never updated or deleted.
func (d *Database) RecordCheck(c *Check) error {
	return d.db.Create(c).Error
}

func (d *Database) GetRecentChecks(limit int) ([]Check, error) {
	var checks []Check
	err := d.db.Order("created_at desc").Limit(limit).Find(&checks).Error
	return checks, err
}

func (d *Database) GetRecentTargetChecks(targetID uint, limit int) ([]Check, error) {
	var checks []Check
	err := d.db.Where("target_id = ?", targetID).
		Order("created_at desc").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}

// GetCheckStats aggregates check counts and average success response time for
// one target since the given time.
func (d *Database) GetCheckStats(targetID uint, since time.Time) (total, successful int64, avgResponseTime float64, err error) {
	err = d.db.Model(&Check{}).
		Where("target_id = ? AND created_at >= ?", targetID, since).
		Count(&total).Error
	if err != nil {
		return
	}

	err = d.db.Model(&Check{}).
		Where("target_id = ? AND created_at >= ? AND status = ?", targetID, since, StatusSuccess).
		Count(&successful).Error
	if err != nil {
		return
	}

	var avg struct{ Avg float64 }
	err = d.db.Model(&Check{}).
		Select("AVG(response_time) as avg").
		Where("target_id = ? AND created_at >= ? AND status = ?", targetID, since, StatusSuccess).
		Scan(&avg).Error
	avgResponseTime = avg.Avg

	return
}

// GetOpenIncident returns the open incident for a target, or nil when the
// target is healthy. Finding more than one open incident returns
// ErrIncidentIntegrity.
func (d *Database) GetOpenIncident(targetID uint) (*Incident, error) {
	var incidents []Incident
	err := d.db.Where("target_id = ? AND status = ?", targetID, IncidentOpen).
		Order("started_at desc").
		Find(&incidents).Error
	if err != nil {
		return nil, err
	}

	switch len(incidents) {
	case 0:
		return nil, nil
	case 1:
		return &incidents[0], nil
	default:
		return nil, fmt.Errorf("target %d has %d open incidents: %w", targetID, len(incidents), ErrIncidentIntegrity)
	}
}

// CreateIncident opens a new incident for the target with a failure count of 1.
func (d *Database) CreateIncident(targetID, checkID uint) (*Incident, error) {
	incident := &Incident{
		TargetID:     targetID,
		Status:       IncidentOpen,
		StartedAt:    time.Now(),
		FailureCount: 1,
		LastCheckID:  checkID,
	}
	if err := d.db.Create(incident).Error; err != nil {
		return nil, err
	}
	return incident, nil
}

// UpdateIncident records the latest contributing check and, when
// incrementCount is set, bumps the consecutive failure count by one.
func (d *Database) UpdateIncident(incidentID, checkID uint, incrementCount bool) error {
	updates := map[string]interface{}{
		"last_check_id": checkID,
	}
	if incrementCount {
		updates["failure_count"] = gorm.Expr("failure_count + 1")
	}
	return d.db.Model(&Incident{}).Where("id = ?", incidentID).Updates(updates).Error
}

// ResolveIncident closes an incident. Resolution is terminal; the WHERE clause
// on status means a resolved incident is never touched again.
func (d *Database) ResolveIncident(incidentID uint) error {
	now := time.Now()
	return d.db.Model(&Incident{}).
		Where("id = ? AND status = ?", incidentID, IncidentOpen).
		Updates(map[string]interface{}{
			"status":      IncidentResolved,
			"resolved_at": now,
		}).Error
}

// MarkAlertSent flips the per-channel alerted flag on an incident. The channel
// maps onto a fixed column, never a dynamically built name.
func (d *Database) MarkAlertSent(incidentID uint, channel AlertChannel) error {
	var column string
	switch channel {
	case ChannelSlack:
		column = "slack_alerted"
	case ChannelEmail:
		column = "email_alerted"
	case ChannelSMS:
		column = "sms_alerted"
	default:
		return fmt.Errorf("unknown alert channel %q", channel)
	}
	return d.db.Model(&Incident{}).Where("id = ?", incidentID).Update(column, true).Error
}

func (d *Database) GetIncident(id uint) (*Incident, error) {
	var i Incident
	err := d.db.First(&i, id).Error
	return &i, err
}

func (d *Database) ListOpenIncidents() ([]Incident, error) {
	var incidents []Incident
	err := d.db.Where("status = ?", IncidentOpen).
		Order("started_at desc").
		Find(&incidents).Error
	return incidents, err
}

func (d *Database) GetRecentIncidents(targetID uint, limit int) ([]Incident, error) {
	var incidents []Incident
	err := d.db.Where("target_id = ?", targetID).
		Order("started_at desc").
		Limit(limit).
		Find(&incidents).Error
	return incidents, err
}
