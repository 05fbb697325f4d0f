package main

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/haasonsaas/limitd/pkg/limiter"
)

// ViolationArchive writes denied-request records to the database. All writes
// are best-effort telemetry: failures are logged and never block a decision.
type ViolationArchive struct {
	db        *gorm.DB
	retention time.Duration
	log       zerolog.Logger
}

func NewViolationArchive(db *gorm.DB, retention time.Duration, log zerolog.Logger) *ViolationArchive {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &ViolationArchive{db: db, retention: retention, log: log}
}

// Record archives one violation and prunes rows past the retention window.
func (a *ViolationArchive) Record(v limiter.Violation) {
	cutoff := time.Now().Add(-a.retention)
	if err := a.db.Where("occurred_at < ?", cutoff).Delete(&ViolationRecord{}).Error; err != nil {
		a.log.Warn().Err(err).Msg("Failed to prune violation archive")
	}

	record := ViolationRecord{
		ViolationID: v.ID,
		ClientID:    v.ClientID,
		Endpoint:    v.Endpoint,
		Attempts:    v.Attempts,
		Blocked:     v.IsBlocked,
		OccurredAt:  v.Timestamp,
	}
	if err := a.db.Create(&record).Error; err != nil {
		a.log.Warn().Err(err).Str("client_id", v.ClientID).Msg("Failed to archive violation")
	}
}

// MarkBlocked flips the archived rows for a client after an administrative
// block.
func (a *ViolationArchive) MarkBlocked(clientID string) {
	if err := a.db.Model(&ViolationRecord{}).Where("client_id = ?", clientID).Update("blocked", true).Error; err != nil {
		a.log.Warn().Err(err).Str("client_id", clientID).Msg("Failed to mark archived violations blocked")
	}
}

// loadPolicyRecord returns the persisted policy, if one exists.
func loadPolicyRecord(db *gorm.DB) (*limiter.Policy, error) {
	var record PolicyRecord
	if err := db.Order("updated_at desc").First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &limiter.Policy{
		Algorithm:    limiter.Algorithm(record.Algorithm),
		RequestLimit: record.RequestLimit,
		TimeWindow:   record.TimeWindow,
		ClientIDType: limiter.ClientIDType(record.ClientIDType),
		Active:       record.Active,
	}, nil
}

// savePolicyRecord upserts the single policy row.
func savePolicyRecord(db *gorm.DB, p limiter.Policy) error {
	record := PolicyRecord{
		ID:           1,
		Algorithm:    string(p.Algorithm),
		RequestLimit: p.RequestLimit,
		TimeWindow:   p.TimeWindow,
		ClientIDType: string(p.ClientIDType),
		Active:       p.Active,
	}
	return db.Save(&record).Error
}
