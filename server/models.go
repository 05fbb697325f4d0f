package main

import "time"

// PolicyRecord persists the active policy so the server resumes enforcement
// with the same rules after a restart. A single row is kept.
type PolicyRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Algorithm    string `gorm:"not null"`
	RequestLimit int    `gorm:"not null"`
	TimeWindow   string `gorm:"not null"`
	ClientIDType string `gorm:"not null"`
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ViolationRecord archives denied requests for the dashboard's history view.
// The in-memory log stays authoritative for the capped recent feed; rows
// here are pruned on a retention window.
type ViolationRecord struct {
	ID          uint   `gorm:"primaryKey"`
	ViolationID string `gorm:"uniqueIndex"`
	ClientID    string `gorm:"index"`
	Endpoint    string
	Attempts    int
	Blocked     bool
	OccurredAt  time.Time `gorm:"index"`
	CreatedAt   time.Time
}
