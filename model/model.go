package model

import (
	"time"
)

// Binding ties one Telegram user to one NewAPI site account, 1:1 in both
// directions. Created by the bind ritual, destroyed by unbind/purge; the
// check-in engine owns LastCheckInAt.
type Binding struct {
	ID         uint  `gorm:"primaryKey"`
	ChatID     int64 `gorm:"uniqueIndex"` // Telegram user ID
	SiteUserID int64 `gorm:"uniqueIndex"` // NewAPI user ID
	CreatedAt  time.Time

	LastCheckInAt *time.Time // UTC; nil until the first check-in

	// Low-quota watcher settings and cache
	NotifyEnabled   bool
	NotifyThreshold float64 `gorm:"default:10.0"` // display units
	LastQuota       float64 // display units, last seen by the watcher
	LastCheckedAt   time.Time
}

// Heist outcome tags as stored in the ledger.
const (
	OutcomeSuccess  = "SUCCESS"
	OutcomeCritical = "CRITICAL"
	OutcomeFailure  = "FAILURE"
)

// HeistLog is an append-only ledger row for one settled heist. Amount is in
// raw quota units, negative when the robber paid a penalty.
type HeistLog struct {
	ID           uint  `gorm:"primaryKey"`
	RobberChatID int64 `gorm:"index"`
	VictimSiteID int64 `gorm:"index"`
	HeistTime    time.Time
	Outcome      string `gorm:"size:10"`
	Amount       int64
}
