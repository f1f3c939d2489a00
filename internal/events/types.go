// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Ledger
	TransactionRecorded EventType = "TRANSACTION_RECORDED"
	TransactionDeleted  EventType = "TRANSACTION_DELETED"
	InstrumentRemoved   EventType = "INSTRUMENT_REMOVED"
	TargetChanged       EventType = "TARGET_CHANGED"
	PositionsChanged    EventType = "POSITIONS_CHANGED"

	// Non-derived collections
	WatchlistChanged    EventType = "WATCHLIST_CHANGED"
	BibliographyChanged EventType = "BIBLIOGRAPHY_CHANGED"

	// Market data and alerts
	PriceCacheCleared EventType = "PRICE_CACHE_CLEARED"
	AlertReached      EventType = "ALERT_REACHED"

	// System
	BackupCompleted EventType = "BACKUP_COMPLETED"
	JobStarted      EventType = "JOB_STARTED"
	JobCompleted    EventType = "JOB_COMPLETED"
	JobFailed       EventType = "JOB_FAILED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every type a stream subscriber receives by default
var AllEventTypes = []EventType{
	TransactionRecorded,
	TransactionDeleted,
	InstrumentRemoved,
	TargetChanged,
	PositionsChanged,
	WatchlistChanged,
	BibliographyChanged,
	PriceCacheCleared,
	AlertReached,
	BackupCompleted,
	JobStarted,
	JobCompleted,
	JobFailed,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
