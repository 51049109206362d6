package types

import "fmt"

// SyncStatus represents the state of an event mapping
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
	SyncStatusDeleted SyncStatus = "deleted"
)

// AllSyncStatuses returns all valid mapping statuses
func AllSyncStatuses() []SyncStatus {
	return []SyncStatus{
		SyncStatusPending,
		SyncStatusSynced,
		SyncStatusFailed,
		SyncStatusDeleted,
	}
}

// IsValid checks if the sync status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending,
		SyncStatusSynced,
		SyncStatusFailed,
		SyncStatusDeleted:
		return true
	default:
		return false
	}
}

// Live reports whether the mapping still references a remote event.
// Deleted mappings are kept for history but excluded from sync targets.
func (s SyncStatus) Live() bool {
	return s != SyncStatusDeleted
}

// String returns the string representation of the sync status
func (s SyncStatus) String() string {
	return string(s)
}

// ParseSyncStatus parses a string into a SyncStatus
func ParseSyncStatus(s string) (SyncStatus, error) {
	status := SyncStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid sync status: %s", s)
	}
	return status, nil
}
