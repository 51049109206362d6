package model

import (
	"fmt"

	"github.com/slotwise/calsync/pkg/domain/types"
)

// ConnectionResult is the outcome of one adapter call for one connection.
// Adapter failures become results, never propagated errors, so one
// provider's outage cannot abort sibling connections.
type ConnectionResult struct {
	ConnectionID types.ConnectionID
	Provider     types.ProviderType
	OK           bool
	Message      string
}

// SyncReport aggregates per-connection outcomes of one coordinator call.
type SyncReport struct {
	BookingID types.BookingID
	Results   []ConnectionResult
}

// Succeeded reports whether every connection succeeded. An empty report
// (no active connections) counts as success.
func (r *SyncReport) Succeeded() bool {
	for _, res := range r.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

// Errors returns provider-qualified messages for the failed connections.
func (r *SyncReport) Errors() []string {
	var errs []string
	for _, res := range r.Results {
		if !res.OK {
			errs = append(errs, fmt.Sprintf("%s: %s", res.Provider, res.Message))
		}
	}
	return errs
}

// SyncStatistics is a read-only aggregate over a business's mappings.
type SyncStatistics struct {
	BusinessID    types.BusinessID
	TotalAttempts int
	Successful    int
	Failed        int
	Pending       int
}

// SuccessRate returns the ratio of successful attempts, 0 when empty.
func (s *SyncStatistics) SuccessRate() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.TotalAttempts)
}

// RetryOutcome summarizes a retry-failed-syncs pass.
type RetryOutcome struct {
	TotalAttempted int
	Successful     int
	Failed         int
}

// ImportOutcome summarizes one availability import for one staff member.
type ImportOutcome struct {
	StaffID types.StaffID
	Created int
	Pruned  int
}
