package models

import (
	rcmodels "rctrack/internal/rc/models"
)

// Scope selects which entries a dashboard counts.
type Scope string

const (
	ScopeAll   Scope = "all"
	ScopeOwner Scope = "owner"
)

// Stats are the aggregate counts shown on a dashboard.
//
// Invariant: TotalTransferred + TotalPendingTransfer == TotalRC.
type Stats struct {
	TotalRC              int `json:"totalRc"`
	TotalTransferred     int `json:"totalRcTransferred"`
	TotalFeesPaid        int `json:"totalRtoFeeDone"`
	TotalPendingTransfer int `json:"totalRcTransferLeft"`
}

// ComputeStats counts entries. It is pure; the caller chooses the scope by
// choosing which entries to pass.
func ComputeStats(entries []*rcmodels.Entry) Stats {
	var s Stats
	for _, e := range entries {
		if e == nil {
			continue
		}
		s.TotalRC++
		if e.Status.RCTransferred {
			s.TotalTransferred++
		} else {
			s.TotalPendingTransfer++
		}
		if e.Status.RTOFeesPaid {
			s.TotalFeesPaid++
		}
	}
	return s
}

// Dashboard is the payload of the dashboard endpoints.
type Dashboard struct {
	Scope     Scope  `json:"scope"`
	OwnerName string `json:"ownerName"`
	RCStats   Stats  `json:"rcStats"`
}
