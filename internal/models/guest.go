package models

import "time"

// GuestAllowance tracks how many gated actions an anonymous caller has used.
// Remaining allowance is derived (quota - UsedCount), never stored.
type GuestAllowance struct {
	GuestID   string
	UsedCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}
