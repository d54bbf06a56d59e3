package models

import "time"

// AccountID is the primary key of the single account row.
const AccountID uint = 1

// Account holds the simulated cash balance.
// There should only ever be one row in this table. The balance may go negative.
type Account struct {
	ID        uint      `gorm:"primaryKey"`
	Balance   float64   `gorm:"not null"`
	UpdatedAt time.Time
}
