package domain

import "time"

// StateEntry is one row of the local key/value scope.
type StateEntry struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}
