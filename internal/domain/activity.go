package domain

import "time"

// ActivityEntry is one line of the user-visible activity log.
type ActivityEntry struct {
	Domain    string    `json:"domain"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}
