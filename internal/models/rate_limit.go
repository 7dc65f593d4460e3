package models

import "time"

// RateLimitRecord is the fixed-window counter for one (ip, endpoint) pair.
type RateLimitRecord struct {
	IP          string    `db:"ip"`
	Endpoint    string    `db:"endpoint"`
	Count       int       `db:"count"`
	WindowStart time.Time `db:"window_start"`
}
