package models

import "time"

// AdminLogEntry is an append-only record of an admin action.
type AdminLogEntry struct {
	ID        int       `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
