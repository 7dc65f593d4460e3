package models

import "time"

// Posting is a job offer listed on the recruitment page.
type Posting struct {
	ID        int       `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
