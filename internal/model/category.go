package model

import "time"

// Category represents a spending or income category assigned by rules.
type Category struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
}
