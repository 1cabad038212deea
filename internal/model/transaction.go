package model

import "time"

// Transaction represents one imported statement row. The raw counterparty
// string is kept verbatim; EntityID links to the entity created or matched
// during import, and CategoryID is filled in by classification.
type Transaction struct {
	Date       time.Time `json:"date"`
	RawName    string    `json:"raw_name"`
	EntityID   *int64    `json:"entity_id,omitempty"`
	CategoryID *int64    `json:"category_id,omitempty"`
	ID         int64     `json:"id"`
	Amount     float64   `json:"amount"`
}
