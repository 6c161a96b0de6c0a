package model

import "time"

// Webhook is a household-scoped subscription to mutation events.
// Events holds event-type strings and may contain the wildcard "*".
// Deactivating keeps the row; deletion is permanent.
type Webhook struct {
	ID          int64     `json:"id"`
	HouseholdID string    `json:"householdId"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Events      []string  `json:"events"`
	IsActive    bool      `json:"isActive"`
	Secret      string    `json:"secret,omitempty"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
