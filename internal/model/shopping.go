package model

import "time"

type ShoppingNote struct {
	ID          int64      `json:"id"`
	HouseholdID string     `json:"householdId"`
	Item        string     `json:"item"`
	Quantity    string     `json:"quantity"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Notes       string     `json:"notes"`
	IsPurchased bool       `json:"isPurchased"`
	CreatedBy   int64      `json:"createdBy"`
	PurchasedBy *int64     `json:"purchasedBy"`
	PurchasedAt *time.Time `json:"purchasedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
