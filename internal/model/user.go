package model

import "time"

// User is a household member. PartnerID is set symmetrically on both
// rows when two users link; the pair's tenant key is derived from the
// two ids, never stored.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	PartnerID    *int64    `json:"partnerId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
