package model

import "time"

type Chore struct {
	ID          int64      `json:"id"`
	HouseholdID string     `json:"householdId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  int64      `json:"assignedTo"`
	Frequency   string     `json:"frequency"`
	DueDate     time.Time  `json:"dueDate"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
	CompletedBy *int64     `json:"completedBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
