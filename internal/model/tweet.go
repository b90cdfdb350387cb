package model

import "time"

type Tweet struct {
	ID        string       `json:"_id"`
	Content   string       `json:"content"`
	Owner     OwnerSummary `json:"owner"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
