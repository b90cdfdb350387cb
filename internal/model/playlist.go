package model

import "time"

type Playlist struct {
	ID          string         `json:"_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       OwnerSummary   `json:"owner"`
	Videos      []VideoSummary `json:"videos"` // stored order, no duplicates
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
