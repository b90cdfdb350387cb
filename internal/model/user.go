// Package model defines the records and read models shared by the service,
// repository and handler layers.
package model

import "time"

// User is a registered account. Every user is also a channel that other
// users can subscribe to.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`   // unique, stored lower-cased
	Email        string    `json:"email"`      // unique, stored lower-cased
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`     // hosted asset URL, required
	CoverImage   string    `json:"coverImage"` // hosted asset URL, "" when unset
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"` // single active refresh token, "" when signed out
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OwnerSummary is the subset of a User embedded in videos, comments, tweets
// and playlists.
type OwnerSummary struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Summary projects the user onto the fields embedded in owned resources.
func (u *User) Summary() OwnerSummary {
	return OwnerSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Avatar:   u.Avatar,
	}
}
