package models

import "time"

// User captures a profile row plus the relationship sets derived from the
// follows and bookmarks tables at read time. The password hash never leaves
// the server.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Bio             string    `json:"bio"`
	ProfileImageURL string    `json:"profileImageUrl"`
	BannerURL       string    `json:"bannerUrl"`
	Following       []string  `json:"following"`
	Followers       []string  `json:"followers"`
	Bookmarks       []string  `json:"bookmarks"`
	CreatedAt       time.Time `json:"createdAt"`
}
