package models

import "time"

// TweetAuthor carries the public author fields feeds embed alongside a tweet.
type TweetAuthor struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// Tweet is a single post. LikedBy is derived from the likes table.
type Tweet struct {
	ID        string       `json:"id"`
	AuthorID  string       `json:"authorId"`
	Body      string       `json:"body"`
	LikedBy   []string     `json:"likedBy"`
	CreatedAt time.Time    `json:"createdAt"`
	Author    *TweetAuthor `json:"author,omitempty"`
}
