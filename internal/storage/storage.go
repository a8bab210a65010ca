package storage

import (
	"context"
	"errors"

	"github.com/echo-social/echo-backend/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ProfileUpdate carries the mutable profile fields, already trimmed and
// validated by the handler.
type ProfileUpdate struct {
	Name            string
	Username        string
	Bio             string
	ProfileImageURL string
	BannerURL       string
}

// UserStore captures the persistence operations the user handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	// FindByEmailOrUsername returns an existing user colliding with either
	// value, preferring the email match so conflicts are attributed
	// email-first.
	FindByEmailOrUsername(ctx context.Context, email, username string) (models.User, error)
	UsernameTaken(ctx context.Context, username, excludingID string) (bool, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (models.User, error)
	SuggestUsers(ctx context.Context, forUserID string, limit int) ([]models.User, error)
	// Follow records the relationship as a set-add; following an already
	// followed user is a no-op. Returns ErrNotFound when the target does
	// not exist.
	Follow(ctx context.Context, followerID, followeeID string) error
	// Unfollow removes the relationship; removing an absent one is a no-op.
	Unfollow(ctx context.Context, followerID, followeeID string) error
	// ToggleBookmark removes the bookmark if present, otherwise adds it.
	// Reports whether the tweet ended up bookmarked.
	ToggleBookmark(ctx context.Context, userID, tweetID string) (added bool, err error)
}

// TweetStore captures the persistence operations the tweet handlers need.
type TweetStore interface {
	CreateTweet(ctx context.Context, tweet models.Tweet) (models.Tweet, error)
	FindTweet(ctx context.Context, id string) (models.Tweet, error)
	DeleteTweet(ctx context.Context, id string) error
	// ToggleLike mirrors ToggleBookmark for the likes set.
	ToggleLike(ctx context.Context, userID, tweetID string) (added bool, err error)
	AllTweets(ctx context.Context) ([]models.Tweet, error)
	FollowingTweets(ctx context.Context, userID string) ([]models.Tweet, error)
}

// Store is the full persistence surface backing the API.
type Store interface {
	UserStore
	TweetStore
}
