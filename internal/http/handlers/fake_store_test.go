package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echo-social/echo-backend/internal/models"
	"github.com/echo-social/echo-backend/internal/storage"
)

// fakeStore is an in-memory storage.Store for handler tests. It mirrors the
// Postgres store's contract: set semantics for relationships, sentinel errors,
// and strictly increasing creation times.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]models.User
	tweets    map[string]models.Tweet
	follows   map[string]map[string]bool // follower -> followees
	bookmarks map[string]map[string]bool // user -> tweets
	likes     map[string]map[string]bool // tweet -> users
	clock     time.Time
}

var _ storage.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]models.User),
		tweets:    make(map[string]models.Tweet),
		follows:   make(map[string]map[string]bool),
		bookmarks: make(map[string]map[string]bool),
		likes:     make(map[string]map[string]bool),
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = s.tick()
	s.users[user.ID] = user
	return s.withSets(user), nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.withSets(user), nil
}

func (s *fakeStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return s.withSets(user), nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *fakeStore) FindByEmailOrUsername(_ context.Context, email, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var byUsername *models.User
	for _, user := range s.users {
		if user.Email == email {
			return s.withSets(user), nil
		}
		if user.Username == username {
			u := user
			byUsername = &u
		}
	}
	if byUsername != nil {
		return s.withSets(*byUsername), nil
	}
	return models.User{}, storage.ErrNotFound
}

func (s *fakeStore) UsernameTaken(_ context.Context, username, excludingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username && user.ID != excludingID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) UpdateProfile(_ context.Context, id string, upd storage.ProfileUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	for _, other := range s.users {
		if other.Username == upd.Username && other.ID != id {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.Name = upd.Name
	user.Username = upd.Username
	user.Bio = upd.Bio
	user.ProfileImageURL = upd.ProfileImageURL
	user.BannerURL = upd.BannerURL
	s.users[id] = user
	return s.withSets(user), nil
}

func (s *fakeStore) SuggestUsers(_ context.Context, forUserID string, limit int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	followed := s.follows[forUserID]
	users := []models.User{}
	for _, user := range s.users {
		if user.ID == forUserID || followed[user.ID] {
			continue
		}
		users = append(users, s.withSets(user))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *fakeStore) Follow(_ context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[followeeID]; !ok {
		return storage.ErrNotFound
	}
	if s.follows[followerID] == nil {
		s.follows[followerID] = make(map[string]bool)
	}
	s.follows[followerID][followeeID] = true
	return nil
}

func (s *fakeStore) Unfollow(_ context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.follows[followerID], followeeID)
	return nil
}

func (s *fakeStore) ToggleBookmark(_ context.Context, userID, tweetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bookmarks[userID][tweetID] {
		delete(s.bookmarks[userID], tweetID)
		return false, nil
	}
	if _, ok := s.tweets[tweetID]; !ok {
		return false, storage.ErrNotFound
	}
	if s.bookmarks[userID] == nil {
		s.bookmarks[userID] = make(map[string]bool)
	}
	s.bookmarks[userID][tweetID] = true
	return true, nil
}

func (s *fakeStore) CreateTweet(_ context.Context, tweet models.Tweet) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[tweet.AuthorID]; !ok {
		return models.Tweet{}, storage.ErrNotFound
	}
	if tweet.ID == "" {
		tweet.ID = uuid.NewString()
	}
	tweet.CreatedAt = s.tick()
	s.tweets[tweet.ID] = tweet
	return s.withAuthor(tweet), nil
}

func (s *fakeStore) FindTweet(_ context.Context, id string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, storage.ErrNotFound
	}
	return s.withAuthor(tweet), nil
}

func (s *fakeStore) DeleteTweet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tweets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.tweets, id)
	delete(s.likes, id)
	for userID := range s.bookmarks {
		delete(s.bookmarks[userID], id)
	}
	return nil
}

func (s *fakeStore) ToggleLike(_ context.Context, userID, tweetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.likes[tweetID][userID] {
		delete(s.likes[tweetID], userID)
		return false, nil
	}
	if _, ok := s.tweets[tweetID]; !ok {
		return false, storage.ErrNotFound
	}
	if s.likes[tweetID] == nil {
		s.likes[tweetID] = make(map[string]bool)
	}
	s.likes[tweetID][userID] = true
	return true, nil
}

func (s *fakeStore) AllTweets(_ context.Context) ([]models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tweets := []models.Tweet{}
	for _, tweet := range s.tweets {
		tweets = append(tweets, s.withAuthor(tweet))
	}
	sort.Slice(tweets, func(i, j int) bool {
		return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
	})
	return tweets, nil
}

func (s *fakeStore) FollowingTweets(_ context.Context, userID string) ([]models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	followed := s.follows[userID]
	tweets := []models.Tweet{}
	for _, tweet := range s.tweets {
		if followed[tweet.AuthorID] {
			tweets = append(tweets, s.withAuthor(tweet))
		}
	}
	sort.Slice(tweets, func(i, j int) bool {
		return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
	})
	return tweets, nil
}

// withSets derives the relationship arrays the way the SQL store aggregates
// them. Callers must hold the mutex.
func (s *fakeStore) withSets(user models.User) models.User {
	user.Following = sortedKeys(s.follows[user.ID])
	user.Followers = []string{}
	for followerID, followees := range s.follows {
		if followees[user.ID] {
			user.Followers = append(user.Followers, followerID)
		}
	}
	sort.Strings(user.Followers)
	user.Bookmarks = sortedKeys(s.bookmarks[user.ID])
	return user
}

func (s *fakeStore) withAuthor(tweet models.Tweet) models.Tweet {
	tweet.LikedBy = sortedKeys(s.likes[tweet.ID])
	if author, ok := s.users[tweet.AuthorID]; ok {
		tweet.Author = &models.TweetAuthor{
			ID:              author.ID,
			Name:            author.Name,
			Username:        author.Username,
			ProfileImageURL: author.ProfileImageURL,
		}
	}
	return tweet
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
