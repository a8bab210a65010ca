package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/echo-social/echo-backend/internal/models"
	"github.com/echo-social/echo-backend/internal/storage"
	"github.com/echo-social/echo-backend/internal/storage/postgres/migrations"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store provides Postgres-backed persistence for users and tweets.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects a pool and applies pending migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if err := runMigrations(ctx, databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// runMigrations applies the embedded goose migrations over a short-lived
// database/sql handle on the pgx stdlib driver.
func runMigrations(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// userColumns selects a full user row plus the derived relationship arrays.
const userColumns = `
	u.id, u.name, u.username, u.email, u.password_hash, u.bio,
	u.profile_image_url, u.banner_url, u.created_at,
	(SELECT COALESCE(array_agg(f.followee_id), '{}') FROM follows f WHERE f.follower_id = u.id),
	(SELECT COALESCE(array_agg(f.follower_id), '{}') FROM follows f WHERE f.followee_id = u.id),
	(SELECT COALESCE(array_agg(b.tweet_id), '{}') FROM bookmarks b WHERE b.user_id = u.id)`

// CreateUser inserts a new user row. Uniqueness violations map to
// storage.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO users (id, name, username, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at;`
	err := s.pool.QueryRow(ctx, query,
		user.ID, user.Name, user.Username, user.Email, user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}

	user.Following = []string{}
	user.Followers = []string{}
	user.Bookmarks = []string{}
	return user, nil
}

// FindByID fetches a user with its relationship sets.
func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT` + userColumns + ` FROM users u WHERE u.id = $1;`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT` + userColumns + ` FROM users u WHERE u.email = $1;`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// FindByEmailOrUsername returns a user colliding with either value, preferring
// the email match.
func (s *Store) FindByEmailOrUsername(ctx context.Context, email, username string) (models.User, error) {
	query := `SELECT` + userColumns + `
	FROM users u
	WHERE u.email = $1 OR u.username = $2
	ORDER BY (u.email = $1) DESC
	LIMIT 1;`
	return scanUser(s.pool.QueryRow(ctx, query, email, username))
}

// UsernameTaken reports whether another user already holds the username.
func (s *Store) UsernameTaken(ctx context.Context, username, excludingID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2);`
	var taken bool
	if err := s.pool.QueryRow(ctx, query, username, excludingID).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// UpdateProfile persists the validated profile fields and returns the fresh row.
func (s *Store) UpdateProfile(ctx context.Context, id string, upd storage.ProfileUpdate) (models.User, error) {
	const query = `
		UPDATE users
		SET name = $2, username = $3, bio = $4, profile_image_url = $5, banner_url = $6
		WHERE id = $1;`
	tag, err := s.pool.Exec(ctx, query,
		id, upd.Name, upd.Username, upd.Bio, upd.ProfileImageURL, upd.BannerURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, storage.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// SuggestUsers returns the newest users excluding the requester and anyone
// the requester already follows.
func (s *Store) SuggestUsers(ctx context.Context, forUserID string, limit int) ([]models.User, error) {
	query := `SELECT` + userColumns + `
	FROM users u
	WHERE u.id <> $1
	  AND NOT EXISTS (
		SELECT 1 FROM follows f WHERE f.follower_id = $1 AND f.followee_id = u.id
	  )
	ORDER BY u.created_at DESC
	LIMIT $2;`
	rows, err := s.pool.Query(ctx, query, forUserID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Follow records the relationship. Both directions live in one row, so the
// insert is atomic; a duplicate follow hits the primary key and is dropped by
// ON CONFLICT. A missing target trips the followee foreign key.
func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	const query = `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;`
	if _, err := s.pool.Exec(ctx, query, followerID, followeeID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}

// Unfollow deletes the relationship row; deleting an absent row is a no-op.
func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	const query = `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2;`
	_, err := s.pool.Exec(ctx, query, followerID, followeeID)
	return err
}

// ToggleBookmark removes the bookmark if present; only when the delete touched
// nothing does the set-add run. The ordering implements the conditional toggle.
func (s *Store) ToggleBookmark(ctx context.Context, userID, tweetID string) (bool, error) {
	return s.toggleMembership(ctx, "bookmarks", userID, tweetID)
}

// ToggleLike mirrors ToggleBookmark for the likes set.
func (s *Store) ToggleLike(ctx context.Context, userID, tweetID string) (bool, error) {
	return s.toggleMembership(ctx, "likes", userID, tweetID)
}

func (s *Store) toggleMembership(ctx context.Context, table, userID, tweetID string) (bool, error) {
	deleteQuery := `DELETE FROM ` + table + ` WHERE user_id = $1 AND tweet_id = $2;`
	tag, err := s.pool.Exec(ctx, deleteQuery, userID, tweetID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	insertQuery := `INSERT INTO ` + table + ` (user_id, tweet_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;`
	if _, err := s.pool.Exec(ctx, insertQuery, userID, tweetID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return false, storage.ErrNotFound
		}
		return false, err
	}
	return true, nil
}

// tweetColumns selects a tweet row with its like set and joined author fields.
const tweetColumns = `
	t.id, t.author_id, t.body, t.created_at,
	(SELECT COALESCE(array_agg(l.user_id), '{}') FROM likes l WHERE l.tweet_id = t.id),
	u.id, u.name, u.username, u.profile_image_url`

// CreateTweet inserts a tweet row. An unknown author trips the foreign key.
func (s *Store) CreateTweet(ctx context.Context, tweet models.Tweet) (models.Tweet, error) {
	if tweet.ID == "" {
		tweet.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO tweets (id, author_id, body)
		VALUES ($1, $2, $3)
		RETURNING created_at;`
	err := s.pool.QueryRow(ctx, query, tweet.ID, tweet.AuthorID, tweet.Body).Scan(&tweet.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return models.Tweet{}, storage.ErrNotFound
		}
		return models.Tweet{}, err
	}

	tweet.LikedBy = []string{}
	return tweet, nil
}

// FindTweet fetches a single tweet with author and like set.
func (s *Store) FindTweet(ctx context.Context, id string) (models.Tweet, error) {
	query := `SELECT` + tweetColumns + `
	FROM tweets t
	JOIN users u ON u.id = t.author_id
	WHERE t.id = $1;`
	return scanTweet(s.pool.QueryRow(ctx, query, id))
}

// DeleteTweet removes a tweet; likes and bookmarks cascade.
func (s *Store) DeleteTweet(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tweets WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AllTweets returns every tweet, newest first.
func (s *Store) AllTweets(ctx context.Context) ([]models.Tweet, error) {
	query := `SELECT` + tweetColumns + `
	FROM tweets t
	JOIN users u ON u.id = t.author_id
	ORDER BY t.created_at DESC;`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTweets(rows)
}

// FollowingTweets returns tweets authored by users the requester follows,
// newest first.
func (s *Store) FollowingTweets(ctx context.Context, userID string) ([]models.Tweet, error) {
	query := `SELECT` + tweetColumns + `
	FROM tweets t
	JOIN users u ON u.id = t.author_id
	WHERE t.author_id IN (SELECT followee_id FROM follows WHERE follower_id = $1)
	ORDER BY t.created_at DESC;`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTweets(rows)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Username, &user.Email, &user.PasswordHash,
		&user.Bio, &user.ProfileImageURL, &user.BannerURL, &user.CreatedAt,
		&user.Following, &user.Followers, &user.Bookmarks,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Bookmarks == nil {
		user.Bookmarks = []string{}
	}
	return user, nil
}

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var tweet models.Tweet
	var author models.TweetAuthor
	err := row.Scan(
		&tweet.ID, &tweet.AuthorID, &tweet.Body, &tweet.CreatedAt, &tweet.LikedBy,
		&author.ID, &author.Name, &author.Username, &author.ProfileImageURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Tweet{}, storage.ErrNotFound
		}
		return models.Tweet{}, err
	}
	if tweet.LikedBy == nil {
		tweet.LikedBy = []string{}
	}
	tweet.Author = &author
	return tweet, nil
}

func collectTweets(rows pgx.Rows) ([]models.Tweet, error) {
	tweets := []models.Tweet{}
	for rows.Next() {
		tweet, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, tweet)
	}
	return tweets, rows.Err()
}
