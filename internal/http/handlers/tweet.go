package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/echo-social/echo-backend/internal/http/respond"
	"github.com/echo-social/echo-backend/internal/middleware"
	"github.com/echo-social/echo-backend/internal/models"
	"github.com/echo-social/echo-backend/internal/models/dto"
	"github.com/echo-social/echo-backend/internal/storage"
)

const maxTweetLength = 280

// TweetHandler owns the tweet endpoints.
type TweetHandler struct {
	store storage.TweetStore
}

// NewTweetHandler constructs the handler.
func NewTweetHandler(store storage.TweetStore) *TweetHandler {
	return &TweetHandler{store: store}
}

// Register attaches the tweet routes to the mux.
func (h *TweetHandler) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/v1/tweet/allTweets", h.handleAllTweets)
	mux.Handle("POST /api/v1/tweet/create", requireAuth(http.HandlerFunc(h.handleCreate)))
	mux.Handle("DELETE /api/v1/tweet/delete/{id}", requireAuth(http.HandlerFunc(h.handleDelete)))
	mux.Handle("PUT /api/v1/tweet/like/{id}", requireAuth(http.HandlerFunc(h.handleLike)))
	mux.Handle("GET /api/v1/tweet/followingTweets", requireAuth(http.HandlerFunc(h.handleFollowingTweets)))
}

func (h *TweetHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req dto.CreateTweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		respond.Error(w, http.StatusBadRequest, "Tweet cannot be empty.")
		return
	}
	if utf8.RuneCountInString(body) > maxTweetLength {
		respond.Error(w, http.StatusBadRequest, "Tweet cannot exceed 280 characters.")
		return
	}

	created, err := h.store.CreateTweet(r.Context(), models.Tweet{AuthorID: userID, Body: body})
	if err != nil {
		slog.Error("create tweet: persist failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error creating tweet.")
		return
	}

	respond.JSON(w, http.StatusCreated, "Tweet created successfully.", respond.Payload{"tweet": created})
}

func (h *TweetHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	tweetID := r.PathValue("id")

	tweet, err := h.store.FindTweet(r.Context(), tweetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Tweet not found.")
			return
		}
		slog.Error("delete tweet: fetch failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error deleting tweet.")
		return
	}
	if tweet.AuthorID != userID {
		respond.Error(w, http.StatusForbidden, "You can only delete your own tweets.")
		return
	}

	if err := h.store.DeleteTweet(r.Context(), tweetID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.Error("delete tweet: persist failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error deleting tweet.")
		return
	}

	respond.JSON(w, http.StatusOK, "Tweet deleted successfully.", nil)
}

func (h *TweetHandler) handleLike(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	added, err := h.store.ToggleLike(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Tweet not found.")
			return
		}
		slog.Error("like: toggle failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error updating like.")
		return
	}

	if added {
		respond.JSON(w, http.StatusOK, "Tweet liked successfully.", nil)
		return
	}
	respond.JSON(w, http.StatusOK, "Like removed successfully.", nil)
}

func (h *TweetHandler) handleAllTweets(w http.ResponseWriter, r *http.Request) {
	tweets, err := h.store.AllTweets(r.Context())
	if err != nil {
		slog.Error("all tweets: fetch failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error fetching tweets.")
		return
	}

	respond.JSON(w, http.StatusOK, "", respond.Payload{"tweets": tweets})
}

func (h *TweetHandler) handleFollowingTweets(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	tweets, err := h.store.FollowingTweets(r.Context(), userID)
	if err != nil {
		slog.Error("following tweets: fetch failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error fetching tweets.")
		return
	}

	respond.JSON(w, http.StatusOK, "", respond.Payload{"tweets": tweets})
}
