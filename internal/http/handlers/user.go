package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/echo-social/echo-backend/internal/auth"
	"github.com/echo-social/echo-backend/internal/config"
	"github.com/echo-social/echo-backend/internal/http/respond"
	"github.com/echo-social/echo-backend/internal/middleware"
	"github.com/echo-social/echo-backend/internal/models"
	"github.com/echo-social/echo-backend/internal/models/dto"
	"github.com/echo-social/echo-backend/internal/storage"
)

const (
	maxBioLength       = 160
	suggestedUserLimit = 10
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// UserHandler owns the account and social-graph endpoints.
type UserHandler struct {
	store  storage.UserStore
	tokens *auth.TokenManager
	cfg    *config.Config
}

// NewUserHandler constructs the handler.
func NewUserHandler(store storage.UserStore, tokens *auth.TokenManager, cfg *config.Config) *UserHandler {
	return &UserHandler{store: store, tokens: tokens, cfg: cfg}
}

// Register attaches the user routes to the mux.
func (h *UserHandler) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/v1/user/register", h.handleRegister)
	mux.HandleFunc("POST /api/v1/user/login", h.handleLogin)
	mux.HandleFunc("POST /api/v1/user/logout", h.handleLogout)
	mux.HandleFunc("GET /api/v1/user/profile/{id}", h.handleProfile)
	mux.Handle("GET /api/v1/user/me", requireAuth(http.HandlerFunc(h.handleMe)))
	mux.Handle("GET /api/v1/user/otherusers", requireAuth(http.HandlerFunc(h.handleOtherUsers)))
	mux.Handle("POST /api/v1/user/follow/{id}", requireAuth(http.HandlerFunc(h.handleFollow)))
	mux.Handle("POST /api/v1/user/unfollow/{id}", requireAuth(http.HandlerFunc(h.handleUnfollow)))
	mux.Handle("POST /api/v1/user/bookmark/{id}", requireAuth(http.HandlerFunc(h.handleBookmark)))
	mux.Handle("PUT /api/v1/user/profile/{id}", requireAuth(http.HandlerFunc(h.handleUpdateProfile)))
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if isBlank(req.Name) || isBlank(req.Username) || isBlank(req.Email) || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	// Conflict check is email-first so the reported field is deterministic
	// when both collide.
	existing, err := h.store.FindByEmailOrUsername(r.Context(), req.Email, req.Username)
	if err == nil {
		field := "Username"
		if existing.Email == req.Email {
			field = "Email"
		}
		respond.Error(w, http.StatusConflict, field+" already in use.")
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		slog.Error("register: conflict lookup failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("register: hash password failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := models.User{
		Name:         req.Name,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
	}
	created, err := h.store.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Raced with a concurrent registration past the probe above.
			respond.Error(w, http.StatusConflict, "Email or Username already in use.")
			return
		}
		slog.Error("register: create user failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !h.issueSession(w, created.ID) {
		return
	}
	respond.JSON(w, http.StatusCreated, "Account created successfully.", respond.Payload{"user": created})
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if isBlank(req.Email) || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	// Unknown email and wrong password answer identically so neither case
	// reveals which one failed.
	user, err := h.store.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusBadRequest, "Invalid email or password.")
			return
		}
		slog.Error("login: fetch user failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid email or password.")
		return
	}

	if !h.issueSession(w, user.ID) {
		return
	}
	respond.JSON(w, http.StatusOK, "Welcome back! "+user.Name, respond.Payload{"user": user})
}

func (h *UserHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	respond.JSON(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	// The token can outlive the row it points at.
	user, err := h.store.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		slog.Error("me: fetch user failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond.JSON(w, http.StatusOK, "", respond.Payload{"user": user})
}

func (h *UserHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("profile: fetch user failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond.JSON(w, http.StatusOK, "User profile fetched successfully.", respond.Payload{"user": user})
}

func (h *UserHandler) handleOtherUsers(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	users, err := h.store.SuggestUsers(r.Context(), userID, suggestedUserLimit)
	if err != nil {
		slog.Error("otherusers: fetch suggestions failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error fetching suggestions")
		return
	}

	respond.JSON(w, http.StatusOK, "", respond.Payload{"otherUsers": users})
}

func (h *UserHandler) handleFollow(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	targetID := r.PathValue("id")

	if targetID == userID {
		respond.Error(w, http.StatusBadRequest, "You cannot follow yourself.")
		return
	}

	if err := h.store.Follow(r.Context(), userID, targetID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found.")
			return
		}
		slog.Error("follow: update relationship failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error following user.")
		return
	}

	respond.JSON(w, http.StatusOK, "Followed successfully", nil)
}

func (h *UserHandler) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	// Removing an absent relationship is a no-op, so there is no existence
	// check on the target.
	if err := h.store.Unfollow(r.Context(), userID, r.PathValue("id")); err != nil {
		slog.Error("unfollow: update relationship failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error unfollowing user.")
		return
	}

	respond.JSON(w, http.StatusOK, "Unfollowed successfully", nil)
}

func (h *UserHandler) handleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	added, err := h.store.ToggleBookmark(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Tweet not found.")
			return
		}
		slog.Error("bookmark: toggle failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error updating bookmark.")
		return
	}

	if added {
		respond.JSON(w, http.StatusOK, "Tweet bookmarked successfully.", nil)
		return
	}
	respond.JSON(w, http.StatusOK, "Bookmark removed successfully.", nil)
}

func (h *UserHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	targetID := r.PathValue("id")

	if targetID != userID {
		respond.Error(w, http.StatusForbidden, "You can only update your own profile.")
		return
	}

	var req dto.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	name := strings.TrimSpace(req.Name)
	username := strings.TrimSpace(req.Username)
	bio := strings.TrimSpace(req.Bio)

	if name == "" {
		respond.Error(w, http.StatusBadRequest, "Name cannot be empty.")
		return
	}
	if username == "" {
		respond.Error(w, http.StatusBadRequest, "Username cannot be empty.")
		return
	}
	if !usernamePattern.MatchString(username) {
		respond.Error(w, http.StatusBadRequest, "Username can only contain letters, numbers, and underscores.")
		return
	}
	if utf8.RuneCountInString(bio) > maxBioLength {
		respond.Error(w, http.StatusBadRequest, "Bio cannot exceed 160 characters.")
		return
	}

	taken, err := h.store.UsernameTaken(r.Context(), username, userID)
	if err != nil {
		slog.Error("update profile: username lookup failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Error updating profile.")
		return
	}
	if taken {
		respond.Error(w, http.StatusConflict, "Username is already taken.")
		return
	}

	updated, err := h.store.UpdateProfile(r.Context(), userID, storage.ProfileUpdate{
		Name:            name,
		Username:        username,
		Bio:             bio,
		ProfileImageURL: strings.TrimSpace(req.ProfileImageURL),
		BannerURL:       strings.TrimSpace(req.BannerURL),
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "Username is already taken.")
		case errors.Is(err, storage.ErrNotFound):
			respond.Error(w, http.StatusNotFound, "User not found.")
		default:
			slog.Error("update profile: persist failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "Error updating profile.")
		}
		return
	}

	respond.JSON(w, http.StatusOK, "Profile updated successfully.", respond.Payload{"user": updated})
}

// issueSession generates a token and sets the session cookie. Reports whether
// the response can proceed.
func (h *UserHandler) issueSession(w http.ResponseWriter, userID string) bool {
	token, err := h.tokens.Generate(userID)
	if err != nil {
		slog.Error("issue session: token generation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
		return false
	}
	h.setSessionCookie(w, token)
	return true
}

func (h *UserHandler) setSessionCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	}
	// Cross-site frontends need SameSite=None, which browsers only accept
	// together with Secure.
	if h.cfg.Production() {
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}

func (h *UserHandler) clearSessionCookie(w http.ResponseWriter) {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	}
	if h.cfg.Production() {
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
