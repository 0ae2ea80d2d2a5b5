package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taskapi/internal/domain/user"
	"github.com/geocoder89/taskapi/internal/http/middlewares"
	"github.com/geocoder89/taskapi/internal/observability"
	"github.com/geocoder89/taskapi/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, username, passwordHash string) (user.User, error)
}

type PasswordHasher interface {
	HashPassword(plain string) (string, error)
	CheckPassword(hash, plain string) error
}

type TokenIssuer interface {
	Issue(userID int64) (string, time.Time, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	hasher     PasswordHasher
	jwt        TokenIssuer
	prom       *observability.Prom
}

func NewAuthHandler(users UserReader, userWriter UserWriter, hasher PasswordHasher, jwt TokenIssuer, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		hasher:     hasher,
		jwt:        jwt,
		prom:       prom,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.Credentials

	if !BindBody(ctx, &req) {
		return
	}

	hash, err := h.hasher.HashPassword(req.Password)

	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			RespondError(ctx, http.StatusBadRequest, "password_too_long", "Password must be at most 72 bytes", nil)
			return
		}

		slog.Default().ErrorContext(ctx.Request.Context(), "hash_password_failed", "err", err)
		RespondInternal(ctx, "Could not register user")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	_, err = h.userWriter.Create(cctx, req.Username, hash)

	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			h.prom.IncAuth("register", "conflict")
			RespondConflict(ctx, "username_taken", "Username is already taken")
			return
		}

		slog.Default().ErrorContext(ctx.Request.Context(), "create_user_failed", "err", err)
		RespondInternal(ctx, "Could not register user")
		return
	}

	h.prom.IncAuth("register", "ok")

	ctx.JSON(http.StatusCreated, gin.H{"message": "User registered"})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.Credentials

	if !BindBody(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	found, err := h.users.GetByUsername(cctx, req.Username)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			slog.Default().ErrorContext(ctx.Request.Context(), "get_user_failed", "err", err)
			RespondInternal(ctx, "Could not log in")
			return
		}

		h.prom.IncAuth("login", "invalid_credentials")
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
		return
	}

	if err := h.hasher.CheckPassword(found.PasswordHash, req.Password); err != nil {
		if !security.IsMismatch(err) {
			slog.Default().ErrorContext(ctx.Request.Context(), "check_password_failed", "err", err, "user_id", found.ID)
		}
		h.prom.IncAuth("login", "invalid_credentials")
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
		return
	}

	token, _, err := h.jwt.Issue(found.ID)

	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "issue_token_failed", "err", err)
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.prom.IncAuth("login", "ok")

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

// Me returns the authenticated caller.
func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthenticated", "Missing identity")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": u.ID, "username": u.Username})
}
