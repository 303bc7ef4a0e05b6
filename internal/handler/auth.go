package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fulin-pos/panel/internal/auth"
	"github.com/fulin-pos/panel/internal/database"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetAdminByUsername(ctx context.Context, username string) (database.Admin, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (database.Admin, error)
}

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
}

// Login handles username + password authentication. The panel posts a
// form, not JSON.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeFailure(w, http.StatusBadRequest, "请输入用户名和密码")
		return
	}

	admin, err := h.store.GetAdminByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeFailure(w, http.StatusUnauthorized, "账号或密码错误")
			return
		}
		log.Printf("ERROR: get admin: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(password)); err != nil {
		writeFailure(w, http.StatusUnauthorized, "账号或密码错误")
		return
	}

	h.respondWithTokens(w, admin)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFailure(w, http.StatusBadRequest, "无效的请求")
		return
	}

	refreshToken := r.PostFormValue("refresh_token")
	if refreshToken == "" {
		writeFailure(w, http.StatusBadRequest, "缺少刷新令牌")
		return
	}

	// The refresh token uses RegisteredClaims with Subject = admin ID.
	token, err := jwt.ParseWithClaims(refreshToken, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		writeFailure(w, http.StatusUnauthorized, "刷新令牌无效")
		return
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		writeFailure(w, http.StatusUnauthorized, "刷新令牌无效")
		return
	}

	adminID, err := uuid.Parse(claims.Subject)
	if err != nil {
		writeFailure(w, http.StatusUnauthorized, "刷新令牌无效")
		return
	}

	admin, err := h.store.GetAdminByID(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeFailure(w, http.StatusUnauthorized, "账号不存在")
			return
		}
		log.Printf("ERROR: get admin by id: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	h.respondWithTokens(w, admin)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, admin database.Admin) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, admin.ID, admin.Username)
	if err != nil {
		log.Printf("ERROR: generate token: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, admin.ID)
	if err != nil {
		log.Printf("ERROR: generate refresh token: %v", err)
		writeFailure(w, http.StatusInternalServerError, "服务器错误")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"token":         accessToken,
		"refresh_token": refreshToken,
		"username":      admin.Username,
	})
}
