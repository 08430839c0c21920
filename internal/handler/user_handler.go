package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newspulse/internal/middleware"
	"github.com/hitoshi/newspulse/internal/user"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*user.Profile, error)
}

// UserHandler はユーザープロフィールのHTTPハンドラー。
type UserHandler struct {
	service ProfileServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service ProfileServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// profileResponse はプロフィールのレスポンス。
type profileResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FriendCount int    `json:"friend_count"`
}

// Profile は現在のユーザーのプロフィールを返す。
// GET /api/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profileResponse{
		ID:          profile.User.ID,
		Username:    profile.User.Username,
		Email:       profile.User.Email,
		FriendCount: profile.FriendCount,
	})
}
