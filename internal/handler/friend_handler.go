package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/newspulse/internal/middleware"
	"github.com/hitoshi/newspulse/internal/model"
)

// FriendServiceInterface はフレンドハンドラーが必要とするサービスインターフェース。
type FriendServiceInterface interface {
	AddFriend(ctx context.Context, ownerID, friendUsername string) model.AddFriendResult
	RemoveFriend(ctx context.Context, ownerID, friendID string) error
	FriendCount(ctx context.Context, ownerID string) (int, error)
}

// FriendHandler はフレンド管理のHTTPハンドラー。
type FriendHandler struct {
	service  FriendServiceInterface
	missions MissionRecorder
}

// NewFriendHandler はFriendHandlerを生成する。
func NewFriendHandler(service FriendServiceInterface, missions MissionRecorder) *FriendHandler {
	return &FriendHandler{
		service:  service,
		missions: missions,
	}
}

// addFriendRequest はフレンド追加リクエストのボディ。
type addFriendRequest struct {
	Username string `json:"username"`
}

// addFriendResponse はフレンド追加のレスポンス。
// 想定内の結果（自己追加・重複・未存在）もエラーではなく結果として返す。
type addFriendResponse struct {
	Outcome  string `json:"outcome"`
	FriendID string `json:"friend_id,omitempty"`
}

// friendCountResponse はフレンド数のレスポンス。
type friendCountResponse struct {
	Count int `json:"count"`
}

// Add はユーザー名で指定した相手をフレンドに追加する。
// 結果はoutcomeフィールドのバリアントで返し、ストア障害のみ5xxになる。
// POST /api/friends
func (h *FriendHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req addFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result := h.service.AddFriend(r.Context(), userID, req.Username)

	switch result.Outcome {
	case model.AddFriendSuccess:
		// ミッション進捗はベストエフォートで反映する。
		if err := h.missions.RecordEvent(r.Context(), userID, model.MissionTypeAddFriend); err != nil {
			slog.Error("failed to record add_friend mission event",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(addFriendResponse{
			Outcome:  result.Outcome.String(),
			FriendID: result.FriendID,
		})

	case model.AddFriendSelf, model.AddFriendAlreadyFriends, model.AddFriendUserNotFound:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(addFriendResponse{
			Outcome: result.Outcome.String(),
		})

	case model.AddFriendFailed:
		handleServiceError(w, result.Err)

	default:
		handleServiceError(w, result.Err)
	}
}

// Remove は指定IDのユーザーをフレンドから削除する。
// 存在しないエッジの削除も成功扱い（冪等）。
// DELETE /api/friends/{id}
func (h *FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	friendID := chi.URLParam(r, "id")

	if err := h.service.RemoveFriend(r.Context(), userID, friendID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Count はフレンド数を返す。
// GET /api/friends/count
func (h *FriendHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	count, err := h.service.FriendCount(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(friendCountResponse{Count: count})
}
