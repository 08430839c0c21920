package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/newspulse/internal/middleware"
	"github.com/hitoshi/newspulse/internal/model"
)

// StreakTrackerInterface はストリークハンドラーが必要とするトラッカーインターフェース。
type StreakTrackerInterface interface {
	LogArticleRead(ctx context.Context, userID, articleKey string, today time.Time) (model.StreakSnapshot, error)
	Snapshot(ctx context.Context, userID string) (model.StreakSnapshot, error)
	Watch(ctx context.Context, userID string) (<-chan model.StreakSnapshot, func(), error)
}

// MissionRecorder はユーザー行動イベントをミッション進捗に反映するインターフェース。
type MissionRecorder interface {
	RecordEvent(ctx context.Context, userID string, missionType model.MissionType) error
}

// StreakHandler はストリーク関連のHTTPハンドラー。
type StreakHandler struct {
	tracker  StreakTrackerInterface
	missions MissionRecorder
}

// NewStreakHandler はStreakHandlerを生成する。
func NewStreakHandler(tracker StreakTrackerInterface, missions MissionRecorder) *StreakHandler {
	return &StreakHandler{
		tracker:  tracker,
		missions: missions,
	}
}

// logReadRequest は記事閲読イベントのリクエストボディ。
type logReadRequest struct {
	ArticleKey string `json:"article_key"`
}

// Get は現在のストリークスナップショットを返す。
// GET /api/streak
func (h *StreakHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	snapshot, err := h.tracker.Snapshot(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// LogRead は記事閲読イベントを記録し、更新後のスナップショットを返す。
// 閲読系ミッションの進捗にも反映される。
// POST /api/streak/read
func (h *StreakHandler) LogRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req logReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}
	if req.ArticleKey == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidArticleKeyError("記事キーが空です"))
		return
	}

	snapshot, err := h.tracker.LogArticleRead(r.Context(), userID, req.ArticleKey, time.Now())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// ミッション進捗はベストエフォートで反映する。
	// 進捗の反映失敗で閲読イベント自体を失敗にはしない。
	if err := h.missions.RecordEvent(r.Context(), userID, model.MissionTypeReadArticle); err != nil {
		slog.Error("failed to record read_article mission event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// Stream はストリークスナップショットの更新をSSEで配信する。
// GET /api/streak/stream
func (h *StreakHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	ch, cancel, err := h.tracker.Watch(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer cancel()

	streamSSE(w, r, ch)
}
