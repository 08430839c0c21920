package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/newspulse/internal/middleware"
	"github.com/hitoshi/newspulse/internal/model"
)

// MissionTrackerInterface はミッションハンドラーが必要とするトラッカーインターフェース。
type MissionTrackerInterface interface {
	UpdateProgress(ctx context.Context, userID, missionID string, newCount int) (model.Mission, error)
	Missions(ctx context.Context, userID string) ([]model.Mission, error)
	Watch(ctx context.Context, userID string) (<-chan []model.Mission, func(), error)
}

// MissionHandler はミッション関連のHTTPハンドラー。
type MissionHandler struct {
	tracker MissionTrackerInterface
}

// NewMissionHandler はMissionHandlerを生成する。
func NewMissionHandler(tracker MissionTrackerInterface) *MissionHandler {
	return &MissionHandler{tracker: tracker}
}

// missionProgressRequest は進捗更新リクエストのボディ。
type missionProgressRequest struct {
	CurrentCount int `json:"current_count"`
}

// missionListResponse はミッション一覧のレスポンス。
type missionListResponse struct {
	Missions []model.Mission `json:"missions"`
}

// List はカタログ全ミッションと進捗の結合ビューを返す。
// GET /api/missions
func (h *MissionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	missions, err := h.tracker.Missions(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(missionListResponse{Missions: missions})
}

// UpdateProgress は指定ミッションの進捗を更新する。
// 進捗は単調非減少で、現在値より小さい値は無視される。
// PUT /api/missions/{id}/progress
func (h *MissionHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	missionID := chi.URLParam(r, "id")

	var req missionProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}
	if req.CurrentCount < 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "進捗値は0以上である必要があります。",
			Category: "validation",
			Action:   "正しい進捗値を指定してください。",
		})
		return
	}

	mission, err := h.tracker.UpdateProgress(r.Context(), userID, missionID, req.CurrentCount)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mission)
}

// Stream はミッション一覧の更新をSSEで配信する。
// GET /api/missions/stream
func (h *MissionHandler) Stream(w http.ResponseWriter, r *http.Request) {
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
