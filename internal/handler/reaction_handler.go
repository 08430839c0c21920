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

// ReactionTrackerInterface はリアクションハンドラーが必要とするトラッカーインターフェース。
type ReactionTrackerInterface interface {
	SetReaction(ctx context.Context, userID, articleKey, symbol string) error
	Reaction(ctx context.Context, userID, articleKey string) (model.ReactionEntry, bool, error)
	Reactions(ctx context.Context, userID string) (map[string]model.ReactionEntry, error)
	Watch(ctx context.Context, userID string) (<-chan map[string]model.ReactionEntry, func(), error)
}

// ReactionHandler はリアクション関連のHTTPハンドラー。
type ReactionHandler struct {
	tracker  ReactionTrackerInterface
	missions MissionRecorder
}

// NewReactionHandler はReactionHandlerを生成する。
func NewReactionHandler(tracker ReactionTrackerInterface, missions MissionRecorder) *ReactionHandler {
	return &ReactionHandler{
		tracker:  tracker,
		missions: missions,
	}
}

// setReactionRequest はリアクション設定リクエストのボディ。
type setReactionRequest struct {
	Symbol string `json:"symbol"`
}

// reactionResponse は1記事分のリアクションレスポンス。
type reactionResponse struct {
	ArticleKey  string `json:"article_key"`
	Symbol      string `json:"symbol"`
	UpdatedAtMS int64  `json:"updated_at_ms"`
}

// reactionListResponse は全リアクションのレスポンス。
type reactionListResponse struct {
	Reactions map[string]model.ReactionEntry `json:"reactions"`
}

// List はユーザーの全リアクションを返す。
// GET /api/reactions
func (h *ReactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	reactions, err := h.tracker.Reactions(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reactionListResponse{Reactions: reactions})
}

// Get は指定記事のリアクションを返す。リアクションがない場合は404。
// GET /api/reactions/{key}
func (h *ReactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	articleKey := chi.URLParam(r, "key")

	entry, found, err := h.tracker.Reaction(r.Context(), userID, articleKey)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !found {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewArticleNotFoundError(articleKey))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reactionResponse{
		ArticleKey:  articleKey,
		Symbol:      entry.Symbol,
		UpdatedAtMS: entry.UpdatedAtMS,
	})
}

// Set は指定記事のリアクションを設定する（上書き・最新勝ち）。
// リアクション系ミッションの進捗にも反映される。
// PUT /api/reactions/{key}
func (h *ReactionHandler) Set(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	articleKey := chi.URLParam(r, "key")

	var req setReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}
	if req.Symbol == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リアクションシンボルが空です。解除にはDELETEを使用してください。",
			Category: "validation",
			Action:   "シンボルを指定してください。",
		})
		return
	}

	if err := h.tracker.SetReaction(r.Context(), userID, articleKey, req.Symbol); err != nil {
		handleServiceError(w, err)
		return
	}

	// ミッション進捗はベストエフォートで反映する。
	if err := h.missions.RecordEvent(r.Context(), userID, model.MissionTypeReactToArticle); err != nil {
		slog.Error("failed to record react_to_article mission event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear は指定記事のリアクションを解除する。未設定の記事への解除も成功扱い。
// DELETE /api/reactions/{key}
func (h *ReactionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	articleKey := chi.URLParam(r, "key")

	// 空シンボルは解除を意味する
	if err := h.tracker.SetReaction(r.Context(), userID, articleKey, ""); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stream はリアクションマップの更新をSSEで配信する。
// GET /api/reactions/stream
func (h *ReactionHandler) Stream(w http.ResponseWriter, r *http.Request) {
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
