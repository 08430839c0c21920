package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/newspulse/internal/model"
)

// BiasCacheInterface はバイアスハンドラーが必要とするキャッシュインターフェース。
type BiasCacheInterface interface {
	RatingFor(sourceName string) model.BiasRating
	Mappings() map[string]model.BiasRating
}

// BiasHandler はソース信頼度評価のHTTPハンドラー。
type BiasHandler struct {
	cache BiasCacheInterface
}

// NewBiasHandler はBiasHandlerを生成する。
func NewBiasHandler(cache BiasCacheInterface) *BiasHandler {
	return &BiasHandler{cache: cache}
}

// biasRatingResponse は1ソース分の評価レスポンス。
type biasRatingResponse struct {
	Source string `json:"source"`
	Rating string `json:"rating"`
}

// biasMappingsResponse は全ソースの評価マップレスポンス。
type biasMappingsResponse struct {
	Mappings map[string]model.BiasRating `json:"mappings"`
}

// Get はソース名の評価を返す。source未指定の場合は全マッピングを返す。
// 未知のソースはNeutral（ブロッキングなし・フォールバック）。
// GET /api/bias?source=xxx
func (h *BiasHandler) Get(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	w.Header().Set("Content-Type", "application/json")

	if source == "" {
		json.NewEncoder(w).Encode(biasMappingsResponse{Mappings: h.cache.Mappings()})
		return
	}

	json.NewEncoder(w).Encode(biasRatingResponse{
		Source: source,
		Rating: string(h.cache.RatingFor(source)),
	})
}
