package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/newspulse/internal/middleware"
	"github.com/hitoshi/newspulse/internal/model"
)

// defaultArticlesPerPage は記事一覧の1回の取得件数（デフォルト）。
const defaultArticlesPerPage = 50

// maxArticlesPerPage は記事一覧の1回の取得件数の上限。
const maxArticlesPerPage = 200

// ArticleReaderInterface は記事ハンドラーが必要とする読み取りインターフェース。
type ArticleReaderInterface interface {
	FindByKey(ctx context.Context, key string) (*model.Article, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Article, error)
}

// ArticleHandler は記事閲覧のHTTPハンドラー。
// 各記事にはソースの信頼度評価を付与して返す。
type ArticleHandler struct {
	articles ArticleReaderInterface
	bias     BiasCacheInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(articles ArticleReaderInterface, bias BiasCacheInterface) *ArticleHandler {
	return &ArticleHandler{
		articles: articles,
		bias:     bias,
	}
}

// articleResponse は記事のレスポンス。
type articleResponse struct {
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Source      string     `json:"source"`
	Summary     string     `json:"summary"`
	BiasRating  string     `json:"bias_rating"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// articleListResponse は記事一覧のレスポンス。
type articleListResponse struct {
	Articles []articleResponse `json:"articles"`
}

// List は取得日時の降順で記事一覧を返す。
// GET /api/articles?limit=50
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	limit := defaultArticlesPerPage
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitは正の整数である必要があります。",
				Category: "validation",
				Action:   "正しいlimit値を指定してください。",
			})
			return
		}
		if n > maxArticlesPerPage {
			n = maxArticlesPerPage
		}
		limit = n
	}

	articles, err := h.articles.ListRecent(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]articleResponse, len(articles))
	for i, a := range articles {
		results[i] = h.toArticleResponse(a)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(articleListResponse{Articles: results})
}

// Get は指定キーの記事を返す。
// GET /api/articles/{key}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorized(w)
		return
	}

	key := chi.URLParam(r, "key")

	article, err := h.articles.FindByKey(r.Context(), key)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if article == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewArticleNotFoundError(key))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.toArticleResponse(article))
}

// toArticleResponse は記事をソース評価付きのレスポンス型に変換する。
func (h *ArticleHandler) toArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		Key:         a.Key,
		Title:       a.Title,
		Link:        a.Link,
		Source:      a.Source,
		Summary:     a.Summary,
		BiasRating:  string(h.bias.RatingFor(a.Source)),
		PublishedAt: a.PublishedAt,
		FetchedAt:   a.FetchedAt,
	}
}
