package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/newspulse/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証・ユーザー
	AuthService    AuthServiceInterface
	AuthConfig     AuthHandlerConfig
	UserService    UserServiceInterface
	ProfileService ProfileServiceInterface

	// エンゲージメント
	StreakTracker   StreakTrackerInterface
	MissionTracker  MissionTrackerInterface
	MissionRecorder MissionRecorder
	ReactionTracker ReactionTrackerInterface

	// フレンド
	FriendService FriendServiceInterface

	// 記事・信頼度評価
	ArticleReader ArticleReaderInterface
	BiasCache     BiasCacheInterface

	// 観測
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders → Session → RateLimit(General)
//
// 認証ルート（/auth/*）・ヘルスチェック・メトリクスはミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// リカバリとアクセスログを最上位に適用（全ルートに効く）
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.UserService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.ProfileService)
	streakHandler := NewStreakHandler(deps.StreakTracker, deps.MissionRecorder)
	missionHandler := NewMissionHandler(deps.MissionTracker)
	reactionHandler := NewReactionHandler(deps.ReactionTracker, deps.MissionRecorder)
	friendHandler := NewFriendHandler(deps.FriendService, deps.MissionRecorder)
	biasHandler := NewBiasHandler(deps.BiasCache)
	articleHandler := NewArticleHandler(deps.ArticleReader, deps.BiasCache)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール
		r.Get("/api/profile", userHandler.Profile)

		// ストリーク
		r.Route("/api/streak", func(r chi.Router) {
			r.Get("/", streakHandler.Get)
			r.Post("/read", streakHandler.LogRead)
			r.Get("/stream", streakHandler.Stream)
		})

		// ミッション
		r.Route("/api/missions", func(r chi.Router) {
			r.Get("/", missionHandler.List)
			r.Get("/stream", missionHandler.Stream)
			r.Put("/{id}/progress", missionHandler.UpdateProgress)
		})

		// リアクション
		r.Route("/api/reactions", func(r chi.Router) {
			r.Get("/", reactionHandler.List)
			r.Get("/stream", reactionHandler.Stream)

			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", reactionHandler.Get)
				r.Put("/", reactionHandler.Set)
				r.Delete("/", reactionHandler.Clear)
			})
		})

		// フレンド管理
		r.Route("/api/friends", func(r chi.Router) {
			// 追加・削除にはフレンド操作専用レート制限を重ねる
			r.With(deps.RateLimiter.FriendMutationMiddleware()).Post("/", friendHandler.Add)
			r.With(deps.RateLimiter.FriendMutationMiddleware()).Delete("/{id}", friendHandler.Remove)
			r.Get("/count", friendHandler.Count)
		})

		// ソース信頼度評価
		r.Get("/api/bias", biasHandler.Get)

		// 記事閲覧
		r.Route("/api/articles", func(r chi.Router) {
			r.Get("/", articleHandler.List)
			r.Get("/{key}", articleHandler.Get)
		})
	})

	return r
}
