package handler

import (
	"context"
	"time"

	"github.com/hitoshi/newspulse/internal/model"
	"github.com/hitoshi/newspulse/internal/user"
)

// --- テスト用モック定義（handlerパッケージ共通） ---

type mockAuthService struct {
	loginFn  func(ctx context.Context, username string) (*model.Session, *model.User, error)
	logoutFn func(ctx context.Context, sessionID string) error
	userFn   func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, username string) (*model.Session, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username)
	}
	return nil, nil, model.NewUserNotFoundError()
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.userFn != nil {
		return m.userFn(ctx, sessionID)
	}
	return nil, model.NewUserNotFoundError()
}

type mockUserService struct {
	registerFn func(ctx context.Context, username, email string) (*model.User, error)
}

func (m *mockUserService) Register(ctx context.Context, username, email string) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, email)
	}
	return &model.User{ID: "new-user", Username: username, Email: email}, nil
}

type mockProfileService struct {
	profileFn func(ctx context.Context, userID string) (*user.Profile, error)
}

func (m *mockProfileService) GetProfile(ctx context.Context, userID string) (*user.Profile, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, userID)
	}
	return nil, model.NewUserNotFoundError()
}

type mockStreakTracker struct {
	logFn      func(ctx context.Context, userID, articleKey string, today time.Time) (model.StreakSnapshot, error)
	snapshotFn func(ctx context.Context, userID string) (model.StreakSnapshot, error)
	watchCh    chan model.StreakSnapshot
	watchErr   error
	cancelled  bool
}

func (m *mockStreakTracker) LogArticleRead(ctx context.Context, userID, articleKey string, today time.Time) (model.StreakSnapshot, error) {
	if m.logFn != nil {
		return m.logFn(ctx, userID, articleKey, today)
	}
	return model.StreakSnapshot{}, nil
}

func (m *mockStreakTracker) Snapshot(ctx context.Context, userID string) (model.StreakSnapshot, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn(ctx, userID)
	}
	return model.StreakSnapshot{}, nil
}

func (m *mockStreakTracker) Watch(ctx context.Context, userID string) (<-chan model.StreakSnapshot, func(), error) {
	if m.watchErr != nil {
		return nil, nil, m.watchErr
	}
	return m.watchCh, func() { m.cancelled = true }, nil
}

type mockMissionRecorder struct {
	events []model.MissionType
	err    error
}

func (m *mockMissionRecorder) RecordEvent(ctx context.Context, userID string, missionType model.MissionType) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, missionType)
	return nil
}

type mockMissionTracker struct {
	updateFn   func(ctx context.Context, userID, missionID string, newCount int) (model.Mission, error)
	missionsFn func(ctx context.Context, userID string) ([]model.Mission, error)
	watchCh    chan []model.Mission
}

func (m *mockMissionTracker) UpdateProgress(ctx context.Context, userID, missionID string, newCount int) (model.Mission, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, missionID, newCount)
	}
	return model.Mission{}, nil
}

func (m *mockMissionTracker) Missions(ctx context.Context, userID string) ([]model.Mission, error) {
	if m.missionsFn != nil {
		return m.missionsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockMissionTracker) Watch(ctx context.Context, userID string) (<-chan []model.Mission, func(), error) {
	return m.watchCh, func() {}, nil
}

type mockReactionTracker struct {
	setFn       func(ctx context.Context, userID, articleKey, symbol string) error
	reactionFn  func(ctx context.Context, userID, articleKey string) (model.ReactionEntry, bool, error)
	reactionsFn func(ctx context.Context, userID string) (map[string]model.ReactionEntry, error)
	watchCh     chan map[string]model.ReactionEntry
	setCalls    []struct{ ArticleKey, Symbol string }
}

func (m *mockReactionTracker) SetReaction(ctx context.Context, userID, articleKey, symbol string) error {
	m.setCalls = append(m.setCalls, struct{ ArticleKey, Symbol string }{articleKey, symbol})
	if m.setFn != nil {
		return m.setFn(ctx, userID, articleKey, symbol)
	}
	return nil
}

func (m *mockReactionTracker) Reaction(ctx context.Context, userID, articleKey string) (model.ReactionEntry, bool, error) {
	if m.reactionFn != nil {
		return m.reactionFn(ctx, userID, articleKey)
	}
	return model.ReactionEntry{}, false, nil
}

func (m *mockReactionTracker) Reactions(ctx context.Context, userID string) (map[string]model.ReactionEntry, error) {
	if m.reactionsFn != nil {
		return m.reactionsFn(ctx, userID)
	}
	return map[string]model.ReactionEntry{}, nil
}

func (m *mockReactionTracker) Watch(ctx context.Context, userID string) (<-chan map[string]model.ReactionEntry, func(), error) {
	return m.watchCh, func() {}, nil
}

type mockFriendService struct {
	addFn    func(ctx context.Context, ownerID, friendUsername string) model.AddFriendResult
	removeFn func(ctx context.Context, ownerID, friendID string) error
	countFn  func(ctx context.Context, ownerID string) (int, error)
}

func (m *mockFriendService) AddFriend(ctx context.Context, ownerID, friendUsername string) model.AddFriendResult {
	if m.addFn != nil {
		return m.addFn(ctx, ownerID, friendUsername)
	}
	return model.AddFriendResult{Outcome: model.AddFriendSuccess, FriendID: "friend-1"}
}

func (m *mockFriendService) RemoveFriend(ctx context.Context, ownerID, friendID string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, ownerID, friendID)
	}
	return nil
}

func (m *mockFriendService) FriendCount(ctx context.Context, ownerID string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, ownerID)
	}
	return 0, nil
}

type mockBiasCache struct {
	ratings map[string]model.BiasRating
}

func (m *mockBiasCache) RatingFor(sourceName string) model.BiasRating {
	if r, ok := m.ratings[model.NormalizeSourceName(sourceName)]; ok {
		return r
	}
	return model.BiasNeutral
}

func (m *mockBiasCache) Mappings() map[string]model.BiasRating {
	out := make(map[string]model.BiasRating, len(m.ratings))
	for k, v := range m.ratings {
		out[k] = v
	}
	return out
}

type mockArticleReader struct {
	articles map[string]*model.Article
	recent   []*model.Article
	findErr  error
}

func (m *mockArticleReader) FindByKey(ctx context.Context, key string) (*model.Article, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.articles[key], nil
}

func (m *mockArticleReader) ListRecent(ctx context.Context, limit int) ([]*model.Article, error) {
	if limit < len(m.recent) {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}
