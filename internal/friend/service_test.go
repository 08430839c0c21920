package friend

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/hitoshi/newspulse/internal/model"
)

// mockUserRepo はUserRepositoryのテスト用モック。
type mockUserRepo struct {
	usersByName map[string]*model.User
	findErr     error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	for _, u := range m.usersByName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.usersByName[username], nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}

// mockFriendRepo はFriendRepositoryのテスト用インメモリ実装。
type mockFriendRepo struct {
	mu        sync.Mutex
	edges     map[string]bool // ownerID|friendID
	existsErr error
	createErr error
	deleteErr error
}

func newMockFriendRepo() *mockFriendRepo {
	return &mockFriendRepo{edges: make(map[string]bool)}
}

func edgeKey(ownerID, friendID string) string {
	return ownerID + "|" + friendID
}

func (m *mockFriendRepo) Exists(ctx context.Context, ownerID, friendID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges[edgeKey(ownerID, friendID)], nil
}

func (m *mockFriendRepo) Create(ctx context.Context, friend *model.Friend) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[edgeKey(friend.OwnerID, friend.FriendID)] = true
	return nil
}

func (m *mockFriendRepo) Delete(ctx context.Context, ownerID, friendID string) (bool, error) {
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := edgeKey(ownerID, friendID)
	existed := m.edges[key]
	delete(m.edges, key)
	return existed, nil
}

func (m *mockFriendRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for key := range m.edges {
		if len(key) > len(ownerID) && key[:len(ownerID)+1] == ownerID+"|" {
			count++
		}
	}
	return count, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func testUsers() *mockUserRepo {
	return &mockUserRepo{usersByName: map[string]*model.User{
		"alice": {ID: "user-alice", Username: "alice"},
		"bob":   {ID: "user-bob", Username: "bob"},
	}}
}

func TestAddFriend_Success(t *testing.T) {
	friendRepo := newMockFriendRepo()
	svc := NewService(friendRepo, testUsers(), testLogger())

	result := svc.AddFriend(context.Background(), "user-alice", "bob")

	if result.Outcome != model.AddFriendSuccess {
		t.Fatalf("Outcome = %v, want %v", result.Outcome, model.AddFriendSuccess)
	}
	if result.FriendID != "user-bob" {
		t.Errorf("FriendID = %s, want user-bob", result.FriendID)
	}

	exists, _ := friendRepo.Exists(context.Background(), "user-alice", "user-bob")
	if !exists {
		t.Error("エッジが作成されていない")
	}
}

func TestAddFriend_SelfAddAttempt(t *testing.T) {
	svc := NewService(newMockFriendRepo(), testUsers(), testLogger())

	result := svc.AddFriend(context.Background(), "user-alice", "alice")

	if result.Outcome != model.AddFriendSelf {
		t.Errorf("Outcome = %v, want %v", result.Outcome, model.AddFriendSelf)
	}
}

func TestAddFriend_UserNotFound(t *testing.T) {
	svc := NewService(newMockFriendRepo(), testUsers(), testLogger())

	result := svc.AddFriend(context.Background(), "user-alice", "charlie")

	if result.Outcome != model.AddFriendUserNotFound {
		t.Errorf("Outcome = %v, want %v", result.Outcome, model.AddFriendUserNotFound)
	}
}

func TestAddFriend_EmptyUsernameIsUserNotFound(t *testing.T) {
	svc := NewService(newMockFriendRepo(), testUsers(), testLogger())

	result := svc.AddFriend(context.Background(), "user-alice", "   ")

	if result.Outcome != model.AddFriendUserNotFound {
		t.Errorf("Outcome = %v, want %v", result.Outcome, model.AddFriendUserNotFound)
	}
}

func TestAddFriend_AlreadyFriends(t *testing.T) {
	friendRepo := newMockFriendRepo()
	svc := NewService(friendRepo, testUsers(), testLogger())

	if result := svc.AddFriend(context.Background(), "user-alice", "bob"); result.Outcome != model.AddFriendSuccess {
		t.Fatalf("1回目のOutcome = %v, want %v", result.Outcome, model.AddFriendSuccess)
	}
	result := svc.AddFriend(context.Background(), "user-alice", "bob")

	if result.Outcome != model.AddFriendAlreadyFriends {
		t.Errorf("Outcome = %v, want %v", result.Outcome, model.AddFriendAlreadyFriends)
	}
}

func TestAddFriend_SelfCheckPrecedesDuplicateCheck(t *testing.T) {
	// 自分へのエッジが（異常データとして）存在していても、
	// 自己追加の判定が重複判定より先に行われる
	friendRepo := newMockFriendRepo()
	friendRepo.edges[edgeKey("user-alice", "user-alice")] = true
	svc := NewService(friendRepo, testUsers(), testLogger())

	result := svc.AddFriend(context.Background(), "user-alice", "alice")

	if result.Outcome != model.AddFriendSelf {
		t.Errorf("Outcome = %v, want %v", result.Outcome, model.AddFriendSelf)
	}
}

func TestAddFriend_StoreFailureReturnsFailedWithErr(t *testing.T) {
	userRepo := testUsers()
	userRepo.findErr = errors.New("connection refused")
	svc := NewService(newMockFriendRepo(), userRepo, testLogger())

	result := svc.AddFriend(context.Background(), "user-alice", "bob")

	if result.Outcome != model.AddFriendFailed {
		t.Fatalf("Outcome = %v, want %v", result.Outcome, model.AddFriendFailed)
	}
	if result.Err == nil {
		t.Error("Err = nil, want 非nil")
	}
}

func TestAddFriend_CreateFailureReturnsFailedWithErr(t *testing.T) {
	friendRepo := newMockFriendRepo()
	friendRepo.createErr = errors.New("constraint violation")
	svc := NewService(friendRepo, testUsers(), testLogger())

	result := svc.AddFriend(context.Background(), "user-alice", "bob")

	if result.Outcome != model.AddFriendFailed {
		t.Fatalf("Outcome = %v, want %v", result.Outcome, model.AddFriendFailed)
	}
	if result.Err == nil {
		t.Error("Err = nil, want 非nil")
	}
}

func TestRemoveFriend_DeletesExistingEdge(t *testing.T) {
	friendRepo := newMockFriendRepo()
	friendRepo.edges[edgeKey("user-alice", "user-bob")] = true
	svc := NewService(friendRepo, testUsers(), testLogger())

	if err := svc.RemoveFriend(context.Background(), "user-alice", "user-bob"); err != nil {
		t.Fatalf("RemoveFriend がエラーを返した: %v", err)
	}

	exists, _ := friendRepo.Exists(context.Background(), "user-alice", "user-bob")
	if exists {
		t.Error("エッジが削除されていない")
	}
}

func TestRemoveFriend_AbsentEdgeIsIdempotent(t *testing.T) {
	svc := NewService(newMockFriendRepo(), testUsers(), testLogger())

	// 存在しないエッジの削除は成功扱い
	if err := svc.RemoveFriend(context.Background(), "user-alice", "user-bob"); err != nil {
		t.Errorf("存在しないエッジの削除がエラーを返した: %v", err)
	}
}

func TestRemoveFriend_StoreFailureReturnsError(t *testing.T) {
	friendRepo := newMockFriendRepo()
	friendRepo.deleteErr = errors.New("connection refused")
	svc := NewService(friendRepo, testUsers(), testLogger())

	if err := svc.RemoveFriend(context.Background(), "user-alice", "user-bob"); err == nil {
		t.Error("ストア障害時はエラーが返るべき")
	}
}

func TestFriendCount_CountsOwnerEdges(t *testing.T) {
	friendRepo := newMockFriendRepo()
	friendRepo.edges[edgeKey("user-alice", "user-bob")] = true
	friendRepo.edges[edgeKey("user-alice", "user-carol")] = true
	friendRepo.edges[edgeKey("user-bob", "user-alice")] = true
	svc := NewService(friendRepo, testUsers(), testLogger())

	count, err := svc.FriendCount(context.Background(), "user-alice")
	if err != nil {
		t.Fatalf("FriendCount がエラーを返した: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
