package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/newspulse/internal/model"
)

// --- モック定義 ---

type mockUserRepo struct {
	usersByID   map[string]*model.User
	usersByName map[string]*model.User
	findErr     error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.usersByID[id], nil
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

type mockSessionRepo struct {
	sessions  map[string]*model.Session
	createErr error
	deleteErr error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestService(userRepo *mockUserRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 3600}, testLogger())
}

// --- テスト ---

func TestLogin_KnownUsername_IssuesSession(t *testing.T) {
	userRepo := &mockUserRepo{
		usersByName: map[string]*model.User{
			"alice": {ID: "user-1", Username: "alice"},
		},
	}
	sessionRepo := newMockSessionRepo()
	svc := newTestService(userRepo, sessionRepo)

	session, user, err := svc.Login(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
	if session.UserID != "user-1" {
		t.Errorf("session.UserID = %q, want %q", session.UserID, "user-1")
	}
	if len(session.ID) != 64 { // 32バイトのhexエンコード
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("session should not be expired immediately after login")
	}
	if _, ok := sessionRepo.sessions[session.ID]; !ok {
		t.Error("session should be persisted")
	}
}

func TestLogin_TrimsUsername(t *testing.T) {
	userRepo := &mockUserRepo{
		usersByName: map[string]*model.User{
			"alice": {ID: "user-1", Username: "alice"},
		},
	}
	svc := newTestService(userRepo, newMockSessionRepo())

	_, user, err := svc.Login(context.Background(), "  alice  ")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-1")
	}
}

func TestLogin_UnknownUsername_ReturnsUserNotFound(t *testing.T) {
	userRepo := &mockUserRepo{usersByName: map[string]*model.User{}}
	svc := newTestService(userRepo, newMockSessionRepo())

	_, _, err := svc.Login(context.Background(), "nobody")
	if err == nil {
		t.Fatal("expected error for unknown username")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestLogin_EmptyUsername_ReturnsInvalidUsername(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMockSessionRepo())

	_, _, err := svc.Login(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error for empty username")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeInvalidUsername {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidUsername)
	}
}

func TestLogin_RepositoryError_ReturnsError(t *testing.T) {
	userRepo := &mockUserRepo{findErr: errors.New("db down")}
	svc := newTestService(userRepo, newMockSessionRepo())

	_, _, err := svc.Login(context.Background(), "alice")
	if err == nil {
		t.Fatal("expected error when repository fails")
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	sessionRepo := newMockSessionRepo()
	sessionRepo.sessions["sess-1"] = &model.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := newTestService(&mockUserRepo{}, sessionRepo)

	if err := svc.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, ok := sessionRepo.sessions["sess-1"]; ok {
		t.Error("session should have been deleted")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMockSessionRepo())

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Error("expected error for empty session ID")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	userRepo := &mockUserRepo{
		usersByID: map[string]*model.User{
			"user-1": {ID: "user-1", Username: "alice"},
		},
	}
	sessionRepo := newMockSessionRepo()
	sessionRepo.sessions["sess-1"] = &model.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := newTestService(userRepo, sessionRepo)

	user, err := svc.GetCurrentUser(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetCurrentUser failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want %q", user.Username, "alice")
	}
}

func TestGetCurrentUser_ExpiredSession_ReturnsError(t *testing.T) {
	sessionRepo := newMockSessionRepo()
	sessionRepo.sessions["sess-old"] = &model.Session{
		ID:        "sess-old",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	svc := newTestService(&mockUserRepo{}, sessionRepo)

	if _, err := svc.GetCurrentUser(context.Background(), "sess-old"); err == nil {
		t.Error("expected error for expired session")
	}
}

func TestGetCurrentUser_UnknownSession_ReturnsError(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, newMockSessionRepo())

	if _, err := svc.GetCurrentUser(context.Background(), "no-such-session"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestSessionIDs_AreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateSessionID()
		if err != nil {
			t.Fatalf("generateSessionID failed: %v", err)
		}
		if seen[id] {
			t.Fatal("duplicate session ID generated")
		}
		seen[id] = true
	}
}
