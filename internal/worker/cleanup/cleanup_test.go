package cleanup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/newspulse/internal/model"
)

// mockSessionRepo はSessionRepositoryのテスト用モック。
type mockSessionRepo struct {
	deleteExpiredCalled bool
	deletedCount        int64
	err                 error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error { return nil }

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error { return nil }

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	m.deleteExpiredCalled = true
	return m.deletedCount, m.err
}

// mockArticlePruner はArticlePrunerのテスト用モック。
type mockArticlePruner struct {
	called       bool
	cutoff       time.Time
	deletedCount int64
	err          error
}

func (m *mockArticlePruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.called = true
	m.cutoff = cutoff
	return m.deletedCount, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewCleanupJob_SetsDefaultRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockSessionRepo{}, &mockArticlePruner{}, newTestLogger(&buf))

	if job.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", job.RetentionDays)
	}
}

func TestRun_DeletesExpiredSessionsAndOldArticles(t *testing.T) {
	var buf bytes.Buffer
	sessions := &mockSessionRepo{deletedCount: 5}
	pruner := &mockArticlePruner{deletedCount: 12}
	job := NewCleanupJob(sessions, pruner, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run がエラーを返した: %v", err)
	}

	if !sessions.deleteExpiredCalled {
		t.Error("DeleteExpired が呼ばれていない")
	}
	if !pruner.called {
		t.Error("DeleteOlderThan が呼ばれていない")
	}

	// カットオフはRetentionDays日前
	wantCutoff := time.Now().AddDate(0, 0, -job.RetentionDays)
	diff := pruner.cutoff.Sub(wantCutoff)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want ~%v", pruner.cutoff, wantCutoff)
	}
}

func TestRun_CustomRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	pruner := &mockArticlePruner{}
	job := NewCleanupJob(&mockSessionRepo{}, pruner, newTestLogger(&buf))
	job.RetentionDays = 30

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run がエラーを返した: %v", err)
	}

	wantCutoff := time.Now().AddDate(0, 0, -30)
	diff := pruner.cutoff.Sub(wantCutoff)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want ~%v", pruner.cutoff, wantCutoff)
	}
}

func TestRun_ZeroDeletionsIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockSessionRepo{deletedCount: 0}, &mockArticlePruner{deletedCount: 0}, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("削除対象ゼロでエラーが返った: %v", err)
	}
}

func TestRun_SessionDeleteFailureReturnsError(t *testing.T) {
	var buf bytes.Buffer
	sessions := &mockSessionRepo{err: errors.New("connection refused")}
	pruner := &mockArticlePruner{}
	job := NewCleanupJob(sessions, pruner, newTestLogger(&buf))

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("セッション削除失敗時はエラーが返るべき")
	}
	if pruner.called {
		t.Error("セッション削除失敗後に記事削除が実行された")
	}
}

func TestRun_ArticlePruneFailureReturnsError(t *testing.T) {
	var buf bytes.Buffer
	pruner := &mockArticlePruner{err: errors.New("connection refused")}
	job := NewCleanupJob(&mockSessionRepo{}, pruner, newTestLogger(&buf))

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("記事削除失敗時はエラーが返るべき")
	}
}
