// Package streak は連続読書ストリークの状態遷移とライブ配信を提供する。
package streak

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newspulse/internal/model"
	"github.com/hitoshi/newspulse/internal/repository"
	"github.com/hitoshi/newspulse/internal/watch"
)

// maxCASAttempts は条件付き書き込みの最大試行回数。
// 同一ユーザーが複数デバイスで同時に読書記録した場合のリトライ上限。
const maxCASAttempts = 5

// Tracker はストリーク状態のトラッカー。
// 状態ドキュメントストアを唯一の真実とし、遷移は条件付き書き込みで
// 適用する（他デバイスとの並行書き込みで更新が失われないように）。
type Tracker struct {
	store  repository.StateStore
	logger *slog.Logger
	nowFn  func() time.Time // テスト用に差し替え可能
}

// NewTracker はTrackerの新しいインスタンスを生成する。
func NewTracker(store repository.StateStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		nowFn:  time.Now,
	}
}

// LogArticleRead は記事読了イベントをストリーク状態に反映する。
// 遷移規則:
//   - 最終読書日が今日: 何もしない（同一日の再読は二重計上しない）
//   - 最終読書日が昨日: カウントを1増やす
//   - それ以外（2日以上の空白、または初回）: カウントを1にリセットする
//
// 遷移は読み取り・適用・条件付き書き込みのループで適用し、リビジョン
// 競合時は最新状態を読み直して再判定する。再判定で「今日はすでに
// 記録済み」となった場合は増分を適用せずに終了する（同一日に2回の
// 増分が入ることはない）。リトライ上限超過時は競合エラーを返す。
func (t *Tracker) LogArticleRead(ctx context.Context, userID, articleKey string, today time.Time) (model.StreakSnapshot, error) {
	todayStr := today.Format(model.StreakDateLayout)
	yesterdayStr := today.AddDate(0, 0, -1).Format(model.StreakDateLayout)

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		doc, err := t.store.Read(ctx, userID, model.StateKindStreak)
		if err != nil {
			return model.StreakSnapshot{}, fmt.Errorf("ストリーク状態の読み取りに失敗しました: %w", err)
		}

		var state model.StreakState
		var revision int64
		if doc != nil {
			if err := json.Unmarshal(doc.Doc, &state); err != nil {
				return model.StreakSnapshot{}, fmt.Errorf("ストリーク状態のパースに失敗しました: %w", err)
			}
			revision = doc.Revision
		}

		// 同一日の再読は冪等（他デバイスが先に記録した場合もここで吸収する）
		if state.LastReadDate == todayStr {
			return snapshotOf(state, todayStr), nil
		}

		next := model.StreakState{LastReadDate: todayStr}
		if state.LastReadDate == yesterdayStr {
			next.Count = state.Count + 1
		} else {
			next.Count = 1
		}

		payload, err := json.Marshal(next)
		if err != nil {
			return model.StreakSnapshot{}, fmt.Errorf("ストリーク状態のシリアライズに失敗しました: %w", err)
		}

		swapped, err := t.store.CompareAndSwap(ctx, userID, model.StateKindStreak, payload, revision)
		if err != nil {
			return model.StreakSnapshot{}, fmt.Errorf("ストリーク状態の書き込みに失敗しました: %w", err)
		}
		if swapped {
			t.logger.Info("ストリーク状態を更新しました",
				slog.String("user_id", userID),
				slog.String("article_key", articleKey),
				slog.Int("count", next.Count),
				slog.String("last_read_date", next.LastReadDate),
			)
			return snapshotOf(next, todayStr), nil
		}

		t.logger.Info("ストリーク状態の書き込みが競合したため再試行します",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt+1),
		)
	}

	return model.StreakSnapshot{}, model.NewStateConflictError(string(model.StateKindStreak))
}

// Snapshot は現在のストリーク状態のスナップショットを返す。
// 状態ドキュメントが未作成の場合はカウント0のスナップショットを返す。
func (t *Tracker) Snapshot(ctx context.Context, userID string) (model.StreakSnapshot, error) {
	doc, err := t.store.Read(ctx, userID, model.StateKindStreak)
	if err != nil {
		return model.StreakSnapshot{}, fmt.Errorf("ストリーク状態の読み取りに失敗しました: %w", err)
	}

	var state model.StreakState
	if doc != nil {
		if err := json.Unmarshal(doc.Doc, &state); err != nil {
			return model.StreakSnapshot{}, fmt.Errorf("ストリーク状態のパースに失敗しました: %w", err)
		}
	}

	todayStr := t.nowFn().Format(model.StreakDateLayout)
	return snapshotOf(state, todayStr), nil
}

// Watch はストリーク状態のライブ購読を開始する。
// 現在のスナップショットが即座に配信され、以後リモート変更のたびに
// 最新のスナップショットが再配信される。配信は最新値のみ
// （most-recent-wins）で、古いスナップショットが新しいものの後に
// 観測されることはない。解除関数の呼び出しで購読タスクは停止する。
func (t *Tracker) Watch(ctx context.Context, userID string) (<-chan model.StreakSnapshot, func(), error) {
	ticks, unsubscribe, err := t.store.Subscribe(ctx, userID, model.StateKindStreak)
	if err != nil {
		return nil, nil, fmt.Errorf("ストリーク変更の購読に失敗しました: %w", err)
	}

	snap, err := t.Snapshot(ctx, userID)
	if err != nil {
		unsubscribe()
		return nil, nil, err
	}

	val := watch.NewValue[model.StreakSnapshot]()
	val.Set(snap)

	watchCtx, cancelCtx := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-ticks:
				if !ok {
					return
				}
				snap, err := t.Snapshot(watchCtx, userID)
				if err != nil {
					if watchCtx.Err() != nil {
						return
					}
					t.logger.Error("ストリークスナップショットの再取得に失敗しました",
						slog.String("user_id", userID),
						slog.String("error", err.Error()),
					)
					continue
				}
				val.Set(snap)
			}
		}
	}()

	ch, cancelSub := val.Subscribe()
	cancel := func() {
		cancelSub()
		cancelCtx()
		unsubscribe()
	}
	return ch, cancel, nil
}

// snapshotOf は状態と今日の日付文字列からスナップショットを導出する。
func snapshotOf(state model.StreakState, todayStr string) model.StreakSnapshot {
	return model.StreakSnapshot{
		Count:          state.Count,
		LastReadDate:   state.LastReadDate,
		HasLoggedToday: state.LastReadDate == todayStr,
	}
}
