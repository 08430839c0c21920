// Package reaction は記事リアクションの集約とライブ配信を提供する。
package reaction

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
const maxCASAttempts = 5

// Tracker はユーザーごとのリアクションマップのトラッカー。
// (ユーザー, 記事キー)ごとに最新のリアクションだけを保持し、解除は
// エントリの削除で表す。同一キーへの並行書き込みは後勝ち
// （last-writer-wins）で、マージは行わない。
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

// SetReaction は指定記事へのリアクションを設定または解除する。
// symbolが空文字列の場合は解除で、エントリをマップから削除する
// （「リアクションなし」はエントリの不在でのみ表現される）。
// 設定はシンボルと更新時刻（サーバー時刻）を持つエントリのUPSERT。
func (t *Tracker) SetReaction(ctx context.Context, userID, articleKey, symbol string) error {
	if articleKey == "" {
		return model.NewInvalidArticleKeyError("記事キーが空です")
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		state, revision, err := t.readState(ctx, userID)
		if err != nil {
			return err
		}

		if symbol == "" {
			if _, exists := state.Reactions[articleKey]; !exists {
				// 解除対象のエントリが存在しない場合は何もしない（冪等）
				return nil
			}
			delete(state.Reactions, articleKey)
		} else {
			state.Reactions[articleKey] = model.ReactionEntry{
				Symbol:      symbol,
				UpdatedAtMS: t.nowFn().UnixMilli(),
			}
		}

		payload, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("リアクション状態のシリアライズに失敗しました: %w", err)
		}

		swapped, err := t.store.CompareAndSwap(ctx, userID, model.StateKindReactions, payload, revision)
		if err != nil {
			return fmt.Errorf("リアクション状態の書き込みに失敗しました: %w", err)
		}
		if swapped {
			return nil
		}

		t.logger.Info("リアクション状態の書き込みが競合したため再試行します",
			slog.String("user_id", userID),
			slog.String("article_key", articleKey),
			slog.Int("attempt", attempt+1),
		)
	}

	return model.NewStateConflictError(string(model.StateKindReactions))
}

// Reaction は指定記事へのリアクションを返す。リアクションがない場合は
// 2値目がfalse。
func (t *Tracker) Reaction(ctx context.Context, userID, articleKey string) (model.ReactionEntry, bool, error) {
	state, _, err := t.readState(ctx, userID)
	if err != nil {
		return model.ReactionEntry{}, false, err
	}
	entry, ok := state.Reactions[articleKey]
	return entry, ok, nil
}

// Reactions は現在のリアクションマップ全体を返す。
func (t *Tracker) Reactions(ctx context.Context, userID string) (map[string]model.ReactionEntry, error) {
	state, _, err := t.readState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return state.Reactions, nil
}

// Watch はリアクションマップのライブ購読を開始する。
// 現在のマップが即座に配信され、以後リモート変更のたびにマップ全体が
// 再配信される（差分パッチではなく全置き換えで、観測側は差分計算を
// 必要としない）。解除関数の呼び出しで購読タスクは停止する。
func (t *Tracker) Watch(ctx context.Context, userID string) (<-chan map[string]model.ReactionEntry, func(), error) {
	ticks, unsubscribe, err := t.store.Subscribe(ctx, userID, model.StateKindReactions)
	if err != nil {
		return nil, nil, fmt.Errorf("リアクション変更の購読に失敗しました: %w", err)
	}

	reactions, err := t.Reactions(ctx, userID)
	if err != nil {
		unsubscribe()
		return nil, nil, err
	}

	val := watch.NewValue[map[string]model.ReactionEntry]()
	val.Set(reactions)

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
				reactions, err := t.Reactions(watchCtx, userID)
				if err != nil {
					if watchCtx.Err() != nil {
						return
					}
					t.logger.Error("リアクションマップの再取得に失敗しました",
						slog.String("user_id", userID),
						slog.String("error", err.Error()),
					)
					continue
				}
				val.Set(reactions)
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

// readState は状態ドキュメントを読み取りパースする。未作成の場合は空状態を返す。
func (t *Tracker) readState(ctx context.Context, userID string) (model.ReactionsState, int64, error) {
	doc, err := t.store.Read(ctx, userID, model.StateKindReactions)
	if err != nil {
		return model.ReactionsState{}, 0, fmt.Errorf("リアクション状態の読み取りに失敗しました: %w", err)
	}

	state := model.ReactionsState{Reactions: make(map[string]model.ReactionEntry)}
	if doc == nil {
		return state, 0, nil
	}

	if err := json.Unmarshal(doc.Doc, &state); err != nil {
		return model.ReactionsState{}, 0, fmt.Errorf("リアクション状態のパースに失敗しました: %w", err)
	}
	if state.Reactions == nil {
		state.Reactions = make(map[string]model.ReactionEntry)
	}
	return state, doc.Revision, nil
}
