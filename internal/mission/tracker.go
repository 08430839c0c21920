package mission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/newspulse/internal/model"
	"github.com/hitoshi/newspulse/internal/repository"
	"github.com/hitoshi/newspulse/internal/watch"
)

// maxCASAttempts は条件付き書き込みの最大試行回数。
const maxCASAttempts = 5

// Tracker はミッション進捗のトラッカー。
// 進捗は状態ドキュメントストアを唯一の真実とし、更新は条件付き
// 書き込みで適用する。どのユーザー行動がどのミッションを進めるかは
// このトラッカーの関知するところではなく、呼び出し側がカタログの
// 行動種別で解決してRecordEventに渡す。
type Tracker struct {
	store  repository.StateStore
	logger *slog.Logger
}

// NewTracker はTrackerの新しいインスタンスを生成する。
func NewTracker(store repository.StateStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
	}
}

// UpdateProgress は指定ミッションの進捗を更新する。
// 進捗は単調非減少かつ目標値でクランプされる:
//   - newCountが現在値以下: 何もしない（進捗の引き下げは拒否）
//   - newCountが目標値超過: 目標値に切り詰める
//
// 進捗が目標値に達した時点で完了フラグが1回だけtrueに遷移する。
// すでに完了済みのミッションへの再適用は冪等。
// 未知のミッションIDはカタログ外でありエラーを返す。
func (t *Tracker) UpdateProgress(ctx context.Context, userID, missionID string, newCount int) (model.Mission, error) {
	def, ok := DefinitionByID(missionID)
	if !ok {
		return model.Mission{}, model.NewMissionNotFoundError(missionID)
	}

	var result model.Mission
	err := t.mutate(ctx, userID, func(state *model.MissionsState) bool {
		changed := applyProgress(state, def, newCount)
		result = missionView(def, state.Missions[def.ID])
		return changed
	})
	if err != nil {
		return model.Mission{}, err
	}
	return result, nil
}

// RecordEvent は指定行動種別のミッションすべてに1回分の進捗を加算する。
// 行動種別に対応するミッションがカタログに存在しない場合は何もしない。
func (t *Tracker) RecordEvent(ctx context.Context, userID string, missionType model.MissionType) error {
	defs := DefinitionsByType(missionType)
	if len(defs) == 0 {
		return nil
	}

	return t.mutate(ctx, userID, func(state *model.MissionsState) bool {
		changed := false
		for _, def := range defs {
			current := state.Missions[def.ID].CurrentCount
			if applyProgress(state, def, current+1) {
				changed = true
			}
		}
		return changed
	})
}

// Missions はカタログ定義と進捗を結合したミッション一覧を返す。
// 進捗のないミッションはカウント0・未完了として返す。
func (t *Tracker) Missions(ctx context.Context, userID string) ([]model.Mission, error) {
	state, _, err := t.readState(ctx, userID)
	if err != nil {
		return nil, err
	}
	return missionList(state), nil
}

// Watch はミッション一覧のライブ購読を開始する。
// 現在の一覧が即座に配信され、以後リモート変更のたびに一覧全体が
// 再配信される（差分ではなく全置き換え）。配信は最新値のみで、
// 解除関数の呼び出しで購読タスクは停止する。
func (t *Tracker) Watch(ctx context.Context, userID string) (<-chan []model.Mission, func(), error) {
	ticks, unsubscribe, err := t.store.Subscribe(ctx, userID, model.StateKindMissions)
	if err != nil {
		return nil, nil, fmt.Errorf("ミッション変更の購読に失敗しました: %w", err)
	}

	missions, err := t.Missions(ctx, userID)
	if err != nil {
		unsubscribe()
		return nil, nil, err
	}

	val := watch.NewValue[[]model.Mission]()
	val.Set(missions)

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
				missions, err := t.Missions(watchCtx, userID)
				if err != nil {
					if watchCtx.Err() != nil {
						return
					}
					t.logger.Error("ミッション一覧の再取得に失敗しました",
						slog.String("user_id", userID),
						slog.String("error", err.Error()),
					)
					continue
				}
				val.Set(missions)
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

// mutate は読み取り・適用・条件付き書き込みのループで状態を更新する。
// fnがfalseを返した場合（変更なし）は書き込みを行わない。
// リビジョン競合時は最新状態を読み直して再適用する。
func (t *Tracker) mutate(ctx context.Context, userID string, fn func(state *model.MissionsState) bool) error {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		state, revision, err := t.readState(ctx, userID)
		if err != nil {
			return err
		}

		if !fn(&state) {
			return nil
		}

		payload, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("ミッション状態のシリアライズに失敗しました: %w", err)
		}

		swapped, err := t.store.CompareAndSwap(ctx, userID, model.StateKindMissions, payload, revision)
		if err != nil {
			return fmt.Errorf("ミッション状態の書き込みに失敗しました: %w", err)
		}
		if swapped {
			return nil
		}

		t.logger.Info("ミッション状態の書き込みが競合したため再試行します",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt+1),
		)
	}

	return model.NewStateConflictError(string(model.StateKindMissions))
}

// readState は状態ドキュメントを読み取りパースする。未作成の場合は空状態を返す。
func (t *Tracker) readState(ctx context.Context, userID string) (model.MissionsState, int64, error) {
	doc, err := t.store.Read(ctx, userID, model.StateKindMissions)
	if err != nil {
		return model.MissionsState{}, 0, fmt.Errorf("ミッション状態の読み取りに失敗しました: %w", err)
	}

	state := model.MissionsState{Missions: make(map[string]model.MissionProgress)}
	if doc == nil {
		return state, 0, nil
	}

	if err := json.Unmarshal(doc.Doc, &state); err != nil {
		return model.MissionsState{}, 0, fmt.Errorf("ミッション状態のパースに失敗しました: %w", err)
	}
	if state.Missions == nil {
		state.Missions = make(map[string]model.MissionProgress)
	}
	return state, doc.Revision, nil
}

// applyProgress は1ミッション分の進捗更新規則を状態に適用する。
// 変更が発生した場合にtrueを返す。
func applyProgress(state *model.MissionsState, def model.MissionDefinition, newCount int) bool {
	progress := state.Missions[def.ID]

	// 単調性: 引き下げは無視
	if newCount <= progress.CurrentCount {
		return false
	}

	// 目標値でクランプ
	if newCount > def.TargetCount {
		newCount = def.TargetCount
	}
	if newCount == progress.CurrentCount && progress.Completed {
		return false
	}

	progress.CurrentCount = newCount
	if progress.CurrentCount >= def.TargetCount {
		progress.Completed = true
	}
	state.Missions[def.ID] = progress
	return true
}

// missionView は定義と進捗を結合したビューを構築する。
func missionView(def model.MissionDefinition, progress model.MissionProgress) model.Mission {
	return model.Mission{
		ID:           def.ID,
		Name:         def.Name,
		Description:  def.Description,
		TargetCount:  def.TargetCount,
		CurrentCount: progress.CurrentCount,
		IsCompleted:  progress.Completed,
		Type:         def.Type,
	}
}

// missionList はカタログ順のミッション一覧ビューを構築する。
func missionList(state model.MissionsState) []model.Mission {
	missions := make([]model.Mission, 0, len(Catalog))
	for _, def := range Catalog {
		missions = append(missions, missionView(def, state.Missions[def.ID]))
	}
	return missions
}
