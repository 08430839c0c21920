// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"time"
)

// StateKind は状態ドキュメントの種別を表す。
// ユーザーIDと種別の組でドキュメントが一意に特定される。
type StateKind string

const (
	// StateKindStreak は連続読書ストリークの状態ドキュメント。
	StateKindStreak StateKind = "streak"
	// StateKindMissions はミッション進捗の状態ドキュメント。
	StateKindMissions StateKind = "missions"
	// StateKindReactions は記事リアクションの状態ドキュメント。
	StateKindReactions StateKind = "reactions"
)

// StateDocument はユーザーごとの状態ドキュメントを表す。
// Docの中身はStateKindごとのスキーマ（StreakState等）で解釈される。
// Revisionは条件付き書き込み（compare-and-swap）の比較対象となる単調増加値。
type StateDocument struct {
	UserID    string
	Kind      StateKind
	Doc       json.RawMessage
	Revision  int64
	UpdatedAt time.Time
}
