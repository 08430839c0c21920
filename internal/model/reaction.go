// Package model はドメインモデルを定義する。
package model

// ReactionEntry はリアクション状態ドキュメント内の1記事分のエントリを表す。
// リアクションが解除された記事はエントリ自体が削除される（nullで残さない）。
type ReactionEntry struct {
	Symbol      string `json:"symbol"`
	UpdatedAtMS int64  `json:"updated_at_ms"`
}

// ReactionsState はリアクション状態ドキュメントの中身を表す。
// キーは記事キー。(ユーザー, 記事キー)ごとに最新の1エントリのみが存在する。
type ReactionsState struct {
	Reactions map[string]ReactionEntry `json:"reactions"`
}
