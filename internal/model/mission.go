// Package model はドメインモデルを定義する。
package model

// MissionType はミッションを進めるユーザー行動の種別を表す。
type MissionType string

const (
	// MissionTypeReadArticle は記事閲読で進むミッション。
	MissionTypeReadArticle MissionType = "read_article"
	// MissionTypeReactToArticle は記事リアクションで進むミッション。
	MissionTypeReactToArticle MissionType = "react_to_article"
	// MissionTypeAddFriend はフレンド追加で進むミッション。
	MissionTypeAddFriend MissionType = "add_friend"
)

// MissionDefinition は固定カタログに含まれるミッション定義を表す。
// TargetCountは正の整数であることがカタログ構築時に保証される。
type MissionDefinition struct {
	ID          string
	Name        string
	Description string
	TargetCount int
	Type        MissionType
}

// MissionProgress はミッション進捗ドキュメント内の1ミッション分の進捗を表す。
// CurrentCountは単調非減少で、TargetCountを超えない。
// CompletedはCurrentCountがTargetCountに達した時点で1回だけtrueに遷移する。
type MissionProgress struct {
	CurrentCount int  `json:"current_count"`
	Completed    bool `json:"completed"`
}

// MissionsState はミッション状態ドキュメントの中身を表す。
// キーはミッションID。進捗のないミッションはエントリ自体が存在しない。
type MissionsState struct {
	Missions map[string]MissionProgress `json:"missions"`
}

// Mission はカタログ定義と進捗を結合したビューを表す。
type Mission struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	TargetCount  int         `json:"target_count"`
	CurrentCount int         `json:"current_count"`
	IsCompleted  bool        `json:"is_completed"`
	Type         MissionType `json:"type"`
}
