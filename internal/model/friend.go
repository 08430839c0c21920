// Package model はドメインモデルを定義する。
package model

// AddFriendOutcome はフレンド追加操作の結果種別を表す。
// 自己追加・重複・未存在は頻出する想定内の結果であり、
// 例外（error）ではなく呼び出し側が分岐する結果バリアントとして表現する。
type AddFriendOutcome int

const (
	// AddFriendSuccess はフレンドエッジが新規作成されたことを示す。
	AddFriendSuccess AddFriendOutcome = iota
	// AddFriendSelf は解決されたユーザーが自分自身だったことを示す。
	AddFriendSelf
	// AddFriendAlreadyFriends は同一ペアのエッジが既に存在することを示す。
	AddFriendAlreadyFriends
	// AddFriendUserNotFound は指定ユーザー名が解決できなかったことを示す。
	AddFriendUserNotFound
	// AddFriendFailed はストア障害などの想定外エラーを示す。詳細はErrに入る。
	AddFriendFailed
)

// String はログ出力用の結果種別名を返す。
func (o AddFriendOutcome) String() string {
	switch o {
	case AddFriendSuccess:
		return "success"
	case AddFriendSelf:
		return "self_add"
	case AddFriendAlreadyFriends:
		return "already_friends"
	case AddFriendUserNotFound:
		return "user_not_found"
	case AddFriendFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AddFriendResult はフレンド追加操作の結果を表す。
// OutcomeがAddFriendFailedの場合のみErrが非nilとなる。
type AddFriendResult struct {
	Outcome  AddFriendOutcome
	FriendID string // AddFriendSuccessの場合のみ設定される
	Err      error
}
