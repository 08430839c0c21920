// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, engagement, bias, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeArticleNotFound   = "ARTICLE_NOT_FOUND"
	ErrCodeMissionNotFound   = "MISSION_NOT_FOUND"
	ErrCodeInvalidArticleKey = "INVALID_ARTICLE_KEY"
	ErrCodeInvalidUsername   = "INVALID_USERNAME"
	ErrCodeUsernameTaken     = "USERNAME_TAKEN"
	ErrCodeStateConflict     = "STATE_CONFLICT"
	ErrCodeSSRFBlocked       = "SSRF_BLOCKED"
)

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleKey string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleKey),
		Category: "engagement",
		Action:   "記事キーを確認してください。",
	}
}

// NewMissionNotFoundError はミッション未検出エラーを生成する。
// ミッションカタログは固定のため、未知のIDは呼び出し側の誤りを示す。
func NewMissionNotFoundError(missionID string) *APIError {
	return &APIError{
		Code:     ErrCodeMissionNotFound,
		Message:  fmt.Sprintf("指定されたミッションが見つかりません: %s", missionID),
		Category: "engagement",
		Action:   "ミッションIDを確認してください。",
	}
}

// NewInvalidArticleKeyError は無効な記事キーエラーを生成する。
func NewInvalidArticleKeyError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidArticleKey,
		Message:  fmt.Sprintf("無効な記事キーです: %s", reason),
		Category: "validation",
		Action:   "記事URLまたは記事キーを確認してください。",
	}
}

// NewInvalidUsernameError は無効なユーザー名エラーを生成する。
func NewInvalidUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  "ユーザー名が空です。",
		Category: "validation",
		Action:   "ユーザー名を入力してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を入力してください。",
	}
}

// NewStateConflictError は状態ドキュメントの更新競合が解消できなかった場合のエラーを生成する。
// 条件付き書き込みのリトライ上限に達した場合にのみ発生する。
func NewStateConflictError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeStateConflict,
		Message:  fmt.Sprintf("状態の更新が競合しました: %s", kind),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
