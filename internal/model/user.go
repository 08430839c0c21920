// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Friend はユーザー間の有向フレンドエッジを表す。
// (OwnerID, FriendID) の組は一意であり、OwnerID == FriendID のエッジは存在しない。
type Friend struct {
	ID        string
	OwnerID   string
	FriendID  string
	CreatedAt time.Time
}
