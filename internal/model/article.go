// Package model はドメインモデルを定義する。
package model

import "time"

// Article はニュースソースから取得した記事を表す。
// Keyは記事URLから導出される安定キーで、同一記事の再取得でも変化しない。
type Article struct {
	Key         string
	Title       string
	Link        string
	Source      string // ソース名（フィードタイトル由来）
	Summary     string // サニタイズ済み
	PublishedAt *time.Time
	FetchedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParsedArticle はフィードパーサーから取得した未保存の記事データを表す。
// インジェストワーカーがフィードをパースした後、記事UPSERT処理に渡される。
type ParsedArticle struct {
	Title       string
	Link        string
	Source      string
	Summary     string // 未サニタイズ
	PublishedAt *time.Time
}
