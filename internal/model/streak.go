// Package model はドメインモデルを定義する。
package model

// StreakDateLayout はストリーク日付の文字列形式。
const StreakDateLayout = "2006-01-02"

// StreakState はストリーク状態ドキュメントの中身を表す。
// Countは0以上で、同一日に2回以上増加することはない。
// LastReadDateはStreakDateLayout形式のカレンダー日付で、過去方向には動かない。
type StreakState struct {
	Count        int    `json:"count"`
	LastReadDate string `json:"last_read_date"`
}

// StreakSnapshot はリスナーが公開するストリークのスナップショット。
// HasLoggedTodayはLastReadDateが今日と一致するかの導出値。
type StreakSnapshot struct {
	Count          int    `json:"count"`
	LastReadDate   string `json:"last_read_date"`
	HasLoggedToday bool   `json:"has_logged_today"`
}
