// Package model はドメインモデルを定義する。
package model

import "strings"

// BiasRating はニュースソースの編集傾向ラベルを表す。
type BiasRating string

const (
	BiasLeft      BiasRating = "Left"
	BiasLeanLeft  BiasRating = "Lean Left"
	BiasCenter    BiasRating = "Center"
	BiasLeanRight BiasRating = "Lean Right"
	BiasRight     BiasRating = "Right"
	BiasMixed     BiasRating = "Mixed"
	// BiasNeutral は未知・未解決のソースに対するデフォルト値。
	// 外部ソースが返す値ではなく、ローカルでのフォールバック専用。
	BiasNeutral BiasRating = "Neutral"
)

// SourceRating は外部の信頼度評価ソースから取得した1件の評価レコードを表す。
type SourceRating struct {
	SourceName string `json:"source_name"`
	BiasRating string `json:"media_bias_rating"`
}

// ParseBiasRating は外部ソースの評価ラベル文字列をBiasRatingに変換する。
// 大文字小文字と前後空白を無視して照合し、未知のラベルはBiasNeutralとして扱う。
// 1件の不正なレコードがカタログ全体の取得を失敗させないための寛容なパース。
func ParseBiasRating(label string) BiasRating {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "left":
		return BiasLeft
	case "lean left":
		return BiasLeanLeft
	case "center":
		return BiasCenter
	case "lean right":
		return BiasLeanRight
	case "right":
		return BiasRight
	case "mixed":
		return BiasMixed
	default:
		return BiasNeutral
	}
}

// NormalizeSourceName はソース名を照合用に正規化する。
// 前後空白を除去し小文字化する。キャッシュのキーは常にこの正規化形。
func NormalizeSourceName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
