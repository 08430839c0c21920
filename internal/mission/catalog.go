// Package mission はミッション進捗の追跡とライブ配信を提供する。
package mission

import "github.com/hitoshi/newspulse/internal/model"

// Catalog は固定のミッションカタログ。
// ミッションはユーザーが作成するものではなく、ここで定義された
// ものだけが存在する。表示順はこのスライスの順序に従う。
var Catalog = []model.MissionDefinition{
	{
		ID:          "daily-reader",
		Name:        "デイリーリーダー",
		Description: "記事を3本読む",
		TargetCount: 3,
		Type:        model.MissionTypeReadArticle,
	},
	{
		ID:          "news-junkie",
		Name:        "ニュースジャンキー",
		Description: "記事を20本読む",
		TargetCount: 20,
		Type:        model.MissionTypeReadArticle,
	},
	{
		ID:          "first-reaction",
		Name:        "はじめてのリアクション",
		Description: "記事にリアクションする",
		TargetCount: 1,
		Type:        model.MissionTypeReactToArticle,
	},
	{
		ID:          "reaction-enthusiast",
		Name:        "リアクション愛好家",
		Description: "記事に10回リアクションする",
		TargetCount: 10,
		Type:        model.MissionTypeReactToArticle,
	},
	{
		ID:          "social-starter",
		Name:        "ソーシャルスターター",
		Description: "フレンドを1人追加する",
		TargetCount: 1,
		Type:        model.MissionTypeAddFriend,
	},
	{
		ID:          "community-builder",
		Name:        "コミュニティビルダー",
		Description: "フレンドを5人追加する",
		TargetCount: 5,
		Type:        model.MissionTypeAddFriend,
	},
}

// DefinitionByID はカタログから指定IDの定義を返す。
func DefinitionByID(id string) (model.MissionDefinition, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return model.MissionDefinition{}, false
}

// DefinitionsByType はカタログから指定行動種別の定義一覧を返す。
// イベントからミッションへの対応付け（ポリシー）はこの関数を通じて
// 呼び出し側が解決する。
func DefinitionsByType(missionType model.MissionType) []model.MissionDefinition {
	var defs []model.MissionDefinition
	for _, def := range Catalog {
		if def.Type == missionType {
			defs = append(defs, def)
		}
	}
	return defs
}
