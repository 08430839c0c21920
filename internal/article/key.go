// Package article は記事キーの導出と記事読み取りサービスを提供する。
package article

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// Key は記事URLから安定した記事キーを導出する。
// 同じ記事を指す表記揺れ（スキーム・ホストの大文字小文字、デフォルト
// ポート、フラグメント、末尾スラッシュ）を正規化した上でSHA-256の
// 16進文字列を返す。キーは状態ドキュメントのリアクションマップの
// キーとしても使われるため、一度導出したら変わらないこと。
func Key(rawURL string) (string, error) {
	canonical, err := canonicalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalizeURL は記事URLをキー導出用の正規形に変換する。
func canonicalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("記事URLが空です")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("記事URLのパースに失敗しました: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("記事URLのスキームが不正です: %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("記事URLにホストがありません")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// デフォルトポートを除去
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	// フラグメントはページ内位置でありコンテンツの同一性に影響しない
	u.Fragment = ""

	// パスの末尾スラッシュを正規化（ルートパスは除く）
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}
