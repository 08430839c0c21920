// Package bias はニュースソースの信頼度評価（編集傾向）の取得とキャッシュを提供する。
// 外部の評価カタログAPIの呼び出しと、シングルフライトによるプロセス内キャッシュを含む。
package bias

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/newspulse/internal/model"
)

// Client は信頼度評価カタログAPIのクライアント。
// カタログ全件を1リクエストで取得する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
	}
}

// FetchCatalog は信頼度評価カタログの全件を取得する。
// 取得失敗時はエラーを返す（呼び出し元が前回値維持を判断する）。
func (c *Client) FetchCatalog(ctx context.Context) ([]model.SourceRating, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "NewsPulse/1.0 News Reader")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("信頼度評価APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("信頼度評価APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("信頼度評価APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var ratings []model.SourceRating
	if err := json.Unmarshal(body, &ratings); err != nil {
		c.logger.Error("信頼度評価APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return ratings, nil
}
