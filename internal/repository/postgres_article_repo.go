package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/newspulse/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// FindByKey は指定キーの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByKey(ctx context.Context, key string) (*model.Article, error) {
	article := &model.Article{}
	var publishedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT key, title, link, source, summary, published_at, fetched_at, created_at, updated_at
		 FROM articles WHERE key = $1`,
		key,
	).Scan(
		&article.Key, &article.Title, &article.Link, &article.Source,
		&article.Summary, &publishedAt, &article.FetchedAt,
		&article.CreatedAt, &article.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}

	if publishedAt.Valid {
		article.PublishedAt = &publishedAt.Time
	}

	return article, nil
}

// Upsert は記事キーをもとに記事を冪等にUPSERTする。
// 同一記事の再取得ではキーが変化しないため、再実行しても行は増えない。
func (r *PostgresArticleRepo) Upsert(ctx context.Context, article *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (key, title, link, source, summary, published_at, fetched_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 ON CONFLICT (key) DO UPDATE SET
		     title = EXCLUDED.title,
		     source = EXCLUDED.source,
		     summary = EXCLUDED.summary,
		     published_at = EXCLUDED.published_at,
		     fetched_at = EXCLUDED.fetched_at,
		     updated_at = now()`,
		article.Key, article.Title, article.Link, article.Source,
		article.Summary, article.PublishedAt, article.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("記事のUPSERTに失敗しました: %w", err)
	}
	return nil
}

// ListRecent は取得日時の降順で記事一覧を返す。
func (r *PostgresArticleRepo) ListRecent(ctx context.Context, limit int) ([]*model.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, title, link, source, summary, published_at, fetched_at, created_at, updated_at
		 FROM articles ORDER BY fetched_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		article := &model.Article{}
		var publishedAt sql.NullTime

		if err := rows.Scan(
			&article.Key, &article.Title, &article.Link, &article.Source,
			&article.Summary, &publishedAt, &article.FetchedAt,
			&article.CreatedAt, &article.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("記事行のスキャンに失敗しました: %w", err)
		}

		if publishedAt.Valid {
			article.PublishedAt = &publishedAt.Time
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の読み取りに失敗しました: %w", err)
	}

	return articles, nil
}

// DeleteOlderThan は取得日時が指定時刻より古い記事を削除し、削除件数を返す。
// クリーンアップジョブから日次で呼ばれる。削除対象がなくてもエラーにならない。
func (r *PostgresArticleRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM articles WHERE fetched_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("古い記事の削除に失敗しました: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
