package ingest

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/newspulse/internal/model"
)

// mockArticleRepo はArticleRepositoryのテスト用インメモリ実装。
type mockArticleRepo struct {
	mu        sync.Mutex
	articles  map[string]*model.Article
	upsertErr error
}

func newMockArticleRepo() *mockArticleRepo {
	return &mockArticleRepo{articles: make(map[string]*model.Article)}
}

func (m *mockArticleRepo) FindByKey(ctx context.Context, key string) (*model.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.articles[key], nil
}

func (m *mockArticleRepo) Upsert(ctx context.Context, a *model.Article) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[a.Key] = a
	return nil
}

func (m *mockArticleRepo) ListRecent(ctx context.Context, limit int) ([]*model.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*model.Article
	for _, a := range m.articles {
		list = append(list, a)
	}
	return list, nil
}

// allowAllSSRFGuard はテスト用にループバックを許可するSSRFValidator。
type allowAllSSRFGuard struct{}

func (allowAllSSRFGuard) ValidateURL(rawURL string) error {
	return nil
}

func (allowAllSSRFGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

// denySSRFGuard はテスト用に全URLを拒否するSSRFValidator。
type denySSRFGuard struct{}

func (denySSRFGuard) ValidateURL(rawURL string) error {
	return context.DeadlineExceeded // 中身は問わない
}

func (denySSRFGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

// passthroughSanitizer はテスト用の素通しサニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(rawHTML string) string {
	return rawHTML
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Example News</title>
<link>https://news.example.com</link>
<item>
<title>Story One</title>
<link>https://news.example.com/story-1</link>
<description>First story summary</description>
<pubDate>Thu, 27 Aug 2026 10:00:00 GMT</pubDate>
</item>
<item>
<title>Story Two</title>
<link>https://news.example.com/story-2</link>
<description>Second story summary</description>
</item>
<item>
<title>No Link Story</title>
<description>Skipped: no link</description>
</item>
</channel>
</rss>`

func newTestFetcher(repo *mockArticleRepo, guard SSRFValidator) *Fetcher {
	return NewFetcher(repo, guard, passthroughSanitizer{}, nil, testLogger(), 5*time.Second, 5*1024*1024)
}

func TestFetch_UpsertsArticlesWithStableKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	defer server.Close()

	repo := newMockArticleRepo()
	fetcher := newTestFetcher(repo, allowAllSSRFGuard{})

	upserted, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}

	// リンクのない記事はスキップされる
	if upserted != 2 {
		t.Errorf("upserted = %d, want 2", upserted)
	}
	if len(repo.articles) != 2 {
		t.Errorf("保存記事数 = %d, want 2", len(repo.articles))
	}

	for _, a := range repo.articles {
		if a.Source != "Example News" {
			t.Errorf("Source = %s, want Example News", a.Source)
		}
		if len(a.Key) != 64 {
			t.Errorf("Key長 = %d, want 64", len(a.Key))
		}
		if a.FetchedAt.IsZero() {
			t.Error("FetchedAt が未設定")
		}
	}
}

func TestFetch_RefetchIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSS))
	}))
	defer server.Close()

	repo := newMockArticleRepo()
	fetcher := newTestFetcher(repo, allowAllSSRFGuard{})

	if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("1回目がエラーを返した: %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("2回目がエラーを返した: %v", err)
	}

	// 同一記事は同一キーでUPSERTされ、件数は増えない
	if len(repo.articles) != 2 {
		t.Errorf("保存記事数 = %d, want 2", len(repo.articles))
	}
}

func TestFetch_SSRFBlockedURLReturnsError(t *testing.T) {
	repo := newMockArticleRepo()
	fetcher := newTestFetcher(repo, denySSRFGuard{})

	_, err := fetcher.Fetch(context.Background(), "http://10.0.0.1/feed")
	if err == nil {
		t.Fatal("SSRF検証失敗時はエラーが返るべき")
	}
	if len(repo.articles) != 0 {
		t.Error("検証失敗時に記事が保存された")
	}
}

func TestFetch_NonOKStatusReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := newTestFetcher(newMockArticleRepo(), allowAllSSRFGuard{})

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("503レスポンスに対してエラーが返るべき")
	}
}

func TestFetch_InvalidFeedReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(newMockArticleRepo(), allowAllSSRFGuard{})

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("パース不能なフィードに対してエラーが返るべき")
	}
}

func TestFetch_SanitizesSummaries(t *testing.T) {
	const rssWithScript = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Dirty Feed</title>
<item>
<title>Story</title>
<link>https://news.example.com/story</link>
<description>&lt;p&gt;ok&lt;/p&gt;&lt;script&gt;alert(1)&lt;/script&gt;</description>
</item>
</channel>
</rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssWithScript))
	}))
	defer server.Close()

	repo := newMockArticleRepo()
	// マーカーを付けるサニタイザーで、要約が必ずサニタイズを通ることを確認する
	fetcher := NewFetcher(repo, allowAllSSRFGuard{}, markerSanitizer{}, nil, testLogger(), 5*time.Second, 5*1024*1024)

	if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}

	for _, a := range repo.articles {
		if a.Summary[:len(sanitizedMarker)] != sanitizedMarker {
			t.Errorf("要約がサニタイズを通っていない: %q", a.Summary)
		}
	}
}

const sanitizedMarker = "[sanitized]"

type markerSanitizer struct{}

func (markerSanitizer) Sanitize(rawHTML string) string {
	return sanitizedMarker + rawHTML
}
