package repository

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/newspulse/internal/model"
)

// NotifyRecorder は変更通知のメトリクス記録インターフェース。
type NotifyRecorder interface {
	RecordStateNotify(kind string)
}

// StateListener はstate_documentsチャネルのLISTENを1接続で集約し、
// (ユーザーID, 種別)ごとの購読者にティックを配信する。
// 配信チャネルは容量1で、未受信のティックは合流される（最新状態の
// 再読み込みが1回走れば十分なため、通知の取りこぼしにはならない）。
type StateListener struct {
	pql     *pq.Listener
	logger  *slog.Logger
	metrics NotifyRecorder

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan struct{} // "user_id|kind" -> 購読チャネル群
}

// NewStateListener はStateListenerを生成する。
// databaseURLでLISTEN専用のPostgreSQL接続を開く。接続断時はpq.Listenerが
// 指数バックオフで自動再接続する。metricsはnil可。
func NewStateListener(databaseURL string, logger *slog.Logger, metrics NotifyRecorder) *StateListener {
	l := &StateListener{
		logger:  logger,
		metrics: metrics,
		subs:    make(map[string]map[int]chan struct{}),
	}

	l.pql = pq.NewListener(databaseURL, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Error("状態変更リスナーの接続イベントでエラーが発生しました",
					slog.Int("event", int(ev)),
					slog.String("error", err.Error()),
				)
			}
			// 再接続後はLISTEN中に発行された通知が欠落している可能性があるため、
			// 全購読者にティックを送って再読み込みさせる
			if ev == pq.ListenerEventReconnected {
				l.broadcastAll()
			}
		})

	return l
}

// Start はLISTENを開始し、通知の配信ループを実行する。
// コンテキストがキャンセルされるまでブロックする。goroutineで起動すること。
func (l *StateListener) Start(ctx context.Context) error {
	if err := l.pql.Listen(stateNotifyChannel); err != nil {
		return err
	}

	l.logger.Info("状態変更リスナーを開始しました",
		slog.String("channel", stateNotifyChannel),
	)

	for {
		select {
		case <-ctx.Done():
			l.pql.Close()
			l.logger.Info("状態変更リスナーを停止しました")
			return nil
		case n := <-l.pql.Notify:
			// 再接続直後はnilが届くことがある
			if n == nil {
				continue
			}
			l.dispatch(n.Extra)
		}
	}
}

// Subscribe は指定ユーザー・種別の変更ティックチャネルと購読解除関数を返す。
// 解除関数は冪等で、解除後にティックが配信されることはない。
func (l *StateListener) Subscribe(userID string, kind model.StateKind) (<-chan struct{}, func()) {
	key := subKey(userID, kind)

	l.mu.Lock()
	id := l.nextID
	l.nextID++

	ch := make(chan struct{}, 1)
	if l.subs[key] == nil {
		l.subs[key] = make(map[int]chan struct{})
	}
	l.subs[key][id] = ch
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[key], id)
			if len(l.subs[key]) == 0 {
				delete(l.subs, key)
			}
			l.mu.Unlock()
		})
	}

	return ch, cancel
}

// dispatch は通知ペイロード（"user_id|kind"）を該当する購読者に配信する。
func (l *StateListener) dispatch(payload string) {
	parts := strings.SplitN(payload, "|", 2)
	if len(parts) != 2 {
		l.logger.Warn("不正な通知ペイロードを無視します",
			slog.String("payload", payload),
		)
		return
	}

	if l.metrics != nil {
		l.metrics.RecordStateNotify(parts[1])
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ch := range l.subs[payload] {
		sendTick(ch)
	}
}

// broadcastAll は全購読者にティックを送る。再接続後の取りこぼし回復用。
func (l *StateListener) broadcastAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, chans := range l.subs {
		for _, ch := range chans {
			sendTick(ch)
		}
	}
}

// sendTick は容量1のティックチャネルにノンブロッキングで通知を入れる。
// 既にティックが入っている場合は何もしない（通知の合流）。
func sendTick(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// subKey は通知ペイロードと同形式の購読キーを構築する。
func subKey(userID string, kind model.StateKind) string {
	return userID + "|" + string(kind)
}
