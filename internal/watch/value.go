// Package watch は最新値セマンティクスの観測可能セルを提供する。
//
// Value は単一スロットの共有セルで、複数の独立した購読者に対して
// 「最新の値のみ」を配信する。キューではないため、購読者が受信に
// 追いつかない場合は古い値が破棄され、常に最新値だけが残る
// （most-recent-wins）。ストリーク・ミッション・リアクションの各
// トラッカーのライブ値はすべてこのセルで公開される。
package watch

import "sync"

// Value は型Tの最新値を保持する観測可能セル。
// ゼロ値は使用できず、NewValueで生成する。全メソッドは並行安全。
type Value[T any] struct {
	mu     sync.Mutex
	val    T
	set    bool
	nextID int
	subs   map[int]chan T
}

// NewValue は未設定状態のValueを生成する。
func NewValue[T any]() *Value[T] {
	return &Value[T]{
		subs: make(map[int]chan T),
	}
}

// Set は保持値を置き換え、全購読者に通知する。
// 購読チャネルは容量1で、未受信の古い値は破棄してから新値を送る。
// 部分的な状態が観測されることはない（値はまるごと置き換え）。
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.val = val
	v.set = true

	for _, ch := range v.subs {
		// 未受信の古い値を破棄してから最新値を入れる
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- val:
		default:
		}
	}
}

// Get は現在の保持値を返す。まだ一度もSetされていない場合は2値目がfalse。
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val, v.set
}

// Subscribe は値の更新を受け取るチャネルと購読解除関数を返す。
// 既に値が設定済みの場合は現在値が即座にチャネルに入る。
// 解除関数は冪等で、解除後にチャネルへ新値が配信されることはない。
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++

	ch := make(chan T, 1)
	if v.set {
		ch <- v.val
	}
	v.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}

	return ch, cancel
}

// SubscriberCount は現在の購読者数を返す。テストおよびメトリクス用。
func (v *Value[T]) SubscriberCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}
