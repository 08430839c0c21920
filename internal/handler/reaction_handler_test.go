package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/newspulse/internal/model"
)

func TestReactionSet_UpsertsAndRecordsEvent(t *testing.T) {
	tracker := &mockReactionTracker{}
	recorder := &mockMissionRecorder{}
	h := NewReactionHandler(tracker, recorder)

	req := withURLParam(authedRequest(http.MethodPut, "/api/reactions/key1", `{"symbol":"👍"}`), "key", "key1")
	w := httptest.NewRecorder()
	h.Set(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}

	if len(tracker.setCalls) != 1 {
		t.Fatalf("setCalls = %d, want 1", len(tracker.setCalls))
	}
	if tracker.setCalls[0].ArticleKey != "key1" || tracker.setCalls[0].Symbol != "👍" {
		t.Errorf("set call = %+v, want key1/👍", tracker.setCalls[0])
	}

	if len(recorder.events) != 1 || recorder.events[0] != model.MissionTypeReactToArticle {
		t.Errorf("recorded events = %v, want [react_to_article]", recorder.events)
	}
}

func TestReactionSet_EmptySymbol_Returns400(t *testing.T) {
	h := NewReactionHandler(&mockReactionTracker{}, &mockMissionRecorder{})

	req := withURLParam(authedRequest(http.MethodPut, "/api/reactions/key1", `{"symbol":""}`), "key", "key1")
	w := httptest.NewRecorder()
	h.Set(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestReactionSet_InvalidArticleKey_Returns400(t *testing.T) {
	tracker := &mockReactionTracker{
		setFn: func(ctx context.Context, userID, articleKey, symbol string) error {
			return model.NewInvalidArticleKeyError("記事キーが空です")
		},
	}
	h := NewReactionHandler(tracker, &mockMissionRecorder{})

	req := withURLParam(authedRequest(http.MethodPut, "/api/reactions/bad", `{"symbol":"👍"}`), "key", "bad")
	w := httptest.NewRecorder()
	h.Set(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestReactionClear_SendsEmptySymbolAndSkipsMissionEvent(t *testing.T) {
	tracker := &mockReactionTracker{}
	recorder := &mockMissionRecorder{}
	h := NewReactionHandler(tracker, recorder)

	req := withURLParam(authedRequest(http.MethodDelete, "/api/reactions/key1", ""), "key", "key1")
	w := httptest.NewRecorder()
	h.Clear(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}

	if len(tracker.setCalls) != 1 || tracker.setCalls[0].Symbol != "" {
		t.Errorf("set calls = %+v, want one clear call", tracker.setCalls)
	}

	// 解除はリアクション系ミッションを進めない
	if len(recorder.events) != 0 {
		t.Errorf("recorded events = %v, want none", recorder.events)
	}
}

func TestReactionGet_Found_ReturnsEntry(t *testing.T) {
	tracker := &mockReactionTracker{
		reactionFn: func(ctx context.Context, userID, articleKey string) (model.ReactionEntry, bool, error) {
			return model.ReactionEntry{Symbol: "🔥", UpdatedAtMS: 1700000000000}, true, nil
		},
	}
	h := NewReactionHandler(tracker, &mockMissionRecorder{})

	req := withURLParam(authedRequest(http.MethodGet, "/api/reactions/key1", ""), "key", "key1")
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body reactionResponse
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body.Symbol != "🔥" || body.UpdatedAtMS != 1700000000000 {
		t.Errorf("body = %+v, want 🔥 at 1700000000000", body)
	}
}

func TestReactionGet_NotFound_Returns404(t *testing.T) {
	h := NewReactionHandler(&mockReactionTracker{}, &mockMissionRecorder{})

	req := withURLParam(authedRequest(http.MethodGet, "/api/reactions/missing", ""), "key", "missing")
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestReactionList_ReturnsAllReactions(t *testing.T) {
	tracker := &mockReactionTracker{
		reactionsFn: func(ctx context.Context, userID string) (map[string]model.ReactionEntry, error) {
			return map[string]model.ReactionEntry{
				"key1": {Symbol: "👍", UpdatedAtMS: 1},
				"key2": {Symbol: "🎉", UpdatedAtMS: 2},
			}, nil
		},
	}
	h := NewReactionHandler(tracker, &mockMissionRecorder{})

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/reactions", ""))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body reactionListResponse
	json.NewDecoder(w.Result().Body).Decode(&body)
	if len(body.Reactions) != 2 {
		t.Errorf("reactions = %d, want 2", len(body.Reactions))
	}
}

func TestReactionStream_DeliversMapsAsSSE(t *testing.T) {
	watchCh := make(chan map[string]model.ReactionEntry, 1)
	watchCh <- map[string]model.ReactionEntry{"key1": {Symbol: "👍", UpdatedAtMS: 1}}
	close(watchCh)
	h := NewReactionHandler(&mockReactionTracker{watchCh: watchCh}, &mockMissionRecorder{})

	w := httptest.NewRecorder()
	h.Stream(w, authedRequest(http.MethodGet, "/api/reactions/stream", ""))

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if !strings.Contains(w.Body.String(), `"key1"`) {
		t.Errorf("body = %q, want it to contain the reaction map", w.Body.String())
	}
}
