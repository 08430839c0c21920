package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/newspulse/internal/model"
)

// withURLParam はchiのルートコンテキストにURLパラメータを設定する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestMissionList_ReturnsMissions(t *testing.T) {
	tracker := &mockMissionTracker{
		missionsFn: func(ctx context.Context, userID string) ([]model.Mission, error) {
			return []model.Mission{
				{ID: "daily-reader", Name: "デイリーリーダー", TargetCount: 3, CurrentCount: 1, Type: model.MissionTypeReadArticle},
				{ID: "first-reaction", Name: "初リアクション", TargetCount: 1, CurrentCount: 1, IsCompleted: true, Type: model.MissionTypeReactToArticle},
			}, nil
		},
	}
	h := NewMissionHandler(tracker)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/missions", ""))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body missionListResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(body.Missions) != 2 {
		t.Fatalf("missions = %d, want 2", len(body.Missions))
	}
	if !body.Missions[1].IsCompleted {
		t.Error("second mission should be completed")
	}
}

func TestMissionList_Unauthenticated_Returns401(t *testing.T) {
	h := NewMissionHandler(&mockMissionTracker{})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/missions", nil))

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestMissionUpdateProgress_ReturnsUpdatedMission(t *testing.T) {
	tracker := &mockMissionTracker{
		updateFn: func(ctx context.Context, userID, missionID string, newCount int) (model.Mission, error) {
			if missionID != "daily-reader" {
				t.Errorf("missionID = %q, want %q", missionID, "daily-reader")
			}
			if newCount != 2 {
				t.Errorf("newCount = %d, want 2", newCount)
			}
			return model.Mission{ID: missionID, CurrentCount: 2, TargetCount: 3}, nil
		},
	}
	h := NewMissionHandler(tracker)

	req := withURLParam(authedRequest(http.MethodPut, "/api/missions/daily-reader/progress", `{"current_count":2}`), "id", "daily-reader")
	w := httptest.NewRecorder()
	h.UpdateProgress(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var mission model.Mission
	json.NewDecoder(w.Result().Body).Decode(&mission)
	if mission.CurrentCount != 2 {
		t.Errorf("current_count = %d, want 2", mission.CurrentCount)
	}
}

func TestMissionUpdateProgress_UnknownMission_Returns404(t *testing.T) {
	tracker := &mockMissionTracker{
		updateFn: func(ctx context.Context, userID, missionID string, newCount int) (model.Mission, error) {
			return model.Mission{}, model.NewMissionNotFoundError(missionID)
		},
	}
	h := NewMissionHandler(tracker)

	req := withURLParam(authedRequest(http.MethodPut, "/api/missions/no-such/progress", `{"current_count":1}`), "id", "no-such")
	w := httptest.NewRecorder()
	h.UpdateProgress(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}

	var body apiErrorResponse
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body.Code != model.ErrCodeMissionNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeMissionNotFound)
	}
}

func TestMissionUpdateProgress_NegativeCount_Returns400(t *testing.T) {
	h := NewMissionHandler(&mockMissionTracker{})

	req := withURLParam(authedRequest(http.MethodPut, "/api/missions/daily-reader/progress", `{"current_count":-1}`), "id", "daily-reader")
	w := httptest.NewRecorder()
	h.UpdateProgress(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestMissionStream_DeliversMissionListsAsSSE(t *testing.T) {
	watchCh := make(chan []model.Mission, 1)
	watchCh <- []model.Mission{{ID: "daily-reader", CurrentCount: 2, TargetCount: 3}}
	close(watchCh)
	h := NewMissionHandler(&mockMissionTracker{watchCh: watchCh})

	w := httptest.NewRecorder()
	h.Stream(w, authedRequest(http.MethodGet, "/api/missions/stream", ""))

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if !strings.Contains(w.Body.String(), `"daily-reader"`) {
		t.Errorf("body = %q, want it to contain mission list", w.Body.String())
	}
}
