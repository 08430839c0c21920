package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// streamSSE はチャネルから受信した値をServer-Sent Eventsとして書き続ける。
// クライアント切断（リクエストコンテキストのキャンセル）まで戻らない。
// 呼び出し側は購読解除をdeferで保証すること。
func streamSSE[T any](w http.ResponseWriter, r *http.Request, ch <-chan T) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeAPIErrorResponse(w, http.StatusInternalServerError, internalStreamingError())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case v, open := <-ch:
			if !open {
				return
			}
			b, err := json.Marshal(v)
			if err != nil {
				slog.Error("failed to marshal SSE event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}
