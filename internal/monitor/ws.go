package monitor

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// WSHandler returns an http.Handler that accepts WebSocket connections
// pushing transcript fragments as JSON text messages with the same
// {"text": ...} schema as the framed TCP transport. Each message is
// ingested exactly like a TCP frame; there is no per-message
// acknowledgement beyond the transport's own delivery.
func (s *Server) WSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Warn("websocket accept failed", "peer", r.RemoteAddr, "err", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "closing")

		ctx := r.Context()
		slog.Debug("websocket ingest opened", "peer", r.RemoteAddr)
		s.metrics.ConnOpened(ctx)
		defer s.metrics.ConnClosed(ctx)

		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				// Normal closure and context cancellation both land here.
				slog.Debug("websocket ingest closed", "peer", r.RemoteAddr, "err", err)
				return
			}
			if typ != websocket.MessageText {
				s.metrics.RecordRejected(ctx, "binary_frame")
				continue
			}
			s.ingest(ctx, "websocket", data)
		}
	})
}
