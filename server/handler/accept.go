package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	adapterwebsocket "mogura/server/adapter/websocket"
	"mogura/server/application"
	"mogura/server/domain"
)

type AcceptHandler struct {
	settings application.Settings
}

func NewAcceptHandler(settings application.Settings) *AcceptHandler {
	return &AcceptHandler{settings: settings}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	session := domain.NewSession()
	transport := adapterwebsocket.NewTransportFrom(conn)
	connection := domain.NewConnection(session.ID(), transport)
	endpoint, err := domain.NewGameEndpoint(session, connection, h.settings)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create game endpoint", "err", err)
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "session_id", session.ID())
	err = endpoint.Run()
	if err != nil {
		slog.ErrorContext(ctx, "failed to run game endpoint", "err", err)
		return
	}
}
