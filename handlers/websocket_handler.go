package handlers

import (
	"log/slog"
	"net/http"

	"github.com/courtside/matchplay/middleware"
	"github.com/courtside/matchplay/realtime"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене сюда нужна проверка Origin против списка доверенных
		// доменов. Для разработки разрешаем все.
		return true
	},
}

type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeWs поднимает WebSocket-соединение для доставки уведомлений текущему
// пользователю в реальном времени.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "failed to identify current user", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP-ошибку клиенту.
		h.logger.Warn("failed to upgrade websocket connection",
			slog.Int("user_id", currentUserID),
			slog.Any("error", err))
		return
	}

	h.hub.Attach(conn, currentUserID)
}
