package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dispatch-system/pkg/api"
	"dispatch-system/pkg/middleware"
	appwebsocket "dispatch-system/pkg/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketController struct {
	hub    *appwebsocket.Hub
	logger *zap.Logger
}

func NewWebSocketController(hub *appwebsocket.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{hub: hub, logger: logger}
}

// ServeBoard - подписка доски диспетчера. Актор уже проверен middleware авторизации.
func (c *WebSocketController) ServeBoard(ctx echo.Context) error {
	actorID, _, err := middleware.ActorFromContext(ctx.Request().Context())
	if err != nil {
		return api.ErrorResponse(ctx, err)
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Error("WebSocket: не удалось улучшить соединение", zap.Error(err))
		return err
	}

	client := appwebsocket.NewClient(c.hub, conn, actorID)
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("WebSocket: клиент доски подключен", zap.String("actorID", actorID))
	return nil
}
