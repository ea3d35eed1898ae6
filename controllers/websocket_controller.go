package controllers

import (
	"safehorizon/websocket"

	"github.com/gin-gonic/gin"
)

type WebSocketController struct {
	gateway *websocket.Gateway
}

func NewWebSocketController(gateway *websocket.Gateway) *WebSocketController {
	return &WebSocketController{
		gateway: gateway,
	}
}

// Subscribe upgrades the request into a persistent alert stream.
// Authentication happens inside the gateway on the query token.
func (wc *WebSocketController) Subscribe(c *gin.Context) {
	wc.gateway.HandleSubscribe(c.Writer, c.Request)
}
