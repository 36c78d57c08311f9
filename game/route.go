package game

import "github.com/gin-gonic/gin"

func RegisterRoutes(engine *gin.Engine, h *Handler) {
	engine.POST("/sessions", h.CreateSessionHandler)
	engine.GET("/sessions", h.ListSessionsHandler)
	engine.POST("/sessions/:code/join", h.JoinSessionHandler)
	engine.GET("/sessions/:id/ws", h.SessionSocketHandler)
}
