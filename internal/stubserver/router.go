package stubserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	e.GET("/health", h.Health)

	e.GET("/notifications", h.List)
	e.GET("/notifications/unread", h.Unread)
	e.POST("/notifications/mark-read", h.MarkRead)
	e.POST("/notifications/mark-unread", h.MarkUnread)
	e.POST("/notifications/delete", h.Delete)
	e.POST("/notifications", h.Inject)

	e.GET("/notifications/stream", h.Stream)
	e.GET("/notifications/ws", h.WS)

	return e
}
