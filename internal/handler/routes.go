package handler

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// RegisterRoutes sets up all API routes. apiMiddleware applies to the
// /api/v1 group only.
func RegisterRoutes(e *echo.Echo, revenueHandler *RevenueHandler, invoiceEventHandler *InvoiceEventHandler, wsHandler *WebSocketHandler, apiMiddleware ...echo.MiddlewareFunc) {
	// API version 1
	api := e.Group("/api/v1", apiMiddleware...)

	// Revenue reporting
	revenues := api.Group("/revenues")
	revenues.GET("/rolling-year", revenueHandler.GetRollingYear)
	revenues.GET("/duration", revenueHandler.GetForDuration)
	revenues.GET("/statistics", revenueHandler.GetStatistics)
	revenues.GET("/coverage", revenueHandler.GetCoverage)
	revenues.GET("/:period", revenueHandler.GetByPeriod)
	revenues.POST("/:period/recompute", revenueHandler.Recompute)
	revenues.DELETE("/:period", revenueHandler.Delete)

	// Invoice event webhook
	api.POST("/invoice-events", invoiceEventHandler.Receive, echomiddleware.BodyLimit(InvoiceEventBodyLimit))

	// Live updates
	if wsHandler != nil {
		e.GET("/ws", wsHandler.HandleWS)
	}
}
