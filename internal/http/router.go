// README: HTTP router registration; wires handlers and auth onto a gin engine.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vetrimart/internal/http/handlers"
	"vetrimart/internal/http/middleware"
	"vetrimart/internal/infra"
	"vetrimart/internal/maps"
	"vetrimart/internal/modules/delivery"
	"vetrimart/internal/modules/order"
	"vetrimart/internal/modules/zone"
)

type ServerDeps struct {
	Order     *order.Service
	Delivery  *delivery.Service
	Zones     *zone.Resolver
	Selection zone.Selection
	Geocode   *maps.GeocodeService
	Verifier  infra.TokenVerifier
	Clock     handlers.Clock
}

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")

	deliveryHandler := handlers.NewDeliveryHandler(deps.Delivery, deps.Clock)
	api.POST("/delivery/feasibility", deliveryHandler.Feasibility)

	zoneHandler := handlers.NewZoneHandler(deps.Zones, deps.Selection)
	api.GET("/zones", zoneHandler.List)
	api.GET("/zones/check", zoneHandler.Check)
	api.GET("/zones/slots", zoneHandler.Slots)
	api.GET("/zones/pincode", zoneHandler.Pincode)
	api.POST("/zones/nearest", zoneHandler.Nearest)
	api.PUT("/session/zone", zoneHandler.Select)
	api.GET("/session/zone", zoneHandler.Selected)
	api.DELETE("/session/zone", zoneHandler.Clear)

	geocodeHandler := handlers.NewGeocodeHandler(deps.Geocode)
	api.GET("/geocode/reverse", geocodeHandler.Reverse)

	orderHandler := handlers.NewOrderHandler(deps.Order, deps.Delivery, deps.Selection, deps.Clock)
	// The gateway callback is authenticated by its signature, not a user token.
	api.POST("/payments/verify", orderHandler.VerifyPayment)

	authed := api.Group("", middleware.Auth(deps.Verifier))
	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.PUT("/orders/:id", orderHandler.Edit)
	authed.POST("/orders/:id/cancel", orderHandler.Cancel)
	authed.GET("/orders/:id/track", orderHandler.Track)

	opsHandler := handlers.NewOpsHandler(deps.Order, deps.Clock)
	ops := authed.Group("/ops/orders", middleware.RequireRole(middleware.RoleOps))
	ops.POST("/:id/dispatch", opsHandler.Dispatch())
	ops.POST("/:id/start", opsHandler.Start())
	ops.POST("/:id/delay", opsHandler.Delay())
	ops.POST("/:id/fail", opsHandler.Fail())
	ops.POST("/:id/deliver", opsHandler.Deliver())

	return r
}
