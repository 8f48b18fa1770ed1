package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/arthaus/editions/cmd/editions/container"
	"github.com/arthaus/editions/cmd/editions/handlers"
	"github.com/arthaus/editions/common/middleware"
)

// RegisterWebhookRoutes registers the order-sync webhook
func RegisterWebhookRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewWebhookHandler(c.UnitRepo, c.Reconciler, c.Components.Logger)

	webhooks := e.Group("/api/v1/webhooks")
	webhooks.Use(middleware.WebhookRateLimitMiddleware(c.Redis, c.Components.Config.RateLimit.WebhookPerMinute))
	{
		webhooks.POST("/orders", h.HandleOrderSync) // POST /api/v1/webhooks/orders
	}
}

// RegisterEditionRoutes registers admin reconcile triggers and views
func RegisterEditionRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewEditionHandler(c.UnitRepo, c.Reconciler, c.Components.Logger)

	editions := e.Group("/api/v1/editions")
	{
		editions.POST("/reconcile-all", h.ReconcileAll) // POST /api/v1/editions/reconcile-all
		editions.POST("/:id/reconcile", h.Reconcile)    // POST /api/v1/editions/ed_42/reconcile
		editions.GET("/:id/units", h.ListUnits)         // GET  /api/v1/editions/ed_42/units
	}
}

// RegisterUnitRoutes registers transfer and fact-correction endpoints
func RegisterUnitRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewUnitHandler(c.UnitRepo, c.TransferService, c.Reconciler, c.Components.Logger)

	units := e.Group("/api/v1/units")
	{
		units.POST("/:id/transfer", h.Transfer) // POST  /api/v1/units/li_7/transfer
		units.GET("/:id/transfers", h.History)  // GET   /api/v1/units/li_7/transfers
		units.PATCH("/:id/facts", h.PatchFacts) // PATCH /api/v1/units/li_7/facts
	}
}

// RegisterCertificateRoutes registers the public certificate read
func RegisterCertificateRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewCertificateHandler(c.UnitRepo, c.Components.Logger)

	e.GET("/api/v1/certificates/:unit_id/:token", h.Get)
}
