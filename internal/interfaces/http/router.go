package http

import (
	"github.com/gofiber/fiber/v2"

	appconversion "github.com/jhoicas/depot-stock-api/internal/application/conversion"
	"github.com/jhoicas/depot-stock-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ConversionUC    *appconversion.ConversionUseCase
	HistoryMaxLimit int
	JWTSecret       string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token con rol admin u operator)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireRole(jwt.RoleAdmin, jwt.RoleOperator))

	conversionHandler := NewConversionHandler(deps.ConversionUC, deps.HistoryMaxLimit)

	depots := protected.Group("/depots/:depotId")
	depots.Get("/variants", conversionHandler.ListVariants)
	depots.Post("/conversions/validate", conversionHandler.Validate)
	depots.Post("/conversions", conversionHandler.Execute)
	depots.Get("/conversions", conversionHandler.History)
	depots.Get("/conversions/batches/:batchId", conversionHandler.GetBatch)
	depots.Get("/conversions/batches/:batchId/pdf", conversionHandler.BatchVoucher)

	protected.Get("/conversions/suggestions", conversionHandler.Suggestions)
}
