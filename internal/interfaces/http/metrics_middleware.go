package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/proveedores-api/internal/infrastructure/metrics"
)

// MetricsMiddleware registra cada petición con la ruta registrada (c.Route().Path),
// no la URL cruda, para acotar la cardinalidad de etiquetas.
func MetricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		done := m.RequestStarted()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		done(c.Method(), c.Route().Path, status)
		return err
	}
}
