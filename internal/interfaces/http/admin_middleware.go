package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/proveedores-api/internal/application/dto"
	"github.com/jhoicas/proveedores-api/internal/domain"
	"github.com/jhoicas/proveedores-api/internal/domain/entity"
	"github.com/jhoicas/proveedores-api/pkg/jwt"
)

// adminChecker es el contrato mínimo que necesita el middleware. Lo implementa *auth.Gate.
type adminChecker interface {
	RequireAdmin(ctx context.Context, id *jwt.Identity) (*entity.User, error)
}

// RequireAdmin devuelve un middleware que exige un admin activo. Debe usarse DESPUÉS de AuthMiddleware.
//
// Comportamiento:
//   - 403 Forbidden → sin identidad, usuario inexistente, inactivo o sin rol admin.
//   - 503 Service Unavailable → fallo al consultar el almacenamiento.
func RequireAdmin(checker adminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, err := checker.RequireAdmin(c.Context(), GetIdentity(c))
		if err != nil {
			if errors.Is(err, domain.ErrForbidden) {
				return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
					Code:    "FORBIDDEN",
					Message: "se requiere rol admin",
				})
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "ADMIN_CHECK_FAILED",
				Message: "no se pudo verificar el rol, intente más tarde",
			})
		}
		return c.Next()
	}
}
