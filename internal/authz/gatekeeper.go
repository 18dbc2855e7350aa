package authz

import (
	"github.com/labstack/echo/v4"

	"dispatch-system/internal/entities"
	"dispatch-system/pkg/api"
	"dispatch-system/pkg/contextkeys"
	apperrors "dispatch-system/pkg/errors"
)

// Gatekeeper остается пустым, это просто "контейнер" для методов
type Gatekeeper struct{}

func NewGatekeeper() *Gatekeeper {
	return &Gatekeeper{}
}

// Can проверяет право роли. Для выезда дополнительно проверяется область:
// scope:own разрешает только выезды, где актор назначен техником.
func (g *Gatekeeper) Can(actorID, role, permission string, target *entities.Dispatch) bool {
	perms := PermissionsFor(role)

	// Этап 1: Проверка на Superuser
	if perms[Superuser] {
		return true
	}

	// Этап 2: Проверка на наличие базового пермишена
	if !perms[permission] {
		return false
	}

	// Этап 3: Проверка области
	if target == nil || perms[ScopeAll] {
		return true
	}
	return perms[ScopeOwn] && target.HasTechnician(actorID)
}

// Require - middleware маршрута: 403, если у роли актора нет права.
func (g *Gatekeeper) Require(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			actorID, _ := ctx.Value(contextkeys.ActorIDKey).(string)
			role, _ := ctx.Value(contextkeys.ActorRoleKey).(string)
			if actorID == "" {
				return api.ErrorResponse(c, apperrors.ErrUnauthorized)
			}
			if !g.Can(actorID, role, permission, nil) {
				return api.ErrorResponse(c, apperrors.ErrForbidden)
			}
			return next(c)
		}
	}
}
