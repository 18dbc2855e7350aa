package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"dispatch-system/pkg/api"
	"dispatch-system/pkg/contextkeys"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/service"
)

type AuthMiddleware struct {
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		logger:     logger,
	}
}

// Auth проверяет Bearer-токен и кладет actor id и роль в контекст запроса.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			// браузерный websocket не умеет ставить заголовки
			if token := c.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		if authHeader == "" {
			m.logger.Warn("AuthMiddleware: Пустой заголовок Authorization")
			return api.ErrorResponse(c, apperrors.ErrEmptyAuthHeader)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.logger.Warn("AuthMiddleware: Неверный формат заголовка Authorization")
			return api.ErrorResponse(c, apperrors.ErrInvalidAuthHeader)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("AuthMiddleware: Ошибка валидации токена", zap.Error(err))
			return api.ErrorResponse(c, err)
		}

		if claims.IsRefreshToken {
			m.logger.Warn("AuthMiddleware: Попытка доступа с refresh токеном")
			return api.ErrorResponse(c, apperrors.ErrTokenIsNotAccess)
		}

		ctx := WithActor(c.Request().Context(), claims.ActorID, claims.Role)
		c.SetRequest(c.Request().WithContext(ctx))

		m.logger.Debug("AuthMiddleware: актор аутентифицирован",
			zap.String("actorID", claims.ActorID),
			zap.String("role", claims.Role))

		return next(c)
	}
}

func WithActor(ctx context.Context, actorID, role string) context.Context {
	ctx = context.WithValue(ctx, contextkeys.ActorIDKey, actorID)
	return context.WithValue(ctx, contextkeys.ActorRoleKey, role)
}

func ActorFromContext(ctx context.Context) (string, string, error) {
	actorID, ok := ctx.Value(contextkeys.ActorIDKey).(string)
	if !ok || actorID == "" {
		return "", "", apperrors.ErrActorNotFoundInContext
	}
	role, _ := ctx.Value(contextkeys.ActorRoleKey).(string)
	return actorID, role, nil
}
