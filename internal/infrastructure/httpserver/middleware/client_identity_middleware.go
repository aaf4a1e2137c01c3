package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
	"github.com/groupbuy/campaign-service/internal/infrastructure/httpserver/helpers"
)

// ClientIdentityMiddleware stores the resolved client key on the echo context.
type ClientIdentityMiddleware struct {
	remoteAddrFallback bool
	logger             *logrus.Logger
}

func NewClientIdentityMiddleware(remoteAddrFallback bool, logger *logrus.Logger) *ClientIdentityMiddleware {
	return &ClientIdentityMiddleware{remoteAddrFallback: remoteAddrFallback, logger: logger}
}

func (m *ClientIdentityMiddleware) ResolveClient() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := helpers.ResolveClientKey(c, m.remoteAddrFallback)
			if key == ratelimit.UnknownClient && m.logger != nil {
				m.logger.WithField("path", c.Path()).Debug("no client address in request headers")
			}
			helpers.SetClientKey(c, key)
			return next(c)
		}
	}
}
