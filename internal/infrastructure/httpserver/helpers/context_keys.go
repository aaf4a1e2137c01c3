package helpers

import (
	"github.com/labstack/echo/v4"

	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
)

type ctxKey string

const (
	keyClientKey ctxKey = "client_key"
	keyDecision  ctxKey = "admission_decision"
)

func SetClientKey(c echo.Context, k ratelimit.ClientKey) { c.Set(string(keyClientKey), k) }
func GetClientKeyRaw(c echo.Context) (ratelimit.ClientKey, bool) {
	v := c.Get(string(keyClientKey))
	k, ok := v.(ratelimit.ClientKey)
	return k, ok
}

func SetDecision(c echo.Context, d ratelimit.Decision) { c.Set(string(keyDecision), d) }
func GetDecisionRaw(c echo.Context) (ratelimit.Decision, bool) {
	v := c.Get(string(keyDecision))
	d, ok := v.(ratelimit.Decision)
	return d, ok
}
