package helpers

import (
	"net"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/groupbuy/campaign-service/internal/core/domain/ratelimit"
)

// Header names consulted for the client address, in precedence order.
const (
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"
	HeaderCDNClientIP  = "CF-Connecting-IP"
)

// ResolveClientKey derives the rate limit key from proxy headers. With remoteAddrFallback
// the socket peer is used when no header carries an address.
func ResolveClientKey(c echo.Context, remoteAddrFallback bool) ratelimit.ClientKey {
	h := c.Request().Header
	key := ratelimit.ResolveClientKey(h.Get(HeaderForwardedFor), h.Get(HeaderRealIP), h.Get(HeaderCDNClientIP))
	if key != ratelimit.UnknownClient || !remoteAddrFallback {
		return key
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		host = c.Request().RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ratelimit.ClientKey(ip.String())
	}
	return ratelimit.UnknownClient
}

// GetClientKeyFromContext returns the key set by the client identity middleware,
// resolving it from headers when the middleware did not run.
func GetClientKeyFromContext(c echo.Context) ratelimit.ClientKey {
	if k, ok := GetClientKeyRaw(c); ok && k != "" {
		return k
	}
	return ResolveClientKey(c, false)
}

// SetRateLimitHeaders writes X-RateLimit-* and, on rejection, Retry-After.
func SetRateLimitHeaders(c echo.Context, d ratelimit.Decision, now time.Time) {
	if d.Limit <= 0 {
		return
	}
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
	if !d.Admitted {
		h.Set("Retry-After", strconv.Itoa(int(d.RetryAfter(now)/time.Second)))
	}
}
