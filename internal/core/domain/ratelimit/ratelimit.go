package ratelimit

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrRateLimited is returned by admission pipelines when a client exhausted its window.
var ErrRateLimited = errors.New("too many requests")

// UnknownClient is the key used when no origin header carries a usable address.
const UnknownClient ClientKey = "unknown"

// Scopes select which requests are counted.
const (
	ScopeMutatingOnly = "mutating-only"
	ScopeAll          = "all"
)

// ClientKey identifies a client for rate limiting. Clients behind one NAT share a key.
type ClientKey string

// Policy is the fixed-window admission policy.
type Policy struct {
	MaxRequests int
	Window      time.Duration
	Scope       string
}

// DefaultPolicy admits 10 mutating requests per minute.
func DefaultPolicy() Policy {
	return Policy{MaxRequests: 10, Window: time.Minute, Scope: ScopeMutatingOnly}
}

// Applies reports whether a request with the given HTTP method is subject to the policy.
func (p Policy) Applies(method string) bool {
	if p.Scope == ScopeAll {
		return true
	}
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// Window is the per-client counter. Count never decreases inside a window;
// once now >= ResetAt the window is replaced, not merged.
type Window struct {
	Count   int       `json:"count"`
	ResetAt time.Time `json:"reset_at"`
}

// Expired reports whether the window no longer applies at now.
func (w Window) Expired(now time.Time) bool {
	return !now.Before(w.ResetAt)
}

// Decision is the outcome of one admission check.
type Decision struct {
	Admitted  bool
	Count     int
	Limit     int
	ResetAt   time.Time
	Remaining int
}

// RetryAfter is the wait until the window resets, rounded up to whole seconds.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Admitted {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	if rounded := wait.Truncate(time.Second); rounded != wait {
		return rounded + time.Second
	}
	return wait
}

// RejectedError carries the decision of a rejected admission so the boundary can emit retry hints.
type RejectedError struct {
	Key      ClientKey
	Decision Decision
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: client %s reached %d requests", ErrRateLimited, e.Key, e.Decision.Limit)
}

func (e *RejectedError) Unwrap() error { return ErrRateLimited }

// ResolveClientKey returns the first well-formed IP among the X-Forwarded-For,
// X-Real-IP and CDN client-ip header values, in that precedence, or UnknownClient.
func ResolveClientKey(forwardedFor, realIP, cdnIP string) ClientKey {
	for _, candidate := range []string{forwardedFor, realIP, cdnIP} {
		if ip := firstIP(candidate); ip != "" {
			return ClientKey(ip)
		}
	}
	return UnknownClient
}

func firstIP(v string) string {
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if host, _, err := net.SplitHostPort(part); err == nil {
			part = host
		}
		part = strings.Trim(part, "[]")
		if ip := net.ParseIP(part); ip != nil {
			return ip.String()
		}
	}
	return ""
}
