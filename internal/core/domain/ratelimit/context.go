package ratelimit

import "context"

type decisionKey struct{}

// ContextWithDecision records an admission already made for the request carried by ctx.
func ContextWithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

// DecisionFromContext returns the admission recorded by ContextWithDecision, if any.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(Decision)
	return d, ok
}
