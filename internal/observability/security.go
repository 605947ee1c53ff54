package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SecurityMetrics counts the service's security decisions: rate limit
// denials, egress guard rejections, and completed guarded fetches.
type SecurityMetrics struct {
	rateLimitDenials metric.Int64Counter
	egressDenials    metric.Int64Counter
	egressFetches    metric.Int64Counter
}

// NewSecurityMetrics registers the security counters on the global meter.
func NewSecurityMetrics() (*SecurityMetrics, error) {
	meter := otel.Meter("gatekeep/security")

	rateLimitDenials, err := meter.Int64Counter(
		"ratelimit.denials",
		metric.WithDescription("Number of requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	egressDenials, err := meter.Int64Counter(
		"egress.denials",
		metric.WithDescription("Number of outbound fetches rejected by the URL guard"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	egressFetches, err := meter.Int64Counter(
		"egress.fetches",
		metric.WithDescription("Number of completed guarded fetches"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &SecurityMetrics{
		rateLimitDenials: rateLimitDenials,
		egressDenials:    egressDenials,
		egressFetches:    egressFetches,
	}, nil
}

// RecordRateLimitDenial counts one rejected request for the given key class.
func (sm *SecurityMetrics) RecordRateLimitDenial(ctx context.Context, authenticated bool) {
	sm.rateLimitDenials.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("authenticated", authenticated)))
}

// RecordEgressDenial counts one guard rejection tagged with its reason.
func (sm *SecurityMetrics) RecordEgressDenial(ctx context.Context, reason string) {
	sm.egressDenials.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordEgressFetch counts one completed guarded fetch.
func (sm *SecurityMetrics) RecordEgressFetch(ctx context.Context) {
	sm.egressFetches.Add(ctx, 1)
}
