package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrCommandName  = "cli.command"
	AttrCommandTool  = "cli.tool"
	AttrRegistryURL  = "registry.url"
	AttrHTTPMethod   = "http.request.method"
	AttrHTTPURL      = "url.full"
	AttrHTTPStatus   = "http.response.status_code"
	AttrRequestID    = "http.request.id"
	AttrRetryAttempt = "http.retry.attempt"
	AttrPageOffset   = "trs.page.offset"
	AttrPageTools    = "trs.page.tools"
)

// Span name prefixes.
const (
	SpanPrefixCommand = "command."
	SpanPrefixHTTP    = "http."
	SpanPrefixPage    = "trs.page"
)

// Event names.
const (
	EventRetry     = "http.retry"
	EventPageFetch = "trs.page.fetched"
)

// StartCommand opens the root span for one CLI command.
func StartCommand(ctx context.Context, tracer trace.Tracer, tool, command, registryURL string) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanPrefixCommand+command,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrCommandTool, tool),
			attribute.String(AttrCommandName, command),
			attribute.String(AttrRegistryURL, registryURL),
		),
	)
}

// EndWithError records err (if any) as the span outcome and ends the span.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
