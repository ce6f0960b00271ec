package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Operation names a traced step of an attempt.
type Operation string

const (
	OpAttempt   Operation = "attempt"         // whole verify-then-submit cycle
	OpLaunch    Operation = "attestor.launch" // waiting for the attestor bundle
	OpVerify    Operation = "bundle.verify"   // schema binding + signatures
	OpSubmit    Operation = "chain.submit"    // waiting for the chain collaborator
	OpPreflight Operation = "env.preflight"   // network and wallet checks
)

// AttemptOperation starts a span carrying the schema and account of an attempt.
func AttemptOperation(ctx context.Context, op Operation, schemaID, account string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	baseAttrs := []attribute.KeyValue{
		attribute.String("schema_id", schemaID),
		attribute.String("account", account),
	}
	return TraceOp(ctx, string(op), append(baseAttrs, attrs...)...)
}
