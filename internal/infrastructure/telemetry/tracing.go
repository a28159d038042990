package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName scopes the ledger operation spans
const TracerName = "github.com/mfgorder/backend/ledger"

// Attributes set on ledger operation spans
const (
	SpanAttrProjectID    attribute.Key = "ledger.project_id"
	SpanAttrQuantity     attribute.Key = "ledger.quantity"
	SpanAttrBatchCount   attribute.Key = "ledger.batch_count"
	SpanAttrUnattributed attribute.Key = "ledger.unattributed_quantity"
	SpanAttrDrift        attribute.Key = "ledger.export_drift"
	SpanAttrErrorCode    attribute.Key = "ledger.error_code"
)

// StartLedgerSpan starts the span ledger.<operation> for one project. The
// caller ends it.
func StartLedgerSpan(ctx context.Context, operation string, projectID uuid.UUID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, SpanAttrProjectID.String(projectID.String()))
	all = append(all, attrs...)
	return otel.Tracer(TracerName).Start(ctx, "ledger."+operation, trace.WithAttributes(all...))
}

// RecordError marks span failed and tags it with the ledger error code, so
// rejected deductions can be told apart from database failures. A nil err is
// ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(SpanAttrErrorCode.String(shared.ErrorCode(err)))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
