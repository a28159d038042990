package telemetry

import (
	"context"
	"fmt"

	"github.com/mfgorder/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrOperation = attribute.Key("operation")
	AttrErrorCode = attribute.Key("error_code")
	AttrChanged   = attribute.Key("changed")
)

// LedgerMetrics records stock ledger activity as OpenTelemetry counters.
type LedgerMetrics struct {
	deductions       metric.Int64Counter
	deductedQuantity metric.Int64Counter
	restorations     metric.Int64Counter
	restoredQuantity metric.Int64Counter
	unattributedQty  metric.Int64Counter
	reconciliations  metric.Int64Counter
	failures         metric.Int64Counter
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	counters := []struct {
		dst         *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&m.deductions, "ledger.deductions", "Successful inventory deductions", "{operation}"},
		{&m.deductedQuantity, "ledger.deducted_quantity", "Quantity shipped out of batches", "{item}"},
		{&m.restorations, "ledger.restorations", "Successful inventory restorations", "{operation}"},
		{&m.restoredQuantity, "ledger.restored_quantity", "Quantity returned to projects", "{item}"},
		{&m.unattributedQty, "ledger.unattributed_quantity", "Restored quantity no batch could absorb", "{item}"},
		{&m.reconciliations, "ledger.reconciliations", "Export quantity recalculations", "{operation}"},
		{&m.failures, "ledger.failures", "Rejected or failed ledger operations", "{operation}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

// RecordDeduction counts one successful deduction of quantity
func (m *LedgerMetrics) RecordDeduction(ctx context.Context, quantity int64) {
	m.deductions.Add(ctx, 1)
	m.deductedQuantity.Add(ctx, quantity)
}

// RecordRestoration counts one successful restoration and its unattributed remainder
func (m *LedgerMetrics) RecordRestoration(ctx context.Context, quantity, unattributed int64) {
	m.restorations.Add(ctx, 1)
	m.restoredQuantity.Add(ctx, quantity)
	if unattributed > 0 {
		m.unattributedQty.Add(ctx, unattributed)
	}
}

// RecordReconciliation counts one recalculation, split by whether the counter moved
func (m *LedgerMetrics) RecordReconciliation(ctx context.Context, changed bool) {
	m.reconciliations.Add(ctx, 1, metric.WithAttributes(AttrChanged.Bool(changed)))
}

// RecordFailure counts a failed operation by its error code
func (m *LedgerMetrics) RecordFailure(ctx context.Context, operation string, err error) {
	m.failures.Add(ctx, 1, metric.WithAttributes(
		AttrOperation.String(operation),
		AttrErrorCode.String(shared.ErrorCode(err)),
	))
}
