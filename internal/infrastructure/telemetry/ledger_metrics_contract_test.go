package telemetry_test

import (
	appinv "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/infrastructure/telemetry"
)

var _ appinv.LedgerMetrics = (*telemetry.LedgerMetrics)(nil)
