package bot

import (
	"context"
	"time"

	"flowerbot/internal/core"
	"flowerbot/internal/ledger"
	applog "flowerbot/internal/log"
)

// Recorder turns an interpreted message into a ledger row.
type Recorder struct {
	writer ledger.Writer
	clock  func() time.Time
	logger *applog.Logger
}

func NewRecorder(writer ledger.Writer, clock func() time.Time, logger *applog.Logger) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Recorder{writer: writer, clock: clock, logger: logger.WithComponent(applog.ComponentLedger)}
}

// Record appends the intent stamped with the current time. Failures are
// logged and reported as false.
func (r *Recorder) Record(ctx context.Context, intent core.Intent, seller string) bool {
	tx := intent.Transaction(r.clock(), seller)
	fields := applog.NewFields().
		WithOperation(applog.OpAppend).
		WithTransaction(tx.Seller, tx.Action.String(), tx.Amount.String(), tx.Price.String())

	ref, err := r.writer.Append(ctx, tx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to record transaction", fields.WithError(err).ToSlice()...)
		return false
	}
	r.logger.InfoContext(ctx, "Transaction recorded", append(fields.ToSlice(), applog.FieldRowRef, ref)...)
	return true
}
