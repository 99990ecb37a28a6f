package worker

import (
	"context"
	"errors"
	"fmt"

	"flowerbot/internal/amqp"
	"flowerbot/internal/core"
	"flowerbot/internal/ledger"
	applog "flowerbot/internal/log"
	"flowerbot/internal/storage"
)

// SyncStore is the part of the SQLite ledger the worker needs.
type SyncStore interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id int64, ref string) error
	MarkSyncError(ctx context.Context, id int64) error
	ClaimForSync(ctx context.Context, id int64) (bool, error)
	ReleaseClaim(ctx context.Context, id int64) error
	ResetStaleClaims(ctx context.Context) (int64, error)
}

// SyncWorker mirrors SQLite ledger rows into the Sheets ledger. The message
// consumer and the backstop may run at once; each row is claimed in SQLite
// before it is appended, so only one of them writes it.
type SyncWorker struct {
	storage   SyncStore
	sheets    ledger.Writer
	batchSize int
	logger    *applog.Logger
}

func NewSyncWorker(storage SyncStore, sheets ledger.Writer, batchSize int, logger *applog.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleTransactionLogged syncs the row named by an AMQP message. Messages
// for rows already synced or being synced are acknowledged without an append.
func (w *SyncWorker) HandleTransactionLogged(ctx context.Context, msg *amqp.TransactionLoggedMessage) error {
	w.logger.InfoContext(ctx, "Processing transaction logged message",
		applog.FieldOperation, applog.OpSync,
		applog.FieldTxID, msg.ID,
		"message_id", msg.MessageID)

	won, err := w.storage.ClaimForSync(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// nothing to sync; requeueing would loop forever
		w.logger.WarnContext(ctx, "Transaction not found, dropping message", applog.FieldTxID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim transaction: %w", err)
	}
	if !won {
		w.logger.DebugContext(ctx, "Transaction already synced or in flight", applog.FieldTxID, msg.ID)
		return nil
	}
	return w.syncClaimed(ctx, msg.ID)
}

// ProcessPending syncs up to limit unsynced rows, oldest first. It is the
// backstop for lost messages. Limit <= 0 means the configured batch size.
func (w *SyncWorker) ProcessPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = w.batchSize
	}
	pending, err := w.storage.GetPendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions",
		applog.FieldOperation, applog.OpSync, "count", len(pending))

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		won, err := w.storage.ClaimForSync(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to claim transaction",
				applog.FieldTxID, p.ID, applog.FieldError, err)
			continue
		}
		if !won {
			// the consumer got there first
			continue
		}
		if err := w.syncClaimed(ctx, p.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync transaction",
				applog.FieldTxID, p.ID, applog.FieldError, err)
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Pending sync pass completed",
		"total", len(pending), "synced", synced, "errors", len(pending)-synced)
	return synced, nil
}

// StartupSyncCheck releases claims left by an interrupted run and then runs
// a larger backstop pass. Call it before consuming starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if _, err := w.storage.ResetStaleClaims(ctx); err != nil {
		return err
	}
	_, err := w.ProcessPending(ctx, w.batchSize*5)
	return err
}

// syncClaimed appends a row this worker has claimed and records the outcome.
func (w *SyncWorker) syncClaimed(ctx context.Context, id int64) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		// unreadable rows are parked so the backstop stops retrying them
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", applog.FieldTxID, id, applog.FieldError, markErr)
		}
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := w.sheets.Append(ctx, tx)
	if err != nil {
		// back to pending so a redelivery or the backstop retries it
		if relErr := w.storage.ReleaseClaim(context.WithoutCancel(ctx), id); relErr != nil {
			w.logger.ErrorContext(ctx, "Failed to release sync claim", applog.FieldTxID, id, applog.FieldError, relErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id, ref); err != nil {
		// the row is in Sheets but stays claimed; the next start returns it
		// to pending and may append it again
		w.logger.ErrorContext(ctx, "Failed to mark as synced", applog.FieldTxID, id, applog.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Synced transaction to Sheets",
		applog.FieldOperation, applog.OpSync,
		applog.FieldTxID, id,
		applog.FieldRowRef, ref,
		applog.FieldSeller, tx.Seller,
		applog.FieldAction, tx.Action.String())
	return nil
}
