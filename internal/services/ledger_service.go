package services

import (
	"context"
	"fmt"
	"strconv"

	"flowerbot/internal/core"
	"flowerbot/internal/ledger"
	applog "flowerbot/internal/log"
	"flowerbot/internal/storage"
)

// Publisher announces newly stored ledger rows.
type Publisher interface {
	PublishTransactionLogged(ctx context.Context, id int64) error
}

// LedgerService stores transactions in SQLite and notifies the sync worker,
// which mirrors them into the Sheets ledger.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
	logger    *applog.Logger
}

var _ ledger.Store = (*LedgerService)(nil)

// NewLedgerService accepts a nil publisher; rows then stay local until the
// worker's backstop picks them up.
func NewLedgerService(storage *storage.SQLiteRepository, publisher Publisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentLedger),
	}
}

// Append saves the row locally and publishes a sync message. A failed
// publish is logged but does not fail the append.
func (s *LedgerService) Append(ctx context.Context, tx core.Transaction) (string, error) {
	ref, err := s.storage.Append(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to parse transaction ID", applog.FieldRowRef, ref, applog.FieldError, err)
		return ref, nil
	}

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP not configured, leaving transaction for backstop sync", applog.FieldTxID, id)
		return ref, nil
	}
	if err := s.publisher.PublishTransactionLogged(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction logged message",
			applog.FieldOperation, applog.OpAppend, applog.FieldTxID, id, applog.FieldError, err)
	}
	return ref, nil
}

// LoadAll reads the local copy, which is always at least as fresh as Sheets.
func (s *LedgerService) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	return s.storage.LoadAll(ctx)
}

func (s *LedgerService) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
