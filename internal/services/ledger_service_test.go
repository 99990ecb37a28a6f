package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowerbot/internal/core"
	applog "flowerbot/internal/log"
	"flowerbot/internal/storage"
)

type fakePublisher struct {
	ids []int64
	err error
}

func (f *fakePublisher) PublishTransactionLogged(_ context.Context, id int64) error {
	f.ids = append(f.ids, id)
	return f.err
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), time.UTC, nil)
	require.NoError(t, err)
	return repo
}

func sale() core.Transaction {
	return core.Transaction{
		Timestamp:    time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC),
		Seller:       "Asha",
		Action:       core.Sale,
		Counterparty: "Priya",
		Amount:       decimal.NewFromInt(2),
		Price:        decimal.NewFromInt(300),
	}
}

func TestLedgerService_AppendPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewLedgerService(newRepo(t), pub, nil)
	t.Cleanup(func() { _ = svc.Close() })
	ctx := context.Background()

	ref, err := svc.Append(ctx, sale())
	require.NoError(t, err)
	id, err := strconv.ParseInt(ref, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, pub.ids)

	all, err := svc.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Priya", all[0].Counterparty)
}

func TestLedgerService_PublishFailureKeepsRow(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(&buf, nil)})
	svc := NewLedgerService(newRepo(t), pub, logger)
	t.Cleanup(func() { _ = svc.Close() })

	_, err := svc.Append(context.Background(), sale())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "component=ledger")
	assert.Contains(t, buf.String(), "broker down")

	all, err := svc.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLedgerService_NilPublisher(t *testing.T) {
	svc := NewLedgerService(newRepo(t), nil, nil)
	t.Cleanup(func() { _ = svc.Close() })

	_, err := svc.Append(context.Background(), sale())
	assert.NoError(t, err)
}

func TestLedgerService_InvalidNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewLedgerService(newRepo(t), pub, nil)
	t.Cleanup(func() { _ = svc.Close() })

	bad := sale()
	bad.Counterparty = ""
	_, err := svc.Append(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrEmptyCounterparty)
	assert.Empty(t, pub.ids)
}

func TestLedgerService_CloseNil(t *testing.T) {
	svc := &LedgerService{}
	assert.NoError(t, svc.Close())
}
