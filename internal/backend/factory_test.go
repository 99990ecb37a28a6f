package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowerbot/internal/config"
	"flowerbot/internal/core"
	"flowerbot/internal/ledger/memory"
	"flowerbot/internal/services"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "paper"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:              "sheets",
		LedgerTimezone:           "Asia/Kolkata",
		GoogleSpreadsheetID:      "sid",
		GoogleServiceAccountJSON: "{}",
	})
	require.NoError(t, err)
	assert.Equal(t, SheetsBackend, cfg.Type)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "paper"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}, true},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "sid"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Store)
	assert.Nil(t, res.Cleanup)
}

func TestCreateSQLiteBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		Location:     time.UTC,
		SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	require.IsType(t, &services.LedgerService{}, res.Store)

	_, err = res.Store.Append(context.Background(), core.Transaction{
		Timestamp:    time.Now(),
		Seller:       "Asha",
		Action:       core.Buy,
		Counterparty: "Mill",
		Amount:       decimal.NewFromInt(10),
		Price:        decimal.NewFromInt(800),
	})
	require.NoError(t, err)
	require.NoError(t, res.Cleanup())
}

func TestCreateSheetsBackendNeedsCredentials(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:                SheetsBackend,
		GoogleSpreadsheetID: "sid",
	})
	assert.Error(t, err)
}
