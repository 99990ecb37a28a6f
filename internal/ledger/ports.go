package ledger

import (
	"context"

	"flowerbot/internal/core"
)

// Ports for ledger adapters.
type (
	Writer interface {
		// Append adds one row atomically and returns a backend-specific reference.
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// Reader returns the whole ledger, all pages concatenated in page order.
	Reader interface {
		LoadAll(ctx context.Context) ([]core.Transaction, error)
	}

	Store interface {
		Writer
		Reader
	}
)
