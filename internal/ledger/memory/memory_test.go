package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flowerbot/internal/core"
)

func tx(ts time.Time, seller string) core.Transaction {
	return core.Transaction{
		Timestamp:    ts,
		Seller:       seller,
		Action:       core.Sale,
		Counterparty: "Priya",
		Amount:       decimal.NewFromInt(1),
		Price:        decimal.NewFromInt(100),
	}
}

func TestMemoryStoreAppendAndLoad(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, tx(time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC), "a"))
	if err != nil || ref != "mem:December Week 1:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if _, err := s.Append(ctx, tx(time.Date(2025, 12, 9, 10, 0, 0, 0, time.UTC), "b")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(ctx, tx(time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC), "c")); err != nil {
		t.Fatalf("append: %v", err)
	}

	pages := s.Pages()
	if len(pages) != 2 || pages[0] != "December Week 1" || pages[1] != "December Week 2" {
		t.Fatalf("unexpected pages: %v", pages)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// page order, then row order within a page
	var sellers []string
	for _, r := range all {
		sellers = append(sellers, r.Seller)
	}
	if len(sellers) != 3 || sellers[0] != "a" || sellers[1] != "c" || sellers[2] != "b" {
		t.Fatalf("unexpected order: %v", sellers)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New()
	bad := tx(time.Now(), "")
	if _, err := s.Append(context.Background(), bad); !errors.Is(err, core.ErrEmptySeller) {
		t.Fatalf("expected ErrEmptySeller, got %v", err)
	}
}

func TestMemoryStoreFail(t *testing.T) {
	s := New(tx(time.Now(), "a"))
	s.Fail = errors.New("unreachable")
	if _, err := s.LoadAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.Append(context.Background(), tx(time.Now(), "a")); err == nil {
		t.Fatal("expected error")
	}
}
