// Package memory records fee debit instructions in process.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utafrali/reviewregistry/internal/domain"
)

// Ledger keeps every debit instruction it receives, in order.
type Ledger struct {
	mu     sync.Mutex
	debits []domain.FeeDebit
	logger *slog.Logger
}

// NewLedger creates an in-memory ledger. logger may be nil.
func NewLedger(logger *slog.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// Debit records the instruction.
func (l *Ledger) Debit(ctx context.Context, debit domain.FeeDebit) {
	l.mu.Lock()
	l.debits = append(l.debits, debit)
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.InfoContext(ctx, "fee debit recorded",
			slog.Uint64("review_id", debit.ReviewID),
			slog.Uint64("amount", debit.Amount),
			slog.String("from", debit.From),
			slog.String("to", debit.To),
		)
	}
}

// Debits returns a copy of all recorded instructions.
func (l *Ledger) Debits() []domain.FeeDebit {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.FeeDebit, len(l.debits))
	copy(out, l.debits)
	return out
}
