package ledger

import (
	"sync"

	"github.com/lotmarket/goauction/base/ctx"
	"github.com/lotmarket/goauction/base/log"
	"github.com/lotmarket/goauction/domain"
	"golang.org/x/xerrors"
)

// InMemory is a Service keeping balances in process, used for local runs
// and tests
type InMemory struct {
	mu       sync.Mutex
	balances map[domain.Address]domain.Amount
	escrow   domain.Amount
}

// NewInMemory returns a ledger holding the given opening balances. Accounts
// absent from the map do not exist and cannot receive payouts.
func NewInMemory(balances map[domain.Address]domain.Amount) *InMemory {
	b := make(map[domain.Address]domain.Amount, len(balances))
	for acc, amount := range balances {
		b[acc.ToLower()] = amount
	}
	return &InMemory{balances: b}
}

func (l *InMemory) Collect(c ctx.Ctx, from domain.Address, amount domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	from = from.ToLower()
	balance, ok := l.balances[from]
	if !ok {
		return xerrors.Errorf("account %s does not exist: %w", from, domain.ErrPaymentFailed)
	}
	remaining, ok := balance.Sub(amount)
	if !ok {
		c.WithFields(log.Fields{
			"from":    from,
			"amount":  amount,
			"balance": balance,
		}).Warn("insufficient balance")
		return xerrors.Errorf("insufficient balance of %s: %w", from, domain.ErrPaymentFailed)
	}
	l.balances[from] = remaining
	l.escrow = l.escrow.AddSat(amount)
	return nil
}

func (l *InMemory) Payout(c ctx.Ctx, to domain.Address, amount domain.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	to = to.ToLower()
	balance, ok := l.balances[to]
	if !ok {
		return xerrors.Errorf("account %s does not exist: %w", to, domain.ErrPaymentFailed)
	}
	remaining, ok := l.escrow.Sub(amount)
	if !ok {
		return xerrors.Errorf("escrow underflow paying %s: %w", to, domain.ErrPaymentFailed)
	}
	l.escrow = remaining
	l.balances[to] = balance.AddSat(amount)
	return nil
}

func (l *InMemory) EngineBalance(c ctx.Ctx) (domain.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.escrow, nil
}

// BalanceOf reports an account balance and whether the account exists
func (l *InMemory) BalanceOf(c ctx.Ctx, account domain.Address) (domain.Amount, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[account.ToLower()]
	return balance, ok
}
