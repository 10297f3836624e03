package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
)

// Mock is an in-memory wallet for tests and local runs. Unknown players get
// an opening balance on first touch so simulations don't need seeding.
type Mock struct {
	mu             sync.Mutex
	balances       map[string]bingo.Money
	openingBalance bingo.Money
	failNextDebit  error
	failNextCredit error
	logger         zerolog.Logger
}

// NewMock returns a mock wallet crediting each new player openingBalance.
func NewMock(logger zerolog.Logger, openingBalance bingo.Money) *Mock {
	return &Mock{
		balances:       make(map[string]bingo.Money),
		openingBalance: openingBalance,
		logger:         logger.With().Str("component", "wallet").Logger(),
	}
}

func (m *Mock) balanceLocked(playerID string) bingo.Money {
	if _, ok := m.balances[playerID]; !ok {
		m.balances[playerID] = m.openingBalance
	}
	return m.balances[playerID]
}

// Debit removes amount from the player's balance.
func (m *Mock) Debit(ctx context.Context, playerID string, amount bingo.Money, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNextDebit; err != nil {
		m.failNextDebit = nil
		return err
	}
	balance := m.balanceLocked(playerID)
	if balance < amount {
		return fmt.Errorf("debit %d from %s: %w", amount, playerID, ErrInsufficientFunds)
	}
	m.balances[playerID] = balance - amount
	m.logger.Debug().Str("player", playerID).Int64("amount", int64(amount)).Str("ref", ref).Msg("debited")
	return nil
}

// Credit adds amount to the player's balance.
func (m *Mock) Credit(ctx context.Context, playerID string, amount bingo.Money, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failNextCredit; err != nil {
		m.failNextCredit = nil
		return err
	}
	m.balances[playerID] = m.balanceLocked(playerID) + amount
	m.logger.Debug().Str("player", playerID).Int64("amount", int64(amount)).Str("ref", ref).Msg("credited")
	return nil
}

// Balance reads a player's balance, seeding the opening balance if new.
func (m *Mock) Balance(playerID string) bingo.Money {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(playerID)
}

// FailNextDebit makes the next debit return err.
func (m *Mock) FailNextDebit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextDebit = err
}

// FailNextCredit makes the next credit return err.
func (m *Mock) FailNextCredit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextCredit = err
}
