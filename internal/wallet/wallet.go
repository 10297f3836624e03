// Package wallet is the seam to the platform's ledger. The engine only
// debits stakes on join, credits a winner's payout and refunds stakes on
// cancellation; balances, settlement and approval queues live elsewhere.
package wallet

import (
	"context"
	"errors"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/bingo"
)

// ErrInsufficientFunds rejects a join when the stake cannot be covered.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Wallet debits and credits player balances. The ref ties the movement to a
// session for reconciliation on the ledger side.
type Wallet interface {
	Debit(ctx context.Context, playerID string, amount bingo.Money, ref string) error
	Credit(ctx context.Context, playerID string, amount bingo.Money, ref string) error
}
