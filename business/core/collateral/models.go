package collateral

import (
	"time"

	"github.com/Patrick841130/LKS-sub003/foundation/blockchain/database"
)

// Asset represents a quantity of a collateral token together with the price
// snapshot it was valued at.
type Asset struct {
	TokenAddress string    `json:"token_address"` // Address of the collateral token.
	Amount       uint64    `json:"amount"`        // Quantity of the token.
	Price        uint64    `json:"price"`         // Unit price snapshot, in peg currency minor units.
	PriceTime    time.Time `json:"price_time"`    // When the price snapshot was taken.
}

// Lock represents assets reserved against a specific mint until a matching
// burn releases them. A lock is never released twice and binds the exact
// amount it backs.
type Lock struct {
	ID            string             `json:"id"`
	Owner         database.AccountID `json:"owner"`
	Assets        []Asset            `json:"assets"`
	BackingAmount uint64             `json:"backing_amount"` // The minted amount this lock backs.
	CreatedAt     time.Time          `json:"created_at"`
	ReleasedAt    *time.Time         `json:"released_at,omitempty"` // Nil while the lock is active.
}

// Active returns true while the lock has not been released.
func (l Lock) Active() bool {
	return l.ReleasedAt == nil
}
