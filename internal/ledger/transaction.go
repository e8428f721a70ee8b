// Package ledger owns the deferred fulfillment ledger: the durable set
// of crafting transactions and the single serialized mutation path that
// request intake, timer maturation, cancellation and the summary sweep
// all go through.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/pkg/locale"
)

// Status tags a transaction's lifecycle stage. Cancelled transactions
// are removed from the ledger, not tagged.
type Status string

const (
	// StatusPending means the maturation timer has not fired yet.
	StatusPending Status = "pending"
	// StatusDelivered means the outcome has been sent to the owner.
	StatusDelivered Status = "delivered"
	// StatusAcknowledged means a summary sweep has reported the outcome.
	StatusAcknowledged Status = "acknowledged"
)

// Transaction is one crafting request's full record. Identity fields
// never change after creation; only Status moves.
type Transaction struct {
	ID           uuid.UUID    `json:"id"`
	OwnerID      string       `json:"owner_id"`
	Character    string       `json:"character"`
	Kind         catalog.Kind `json:"kind"`
	ItemName     string       `json:"item_name"`
	Roll         int          `json:"roll"`
	Bonus        int          `json:"bonus"`
	Quantity     int          `json:"quantity"`
	MustBeStored bool         `json:"must_be_stored"`
	Status       Status       `json:"status"`
	RequestedAt  time.Time    `json:"requested_at"`
	MaturesAt    time.Time    `json:"matures_at"`
}

// Pending reports whether the transaction still awaits maturation.
func (t *Transaction) Pending() bool { return t.Status == StatusPending }

// Character groups the transactions of one in-fiction character.
type Character struct {
	Transactions []*Transaction `json:"transactions"`
}

// Owner maps character keys to their records.
type Owner map[string]*Character

// Ledger is the whole persisted structure: owner id → character key →
// ordered transaction list.
type Ledger struct {
	Owners map[string]Owner `json:"owners"`
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{Owners: map[string]Owner{}}
}

// CharacterKey returns the stored key that locale-matches name, or name
// itself when no entry matches, so "GANDALF" and "Gandalf" share one
// nested entry.
func (o Owner) CharacterKey(name string) string {
	for key := range o {
		if locale.Equals(key, name) {
			return key
		}
	}
	return name
}

// Character returns the record for the locale-matched character key,
// or nil when absent.
func (o Owner) Character(name string) *Character {
	return o[o.CharacterKey(name)]
}

// EnsureCharacter returns the record for name, creating it under the
// locale-matched key when missing.
func (l *Ledger) EnsureCharacter(ownerID, name string) *Character {
	if l.Owners == nil {
		l.Owners = map[string]Owner{}
	}
	owner := l.Owners[ownerID]
	if owner == nil {
		owner = Owner{}
		l.Owners[ownerID] = owner
	}
	key := owner.CharacterKey(name)
	char := owner[key]
	if char == nil {
		char = &Character{}
		owner[key] = char
	}
	return char
}

// Find locates a transaction by id anywhere in the ledger, returning
// its owner id and character key with it.
func (l *Ledger) Find(id uuid.UUID) (*Transaction, string, string) {
	for ownerID, owner := range l.Owners {
		for key, char := range owner {
			for _, tx := range char.Transactions {
				if tx.ID == id {
					return tx, ownerID, key
				}
			}
		}
	}
	return nil, "", ""
}

// Remove deletes a transaction by id, keeping the remaining order.
// It reports whether anything was removed.
func (l *Ledger) Remove(id uuid.UUID) bool {
	for _, owner := range l.Owners {
		for _, char := range owner {
			for i, tx := range char.Transactions {
				if tx.ID == id {
					char.Transactions = append(char.Transactions[:i], char.Transactions[i+1:]...)
					return true
				}
			}
		}
	}
	return false
}

// HasPendingOfKind reports whether the character already has a pending
// transaction of the given kind.
func (c *Character) HasPendingOfKind(kind catalog.Kind) bool {
	for _, tx := range c.Transactions {
		if tx.Kind == kind && tx.Pending() {
			return true
		}
	}
	return false
}

// LastPendingMatch returns the most recently created pending
// transaction matching kind and item name, ties broken by insertion
// order.
func (c *Character) LastPendingMatch(kind catalog.Kind, itemName string) *Transaction {
	for i := len(c.Transactions) - 1; i >= 0; i-- {
		tx := c.Transactions[i]
		if tx.Kind == kind && tx.Pending() && locale.Equals(tx.ItemName, itemName) {
			return tx
		}
	}
	return nil
}
