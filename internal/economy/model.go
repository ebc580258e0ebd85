// Package economy runs the in-app Focus Coins wallet and the cosmetic and
// booster store. Every balance change goes through a transaction that locks
// the wallet row and writes a ledger entry.
package economy

import (
	"errors"
	"time"
)

var (
	ErrItemNotFound      = errors.New("economy: store item not found")
	ErrItemInactive      = errors.New("economy: store item is not for sale")
	ErrAlreadyOwned      = errors.New("economy: item already owned")
	ErrInsufficientFunds = errors.New("economy: insufficient focus coins")
	ErrInventoryNotFound = errors.New("economy: inventory item not found")
	ErrNotEquippable     = errors.New("economy: item cannot be equipped")
	ErrNotBooster        = errors.New("economy: item is not a booster")
	ErrNoneLeft          = errors.New("economy: no booster left")
	ErrBoosterActive     = errors.New("economy: booster already active")
	ErrNegativeBalance   = errors.New("economy: balance cannot go negative")
	ErrInvalidAdjustment = errors.New("economy: adjustment must be non-zero with a reason")
)

// ItemKind separates equippable cosmetics from consumable boosters.
type ItemKind string

const (
	KindCosmetic ItemKind = "cosmetic"
	KindBooster  ItemKind = "booster"
)

// Ledger reasons.
const (
	ReasonPurchase = "store_purchase"
	ReasonAdmin    = "admin_adjustment"
)

type Wallet struct {
	UserID     string    `json:"user_id"`
	FocusCoins int64     `json:"focus_coins"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type StoreItem struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Category        string   `json:"category"`
	Kind            ItemKind `json:"kind"`
	Price           int64    `json:"price"`
	Consumable      bool     `json:"consumable"`
	BoosterDuration int      `json:"booster_minutes,omitempty"`
	Active          bool     `json:"active"`
}

type InventoryItem struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ItemID      string     `json:"item_id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Kind        ItemKind   `json:"kind"`
	Quantity    int        `json:"quantity"`
	Equipped    bool       `json:"equipped"`
	ActiveUntil *time.Time `json:"active_until,omitempty"`
	AcquiredAt  time.Time  `json:"acquired_at"`
}

type LedgerEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	RefID     string    `json:"ref_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PurchaseResult is returned by PurchaseStoreItem.
type PurchaseResult struct {
	Item   *InventoryItem `json:"item"`
	Wallet *Wallet        `json:"wallet"`
}
