package economy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service implements the wallet, store and inventory operations on Postgres.
type Service struct {
	db     db
	logger *logging.Logger
	now    func() time.Time
}

func NewService(pool db, logger *logging.Logger) *Service {
	if pool == nil {
		panic("economy: pgx pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{db: pool, logger: logger, now: time.Now}
}

// PurchaseStoreItem debits the price of itemID from the user's wallet and
// adds the item to the inventory. Consumables stack; other items can only
// be owned once.
func (s *Service) PurchaseStoreItem(ctx context.Context, userID, itemID string) (*PurchaseResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("economy: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		item StoreItem
		kind string
	)
	err = tx.QueryRow(ctx, `
		SELECT id, name, category, kind, price, consumable, active
		FROM store_items WHERE id = $1
	`, itemID).Scan(&item.ID, &item.Name, &item.Category, &kind, &item.Price, &item.Consumable, &item.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("economy: load item: %w", err)
	}
	item.Kind = ItemKind(kind)
	if !item.Active {
		return nil, ErrItemInactive
	}

	balance, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if !item.Consumable {
		var owned bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM user_inventory WHERE user_id = $1 AND item_id = $2)
		`, userID, itemID).Scan(&owned); err != nil {
			return nil, fmt.Errorf("economy: ownership check: %w", err)
		}
		if owned {
			return nil, ErrAlreadyOwned
		}
	}
	if balance < item.Price {
		return nil, ErrInsufficientFunds
	}

	wallet := &Wallet{UserID: userID}
	if err := tx.QueryRow(ctx, `
		UPDATE user_wallets SET focus_coins = focus_coins - $2, updated_at = now()
		WHERE user_id = $1
		RETURNING focus_coins, updated_at
	`, userID, item.Price).Scan(&wallet.FocusCoins, &wallet.UpdatedAt); err != nil {
		return nil, fmt.Errorf("economy: debit wallet: %w", err)
	}

	inv := &InventoryItem{UserID: userID, ItemID: itemID, Name: item.Name, Category: item.Category, Kind: item.Kind}
	if err := tx.QueryRow(ctx, `
		INSERT INTO user_inventory (id, user_id, item_id, quantity)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, item_id) DO UPDATE SET quantity = user_inventory.quantity + 1
		RETURNING id, quantity, equipped, active_until, acquired_at
	`, uuid.New(), userID, itemID).Scan(&inv.ID, &inv.Quantity, &inv.Equipped, &inv.ActiveUntil, &inv.AcquiredAt); err != nil {
		return nil, fmt.Errorf("economy: insert inventory: %w", err)
	}

	if err := insertLedger(ctx, tx, userID, -item.Price, ReasonPurchase, itemID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("economy: commit purchase: %w", err)
	}

	s.logger.Info("store item purchased", "user_id", userID, "item_id", itemID, "price", item.Price, "balance", wallet.FocusCoins)
	return &PurchaseResult{Item: inv, Wallet: wallet}, nil
}

// Equip marks inventoryID as equipped and un-equips any other item of the
// same category.
func (s *Service) Equip(ctx context.Context, userID, inventoryID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("economy: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var category, kind string
	err = tx.QueryRow(ctx, `
		SELECT s.category, s.kind
		FROM user_inventory i JOIN store_items s ON s.id = i.item_id
		WHERE i.id = $1 AND i.user_id = $2
		FOR UPDATE OF i
	`, inventoryID, userID).Scan(&category, &kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInventoryNotFound
	}
	if err != nil {
		return fmt.Errorf("economy: load inventory: %w", err)
	}
	if ItemKind(kind) == KindBooster {
		return ErrNotEquippable
	}

	if _, err := tx.Exec(ctx, `
		UPDATE user_inventory i SET equipped = false
		FROM store_items s
		WHERE s.id = i.item_id AND i.user_id = $1 AND s.category = $2 AND i.equipped AND i.id <> $3
	`, userID, category, inventoryID); err != nil {
		return fmt.Errorf("economy: unequip category: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE user_inventory SET equipped = true WHERE id = $1`, inventoryID); err != nil {
		return fmt.Errorf("economy: equip: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("economy: commit equip: %w", err)
	}
	s.logger.Info("item equipped", "user_id", userID, "inventory_id", inventoryID, "category", category)
	return nil
}

// ActivateBooster consumes one booster and starts its timer.
func (s *Service) ActivateBooster(ctx context.Context, userID, inventoryID string) (time.Time, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("economy: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		kind        string
		minutes     int
		quantity    int
		activeUntil *time.Time
	)
	err = tx.QueryRow(ctx, `
		SELECT s.kind, s.booster_minutes, i.quantity, i.active_until
		FROM user_inventory i JOIN store_items s ON s.id = i.item_id
		WHERE i.id = $1 AND i.user_id = $2
		FOR UPDATE OF i
	`, inventoryID, userID).Scan(&kind, &minutes, &quantity, &activeUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrInventoryNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("economy: load booster: %w", err)
	}

	now := s.now().UTC()
	switch {
	case ItemKind(kind) != KindBooster || minutes <= 0:
		return time.Time{}, ErrNotBooster
	case quantity <= 0:
		return time.Time{}, ErrNoneLeft
	case activeUntil != nil && activeUntil.After(now):
		return time.Time{}, ErrBoosterActive
	}

	until := now.Add(time.Duration(minutes) * time.Minute)
	if _, err := tx.Exec(ctx, `
		UPDATE user_inventory SET quantity = quantity - 1, active_until = $2
		WHERE id = $1
	`, inventoryID, until); err != nil {
		return time.Time{}, fmt.Errorf("economy: activate booster: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, fmt.Errorf("economy: commit booster: %w", err)
	}
	s.logger.Info("booster activated", "user_id", userID, "inventory_id", inventoryID, "active_until", until)
	return until, nil
}

// AdjustFocusCoins credits or debits a wallet from the back-office.
func (s *Service) AdjustFocusCoins(ctx context.Context, userID string, delta int64, reason string) (*Wallet, error) {
	reason = strings.TrimSpace(reason)
	if delta == 0 || reason == "" {
		return nil, ErrInvalidAdjustment
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("economy: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	balance, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if balance+delta < 0 {
		return nil, ErrNegativeBalance
	}

	wallet := &Wallet{UserID: userID}
	if err := tx.QueryRow(ctx, `
		UPDATE user_wallets SET focus_coins = focus_coins + $2, updated_at = now()
		WHERE user_id = $1
		RETURNING focus_coins, updated_at
	`, userID, delta).Scan(&wallet.FocusCoins, &wallet.UpdatedAt); err != nil {
		return nil, fmt.Errorf("economy: adjust wallet: %w", err)
	}
	if err := insertLedger(ctx, tx, userID, delta, ReasonAdmin+": "+reason, ""); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("economy: commit adjustment: %w", err)
	}
	s.logger.Info("focus coins adjusted", "user_id", userID, "delta", delta, "balance", wallet.FocusCoins)
	return wallet, nil
}

// lockWallet creates the wallet on first use and locks it for the rest of tx.
func lockWallet(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_wallets (user_id, focus_coins) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return 0, fmt.Errorf("economy: ensure wallet: %w", err)
	}
	var balance int64
	if err := tx.QueryRow(ctx, `SELECT focus_coins FROM user_wallets WHERE user_id = $1 FOR UPDATE`, userID).
		Scan(&balance); err != nil {
		return 0, fmt.Errorf("economy: lock wallet: %w", err)
	}
	return balance, nil
}

func insertLedger(ctx context.Context, tx pgx.Tx, userID string, delta int64, reason, refID string) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO wallet_ledger (id, user_id, delta, reason, ref_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	`, uuid.New(), userID, delta, reason, refID); err != nil {
		return fmt.Errorf("economy: insert ledger: %w", err)
	}
	return nil
}
