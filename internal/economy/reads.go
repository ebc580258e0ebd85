package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Wallet returns the user's balance. A user without a wallet has zero coins.
func (s *Service) Wallet(ctx context.Context, userID string) (*Wallet, error) {
	w := &Wallet{UserID: userID}
	err := s.db.QueryRow(ctx, `SELECT focus_coins, updated_at FROM user_wallets WHERE user_id = $1`, userID).
		Scan(&w.FocusCoins, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("economy: load wallet: %w", err)
	}
	return w, nil
}

// StoreCatalogue lists items for sale, or every item when includeInactive.
func (s *Service) StoreCatalogue(ctx context.Context, includeInactive bool) ([]*StoreItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), category, kind, price, consumable, COALESCE(booster_minutes, 0), active
		FROM store_items
		WHERE active OR $1
		ORDER BY category, price, name
	`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("economy: list store: %w", err)
	}
	defer rows.Close()

	var out []*StoreItem
	for rows.Next() {
		var (
			item StoreItem
			kind string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Category, &kind, &item.Price,
			&item.Consumable, &item.BoosterDuration, &item.Active); err != nil {
			return nil, fmt.Errorf("economy: scan store item: %w", err)
		}
		item.Kind = ItemKind(kind)
		out = append(out, &item)
	}
	return out, rows.Err()
}

// Inventory lists what the user owns, newest first.
func (s *Service) Inventory(ctx context.Context, userID string) ([]*InventoryItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT i.id, i.user_id, i.item_id, s.name, s.category, s.kind, i.quantity, i.equipped, i.active_until, i.acquired_at
		FROM user_inventory i JOIN store_items s ON s.id = i.item_id
		WHERE i.user_id = $1
		ORDER BY i.acquired_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("economy: list inventory: %w", err)
	}
	defer rows.Close()

	var out []*InventoryItem
	for rows.Next() {
		var (
			inv  InventoryItem
			kind string
		)
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.ItemID, &inv.Name, &inv.Category, &kind,
			&inv.Quantity, &inv.Equipped, &inv.ActiveUntil, &inv.AcquiredAt); err != nil {
			return nil, fmt.Errorf("economy: scan inventory: %w", err)
		}
		inv.Kind = ItemKind(kind)
		out = append(out, &inv)
	}
	return out, rows.Err()
}

// Ledger returns the latest wallet movements for userID.
func (s *Service) Ledger(ctx context.Context, userID string, limit int) ([]*LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, delta, reason, COALESCE(ref_id, ''), created_at
		FROM wallet_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("economy: list ledger: %w", err)
	}
	defer rows.Close()

	var out []*LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.RefID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("economy: scan ledger: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
