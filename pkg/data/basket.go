package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/mchmarny/pulse/pkg/basket"
)

const (
	selectBasketSQL = `SELECT owner, name, full_name, stars, added_at
		FROM basket
		ORDER BY position ASC
	`

	deleteBasketSQL = `DELETE FROM basket`

	insertBasketSQL = `INSERT INTO basket (full_name, owner, name, stars, position, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
)

// BasketStore persists the comparison basket.
type BasketStore struct {
	s *Store
}

// Basket returns the basket store backed by s.
func (s *Store) Basket() *BasketStore {
	return &BasketStore{s: s}
}

// Load returns the saved items in insertion order.
func (b *BasketStore) Load(ctx context.Context) ([]basket.Item, error) {
	if b == nil || b.s == nil || b.s.db == nil {
		return nil, errDBNotInitialized
	}

	rows, err := b.s.db.QueryContext(ctx, selectBasketSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query basket: %w", err)
	}
	defer rows.Close()

	list := make([]basket.Item, 0, basket.MaxItems)
	for rows.Next() {
		var it basket.Item
		var added string
		if err := rows.Scan(&it.Owner, &it.Name, &it.FullName, &it.Stars, &added); err != nil {
			return nil, fmt.Errorf("failed to scan basket row: %w", err)
		}
		it.AddedAt = parseTime(added)
		list = append(list, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate basket rows: %w", err)
	}

	return list, nil
}

// Save replaces the saved items.
func (b *BasketStore) Save(ctx context.Context, items []basket.Item) error {
	if b == nil || b.s == nil || b.s.db == nil {
		return errDBNotInitialized
	}

	tx, err := b.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin basket tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, deleteBasketSQL); err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("failed to clear basket: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, b.s.rebind(insertBasketSQL))
	if err != nil {
		rollbackTransaction(tx)
		return fmt.Errorf("failed to prepare basket insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		if it.FullName == "" {
			rollbackTransaction(tx)
			return errors.New("basket item full name required")
		}
		if _, err := stmt.ExecContext(ctx, it.FullName, it.Owner, it.Name, it.Stars, i, formatTime(it.AddedAt)); err != nil {
			rollbackTransaction(tx)
			return fmt.Errorf("failed to insert basket item %s: %w", it.FullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit basket tx: %w", err)
	}
	return nil
}
