// Package basket holds the set of repositories queued for side by side
// comparison. Persistence is delegated to a Store.
package basket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MaxItems is the comparison capacity.
const MaxItems = 3

// Item is a repository in the basket.
type Item struct {
	Owner    string    `json:"owner" yaml:"owner"`
	Name     string    `json:"name" yaml:"name"`
	FullName string    `json:"full_name" yaml:"fullName"`
	Stars    int       `json:"stars" yaml:"stars"`
	AddedAt  time.Time `json:"added_at" yaml:"addedAt"`
}

// Store loads and saves the basket contents in order.
type Store interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
}

// Basket is safe for concurrent use.
type Basket struct {
	mu    sync.Mutex
	store Store
	items []Item
	clock func() time.Time
}

// New loads the basket from store. A nil store keeps items in memory only.
func New(ctx context.Context, store Store) (*Basket, error) {
	b := &Basket{
		store: store,
		items: make([]Item, 0, MaxItems),
		clock: time.Now,
	}
	if store == nil {
		return b, nil
	}

	items, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load basket: %w", err)
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	b.items = append(b.items, items...)
	return b, nil
}

// Add appends item unless the basket is full or already holds the same
// repository. It reports whether the item was added.
func (b *Basket) Add(ctx context.Context, item Item) (bool, error) {
	if item.FullName == "" {
		if item.Owner == "" || item.Name == "" {
			return false, errors.New("item full name required")
		}
		item.FullName = item.Owner + "/" + item.Name
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) >= MaxItems || b.indexOf(item.FullName) >= 0 {
		return false, nil
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = b.clock().UTC()
	}

	next := append(append(make([]Item, 0, MaxItems), b.items...), item)
	if err := b.save(ctx, next); err != nil {
		return false, err
	}
	b.items = next
	return true, nil
}

// Remove drops the repository with fullName and reports whether it was present.
func (b *Basket) Remove(ctx context.Context, fullName string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(fullName)
	if i < 0 {
		return false, nil
	}

	next := make([]Item, 0, MaxItems)
	next = append(next, b.items[:i]...)
	next = append(next, b.items[i+1:]...)
	if err := b.save(ctx, next); err != nil {
		return false, err
	}
	b.items = next
	return true, nil
}

// Clear empties the basket.
func (b *Basket) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]Item, 0, MaxItems)
	if err := b.save(ctx, next); err != nil {
		return err
	}
	b.items = next
	return nil
}

// List returns a copy of the items in insertion order.
func (b *Basket) List() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append(make([]Item, 0, len(b.items)), b.items...)
}

// Refs returns the full names of the items in insertion order.
func (b *Basket) Refs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]string, len(b.items))
	for i, it := range b.items {
		list[i] = it.FullName
	}
	return list
}

// Full reports whether another item can be added.
func (b *Basket) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items) >= MaxItems
}

func (b *Basket) indexOf(fullName string) int {
	for i, it := range b.items {
		if strings.EqualFold(it.FullName, fullName) {
			return i
		}
	}
	return -1
}

func (b *Basket) save(ctx context.Context, items []Item) error {
	if b.store == nil {
		return nil
	}
	if err := b.store.Save(ctx, items); err != nil {
		return fmt.Errorf("failed to save basket: %w", err)
	}
	return nil
}
