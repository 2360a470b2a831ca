package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound  = errors.New("menu item not found")
	ErrTableNotFound = errors.New("table not found")
)

// Store is per-table scratch storage that survives client reloads.
type Store interface {
	Get(ctx context.Context, tableID uuid.UUID) (Cart, error)
	// Update applies fn to the stored cart and saves the result atomically
	// with respect to other updates of the same table.
	Update(ctx context.Context, tableID uuid.UUID, fn func(*Cart) error) (Cart, error)
	Clear(ctx context.Context, tableID uuid.UUID) error
}

// Catalog resolves menu items added to a table's cart. Items outside the
// menu of the table's restaurant are ErrItemNotFound.
type Catalog interface {
	MenuItem(ctx context.Context, tableID, itemID uuid.UUID) (Item, error)
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uuid.UUID]Cart)}
}

func (s *MemoryStore) Get(ctx context.Context, tableID uuid.UUID) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked(tableID), nil
}

func (s *MemoryStore) Update(ctx context.Context, tableID uuid.UUID, fn func(*Cart) error) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.copyLocked(tableID)
	if err := fn(&c); err != nil {
		return Cart{}, err
	}
	s.carts[tableID] = c
	return c, nil
}

func (s *MemoryStore) Clear(ctx context.Context, tableID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, tableID)
	return nil
}

func (s *MemoryStore) copyLocked(tableID uuid.UUID) Cart {
	c, ok := s.carts[tableID]
	if !ok {
		return New(tableID)
	}
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	c.Lines = lines
	return c
}
