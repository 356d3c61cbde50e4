package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pasteleia/bakery/internal/domain/product"
)

// ErrNoSnapshot is returned by Storage.Load when nothing is stored under a key.
var ErrNoSnapshot = errors.New("no cart snapshot")

// Storage persists encoded cart snapshots.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// Storage operations reported by StorageError.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// StorageError reports a failed read or write of a cart snapshot.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return "cart storage " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is the cart of one visitor bound to its persisted snapshot. Every
// mutation is followed by a synchronous save. Storage failures never surface
// to callers: they are logged and the in-memory cart stays authoritative.
type Store struct {
	storage Storage
	key     string
	cart    *Cart
	lastErr error
}

// Open loads the cart stored under key. A missing, unreadable or corrupt
// snapshot yields an empty cart.
func Open(ctx context.Context, storage Storage, key string) *Store {
	s := &Store{storage: storage, key: key, cart: New()}

	payload, err := storage.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		return s
	case err != nil:
		s.fail(ctx, &StorageError{Op: OpRead, Key: key, Err: err})
		return s
	}

	lines, err := Unmarshal(payload)
	if err != nil {
		zctx.From(ctx).Warn("Discarding corrupt cart snapshot",
			zap.String("key", key),
			zap.Error(err),
		)
		return s
	}
	s.cart = New(lines...)
	return s
}

// Key returns the storage key of the cart.
func (s *Store) Key() string { return s.key }

// Err returns the last storage failure, if any. It is informational only.
func (s *Store) Err() error { return s.lastErr }

// AddItem adds quantity units of p and persists the cart.
func (s *Store) AddItem(ctx context.Context, p product.Product, quantity int) error {
	if err := s.cart.AddItem(p, quantity); err != nil {
		return err
	}
	s.save(ctx)
	return nil
}

// RemoveItem removes the product line and persists the cart.
func (s *Store) RemoveItem(ctx context.Context, productID string) {
	s.cart.RemoveItem(productID)
	s.save(ctx)
}

// UpdateQuantity sets the clamped quantity of a line and persists the cart.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) bool {
	ok := s.cart.UpdateQuantity(productID, quantity)
	if ok {
		s.save(ctx)
	}
	return ok
}

// SetFree toggles the promotional flag of a line and persists the cart.
func (s *Store) SetFree(ctx context.Context, productID string, free bool) bool {
	ok := s.cart.SetFree(productID, free)
	if ok {
		s.save(ctx)
	}
	return ok
}

// Clear empties the cart and persists the empty state.
func (s *Store) Clear(ctx context.Context) {
	s.cart.Clear()
	s.save(ctx)
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() *Cart { return New(s.cart.lines...) }

// Lines returns a copy of the cart lines.
func (s *Store) Lines() []Line { return s.cart.Lines() }

// TotalPrice returns the payable total of the cart.
func (s *Store) TotalPrice() decimal.Decimal { return s.cart.TotalPrice() }

// TotalItems returns the number of units in the cart.
func (s *Store) TotalItems() int { return s.cart.TotalItems() }

func (s *Store) save(ctx context.Context) {
	if err := s.storage.Save(ctx, s.key, Marshal(s.cart.lines)); err != nil {
		s.fail(ctx, &StorageError{Op: OpWrite, Key: s.key, Err: err})
		return
	}
	s.lastErr = nil
}

func (s *Store) fail(ctx context.Context, err *StorageError) {
	s.lastErr = err
	zctx.From(ctx).Error("Cart storage failed",
		zap.String("op", err.Op),
		zap.String("key", err.Key),
		zap.Error(err.Err),
	)
}

// MemoryStorage keeps snapshots in process memory.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Load implements Storage.
func (m *MemoryStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, ok := m.data[key]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), payload...), nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), payload...)
	return nil
}
