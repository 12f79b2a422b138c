// Package cart keeps the shopper's cart: one line per product, quantities of at
// least one, in the order products were first added.
package cart

import (
	"errors"
	"slices"
	"sync"

	"github.com/jrsteele09/go-storefront/internal/notify"
	"github.com/shopspring/decimal"
)

var ErrLineNotFound = errors.New("cart line not found")

type Line struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Total is the line's price times its quantity.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is a consistent, detached view of the cart.
type Snapshot struct {
	Lines     []Line          `json:"lines"`
	ItemCount int             `json:"item_count"`
	LineCount int             `json:"line_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Store is safe for concurrent use. Every mutation is applied atomically and
// watchers see each resulting snapshot in order.
type Store struct {
	mu    sync.Mutex
	lines []Line
	hub   *notify.Hub[Snapshot]
}

func NewStore() *Store {
	return &Store{hub: notify.NewHub[Snapshot]()}
}

// AddToCart increments the line for p.ID, or appends a new line holding a copy
// of p. Later changes to the catalog do not reach the copy.
func (s *Store) AddToCart(p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(p.ID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, Line{Product: p.clone(), Quantity: 1})
	}
	s.publishLocked()
	return nil
}

// RemoveFromCart deletes the line for productID. An absent line is a no-op.
func (s *Store) RemoveFromCart(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(productID)
	if i < 0 {
		return
	}
	s.lines = slices.Delete(s.lines, i, i+1)
	s.publishLocked()
}

// SetQuantity sets the line's quantity; n <= 0 removes the line.
func (s *Store) SetQuantity(productID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	if n <= 0 {
		s.lines = slices.Delete(s.lines, i, i+1)
	} else {
		s.lines[i].Quantity = n
	}
	s.publishLocked()
	return nil
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return
	}
	s.lines = nil
	s.publishLocked()
}

func (s *Store) Lines() []Line {
	return s.Snapshot().Lines
}

// ItemCount is the sum of quantities over all lines.
func (s *Store) ItemCount() int {
	return s.Snapshot().ItemCount
}

// LineCount is the number of distinct products.
func (s *Store) LineCount() int {
	return s.Snapshot().LineCount
}

func (s *Store) Subtotal() decimal.Decimal {
	return s.Snapshot().Subtotal
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Watch invokes fn with the current snapshot and then after every mutation.
func (s *Store) Watch(fn func(Snapshot)) (unwatch func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub.SubscribeWith(fn, s.snapshotLocked())
}

func (s *Store) Close() {
	s.hub.Close()
}

func (s *Store) indexLocked(productID string) int {
	return slices.IndexFunc(s.lines, func(l Line) bool { return l.Product.ID == productID })
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Lines:     make([]Line, len(s.lines)),
		LineCount: len(s.lines),
		Subtotal:  decimal.Zero,
	}
	for i, l := range s.lines {
		snap.Lines[i] = Line{Product: l.Product.clone(), Quantity: l.Quantity}
		snap.ItemCount += l.Quantity
		snap.Subtotal = snap.Subtotal.Add(l.Total())
	}
	return snap
}

func (s *Store) publishLocked() {
	s.hub.Publish(s.snapshotLocked())
}
