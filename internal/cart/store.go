// Package cart owns the client's view of the server cart: lines, selection
// flags and derived totals. The server stays the source of truth, reconciled
// through explicit reloads rather than locking.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/HaVuDong/ecome-customer-app/internal/auth"
	"github.com/HaVuDong/ecome-customer-app/internal/cache"
	"github.com/HaVuDong/ecome-customer-app/internal/domain"
	"github.com/HaVuDong/ecome-customer-app/internal/tracking"
	"golang.org/x/sync/singleflight"
)

// API is the slice of the cart backend the store drives.
type API interface {
	GetCart(ctx context.Context) ([]domain.CartItem, error)
	AddToCart(ctx context.Context, productID int64, quantity int) (*domain.CartItem, error)
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*domain.CartItem, error)
	ToggleSelected(ctx context.Context, itemID int64) (*domain.CartItem, error)
	SelectAllBySeller(ctx context.Context, sellerID int64, selected bool) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

type Store struct {
	api     API
	session *auth.Session
	cache   cache.CartCache
	sink    tracking.Sink
	sfg     singleflight.Group // Prevents concurrent duplicate reloads

	mu    sync.RWMutex
	items []domain.CartItem
}

func NewStore(api API, session *auth.Session, cartCache cache.CartCache, sink tracking.Sink) *Store {
	if sink == nil {
		sink = tracking.NopSink{}
	}
	return &Store{
		api:     api,
		session: session,
		cache:   cartCache,
		sink:    sink,
	}
}

// Load fills the store for first display: cache first, then the server.
// Server data refreshes the cache in the background.
func (s *Store) Load(ctx context.Context) error {
	userID := s.userID()
	if s.cache != nil && userID != 0 {
		cached, err := s.cache.Get(ctx, userID)
		if err == nil {
			s.replaceItems(cached.Items)
			return nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cart: cache get error: %v", err) // log cache error but continue
		}
	}
	return s.Reload(ctx)
}

// Reload reconciles against the server-owned cart. Concurrent reloads are
// collapsed into one request.
func (s *Store) Reload(ctx context.Context) error {
	_, err, _ := s.sfg.Do("reload", func() (interface{}, error) {
		items, errGet := s.api.GetCart(ctx)
		if errGet != nil {
			return nil, fmt.Errorf("reload cart: %w", errGet)
		}
		s.replaceItems(items)
		s.refreshCache(items)
		return nil, nil
	})
	return err
}

// AddItem requires an authenticated session; the server merges quantity into
// an existing line for the same product. A reconciling reload follows.
func (s *Store) AddItem(ctx context.Context, productID int64, quantity int) error {
	if !s.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if _, err := s.api.AddToCart(ctx, productID, quantity); err != nil {
		return err
	}
	s.sink.Track(ctx, tracking.Event{
		Name:   "cart_add",
		UserID: s.userID(),
		Props:  map[string]string{"product_id": fmt.Sprint(productID), "quantity": fmt.Sprint(quantity)},
	})
	return s.Reload(ctx)
}

// UpdateQuantity applies the new quantity locally and rolls back if the
// server refuses. Requests below 1 are a no-op; requests above the known
// stock are rejected without a server call, never clamped.
func (s *Store) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return nil
	}

	s.mu.Lock()
	idx := s.indexOfLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	if quantity > s.items[idx].Product.Stock {
		s.mu.Unlock()
		return ErrExceedsStock
	}
	previous := s.items[idx].Quantity
	s.items[idx].Quantity = quantity
	s.mu.Unlock()

	if _, err := s.api.UpdateCartItem(ctx, itemID, quantity); err != nil {
		s.restoreQuantity(itemID, previous)
		return err
	}
	s.invalidateCache()
	return nil
}

// ToggleSelection flips the line's flag locally and rolls the flip back if
// the server refuses. The failure is logged, not returned: selection is a
// responsiveness-first field.
func (s *Store) ToggleSelection(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	idx := s.indexOfLocked(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	s.items[idx].Selected = !s.items[idx].Selected
	s.mu.Unlock()

	if _, err := s.api.ToggleSelected(ctx, itemID); err != nil {
		log.Printf("cart: toggle select failed for item %d, rolling back: %v", itemID, err)
		s.mu.Lock()
		if i := s.indexOfLocked(itemID); i >= 0 {
			s.items[i].Selected = !s.items[i].Selected
		}
		s.mu.Unlock()
		return nil
	}
	s.invalidateCache()
	return nil
}

// SelectAll sets every line's flag and mirrors it to the server per seller
// group, best-effort.
func (s *Store) SelectAll(ctx context.Context, selected bool) {
	s.mu.Lock()
	for i := range s.items {
		s.items[i].Selected = selected
	}
	groups := (&domain.Cart{Items: s.items}).GroupBySeller()
	s.mu.Unlock()

	for _, group := range groups {
		if err := s.api.SelectAllBySeller(ctx, group.SellerID, selected); err != nil {
			log.Printf("cart: select-all failed for seller %d: %v", group.SellerID, err)
		}
	}
	s.invalidateCache()
}

// RemoveItem drops the line locally only after server confirmation.
func (s *Store) RemoveItem(ctx context.Context, itemID int64) error {
	if err := s.api.RemoveCartItem(ctx, itemID); err != nil {
		return err
	}

	s.mu.Lock()
	if idx := s.indexOfLocked(itemID); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	s.mu.Unlock()
	s.invalidateCache()
	return nil
}

// Clear empties the cart locally after server confirmation.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.api.ClearCart(ctx); err != nil {
		return err
	}
	s.replaceItems(nil)
	s.invalidateCache()
	return nil
}

// Cart returns a snapshot copy of the current lines.
func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.CartItem, len(s.items))
	copy(items, s.items)
	return domain.Cart{Items: items}
}

func (s *Store) TotalItems() int {
	c := s.Cart()
	return c.TotalItems()
}

func (s *Store) TotalAmount() int64 {
	c := s.Cart()
	return c.TotalAmount()
}

func (s *Store) SelectedTotal() int64 {
	c := s.Cart()
	return c.SelectedTotal()
}

func (s *Store) SelectedItems() []domain.CartItem {
	c := s.Cart()
	return c.SelectedItems()
}

func (s *Store) indexOfLocked(itemID int64) int {
	for i := range s.items {
		if s.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (s *Store) restoreQuantity(itemID int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfLocked(itemID); i >= 0 {
		s.items[i].Quantity = quantity
	}
}

func (s *Store) replaceItems(items []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

func (s *Store) userID() int64 {
	if user := s.session.User(); user != nil {
		return user.ID
	}
	return 0
}

func (s *Store) refreshCache(items []domain.CartItem) {
	userID := s.userID()
	if s.cache == nil || userID == 0 {
		return
	}
	snapshot := make([]domain.CartItem, len(items))
	copy(snapshot, items)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cache.Set(ctx, userID, &domain.Cart{Items: snapshot}); err != nil {
			log.Printf("cart: cache set error: %v", err)
		}
	}()
}

func (s *Store) invalidateCache() {
	userID := s.userID()
	if s.cache == nil || userID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cart: cache invalidate error: %v", err)
	}
}
