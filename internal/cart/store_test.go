package cart

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	apiclient "github.com/HaVuDong/ecome-customer-app/internal/api"
	"github.com/HaVuDong/ecome-customer-app/internal/auth"
	"github.com/HaVuDong/ecome-customer-app/internal/backendtest"
	"github.com/HaVuDong/ecome-customer-app/internal/domain"
	"github.com/HaVuDong/ecome-customer-app/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	m     sync.Mutex
	items []domain.CartItem

	failUpdate bool
	failToggle bool

	addCalls    int
	updateCalls int
	toggleCalls int
	selectCalls map[int64]bool
}

func (m *mockAPI) GetCart(context.Context) ([]domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]domain.CartItem(nil), m.items...), nil
}

func (m *mockAPI) AddToCart(_ context.Context, productID int64, quantity int) (*domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.addCalls++
	for i := range m.items {
		if m.items[i].Product.ID == productID {
			m.items[i].Quantity += quantity
			line := m.items[i]
			return &line, nil
		}
	}
	line := domain.CartItem{ID: int64(100 + len(m.items)), Product: domain.Product{ID: productID, Stock: 99}, Quantity: quantity, Selected: true}
	m.items = append(m.items, line)
	return &line, nil
}

func (m *mockAPI) UpdateCartItem(_ context.Context, itemID int64, quantity int) (*domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.updateCalls++
	if m.failUpdate {
		return nil, fmt.Errorf("database error")
	}
	for i := range m.items {
		if m.items[i].ID == itemID {
			m.items[i].Quantity = quantity
			line := m.items[i]
			return &line, nil
		}
	}
	return nil, fmt.Errorf("item not found")
}

func (m *mockAPI) ToggleSelected(_ context.Context, itemID int64) (*domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.toggleCalls++
	if m.failToggle {
		return nil, fmt.Errorf("database error")
	}
	for i := range m.items {
		if m.items[i].ID == itemID {
			m.items[i].Selected = !m.items[i].Selected
			line := m.items[i]
			return &line, nil
		}
	}
	return nil, fmt.Errorf("item not found")
}

func (m *mockAPI) SelectAllBySeller(_ context.Context, sellerID int64, selected bool) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.selectCalls == nil {
		m.selectCalls = make(map[int64]bool)
	}
	m.selectCalls[sellerID] = selected
	return nil
}

func (m *mockAPI) RemoveCartItem(_ context.Context, itemID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	for i := range m.items {
		if m.items[i].ID == itemID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item not found")
}

func (m *mockAPI) ClearCart(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.items = nil
	return nil
}

func loggedInSession() *auth.Session {
	s := auth.NewSession()
	s.SetCredentials("tok", &auth.User{ID: 1, FullName: "Test"})
	return s
}

func seededAPI() *mockAPI {
	sellerA := &domain.Seller{ID: 1, FullName: "Shop A"}
	sellerB := &domain.Seller{ID: 2, FullName: "Shop B"}
	return &mockAPI{
		items: []domain.CartItem{
			{ID: 11, Product: domain.Product{ID: 100, Price: 150_000, Stock: 5, Seller: sellerA}, Quantity: 2, Selected: true},
			{ID: 12, Product: domain.Product{ID: 101, Price: 90_000, Stock: 3, Seller: sellerB}, Quantity: 1, Selected: false},
		},
	}
}

func TestAddItem_RequiresAuthentication(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, auth.NewSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	err := sut.AddItem(context.Background(), 100, 1)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 0, api.addCalls, "no server call for unauthenticated add")
	assert.Equal(t, 3, sut.TotalItems(), "state untouched")
}

func TestAddItem_MergesQuantityIntoExistingLine(t *testing.T) {
	// Scenario: add 2 units of a product, then 1 more of the same product:
	// one line with quantity 3.
	api := &mockAPI{}
	sut := NewStore(api, loggedInSession(), nil, nil)

	require.NoError(t, sut.AddItem(context.Background(), 100, 2))
	require.NoError(t, sut.AddItem(context.Background(), 100, 1))

	cart := sut.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].Selected, "new lines start selected")
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)

	err := sut.AddItem(context.Background(), 100, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 0, api.addCalls)
}

func TestUpdateQuantity_BelowOneIsNoOp(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	require.NoError(t, sut.UpdateQuantity(context.Background(), 11, 0))
	assert.Equal(t, 0, api.updateCalls)
	c := sut.Cart()
	assert.Equal(t, 2, c.FindItem(11).Quantity)
}

func TestUpdateQuantity_ExceedsStockRejectedUnchanged(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	err := sut.UpdateQuantity(context.Background(), 11, 6) // stock is 5
	require.ErrorIs(t, err, ErrExceedsStock)
	assert.Equal(t, 0, api.updateCalls, "rejected before any server call")
	c := sut.Cart()
	assert.Equal(t, 2, c.FindItem(11).Quantity, "never clamped")
}

func TestUpdateQuantity_WithinRangeAccepted(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	require.NoError(t, sut.UpdateQuantity(context.Background(), 11, 5))
	c := sut.Cart()
	assert.Equal(t, 5, c.FindItem(11).Quantity)
	assert.Equal(t, 1, api.updateCalls)
}

func TestUpdateQuantity_RollsBackOnServerFailure(t *testing.T) {
	api := seededAPI()
	api.failUpdate = true
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	err := sut.UpdateQuantity(context.Background(), 11, 4)
	require.ErrorContains(t, err, "database error")
	c := sut.Cart()
	assert.Equal(t, 2, c.FindItem(11).Quantity, "local change rolled back")
}

func TestToggleSelection_AppliedOptimistically(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	require.NoError(t, sut.ToggleSelection(context.Background(), 12))
	c := sut.Cart()
	assert.True(t, c.FindItem(12).Selected)
	assert.Equal(t, 1, api.toggleCalls)
}

func TestToggleSelection_RollsBackAndSwallowsServerFailure(t *testing.T) {
	api := seededAPI()
	api.failToggle = true
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	err := sut.ToggleSelection(context.Background(), 12)
	require.NoError(t, err, "toggle failures are logged, not returned")
	c := sut.Cart()
	assert.False(t, c.FindItem(12).Selected, "flip rolled back")
}

func TestSelectedTotal_RecomputedAfterOperations(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	assert.Equal(t, int64(300_000), sut.SelectedTotal())

	require.NoError(t, sut.ToggleSelection(context.Background(), 12))
	assert.Equal(t, int64(390_000), sut.SelectedTotal())

	require.NoError(t, sut.UpdateQuantity(context.Background(), 11, 3))
	assert.Equal(t, int64(540_000), sut.SelectedTotal())

	require.NoError(t, sut.RemoveItem(context.Background(), 11))
	assert.Equal(t, int64(90_000), sut.SelectedTotal())
}

func TestSelectAll_SetsEveryLineAndNotifiesSellers(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	sut.SelectAll(context.Background(), true)
	for _, item := range sut.Cart().Items {
		assert.True(t, item.Selected)
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true}, api.selectCalls)

	sut.SelectAll(context.Background(), false)
	assert.Equal(t, int64(0), sut.SelectedTotal())
}

func TestRemoveItem_DropsLineAfterConfirmation(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	require.NoError(t, sut.RemoveItem(context.Background(), 11))
	c := sut.Cart()
	assert.Nil(t, c.FindItem(11))
	assert.Len(t, c.Items, 1)
}

func TestClear_EmptiesCartAfterConfirmation(t *testing.T) {
	api := seededAPI()
	sut := NewStore(api, loggedInSession(), nil, nil)
	require.NoError(t, sut.Reload(context.Background()))

	require.NoError(t, sut.Clear(context.Background()))
	assert.Empty(t, sut.Cart().Items)
	assert.Equal(t, 0, sut.TotalItems())
}

// Wire test: the merge semantics come from the backend, the store reconciles
// through reload.
func TestAddItem_MergeAgainstBackend(t *testing.T) {
	backend := backendtest.NewServer()
	backend.RegisterUser("tok-wire", 1)
	backend.AddProduct(domain.Product{ID: 100, Name: "X", Price: 50_000, Stock: 5, Seller: &domain.Seller{ID: 1, FullName: "Shop A"}})

	srv := httptest.NewServer(backend.Router())
	defer srv.Close()

	session := auth.NewSession()
	session.SetCredentials("tok-wire", &auth.User{ID: 1})
	client := apiclient.NewClient(srv.URL, session)
	sut := NewStore(service.NewCartService(client), session, nil, nil)

	require.NoError(t, sut.AddItem(context.Background(), 100, 2))
	require.NoError(t, sut.AddItem(context.Background(), 100, 1))

	cart := sut.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	// Stock bound enforced by the server on add as well.
	err := sut.AddItem(context.Background(), 100, 5)
	require.Error(t, err)
	after := sut.Cart()
	assert.Equal(t, 3, after.FindItem(cart.Items[0].ID).Quantity)
}
