// Package backendtest is an in-memory storefront backend speaking the same
// HTTP/JSON surface as the real one. Package tests point the API client at
// it instead of a deployed server.
package backendtest

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HaVuDong/ecome-customer-app/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

type intentState struct {
	intent domain.PaymentIntent
	status domain.PaymentStatus
}

type Server struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	carts    map[int64][]domain.CartItem
	orders   map[int64]*domain.Order
	intents  map[int64]*intentState
	tokens   map[string]int64
	seen     map[string][]domain.Order // idempotency key -> created orders
	nextID   int64

	// IntentTTL bounds generated intents; tests shorten it to force expiry.
	IntentTTL time.Duration
	// FailToggle / FailUpdate make the matching endpoint answer 500.
	FailToggle bool
	FailUpdate bool
	// FailStatus makes the status poll answer 500 (transport-failure tests).
	FailStatus bool
}

func NewServer() *Server {
	return &Server{
		products:  make(map[int64]domain.Product),
		carts:     make(map[int64][]domain.CartItem),
		orders:    make(map[int64]*domain.Order),
		intents:   make(map[int64]*intentState),
		tokens:    make(map[string]int64),
		seen:      make(map[string][]domain.Order),
		nextID:    1000,
		IntentTTL: 5 * time.Minute,
	}
}

// RegisterUser maps a bearer token to a user id.
func (s *Server) RegisterUser(token string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
}

func (s *Server) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// ConfirmPayment flips an active intent to PAID, simulating the bank side.
func (s *Server) ConfirmPayment(orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markPaidLocked(orderID)
}

func (s *Server) Order(orderID int64) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", s.withUser(s.getCart))
		r.Get("/grouped", s.withUser(s.getCartGrouped))
		r.Get("/selected", s.withUser(s.getSelected))
		r.Get("/total", s.withUser(s.getTotal))
		r.Post("/add", s.withUser(s.addItem))
		r.Post("/checkout", s.withUser(s.checkout))
		r.Delete("/clear", s.withUser(s.clearCart))
		r.Put("/seller/{sellerID}/select", s.withUser(s.selectBySeller))
		r.Put("/{itemID}/toggle", s.withUser(s.toggleItem))
		r.Put("/{itemID}", s.withUser(s.updateItem))
		r.Delete("/{itemID}", s.withUser(s.removeItem))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Get("/bank-info", s.withUser(s.bankInfo))
		r.Post("/qr/{orderID}", s.withUser(s.generateIntent))
		r.Get("/qr/{orderID}/status", s.withUser(s.paymentStatus))
		r.Post("/qr/{orderID}/cancel", s.withUser(s.cancelIntent))
		r.Post("/qr/{orderID}/confirm", s.withUser(s.confirmIntent))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/my", s.withUser(s.myOrders))
		r.Get("/{orderID}", s.withUser(s.getOrder))
		r.Put("/{orderID}/cancel", s.withUser(s.cancelOrder))
	})

	return r
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		s.mu.Lock()
		userID, ok := s.tokens[token]
		s.mu.Unlock()
		if header == "" || !ok {
			respondError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	items := append([]domain.CartItem(nil), s.carts[userID]...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) getCartGrouped(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	cart := domain.Cart{Items: append([]domain.CartItem(nil), s.carts[userID]...)}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, cart.GroupBySeller())
}

func (s *Server) getSelected(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	cart := domain.Cart{Items: append([]domain.CartItem(nil), s.carts[userID]...)}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, cart.SelectedItems())
}

func (s *Server) getTotal(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	cart := domain.Cart{Items: s.carts[userID]}
	total := cart.SelectedTotal()
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]int64{"total": total})
}

// addItem merges quantity into an existing line for the same product.
func (s *Server) addItem(w http.ResponseWriter, r *http.Request, userID int64) {
	productID, err1 := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
	quantity, err2 := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err1 != nil || err2 != nil || quantity < 1 {
		respondError(w, http.StatusBadRequest, "invalid productId or quantity")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	items := s.carts[userID]
	for i := range items {
		if items[i].Product.ID == productID {
			if items[i].Quantity+quantity > product.Stock {
				respondError(w, http.StatusBadRequest, "quantity exceeds stock")
				return
			}
			items[i].Quantity += quantity
			s.carts[userID] = items
			respondJSON(w, http.StatusOK, items[i])
			return
		}
	}

	if quantity > product.Stock {
		respondError(w, http.StatusBadRequest, "quantity exceeds stock")
		return
	}
	line := domain.CartItem{
		ID:       s.allocID(),
		Product:  product,
		Quantity: quantity,
		Selected: true,
	}
	s.carts[userID] = append(items, line)
	respondJSON(w, http.StatusCreated, line)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request, userID int64) {
	if s.FailUpdate {
		respondError(w, http.StatusInternalServerError, "simulated update failure")
		return
	}
	itemID := pathID(r, "itemID")
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity < 1 {
		respondError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	for i := range items {
		if items[i].ID == itemID {
			if quantity > items[i].Product.Stock {
				respondError(w, http.StatusBadRequest, "quantity exceeds stock")
				return
			}
			items[i].Quantity = quantity
			respondJSON(w, http.StatusOK, items[i])
			return
		}
	}
	respondError(w, http.StatusNotFound, "cart item not found")
}

func (s *Server) toggleItem(w http.ResponseWriter, r *http.Request, userID int64) {
	if s.FailToggle {
		respondError(w, http.StatusInternalServerError, "simulated toggle failure")
		return
	}
	itemID := pathID(r, "itemID")

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	for i := range items {
		if items[i].ID == itemID {
			items[i].Selected = !items[i].Selected
			respondJSON(w, http.StatusOK, items[i])
			return
		}
	}
	respondError(w, http.StatusNotFound, "cart item not found")
}

func (s *Server) selectBySeller(w http.ResponseWriter, r *http.Request, userID int64) {
	sellerID := pathID(r, "sellerID")
	selected := r.URL.Query().Get("selected") == "true"

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	for i := range items {
		if items[i].Product.Seller != nil && items[i].Product.Seller.ID == sellerID {
			items[i].Selected = selected
		}
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request, userID int64) {
	itemID := pathID(r, "itemID")

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[userID]
	for i := range items {
		if items[i].ID == itemID {
			s.carts[userID] = append(items[:i], items[i+1:]...)
			respondJSON(w, http.StatusOK, nil)
			return
		}
	}
	respondError(w, http.StatusNotFound, "cart item not found")
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	s.carts[userID] = nil
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, nil)
}

type checkoutRequest struct {
	CartItemIDs     []int64 `json:"cartItemIds"`
	ShippingName    string  `json:"shippingName"`
	ShippingPhone   string  `json:"shippingPhone"`
	ShippingAddress string  `json:"shippingAddress"`
	PaymentMethod   string  `json:"paymentMethod"`
	Note            string  `json:"note"`
	VoucherCode     string  `json:"voucherCode"`
}

// checkout partitions the referenced lines by seller and creates one order
// per seller. The purchased lines are consumed from the cart.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request, userID int64) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.CartItemIDs) == 0 {
		respondError(w, http.StatusBadRequest, "no cart items referenced")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		if orders, ok := s.seen[key]; ok {
			respondJSON(w, http.StatusOK, orders)
			return
		}
	}

	wanted := make(map[int64]bool, len(req.CartItemIDs))
	for _, id := range req.CartItemIDs {
		wanted[id] = true
	}

	var purchased []domain.CartItem
	var remaining []domain.CartItem
	for _, item := range s.carts[userID] {
		if wanted[item.ID] {
			if item.Quantity > item.Product.Stock {
				respondError(w, http.StatusConflict, fmt.Sprintf("stock changed for product %q", item.Product.Name))
				return
			}
			purchased = append(purchased, item)
		} else {
			remaining = append(remaining, item)
		}
	}
	if len(purchased) == 0 {
		respondError(w, http.StatusBadRequest, "referenced cart items not found")
		return
	}

	groups := (&domain.Cart{Items: purchased}).GroupBySeller()
	fee := int64(30_000)
	var selectedTotal int64
	for _, g := range groups {
		selectedTotal += g.Subtotal
	}
	if selectedTotal >= 500_000 {
		fee = 0
	}

	now := time.Now()
	var orders []domain.Order
	for i, g := range groups {
		order := domain.Order{
			ID:              s.allocID(),
			OrderCode:       "OD-" + uuid.NewString()[:8],
			UserID:          userID,
			SellerID:        g.SellerID,
			SellerName:      g.SellerName,
			TotalAmount:     g.Subtotal,
			PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
			PaymentStatus:   domain.PaymentStatusPending,
			ShippingStatus:  domain.ShippingStatusPending,
			ShippingName:    req.ShippingName,
			ShippingPhone:   req.ShippingPhone,
			ShippingAddress: req.ShippingAddress,
			Note:            req.Note,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if i == 0 {
			order.ShippingFee = fee
		}
		order.FinalAmount = order.TotalAmount + order.ShippingFee - order.DiscountAmount
		for _, item := range g.Items {
			order.Items = append(order.Items, domain.OrderItem{
				ID:        s.allocID(),
				ProductID: item.Product.ID,
				Quantity:  item.Quantity,
				Price:     item.Product.Price,
			})
		}
		stored := order
		s.orders[order.ID] = &stored
		orders = append(orders, order)
	}

	s.carts[userID] = remaining
	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		s.seen[key] = orders
	}
	respondJSON(w, http.StatusCreated, orders)
}

func (s *Server) generateIntent(w http.ResponseWriter, r *http.Request, userID int64) {
	orderID := pathID(r, "orderID")

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}

	intent := domain.PaymentIntent{
		OrderID:       orderID,
		QrCodeURL:     fmt.Sprintf("https://img.vietqr.io/image/%d.png", orderID),
		TransactionID: "TXN-" + uuid.NewString()[:12],
		ExpiredAt:     time.Now().Add(s.IntentTTL),
		ExpiryMinutes: int(s.IntentTTL / time.Minute),
		Amount:        order.FinalAmount,
		BankID:        "MB",
		BankAccount:   "0000123456789",
		AccountName:   "ECOME JSC",
	}
	s.intents[orderID] = &intentState{intent: intent, status: domain.PaymentStatusPending}
	respondJSON(w, http.StatusCreated, intent)
}

func (s *Server) paymentStatus(w http.ResponseWriter, r *http.Request, userID int64) {
	if s.FailStatus {
		respondError(w, http.StatusInternalServerError, "simulated status failure")
		return
	}
	orderID := pathID(r, "orderID")

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}

	state := domain.PaymentState{
		OrderID:       orderID,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Amount:        order.FinalAmount,
	}
	if it, okIntent := s.intents[orderID]; okIntent {
		state.TransactionID = it.intent.TransactionID
		if time.Now().After(it.intent.ExpiredAt) && it.status == domain.PaymentStatusPending {
			state.IsQrExpired = true
			expiredAt := it.intent.ExpiredAt
			state.QrExpiredAt = &expiredAt
		}
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) cancelIntent(w http.ResponseWriter, r *http.Request, userID int64) {
	orderID := pathID(r, "orderID")

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	delete(s.intents, orderID)
	// Cancelling the QR falls the order back to cash on delivery.
	order.PaymentMethod = domain.PaymentMethodCOD
	order.UpdatedAt = time.Now()
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) confirmIntent(w http.ResponseWriter, r *http.Request, userID int64) {
	orderID := pathID(r, "orderID")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	s.markPaidLocked(orderID)
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) markPaidLocked(orderID int64) {
	order, ok := s.orders[orderID]
	if !ok {
		return
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	order.UpdatedAt = time.Now()
	if it, okIntent := s.intents[orderID]; okIntent {
		it.status = domain.PaymentStatusPaid
	}
}

func (s *Server) bankInfo(w http.ResponseWriter, r *http.Request, userID int64) {
	respondJSON(w, http.StatusOK, domain.BankInfo{
		BankID:        "MB",
		BankName:      "MB Bank",
		AccountNumber: "0000123456789",
		AccountName:   "ECOME JSC",
	})
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var content []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			content = append(content, *o)
		}
	}
	respondJSON(w, http.StatusOK, domain.Page[domain.Order]{
		Content:       content,
		TotalElements: len(content),
		TotalPages:    1,
		Size:          len(content),
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request, userID int64) {
	orderID := pathID(r, "orderID")
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.UserID != userID {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	respondJSON(w, http.StatusOK, *order)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request, userID int64) {
	orderID := pathID(r, "orderID")
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.UserID != userID {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.ShippingStatus != domain.ShippingStatusPending {
		respondError(w, http.StatusConflict, "order can no longer be cancelled")
		return
	}
	order.ShippingStatus = domain.ShippingStatusCancelled
	order.PaymentStatus = domain.PaymentStatusCancelled
	order.UpdatedAt = time.Now()
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) allocID() int64 {
	s.nextID++
	return s.nextID
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := envelope{Success: true, Message: "OK", Data: data, Timestamp: time.Now().Format(time.RFC3339)}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("backendtest: failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := envelope{Success: false, Message: message, Timestamp: time.Now().Format(time.RFC3339)}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("backendtest: failed to encode response: %v", err)
	}
}
