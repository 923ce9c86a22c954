package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
)

func validMoMoConfig() config.MoMoConfig {
	return config.MoMoConfig{
		APIUser:           "api-user",
		APIKey:            "api-key",
		SubscriptionKey:   "sub-key",
		CallbackURL:       "https://shop.example/payment-callback",
		BaseURL:           "https://sandbox.momodeveloper.mtn.com",
		TargetEnvironment: "sandbox",
		Currency:          "RWF",
	}
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) GetAccessToken(ctx context.Context) (*models.AccessToken, error) {
	args := m.Called(ctx)
	if t, ok := args.Get(0).(*models.AccessToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) RequestToPay(ctx context.Context, accessToken string, req models.RequestToPay) error {
	return m.Called(ctx, accessToken, req).Error(0)
}

func (m *mockProvider) GetRequestToPayStatus(ctx context.Context, accessToken, referenceID string) (*models.CallbackPayload, error) {
	args := m.Called(ctx, accessToken, referenceID)
	if p, ok := args.Get(0).(*models.CallbackPayload); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// memTransactions mirrors the conditional writes of the Postgres store.
type memTransactions struct {
	mu        sync.Mutex
	rows      map[string]*models.Transaction
	createErr error
	updateErr error
}

func newMemTransactions() *memTransactions {
	return &memTransactions{rows: map[string]*models.Transaction{}}
}

func (r *memTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, row := range r.rows {
		if row.ReferenceID == tx.ReferenceID {
			return errors.New("duplicate reference id")
		}
	}
	cp := *tx
	r.rows[tx.ID] = &cp
	return nil
}

func (r *memTransactions) GetByReferenceID(ctx context.Context, referenceID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ReferenceID == referenceID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (r *memTransactions) ApplyTransition(ctx context.Context, u models.TransitionUpdate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return 0, r.updateErr
	}
	row, ok := r.rows[u.TransactionID]
	if !ok || row.Status != u.From {
		return 0, nil
	}
	row.Status = u.To
	if len(u.CallbackData) > 0 {
		row.CallbackData = u.CallbackData
	}
	if u.ExternalID != "" {
		row.ExternalID = u.ExternalID
	}
	if u.ErrorMessage != "" {
		row.ErrorMessage = u.ErrorMessage
	}
	if u.PaidAt != nil {
		row.PaidAt = u.PaidAt
	}
	if u.ClaimFanout {
		at := u.At
		row.FanoutClaimedAt = &at
	}
	row.UpdatedAt = u.At
	return 1, nil
}

func (r *memTransactions) ClaimFanout(ctx context.Context, transactionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[transactionID]
	if !ok || row.Status != models.StatusSuccess || row.FanoutClaimedAt != nil {
		return 0, nil
	}
	now := time.Now()
	row.FanoutClaimedAt = &now
	return 1, nil
}

func (r *memTransactions) RefreshCallbackData(ctx context.Context, transactionID string, payload json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[transactionID]; ok {
		row.CallbackData = payload
	}
	return nil
}

func (r *memTransactions) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *memTransactions) only() models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		return *row
	}
	return models.Transaction{}
}

// memShop is a read-then-write store for orders, stock, carts and earnings.
type memShop struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	stock    map[string]int
	carts    map[string]int64
	earnings map[string]models.SellerEarnings
	emails   map[string]string

	markPaidCalls int
	markPaidErr   error
	stockWrites   int
}

func newMemShop() *memShop {
	return &memShop{
		orders:   map[string]*models.Order{},
		stock:    map[string]int{},
		carts:    map[string]int64{},
		earnings: map[string]models.SellerEarnings{},
		emails:   map[string]string{},
	}
}

func (s *memShop) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memShop) MarkPaid(ctx context.Context, orderID, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markPaidErr != nil {
		return s.markPaidErr
	}
	o, ok := s.orders[orderID]
	if !ok {
		return interfaces.ErrNotFound
	}
	s.markPaidCalls++
	o.Status = models.OrderStatusPaid
	o.PaymentStatus = models.PaymentStatusPaid
	o.TransactionID = transactionID
	return nil
}

func (s *memShop) GetStock(ctx context.Context, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.stock[productID]
	if !ok {
		return 0, interfaces.ErrNotFound
	}
	return q, nil
}

func (s *memShop) SetStock(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockWrites++
	s.stock[productID] = quantity
	return nil
}

func (s *memShop) ClearCart(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.carts[userID]
	delete(s.carts, userID)
	return n, nil
}

func (s *memShop) GetEarnings(ctx context.Context, sellerID string) (models.SellerEarnings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.earnings[sellerID]
	if !ok {
		return models.SellerEarnings{}, interfaces.ErrNotFound
	}
	return e, nil
}

func (s *memShop) SetEarnings(ctx context.Context, e models.SellerEarnings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.earnings[e.SellerID] = e
	return nil
}

func (s *memShop) GetEmail(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emails[userID]
	if !ok {
		return "", interfaces.ErrNotFound
	}
	return e, nil
}

func (s *memShop) stockOf(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}

func (s *memShop) earningsOf(sellerID string) models.SellerEarnings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.earnings[sellerID]
}

func (s *memShop) order(orderID string) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[orderID]
}

// atomicShop adds the single-statement capabilities of the Postgres stores.
type atomicShop struct {
	*memShop
	decrements int
	increments int
}

func (s *atomicShop) DecrementStock(ctx context.Context, productID string, quantity int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.stock[productID]
	if !ok {
		return 0, interfaces.ErrNotFound
	}
	s.decrements++
	q -= quantity
	if q < 0 {
		q = 0
	}
	s.stock[productID] = q
	return q, nil
}

func (s *atomicShop) IncrementEarnings(ctx context.Context, sellerID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.earnings[sellerID]
	if !ok {
		return interfaces.ErrNotFound
	}
	s.increments++
	e.TotalEarnings = e.TotalEarnings.Add(amount)
	e.PendingPayout = e.PendingPayout.Add(amount)
	s.earnings[sellerID] = e
	return nil
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return func() {}, nil
}

type recordingTasks struct {
	mu    sync.Mutex
	tasks []models.EmailTask
	err   error
}

func (q *recordingTasks) EnqueueEmail(ctx context.Context, task models.EmailTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *recordingTasks) all() []models.EmailTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.EmailTask(nil), q.tasks...)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.StateChangedEvent
}

func (p *recordingEvents) PublishStateChanged(ctx context.Context, event models.StateChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingEvents) all() []models.StateChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.StateChangedEvent(nil), p.events...)
}

// seedShop stocks one order o1 for user u1 from seller s1: two units of p1.
func seedShop(s *memShop) {
	s.orders["o1"] = &models.Order{
		ID:          "o1",
		UserID:      "u1",
		SellerID:    "s1",
		Status:      "pending",
		TotalAmount: decimal.NewFromInt(1000),
		CreatedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Items: []models.OrderItem{
			{ProductID: "p1", ProductName: "Basket", Quantity: 2, PriceAtTime: decimal.NewFromInt(500)},
		},
	}
	s.stock["p1"] = 10
	s.carts["u1"] = 3
	s.earnings["s1"] = models.SellerEarnings{
		SellerID:      "s1",
		TotalEarnings: decimal.NewFromInt(100),
		PendingPayout: decimal.NewFromInt(40),
	}
	s.emails["u1"] = "buyer@example.com"
}

// pendingTx is the transaction initiation would have stored for order o1.
func pendingTx(ref string) *models.Transaction {
	fee, earnings := models.SplitAmount(decimal.NewFromInt(1000))
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &models.Transaction{
		ID:             "tx-" + ref,
		OrderID:        "o1",
		UserID:         "u1",
		SellerID:       "s1",
		Amount:         decimal.NewFromInt(1000),
		Currency:       "RWF",
		PaymentMethod:  models.PaymentMethodMoMo,
		Status:         models.StatusPending,
		PlatformFee:    fee,
		SellerEarnings: earnings,
		ReferenceID:    ref,
		ExternalID:     "o1",
		PhoneNumber:    "250788123456",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
