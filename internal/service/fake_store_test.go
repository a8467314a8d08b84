package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"stock-assistant/internal/models"
	"stock-assistant/internal/store"
)

type stockKey struct {
	sellerID  int64
	productID int64
}

// fakeStore is an in-memory stand-in for the Postgres store, implementing the
// per-service store interfaces with the same transactional guarantees: a
// finalize or approval either applies all its adjustments or none, and
// terminal states reject a second resolution.
type fakeStore struct {
	mu            sync.Mutex
	sellers       map[int64]*models.Seller
	products      map[int64]*models.Product
	orders        map[int64]*models.Order
	orderItems    map[int64][]models.OrderItem
	stock         map[stockKey]int64
	movements     []models.StockMovement
	transfers     map[int64]*models.TransferRequest
	payments      map[int64]*models.SellerPayment
	purchases     map[int64]*models.Purchase
	purchaseItems map[int64][]models.PurchaseItem
	nextID        int64

	// commitErr, when set, fails the next write transaction.
	commitErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sellers:       make(map[int64]*models.Seller),
		products:      make(map[int64]*models.Product),
		orders:        make(map[int64]*models.Order),
		orderItems:    make(map[int64][]models.OrderItem),
		stock:         make(map[stockKey]int64),
		transfers:     make(map[int64]*models.TransferRequest),
		payments:      make(map[int64]*models.SellerPayment),
		purchases:     make(map[int64]*models.Purchase),
		purchaseItems: make(map[int64][]models.PurchaseItem),
		nextID:        1000,
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addSeller(id, telegramID int64, name string) {
	f.sellers[id] = &models.Seller{ID: id, TelegramID: telegramID, Name: name}
}

func (f *fakeStore) addProduct(id int64, name string, price, wholesale int64, purchasePrice *int64) {
	f.products[id] = &models.Product{
		ID: id, Name: name, Price: price, PriceSeller: wholesale, PurchasePrice: purchasePrice,
	}
}

func (f *fakeStore) addOrder(id int64, number string, sellerID int64, items map[int64]int) {
	f.orders[id] = &models.Order{
		ID: id, OrderNumber: number, SellerID: sellerID, Status: models.OrderStatusCompleted,
	}
	for productID, qty := range items {
		f.orderItems[id] = append(f.orderItems[id], models.OrderItem{
			ID: f.id(), OrderID: id, ProductID: productID, Quantity: qty,
		})
	}
}

func (f *fakeStore) setStock(sellerID, productID, qty int64) {
	f.stock[stockKey{sellerID, productID}] = qty
	f.movements = append(f.movements, models.StockMovement{
		ID: f.id(), SellerID: sellerID, ProductID: productID,
		QuantityChange: qty, Reason: models.ReasonCorrection, CreatedAt: time.Now(),
	})
}

func (f *fakeStore) apply(adj models.StockAdjustment) int64 {
	key := stockKey{adj.SellerID, adj.ProductID}
	f.stock[key] += adj.Delta
	f.movements = append(f.movements, models.StockMovement{
		ID: f.id(), SellerID: adj.SellerID, ProductID: adj.ProductID,
		QuantityChange: adj.Delta, Reason: adj.Reason, OrderID: adj.OrderID,
		CreatedAt: time.Now(),
	})
	return f.stock[key]
}

func (f *fakeStore) GetSellerByTelegramID(_ context.Context, telegramID int64) (*models.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sellers {
		if s.TelegramID == telegramID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("seller tg %d: %w", telegramID, models.ErrNotFound)
}

func (f *fakeStore) GetSellerByID(_ context.Context, id int64) (*models.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sellers[id]
	if !ok {
		return nil, fmt.Errorf("seller %d: %w", id, models.ErrNotFound)
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) GetSellers(_ context.Context) ([]models.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Seller, 0, len(f.sellers))
	for _, s := range f.sellers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetProducts(_ context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) AdjustStock(_ context.Context, adj models.StockAdjustment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apply(adj), nil
}

func (f *fakeStore) GetSellerStock(_ context.Context, sellerID, productID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[stockKey{sellerID, productID}], nil
}

func (f *fakeStore) GetStockBySeller(_ context.Context, sellerID int64) ([]models.StockLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StockLine
	for key, qty := range f.stock {
		if key.sellerID != sellerID {
			continue
		}
		out = append(out, models.StockLine{
			ProductID:   key.productID,
			ProductName: f.products[key.productID].Name,
			Quantity:    qty,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (f *fakeStore) GetNegativeStock(_ context.Context, sellerID int64) ([]models.StockLine, error) {
	lines, err := f.GetStockBySeller(nil, sellerID)
	if err != nil {
		return nil, err
	}
	var out []models.StockLine
	for _, line := range lines {
		if line.Quantity < 0 {
			out = append(out, line)
		}
	}
	return out, nil
}

func (f *fakeStore) SumMovements(_ context.Context, sellerID, productID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, m := range f.movements {
		if m.SellerID == sellerID && m.ProductID == productID {
			sum += m.QuantityChange
		}
	}
	return sum, nil
}

func (f *fakeStore) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			copied := *o
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", orderNumber, models.ErrNotFound)
}

func (f *fakeStore) GetOrderItems(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderItem(nil), f.orderItems[orderID]...), nil
}

func (f *fakeStore) GetPendingOrders(_ context.Context, sellerID int64) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.SellerID == sellerID && o.Status == models.OrderStatusCompleted && !o.StockProcessed {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) FinalizeOrder(_ context.Context, orderID int64, adjustments []models.StockAdjustment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	if o.StockProcessed {
		return fmt.Errorf("order %d: %w", orderID, models.ErrAlreadyProcessed)
	}
	for _, adj := range adjustments {
		f.apply(adj)
	}
	o.StockProcessed = true
	return nil
}

func (f *fakeStore) CreateTransferRequest(_ context.Context, req *models.TransferRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.ID = f.id()
	req.CreatedAt = time.Now()
	copied := *req
	f.transfers[req.ID] = &copied
	return nil
}

func (f *fakeStore) GetTransferRequest(_ context.Context, id int64) (*models.TransferRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.transfers[id]
	if !ok {
		return nil, fmt.Errorf("transfer %d: %w", id, models.ErrNotFound)
	}
	copied := *req
	return &copied, nil
}

func (f *fakeStore) GetPendingTransfers(_ context.Context, fromSellerID int64) ([]models.TransferRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TransferRequest
	for _, req := range f.transfers {
		if req.FromSellerID == fromSellerID && req.Status == models.TransferStatusPending {
			out = append(out, *req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ApproveTransfer(_ context.Context, id int64, adjustments []models.StockAdjustment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.transfers[id]
	if !ok {
		return fmt.Errorf("transfer %d: %w", id, models.ErrNotFound)
	}
	if req.Status != models.TransferStatusPending {
		return fmt.Errorf("transfer %d: %w", id, models.ErrAlreadyProcessed)
	}
	for _, adj := range adjustments {
		f.apply(adj)
	}
	now := time.Now()
	req.Status = models.TransferStatusApproved
	req.ProcessedAt = &now
	return nil
}

func (f *fakeStore) RejectTransfer(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.transfers[id]
	if !ok {
		return fmt.Errorf("transfer %d: %w", id, models.ErrNotFound)
	}
	if req.Status != models.TransferStatusPending {
		return fmt.Errorf("transfer %d: %w", id, models.ErrAlreadyProcessed)
	}
	now := time.Now()
	req.Status = models.TransferStatusRejected
	req.ProcessedAt = &now
	return nil
}

func (f *fakeStore) CreatePaymentRequest(_ context.Context, payment *models.SellerPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment.ID = f.id()
	payment.CreatedAt = time.Now()
	copied := *payment
	f.payments[payment.ID] = &copied
	return nil
}

func (f *fakeStore) GetPaymentRequest(_ context.Context, id int64) (*models.SellerPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", id, models.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) GetPendingPayments(_ context.Context) ([]models.SellerPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SellerPayment
	for _, p := range f.payments {
		if p.Status == models.PaymentStatusPending {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ConfirmPayment(_ context.Context, id, confirmedAmount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return fmt.Errorf("payment %d: %w", id, models.ErrNotFound)
	}
	if p.Status != models.PaymentStatusPending {
		return fmt.Errorf("payment %d: %w", id, models.ErrAlreadyProcessed)
	}
	now := time.Now()
	p.Status = models.PaymentStatusConfirmed
	p.ConfirmedAmount = &confirmedAmount
	p.ProcessedAt = &now
	return nil
}

func (f *fakeStore) CreatePurchase(_ context.Context, purchase *models.Purchase, items []models.PurchaseItem, adjustments []models.StockAdjustment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	purchase.ID = f.id()
	purchase.PurchaseDate = time.Now()
	copied := *purchase
	f.purchases[purchase.ID] = &copied
	for i := range items {
		items[i].ID = f.id()
		items[i].PurchaseID = purchase.ID
	}
	f.purchaseItems[purchase.ID] = append([]models.PurchaseItem(nil), items...)
	for _, adj := range adjustments {
		f.apply(adj)
	}
	return nil
}

func (f *fakeStore) GetPurchases(_ context.Context, limit int) ([]models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Purchase
	for _, p := range f.purchases {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetPurchase(_ context.Context, id int64) (*models.Purchase, []models.PurchaseItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.purchases[id]
	if !ok {
		return nil, nil, fmt.Errorf("purchase %d: %w", id, models.ErrNotFound)
	}
	copied := *p
	return &copied, append([]models.PurchaseItem(nil), f.purchaseItems[id]...), nil
}

func (f *fakeStore) SumProcessedSales(_ context.Context, sellerID int64, kind store.PriceKind) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, o := range f.orders {
		if o.SellerID != sellerID || o.Status != models.OrderStatusCompleted || !o.StockProcessed {
			continue
		}
		for _, item := range f.orderItems[o.ID] {
			p := f.products[item.ProductID]
			switch kind {
			case store.PriceBuyer:
				sum += p.Price * int64(item.Quantity)
			case store.PriceWholesale:
				sum += p.PriceSeller * int64(item.Quantity)
			}
		}
	}
	return sum, nil
}

func (f *fakeStore) SumConfirmedPayments(_ context.Context, sellerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, p := range f.payments {
		if p.SellerID == sellerID && p.Status == models.PaymentStatusConfirmed && p.ConfirmedAmount != nil {
			sum += *p.ConfirmedAmount
		}
	}
	return sum, nil
}

// movementsFor counts ledger rows for one (seller, product) pair with a given
// reason, for asserting exactly-once semantics.
func (f *fakeStore) movementsFor(sellerID, productID int64, reason string) []models.StockMovement {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StockMovement
	for _, m := range f.movements {
		if m.SellerID == sellerID && m.ProductID == productID && m.Reason == reason {
			out = append(out, m)
		}
	}
	return out
}

// fakeNotifier records sent messages per chat.
type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int64][]Reply
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[int64][]Reply)}
}

func (n *fakeNotifier) Send(_ context.Context, chatID int64, reply Reply) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[chatID] = append(n.sent[chatID], reply)
	return nil
}

func (n *fakeNotifier) sentTo(chatID int64) []Reply {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Reply(nil), n.sent[chatID]...)
}

// fakePublisher records published domain events by type.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) record(eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *fakePublisher) PublishOrderProcessed(_ context.Context, e *models.OrderProcessedEvent) error {
	p.record(e.EventType)
	return nil
}

func (p *fakePublisher) PublishTransferResolved(_ context.Context, e *models.TransferResolvedEvent) error {
	p.record(e.EventType)
	return nil
}

func (p *fakePublisher) PublishPaymentConfirmed(_ context.Context, e *models.PaymentConfirmedEvent) error {
	p.record(e.EventType)
	return nil
}

func (p *fakePublisher) PublishPurchaseRecorded(_ context.Context, e *models.PurchaseRecordedEvent) error {
	p.record(e.EventType)
	return nil
}
