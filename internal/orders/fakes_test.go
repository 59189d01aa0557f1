package orders

import (
	"context"
	"sync"
	"time"

	"github.com/joao-fontenele/studyshop/internal/domain"
)

type memoryCoupons struct {
	mu      sync.Mutex
	coupons map[int64]*domain.Coupon
}

func (m *memoryCoupons) FindActiveByCode(_ context.Context, code string) (*domain.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.coupons {
		if c.Code == domain.CanonicalCouponCode(code) && c.Active {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// redeem mirrors the conditional increment of the Postgres repository.
func (m *memoryCoupons) redeem(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok || !c.Active || c.Exhausted() {
		return domain.ErrCouponExhausted
	}
	c.UsedCount++
	return nil
}

// storedAt is what the fake database stamps as created_at.
var storedAt = time.Date(2026, 10, 17, 2, 15, 0, 0, time.UTC)

type memoryStore struct {
	mu        sync.Mutex
	orders    map[int64]*domain.Order
	nextID    int64
	coupons   *memoryCoupons
	createErr error
	reads     int
}

func newMemoryStore(coupons *memoryCoupons) *memoryStore {
	return &memoryStore{orders: map[int64]*domain.Order{}, nextID: 1_000_001, coupons: coupons}
}

func clone(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.CartItem(nil), o.Items...)
	return &cp
}

func (s *memoryStore) Create(_ context.Context, order *domain.Order, couponID *int64) error {
	if s.createErr != nil {
		return s.createErr
	}
	if couponID != nil {
		if err := s.coupons.redeem(*couponID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = s.nextID
	s.nextID++
	order.CreatedAt = storedAt
	order.UpdatedAt = storedAt
	s.orders[order.ID] = clone(order)
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return clone(o), nil
}

func (s *memoryStore) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *clone(o))
		}
	}
	return out, nil
}

func (s *memoryStore) List(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range s.orders {
		if status == "" || o.Status == status {
			out = append(out, *clone(o))
		}
	}
	return out, nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	o.Status = status
	return clone(o), nil
}

func (s *memoryStore) UpdateContents(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	s.orders[order.ID] = clone(order)
	return nil
}

type recordingProfiles struct {
	mu    sync.Mutex
	calls []domain.CustomerInfo
	err   error
}

func (p *recordingProfiles) Backfill(_ context.Context, _ string, info domain.CustomerInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, info)
	return p.err
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.ReceiptRequested
	keys   []string
}

func (d *recordingDispatcher) Submit(_ context.Context, key string, event any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, key)
	d.events = append(d.events, event.(domain.ReceiptRequested))
}

type memoryCache struct {
	orders  map[int64]domain.Order
	deletes int
}

func (c *memoryCache) Get(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := c.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (c *memoryCache) Set(_ context.Context, order *domain.Order) error {
	c.orders[order.ID] = *order
	return nil
}

func (c *memoryCache) Delete(_ context.Context, id int64) error {
	c.deletes++
	delete(c.orders, id)
	return nil
}
