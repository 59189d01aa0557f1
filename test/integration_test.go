//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/studyshop/internal/auth"
	"github.com/joao-fontenele/studyshop/internal/catalog"
	"github.com/joao-fontenele/studyshop/internal/coupons"
	"github.com/joao-fontenele/studyshop/internal/domain"
	"github.com/joao-fontenele/studyshop/internal/email"
	"github.com/joao-fontenele/studyshop/internal/messaging"
	"github.com/joao-fontenele/studyshop/internal/orders"
	"github.com/joao-fontenele/studyshop/internal/profiles"
	"github.com/joao-fontenele/studyshop/internal/receipt"
	"github.com/joao-fontenele/studyshop/internal/storefront"
	"github.com/joao-fontenele/studyshop/internal/worker"
)

const jwtSecret = "integration-secret"

type stack struct {
	db       *sql.DB
	coupons  *coupons.Repository
	orders   *orders.OrderRepository
	profiles *profiles.Repository
	server   *httptest.Server
}

func newStack(t *testing.T, db *sql.DB, receipts orders.Dispatcher, opts ...orders.Option) *stack {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	couponRepo := coupons.NewRepository(db)
	orderRepo := orders.NewOrderRepository(db, couponRepo)
	profileRepo := profiles.NewRepository(db)
	validator := coupons.NewValidator(couponRepo)

	service := orders.NewService(orderRepo, validator, profileRepo, receipts, logger, opts...)
	router := storefront.Router{
		Orders:  orders.NewHandler(service, logger),
		Coupons: coupons.NewHandler(validator, couponRepo, logger),
		Catalog: catalog.NewHandler(catalog.NewProductRepository(db), logger),
		Auth:    auth.NewAuthenticator(jwtSecret),
		Ready:   db.PingContext,
		Logger:  logger,
	}
	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)

	return &stack{db: db, coupons: couponRepo, orders: orderRepo, profiles: profileRepo, server: server}
}

func (s *stack) get(t *testing.T, userID, path string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	return s.do(t, http.MethodGet, userID, path, "")
}

func (s *stack) post(t *testing.T, userID, path, payload string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	return s.do(t, http.MethodPost, userID, path, payload)
}

func (s *stack) do(t *testing.T, method, userID, path, payload string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	token, err := auth.NewAuthenticator(jwtSecret).Issue(auth.Identity{UserID: userID}, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	req, err := http.NewRequest(method, s.server.URL+path, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp, body
}

func seedCoupon(ctx context.Context, t *testing.T, repo *coupons.Repository, code string, maxUses *int) *domain.Coupon {
	t.Helper()

	c := &domain.Coupon{
		Code:          code,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		MinOrderValue: 100000,
		MaxUses:       maxUses,
		Active:        true,
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("failed to seed coupon: %v", err)
	}
	return c
}

func orderBody(couponCode string) string {
	return `{
		"items": [
			{"id": 1, "code": "KH01", "name": "Khóa học Giải tích", "price": 150000, "category": "course"},
			{"id": "2", "name": "Tài liệu Vật lý", "price": 50000, "category": "document"}
		],
		"customerInfo": {"name": "  Nguyễn Văn A ", "studentId": "SE123456", "email": "a@example.com"},
		"total": 200000,
		"couponCode": "` + couponCode + `"
	}`
}

type noopDispatcher struct{}

func (noopDispatcher) Submit(context.Context, string, any) {}

func TestCreateOrderWithCoupon(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := StartPostgres(ctx, t)

	s := newStack(t, db, noopDispatcher{})
	coupon := seedCoupon(ctx, t, s.coupons, "SAVE10", nil)

	if _, err := db.ExecContext(ctx, `INSERT INTO profiles (id, full_name) VALUES ($1, '')`, "user-1"); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	resp, body := s.post(t, "user-1", "/orders", orderBody("save10"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body["error"])
	}

	var created domain.Order
	if err := json.Unmarshal(body["order"], &created); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if created.Subtotal != 200000 || created.DiscountAmount != 20000 || created.Total != 180000 {
		t.Fatalf("unexpected amounts: subtotal=%d discount=%d total=%d", created.Subtotal, created.DiscountAmount, created.Total)
	}

	stored, err := s.orders.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if stored == nil {
		t.Fatal("order not found in database")
	}
	if stored.CustomerInfo.Name != "Nguyễn Văn A" {
		t.Fatalf("expected trimmed name, got %q", stored.CustomerInfo.Name)
	}
	if stored.Items[0].ID != "1" {
		t.Fatalf("expected numeric item id stored as string, got %q", stored.Items[0].ID)
	}
	if stored.CouponCode == nil || *stored.CouponCode != "SAVE10" {
		t.Fatalf("expected coupon code SAVE10, got %v", stored.CouponCode)
	}

	reloaded, err := s.coupons.GetByID(ctx, coupon.ID)
	if err != nil {
		t.Fatalf("failed to reload coupon: %v", err)
	}
	if reloaded.UsedCount != 1 {
		t.Fatalf("expected used_count 1, got %d", reloaded.UsedCount)
	}

	profile, err := s.profiles.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to fetch profile: %v", err)
	}
	if profile.StudentID != "SE123456" || profile.FullName != "Nguyễn Văn A" {
		t.Fatalf("expected backfilled profile, got %+v", profile)
	}
}

func TestValidateCouponDoesNotConsumeUses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := StartPostgres(ctx, t)

	s := newStack(t, db, noopDispatcher{})
	coupon := seedCoupon(ctx, t, s.coupons, "SAVE10", nil)

	for i := 0; i < 3; i++ {
		resp, body := s.post(t, "user-1", "/coupons/validate", `{"couponCode":"Save10","orderTotal":200000}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body["error"])
		}
	}

	resp, body := s.post(t, "user-1", "/coupons/validate", `{"couponCode":"SAVE10","orderTotal":50000}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400 below minimum, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body["error"]), "100.000đ") {
		t.Fatalf("expected formatted minimum in message, got %s", body["error"])
	}

	reloaded, err := s.coupons.GetByID(ctx, coupon.ID)
	if err != nil {
		t.Fatalf("failed to reload coupon: %v", err)
	}
	if reloaded.UsedCount != 0 {
		t.Fatalf("expected used_count 0 after validation only, got %d", reloaded.UsedCount)
	}
}

func TestConcurrentRedemptionsRespectMaxUses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := StartPostgres(ctx, t)

	s := newStack(t, db, noopDispatcher{})
	maxUses := 3
	coupon := seedCoupon(ctx, t, s.coupons, "LIMIT3", &maxUses)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order := &domain.Order{
				UserID:   "user-race",
				Items:    []domain.CartItem{{ID: "1", Name: "Khóa học", Price: 200000, Category: domain.CategoryCourse}},
				Status:   domain.OrderStatusPending,
				Subtotal: 200000, DiscountAmount: 20000, Total: 180000,
			}
			if err := s.orders.Create(ctx, order, &coupon.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != maxUses {
		t.Fatalf("expected %d successful redemptions, got %d", maxUses, succeeded)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = 'user-race'`).Scan(&count); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if count != maxUses {
		t.Fatalf("expected %d persisted orders, got %d", maxUses, count)
	}

	reloaded, err := s.coupons.GetByID(ctx, coupon.ID)
	if err != nil {
		t.Fatalf("failed to reload coupon: %v", err)
	}
	if reloaded.UsedCount != maxUses {
		t.Fatalf("expected used_count %d, got %d", maxUses, reloaded.UsedCount)
	}
}

func TestCatalogRepository(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := StartPostgres(ctx, t)

	repo := catalog.NewProductRepository(db)

	products := []*domain.Product{
		{Code: "KH01", Name: "Giải tích 1", Price: 150000, Category: domain.CategoryCourse, Active: true},
		{Code: "TL01", Name: "Đề cương Vật lý", Price: 50000, Category: domain.CategoryDocument, Active: true},
		{Code: "KH02", Name: "Khóa ẩn", Price: 90000, Category: domain.CategoryCourse, Active: false},
	}
	for _, p := range products {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("failed to create product %s: %v", p.Code, err)
		}
	}

	if err := repo.Create(ctx, &domain.Product{Code: "KH01", Name: "Trùng", Category: domain.CategoryCourse}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate code, got %v", err)
	}

	courses, err := repo.List(ctx, domain.CategoryCourse, true)
	if err != nil {
		t.Fatalf("failed to list products: %v", err)
	}
	if len(courses) != 1 || courses[0].Code != "KH01" {
		t.Fatalf("expected only the active course, got %+v", courses)
	}

	all, err := repo.List(ctx, "", false)
	if err != nil {
		t.Fatalf("failed to list products: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}

	if err := repo.Delete(ctx, products[2].ID); err != nil {
		t.Fatalf("failed to delete product: %v", err)
	}
	missing, err := repo.GetByID(ctx, products[2].ID)
	if err != nil || missing != nil {
		t.Fatalf("expected deleted product to be gone, got %+v, %v", missing, err)
	}
}

func TestOrderReadsThroughRedisCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := StartPostgres(ctx, t)
	rdb := redis.NewClient(&redis.Options{Addr: StartRedis(ctx, t)})
	defer func() { _ = rdb.Close() }()

	cache := orders.NewRedisCache(rdb, time.Minute)
	s := newStack(t, db, noopDispatcher{}, orders.WithCache(cache))

	resp, body := s.post(t, "user-3", "/orders", orderBody(""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body["error"])
	}
	var created domain.Order
	if err := json.Unmarshal(body["order"], &created); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	path := "/orders/" + strconv.FormatInt(created.ID, 10)
	_, first := s.get(t, "user-3", path)

	cached, err := cache.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("failed to read cache: %v", err)
	}
	if cached == nil || cached.Total != 200000 {
		t.Fatalf("expected order snapshot in cache, got %+v", cached)
	}

	_, second := s.get(t, "user-3", path)
	if string(first["order"]) != string(second["order"]) {
		t.Fatalf("expected identical snapshots, got %s and %s", first["order"], second["order"])
	}

	resp, _ = s.get(t, "someone-else", path)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's order, got %d", resp.StatusCode)
	}
}

type mailCapture struct {
	mu       sync.Mutex
	messages []email.Message
	received chan struct{}
}

func newMailCapture() *mailCapture {
	return &mailCapture{received: make(chan struct{}, 8)}
}

func (m *mailCapture) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	m.received <- struct{}{}
	return nil
}

func (m *mailCapture) sent() []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]email.Message, len(m.messages))
	copy(result, m.messages)
	return result
}

func TestReceiptFlowOverKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	db := StartPostgres(ctx, t)
	brokers := StartKafka(ctx, t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	const topic = "order.receipts.test"

	publisher := messaging.NewKafkaPublisher(brokers, topic)
	defer func() { _ = publisher.Close() }()
	queue := messaging.NewBackgroundQueue(publisher, 30*time.Second, logger)

	s := newStack(t, db, queue)
	seedCoupon(ctx, t, s.coupons, "SAVE10", nil)

	resp, body := s.post(t, "user-2", "/orders", orderBody("SAVE10"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body["error"])
	}
	var created domain.Order
	if err := json.Unmarshal(body["order"], &created); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}

	if err := queue.Drain(ctx); err != nil {
		t.Fatalf("failed to drain receipt queue: %v", err)
	}

	mailer := newMailCapture()
	renderer := receipt.NewRenderer(receipt.Branding{
		Name: "StudyShop", BankName: "Vietcombank", BankAccount: "0123456789", AccountHolder: "STUDYSHOP",
	})
	handler := worker.NewReceiptHandler(renderer, mailer, "admin@studyshop.vn", logger)

	consumer := messaging.NewKafkaConsumer(brokers, topic, "receipt-worker-test")
	defer func() { _ = consumer.Close() }()

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() { _ = consumer.Consume(consumeCtx, handler.Handle) }()

	for i := 0; i < 2; i++ {
		select {
		case <-mailer.received:
		case <-ctx.Done():
			t.Fatalf("timed out waiting for receipt mail %d", i+1)
		}
	}
	stopConsumer()

	byRecipient := map[string]email.Message{}
	for _, msg := range mailer.sent() {
		byRecipient[msg.To] = msg
	}

	customer, ok := byRecipient["a@example.com"]
	if !ok {
		t.Fatalf("expected customer mail, got %+v", byRecipient)
	}
	if len(customer.Attachments) != 1 || customer.Attachments[0].Filename != receipt.AttachmentName(created.ID) {
		t.Fatalf("expected invoice attachment, got %+v", customer.Attachments)
	}
	if !strings.HasPrefix(string(customer.Attachments[0].Content), "%PDF") {
		t.Fatal("expected attachment to be a PDF")
	}
	if !strings.Contains(customer.HTML, "Nguyễn Văn A") {
		t.Fatal("expected customer HTML to keep Vietnamese diacritics")
	}

	if _, ok := byRecipient["admin@studyshop.vn"]; !ok {
		t.Fatalf("expected admin mail, got %+v", byRecipient)
	}
}
