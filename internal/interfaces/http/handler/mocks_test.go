package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/pos/internal/application/analytics"
	appcatalog "github.com/stocklink/pos/internal/application/catalog"
	appidentity "github.com/stocklink/pos/internal/application/identity"
	appnotification "github.com/stocklink/pos/internal/application/notification"
	appsales "github.com/stocklink/pos/internal/application/sales"
	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/payment"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/event"
	"github.com/stocklink/pos/internal/interfaces/http/middleware"
)

type MockSaleService struct {
	mock.Mock
}

func (m *MockSaleService) CommitSale(ctx context.Context, req appsales.CommitSaleRequest) (*appsales.CommitSaleResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.CommitSaleResult), args.Error(1)
}

func (m *MockSaleService) GetSale(ctx context.Context, id int64) (*appsales.SaleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.SaleResponse), args.Error(1)
}

func (m *MockSaleService) ListSales(ctx context.Context, filter appsales.ListSalesFilter) ([]appsales.SaleResponse, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]appsales.SaleResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockSaleService) RenderReceipt(ctx context.Context, id int64, format string) (*notification.Document, error) {
	args := m.Called(ctx, id, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Document), args.Error(1)
}

func (m *MockSaleService) RedeliverReceipt(ctx context.Context, id int64, req appsales.RedeliverRequest) (*appsales.DeliveryResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appsales.DeliveryResponse), args.Error(1)
}

func (m *MockSaleService) ListDeliveries(ctx context.Context, id int64) ([]appsales.DeliveryResponse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]appsales.DeliveryResponse), args.Error(1)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Summary(ctx context.Context, day time.Time) (*analytics.Summary, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.Summary), args.Error(1)
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) product(args mock.Arguments) (*appcatalog.ProductResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcatalog.ProductResponse), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, req appcatalog.CreateProductRequest) (*appcatalog.ProductResponse, error) {
	return m.product(m.Called(ctx, req))
}

func (m *MockProductService) Get(ctx context.Context, id int64) (*appcatalog.ProductResponse, error) {
	return m.product(m.Called(ctx, id))
}

func (m *MockProductService) List(ctx context.Context) ([]appcatalog.ProductResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]appcatalog.ProductResponse), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, id int64, req appcatalog.UpdateProductRequest) (*appcatalog.ProductResponse, error) {
	return m.product(m.Called(ctx, id, req))
}

func (m *MockProductService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductService) Restock(ctx context.Context, id int64, req appcatalog.RestockRequest) (*appcatalog.ProductResponse, error) {
	return m.product(m.Called(ctx, id, req))
}

func (m *MockProductService) LowStock(ctx context.Context) ([]appcatalog.ProductResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).([]appcatalog.ProductResponse), args.Error(1)
}

func (m *MockProductService) Import(ctx context.Context, r io.Reader, dryRun bool) (*appcatalog.ImportResult, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, string(body), dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcatalog.ImportResult), args.Error(1)
}

type MockDiscountService struct {
	mock.Mock
}

func (m *MockDiscountService) Create(ctx context.Context, req appnotification.CreateDiscountRequest) (*appnotification.DiscountResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appnotification.DiscountResponse), args.Error(1)
}

func (m *MockDiscountService) List(ctx context.Context, filter shared.Filter) ([]appnotification.DiscountResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]appnotification.DiscountResponse), args.Error(1)
}

func (m *MockDiscountService) Notify(ctx context.Context, req appnotification.NotifyRequest) (*appnotification.NotifyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appnotification.NotifyResult), args.Error(1)
}

type MockCollaborator struct {
	mock.Mock
}

func (m *MockCollaborator) RequestConfirmation(ctx context.Context, phone string, amount decimal.Decimal) (string, error) {
	args := m.Called(ctx, phone, amount)
	return args.String(0), args.Error(1)
}

func (m *MockCollaborator) PollConfirmation(ctx context.Context, token string) (*payment.Confirmation, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Confirmation), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, input appidentity.RegisterInput) (*appidentity.UserResponse, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.UserResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.LoginResult), args.Error(1)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, input appidentity.ResetPasswordInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *MockAuthService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	return m.Called(ctx, jti, expiresAt).Error(0)
}

func (m *MockAuthService) Me(ctx context.Context, userID int64) (*appidentity.UserResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.UserResponse), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type stubQueue struct {
	stats   event.QueueStats
	running bool
}

func (q stubQueue) Stats() event.QueueStats { return q.stats }
func (q stubQueue) Running() bool           { return q.running }

// serve runs one request through a router built by register
func serve(t *testing.T, register func(r *gin.Engine), method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	register(r)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// asCashier simulates the JWT middleware for handler tests
func asCashier(username string, userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUsernameKey, username)
		c.Set(middleware.JWTUserIDKey, userID)
		c.Next()
	}
}
