package notification

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/domain/shared"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg notification.Email) error {
	return m.Called(ctx, msg).Error(0)
}

type MockSpooler struct {
	mock.Mock
}

func (m *MockSpooler) Print(ctx context.Context, job notification.PrintJob) error {
	return m.Called(ctx, job).Error(0)
}

type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) Save(ctx context.Context, d *notification.Delivery) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDeliveryRepository) FindBySale(ctx context.Context, saleID int64) ([]notification.Delivery, error) {
	args := m.Called(ctx, saleID)
	return args.Get(0).([]notification.Delivery), args.Error(1)
}

type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) FindByID(ctx context.Context, id int64) (*sales.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Sale), args.Error(1)
}

func (m *MockSaleRepository) List(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]sales.Sale), args.Get(1).(int64), args.Error(2)
}

func (m *MockSaleRepository) ListBetween(ctx context.Context, from, to time.Time) ([]sales.Sale, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]sales.Sale), args.Error(1)
}

func (m *MockSaleRepository) RepeatCustomers(ctx context.Context) ([]sales.CustomerStat, error) {
	args := m.Called(ctx)
	return args.Get(0).([]sales.CustomerStat), args.Error(1)
}

func (m *MockSaleRepository) CustomerContacts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(sale *sales.Sale) ([]byte, error) {
	args := m.Called(sale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	args := m.Called(ctx, html)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Store(ctx context.Context, saleID int64, issuedAt time.Time, ext, contentType string, data []byte) (*notification.ArchivedReceipt, error) {
	args := m.Called(ctx, saleID, issuedAt, ext, contentType, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.ArchivedReceipt), args.Error(1)
}

type MockDiscountRepository struct {
	mock.Mock
}

func (m *MockDiscountRepository) Create(ctx context.Context, d *catalog.Discount) error {
	args := m.Called(ctx, d)
	if args.Error(0) == nil {
		d.ID = 1
	}
	return args.Error(0)
}

func (m *MockDiscountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Discount, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Discount), args.Error(1)
}

func (m *MockDiscountRepository) FindActive(ctx context.Context, day time.Time) ([]catalog.Discount, error) {
	args := m.Called(ctx, day)
	return args.Get(0).([]catalog.Discount), args.Error(1)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id int64) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[int64]*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBelowReorder(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepository) CreateBatch(ctx context.Context, products []*catalog.Product) error {
	return m.Called(ctx, products).Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductRepository) IncrementStock(ctx context.Context, id int64, qty int) (*catalog.Product, error) {
	args := m.Called(ctx, id, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}
