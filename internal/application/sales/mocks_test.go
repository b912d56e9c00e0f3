package sales

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/payment"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/domain/shared"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
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

type MockReceipts struct {
	mock.Mock
}

func (m *MockReceipts) Document(ctx context.Context, sale *sales.Sale, format string) (*notification.Document, error) {
	args := m.Called(ctx, sale, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Document), args.Error(1)
}

func (m *MockReceipts) Redeliver(ctx context.Context, saleID int64, method notification.Method, destination string) (*notification.Delivery, error) {
	args := m.Called(ctx, saleID, method, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Delivery), args.Error(1)
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

// quoteOverride wraps a product repository and rewrites what the quote
// step sees, standing in for a row edited between quote and commit
type quoteOverride struct {
	catalog.ProductRepository
	mu     sync.Mutex
	mutate func(map[int64]*catalog.Product)
}

func (q *quoteOverride) FindByIDs(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	products, err := q.ProductRepository.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.mutate != nil {
		q.mutate(products)
	}
	return products, nil
}

// recordingUnitOfWork records the order in which stock rows are decremented
type recordingUnitOfWork struct {
	sales.UnitOfWork
	mu    sync.Mutex
	order []int64
}

func (u *recordingUnitOfWork) Commit(ctx context.Context, fn sales.CommitFunc) error {
	return u.UnitOfWork.Commit(ctx, func(ctx context.Context, inv sales.Inventory, ledger sales.Ledger) error {
		return fn(ctx, &recordingInventory{Inventory: inv, uow: u}, ledger)
	})
}

type recordingInventory struct {
	sales.Inventory
	uow *recordingUnitOfWork
}

func (i *recordingInventory) DecrementStock(ctx context.Context, productID int64, qty int) error {
	i.uow.mu.Lock()
	i.uow.order = append(i.uow.order, productID)
	i.uow.mu.Unlock()
	return i.Inventory.DecrementStock(ctx, productID, qty)
}
