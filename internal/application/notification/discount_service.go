package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/logger"
	"github.com/stocklink/pos/internal/infrastructure/printing"
)

// notifyConcurrency bounds simultaneous SMTP sessions during Notify
const notifyConcurrency = 4

// CreateDiscountRequest creates a discount
type CreateDiscountRequest struct {
	ProductID int64           `json:"productId" binding:"required,gt=0"`
	Percent   decimal.Decimal `json:"discountPercent"`
	StartDate time.Time       `json:"startDate" binding:"required"`
	EndDate   time.Time       `json:"endDate" binding:"required"`
}

// DiscountResponse is a discount in API responses
type DiscountResponse struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"productId"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// NotifyRequest is the announcement sent with the active discounts
type NotifyRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Body    string `json:"body" binding:"max=5000"`
}

// NotifyResult summarises a discount mailing
type NotifyResult struct {
	SentCount   int      `json:"sentCount"`
	FailedCount int      `json:"failedCount"`
	Failed      []string `json:"failed"`
	Discounts   int      `json:"discounts"`
}

// ErrNoActiveDiscounts is returned by Notify when there is nothing to announce
var ErrNoActiveDiscounts = shared.NewDomainError("VALIDATION_FAILED", "There are no active discounts to announce")

// DiscountService manages discounts and mails them to past customers
type DiscountService struct {
	discounts catalog.DiscountRepository
	products  catalog.ProductRepository
	sales     sales.Repository
	mailer    notification.Mailer
	cfg       DispatcherConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewDiscountService creates a DiscountService. Without a mailer Notify
// fails with ErrNotConfigured.
func NewDiscountService(
	discounts catalog.DiscountRepository,
	products catalog.ProductRepository,
	saleRepo sales.Repository,
	mailer notification.Mailer,
	cfg DispatcherConfig,
	logger *zap.Logger,
) *DiscountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscountService{
		discounts: discounts,
		products:  products,
		sales:     saleRepo,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates and stores a discount for an existing product
func (s *DiscountService) Create(ctx context.Context, req CreateDiscountRequest) (*DiscountResponse, error) {
	if _, err := s.products.FindByID(ctx, req.ProductID); err != nil {
		return nil, err
	}
	d, err := catalog.NewDiscount(req.ProductID, req.Percent, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := s.discounts.Create(ctx, d); err != nil {
		return nil, err
	}
	resp := toDiscountResponse(d)
	return &resp, nil
}

// List returns discounts newest first
func (s *DiscountService) List(ctx context.Context, filter shared.Filter) ([]DiscountResponse, error) {
	rows, err := s.discounts.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]DiscountResponse, len(rows))
	for i := range rows {
		out[i] = toDiscountResponse(&rows[i])
	}
	return out, nil
}

type discountLine struct {
	Name       string
	Price      string
	Discounted string
	Percent    string
}

var discountMailTemplate = template.Must(template.New("discounts").Parse(`<div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif">
<h2 style="color:#2563eb">{{.Subject}}</h2>
{{if .Body}}<p>{{.Body}}</p>{{end}}
{{range .Lines}}<div style="border:1px solid #e5e7eb;border-radius:8px;padding:15px;margin-bottom:20px">
<h3 style="margin:0">{{.Name}}</h3>
<p><span style="text-decoration:line-through;color:#6b7280">{{.Price}}</span>
<span style="font-size:1.2em;color:#16a34a">{{.Discounted}}</span>
<span style="background:#dc2626;color:#fff;padding:4px 8px;border-radius:4px">{{.Percent}}% OFF</span></p>
</div>
{{end}}</div>`))

// Notify emails every past customer the discounts active today. Individual
// send failures are collected in the result and do not stop the mailing.
func (s *DiscountService) Notify(ctx context.Context, req NotifyRequest) (*NotifyResult, error) {
	if s.mailer == nil {
		return nil, notification.ErrNotConfigured.WithDetail("method", string(notification.MethodEmail))
	}

	lines, err := s.activeLines(ctx)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoActiveDiscounts
	}

	var html bytes.Buffer
	if err := discountMailTemplate.Execute(&html, struct {
		Subject string
		Body    string
		Lines   []discountLine
	}{req.Subject, req.Body, lines}); err != nil {
		return nil, fmt.Errorf("render discount mail: %w", err)
	}

	contacts, err := s.sales.CustomerContacts(ctx)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	text.WriteString(req.Subject + "\n\n")
	if req.Body != "" {
		text.WriteString(req.Body + "\n\n")
	}
	for _, l := range lines {
		fmt.Fprintf(&text, "%s: %s (was %s, %s%% off)\n", l.Name, l.Discounted, l.Price, l.Percent)
	}

	textBody, htmlBody := text.String(), html.String()
	result := &NotifyResult{Discounts: len(lines), Failed: []string{}}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, to := range contacts {
		if validate.Var(to, "email") != nil {
			continue
		}
		g.Go(func() error {
			err := s.mailer.Send(gctx, notification.Email{
				To:       to,
				Subject:  req.Subject,
				TextBody: textBody,
				HTMLBody: htmlBody,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.FailedCount++
				result.Failed = append(result.Failed, to)
				logger.Enrich(ctx, s.logger).Warn("Discount mail failed", zap.String("to", to), zap.Error(err))
				return nil
			}
			result.SentCount++
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(result.Failed)

	logger.Enrich(ctx, s.logger).Info("Discount notification sent",
		zap.Int("sent", result.SentCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("discounts", result.Discounts),
	)
	return result, nil
}

func (s *DiscountService) activeLines(ctx context.Context) ([]discountLine, error) {
	active, err := s.discounts.FindActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(active))
	for _, d := range active {
		ids = append(ids, d.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]discountLine, 0, len(active))
	for i := range active {
		p, ok := products[active[i].ProductID]
		if !ok {
			continue
		}
		lines = append(lines, discountLine{
			Name:       p.Name,
			Price:      printing.FormatMoney(s.cfg.CurrencySymbol, p.Price),
			Discounted: printing.FormatMoney(s.cfg.CurrencySymbol, active[i].Apply(p.Price)),
			Percent:    active[i].Percent.String(),
		})
	}
	return lines, nil
}

func toDiscountResponse(d *catalog.Discount) DiscountResponse {
	return DiscountResponse{
		ID:              d.ID,
		ProductID:       d.ProductID,
		DiscountPercent: d.Percent,
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		CreatedAt:       d.CreatedAt,
	}
}
