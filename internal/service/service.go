// Package service holds the business rules of the store: catalog and
// customer management, checkout, utang payments, and the derived reports.
// It orchestrates the ledger arithmetic and the repository; HTTP concerns
// stay in httpapi.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sarisari/backend/internal/cache"
	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/ledger"
	"sarisari/backend/internal/store"
	"sarisari/backend/internal/xid"
)

// ErrForbidden is returned when the acting user lacks the required role.
var ErrForbidden = errors.New("admin role required")

const dailySummaryTTL = 60 * time.Second

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	reports cache.ReportCache
}

func New(repo store.Repository, reports cache.ReportCache) *Service {
	if reports == nil {
		reports = cache.NoopReportCache{}
	}
	return &Service{repo: repo, reports: reports}
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	if req.SKU == "" || req.Name == "" || req.UnitPriceCents < 1 || req.StockQuantity < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:             xid.New("prd"),
		Name:           req.Name,
		SKU:            req.SKU,
		UnitPriceCents: req.UnitPriceCents,
		StockQuantity:  req.StockQuantity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,name=%s,price=%d,stock=%d", created.SKU, created.Name, created.UnitPriceCents, created.StockQuantity))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.UnitPriceCents != nil {
		if *req.UnitPriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.UnitPriceCents = *req.UnitPriceCents
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.StockQuantity = *req.StockQuantity
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("sku=%s,price=%d,stock=%d", saved.SKU, saved.UnitPriceCents, saved.StockQuantity))
	return *saved, nil
}

func (s *Service) RestockProduct(ctx context.Context, id string, req domain.RestockRequest) (domain.Product, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if req.Quantity < 1 {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	updated.StockQuantity += req.Quantity
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_restock", "product", saved.ID, fmt.Sprintf("sku=%s,added=%d,stock=%d", saved.SKU, req.Quantity, saved.StockQuantity))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidInput
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, "product_delete", "product", id, "")
	return nil
}

// LowStockProducts lists products at or below the fixed restock threshold.
func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	low := make([]domain.Product, 0, 8)
	for _, p := range products {
		if p.StockQuantity <= domain.LowStockThreshold {
			low = append(low, p)
		}
	}
	return low, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Customer{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        xid.New("cus"),
		Name:      req.Name,
		Contact:   strings.TrimSpace(req.Contact),
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Customer{}, err
	}

	existing, err := s.repo.GetCustomerByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Contact != nil {
		updated.Contact = strings.TrimSpace(*req.Contact)
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_update", "customer", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

// DeleteCustomer removes a customer record. Deletion is refused while the
// customer still owes anything; collect the balance first.
func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.requireAdmin(ctx); err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrInvalidInput
	}
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, "customer_delete", "customer", id, "")
	return nil
}

// Checkout commits a cart as a sale. Line snapshots (name, unit price) are
// whatever the cashier's cart carried; only stock is re-validated against
// current quantities, inside the repository command.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	items, err := ledger.NormalizeCart(req.Items)
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	req.PaymentType = strings.TrimSpace(req.PaymentType)
	if req.PaymentType != domain.PaymentTypeCash && req.PaymentType != domain.PaymentTypeUtang {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: unknown payment type %q", store.ErrInvalidInput, req.PaymentType)
	}

	var customerName string
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if req.PaymentType == domain.PaymentTypeUtang {
		if req.CustomerID == "" {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: utang sale requires a customer", store.ErrInvalidInput)
		}
		customer, err := s.repo.GetCustomerByID(ctx, req.CustomerID)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}
		customerName = customer.Name
	} else {
		req.CustomerID = ""
	}

	now := time.Now().UTC()
	subtotal := ledger.CartSubtotal(items)
	sale := domain.Sale{
		ID:            xid.New("sale"),
		Items:         items,
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
		PaymentType:   req.PaymentType,
		CustomerID:    req.CustomerID,
		CustomerName:  customerName,
		Status:        domain.SaleStatusCompleted,
		CreatedAt:     now,
	}

	var credits []domain.CreditTransaction
	if sale.PaymentType == domain.PaymentTypeUtang {
		credits = ledger.BuildCreditLines(sale, now, func() string { return xid.New("credit") })
	}

	created, err := s.repo.CreateSale(ctx, sale, credits)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.logAudit(ctx, "checkout", "sale", created.ID, fmt.Sprintf("type=%s,total=%d,lines=%d", created.PaymentType, created.TotalCents, len(created.Items)))
	return domain.CheckoutResponse{Sale: *created, CreditTransactions: credits}, nil
}

func (s *Service) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListSales(ctx, from, to, limit)
}

// RecordCustomerPayment applies a payment against a customer's whole utang
// balance. Overpayment is clamped: the excess comes back as change, never a
// negative balance. The actual amount is also spread across the customer's
// open credit lines oldest-first so the per-line balances stay in step with
// the aggregate.
func (s *Service) RecordCustomerPayment(ctx context.Context, customerID string, req domain.PaymentRequest) (domain.PaymentResponse, error) {
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		return domain.PaymentResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	customer, err := s.repo.GetCustomerByID(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return domain.PaymentResponse{}, err
	}
	if customer.TotalOwedCents < 1 {
		return domain.PaymentResponse{}, fmt.Errorf("%w: customer has no outstanding balance", store.ErrInvalidInput)
	}

	now := time.Now().UTC()
	outcome := ledger.ApplyPayment(customer.TotalOwedCents, amount)

	open, err := s.repo.ListCreditTransactionsByCustomer(ctx, customer.ID)
	if err != nil {
		return domain.PaymentResponse{}, err
	}
	touched := ledger.SpreadPayment(open, outcome.ActualCents, now)

	description := "Payment for utang balance"
	if outcome.ChangeCents > 0 {
		description = fmt.Sprintf("%s (change: %s)", description, ledger.FormatPesos(outcome.ChangeCents))
	}

	updated := *customer
	updated.TotalOwedCents = outcome.NewBalanceCents
	updated.UpdatedAt = now

	payment := domain.Payment{
		ID:          xid.New("pay"),
		CustomerID:  customer.ID,
		AmountCents: outcome.ActualCents,
		Description: description,
		CreatedAt:   now,
	}

	if err := s.repo.ApplyPayment(ctx, store.SalePayment{
		Payment:      payment,
		Customer:     updated,
		Transactions: touched,
	}); err != nil {
		return domain.PaymentResponse{}, err
	}

	s.logAudit(ctx, "payment_customer", "customer", customer.ID, fmt.Sprintf("paid=%d,change=%d,balance=%d", outcome.ActualCents, outcome.ChangeCents, outcome.NewBalanceCents))
	return domain.PaymentResponse{
		Payment:            payment,
		ActualPaymentCents: outcome.ActualCents,
		ChangeCents:        outcome.ChangeCents,
		Customer:           updated,
	}, nil
}

// RecordCreditPayment applies a payment against a single credit transaction.
// The same clamp policy applies, and the customer's aggregate balance drops
// by the same actual amount in the same repository command.
func (s *Service) RecordCreditPayment(ctx context.Context, creditTxID string, req domain.PaymentRequest) (domain.PaymentResponse, error) {
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		return domain.PaymentResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	tx, err := s.repo.GetCreditTransactionByID(ctx, strings.TrimSpace(creditTxID))
	if err != nil {
		return domain.PaymentResponse{}, err
	}
	if tx.RemainingBalanceCents < 1 {
		return domain.PaymentResponse{}, fmt.Errorf("%w: transaction is already fully paid", store.ErrInvalidInput)
	}

	customer, err := s.repo.GetCustomerByID(ctx, tx.CustomerID)
	if err != nil {
		return domain.PaymentResponse{}, err
	}

	now := time.Now().UTC()
	outcome := ledger.ApplyPayment(tx.RemainingBalanceCents, amount)

	updatedTx := *tx
	updatedTx.AmountPaidCents += outcome.ActualCents
	updatedTx.RemainingBalanceCents = outcome.NewBalanceCents
	updatedTx.Status = ledger.CreditStatus(updatedTx.AmountPaidCents, updatedTx.RemainingBalanceCents)
	updatedTx.UpdatedAt = now

	updatedCustomer := *customer
	updatedCustomer.TotalOwedCents -= outcome.ActualCents
	if updatedCustomer.TotalOwedCents < 0 {
		updatedCustomer.TotalOwedCents = 0
	}
	updatedCustomer.UpdatedAt = now

	description := fmt.Sprintf("Payment for %s", tx.ProductName)
	if outcome.ChangeCents > 0 {
		description = fmt.Sprintf("%s (change: %s)", description, ledger.FormatPesos(outcome.ChangeCents))
	}

	payment := domain.Payment{
		ID:          xid.New("pay"),
		CustomerID:  customer.ID,
		AmountCents: outcome.ActualCents,
		Description: description,
		CreatedAt:   now,
	}

	if err := s.repo.ApplyPayment(ctx, store.SalePayment{
		Payment:      payment,
		Customer:     updatedCustomer,
		Transactions: []domain.CreditTransaction{updatedTx},
	}); err != nil {
		return domain.PaymentResponse{}, err
	}

	s.logAudit(ctx, "payment_credit", "credit_transaction", tx.ID, fmt.Sprintf("paid=%d,change=%d,remaining=%d,status=%s", outcome.ActualCents, outcome.ChangeCents, updatedTx.RemainingBalanceCents, updatedTx.Status))
	return domain.PaymentResponse{
		Payment:            payment,
		ActualPaymentCents: outcome.ActualCents,
		ChangeCents:        outcome.ChangeCents,
		Customer:           updatedCustomer,
		CreditTransaction:  &updatedTx,
	}, nil
}

// DailySummary aggregates sales and payments for one UTC calendar date.
// An empty date means today. Results are cached briefly; the report is
// derived, so staleness is bounded by the TTL.
func (s *Service) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	day := time.Now().UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.DailySummary{}, fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", store.ErrInvalidInput, date)
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	key := "reports:daily:" + from.Format("2006-01-02")

	if cached, found, err := s.reports.GetDailySummary(ctx, key); err != nil {
		log.Printf("[service] WARN: daily summary cache read failed: %v", err)
	} else if found {
		return *cached, nil
	}

	sales, err := s.repo.ListSales(ctx, from, to, 0)
	if err != nil {
		return domain.DailySummary{}, err
	}
	payments, err := s.repo.ListPayments(ctx, from, to)
	if err != nil {
		return domain.DailySummary{}, err
	}

	summary := domain.DailySummary{Date: from.Format("2006-01-02")}
	for _, sale := range sales {
		summary.TotalSalesCents += sale.TotalCents
		switch sale.PaymentType {
		case domain.PaymentTypeCash:
			summary.CashSalesCents += sale.TotalCents
			summary.CashTransactions++
		case domain.PaymentTypeUtang:
			summary.UtangSalesCents += sale.TotalCents
			summary.UtangTransactions++
		}
	}
	for _, p := range payments {
		summary.PaymentsCollectedCents += p.AmountCents
		summary.PaymentCount++
	}

	if err := s.reports.SetDailySummary(ctx, key, &summary, dailySummaryTTL); err != nil {
		log.Printf("[service] WARN: daily summary cache write failed: %v", err)
	}
	return summary, nil
}

func (s *Service) OutstandingReport(ctx context.Context) (domain.OutstandingReport, error) {
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return domain.OutstandingReport{}, err
	}

	report := domain.OutstandingReport{}
	for _, c := range customers {
		if c.TotalOwedCents < 1 {
			continue
		}
		report.TotalOutstandingCents += c.TotalOwedCents
		report.DebtorCount++
	}
	if report.DebtorCount > 0 {
		report.AverageOwedCents = report.TotalOutstandingCents / int64(report.DebtorCount)
	}
	return report, nil
}

// CustomerHistory merges a customer's utang sales and payments into one
// timeline, newest first. Cash sales are anonymous and never appear here.
func (s *Service) CustomerHistory(ctx context.Context, customerID string) ([]domain.HistoryEntry, error) {
	customerID = strings.TrimSpace(customerID)
	if _, err := s.repo.GetCustomerByID(ctx, customerID); err != nil {
		return nil, err
	}

	sales, err := s.repo.ListSalesByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPaymentsByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, 0, len(sales)+len(payments))
	for i := range sales {
		if sales[i].PaymentType != domain.PaymentTypeUtang {
			continue
		}
		entries = append(entries, domain.HistoryEntry{
			Type:      domain.HistoryEntrySale,
			Sale:      &sales[i],
			CreatedAt: sales[i].CreatedAt,
		})
	}
	for i := range payments {
		entries = append(entries, domain.HistoryEntry{
			Type:      domain.HistoryEntryPayment,
			Payment:   &payments[i],
			CreatedAt: payments[i].CreatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// CustomerUtang summarizes a customer's credit position: lifetime utang,
// amount repaid, remaining balance, and the per-line transactions newest
// first.
func (s *Service) CustomerUtang(ctx context.Context, customerID string) (domain.UtangSummary, error) {
	customerID = strings.TrimSpace(customerID)
	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return domain.UtangSummary{}, err
	}

	transactions, err := s.repo.ListCreditTransactionsByCustomer(ctx, customerID)
	if err != nil {
		return domain.UtangSummary{}, err
	}

	summary := domain.UtangSummary{
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
	}
	for _, tx := range transactions {
		summary.TotalUtangCents += tx.TotalAmountCents
		summary.TotalPaidCents += tx.AmountPaidCents
		summary.RemainingBalanceCents += tx.RemainingBalanceCents
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
	summary.Transactions = transactions
	return summary, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	cashiers := make([]domain.CashierUser, 0, len(users))
	for _, u := range users {
		cashiers = append(cashiers, domain.CashierUser{
			Username:  u.Username,
			Role:      u.Role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	return cashiers, nil
}

func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.CashierUser{}, err
	}

	// Usernames are stored lowercase; login lowercases before lookup.
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || len(req.Password) < 8 {
		return domain.CashierUser{}, fmt.Errorf("%w: username required, password must be at least 8 characters", store.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, err
	}

	user := domain.UserAccount{
		Username:  req.Username,
		Password:  string(hash),
		Role:      "cashier",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.CashierUser{}, err
	}

	s.logAudit(ctx, "cashier_create", "user", user.Username, "")
	return domain.CashierUser{
		Username:  user.Username,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
