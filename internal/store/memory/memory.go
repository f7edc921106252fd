// Package memory is the in-memory repository used for dev/demo mode and in
// tests. All writes happen under one mutex, so the multi-step commands
// (CreateSale, ApplyPayment) are atomic by construction.
package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/store"
	"sarisari/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	skuIndex        map[string]string
	customers       map[string]domain.Customer
	sales           map[string]domain.Sale
	creditTxByID    map[string]domain.CreditTransaction
	payments        []domain.Payment
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		skuIndex:        make(map[string]string),
		customers:       make(map[string]domain.Customer),
		sales:           make(map[string]domain.Sale),
		creditTxByID:    make(map[string]domain.CreditTransaction),
		payments:        make([]domain.Payment, 0, 64),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

// NewSeeded returns a store preloaded with a typical sari-sari shelf so the
// demo server is usable out of the box.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seed := []domain.Product{
		{Name: "Rice (1kg)", SKU: "RICE-1KG", UnitPriceCents: 5500, StockQuantity: 50},
		{Name: "Instant Noodles", SKU: "NOODLE-01", UnitPriceCents: 1500, StockQuantity: 120},
		{Name: "Cooking Oil (500ml)", SKU: "OIL-500", UnitPriceCents: 6500, StockQuantity: 30},
		{Name: "Canned Sardines", SKU: "SARDINE-01", UnitPriceCents: 2800, StockQuantity: 60},
		{Name: "Soft Drink (1L)", SKU: "SOFTD-1L", UnitPriceCents: 7500, StockQuantity: 24},
		{Name: "3-in-1 Coffee Sachet", SKU: "COFFEE-01", UnitPriceCents: 900, StockQuantity: 200},
		{Name: "Laundry Soap Bar", SKU: "SOAP-01", UnitPriceCents: 2200, StockQuantity: 40},
		{Name: "Shampoo Sachet", SKU: "SHAMP-01", UnitPriceCents: 800, StockQuantity: 8},
		{Name: "Eggs (per tray)", SKU: "EGG-TRAY", UnitPriceCents: 28000, StockQuantity: 6},
		{Name: "Sugar (1kg)", SKU: "SUGAR-1KG", UnitPriceCents: 8500, StockQuantity: 18},
	}
	for _, p := range seed {
		p.ID = xid.New("prd")
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = p
		s.skuIndex[p.SKU] = p.ID
	}

	for _, c := range []domain.Customer{
		{Name: "Aling Nena", Contact: "0917-555-0101"},
		{Name: "Mang Tomas", Contact: "0918-555-0177"},
		{Name: "Ka Elena", Contact: ""},
	} {
		c.ID = xid.New("cus")
		c.CreatedAt = now
		c.UpdatedAt = now
		s.customers[c.ID] = c
	}
	return s
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These credentials
// are never used in production (the backend uses PostgreSQL when
// DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.skuIndex[sku]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := s.products[id]
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.SKU == "" || product.UnitPriceCents < 1 || product.StockQuantity < 0 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.skuIndex[product.SKU]; exists {
		return nil, store.ErrInvalidInput
	}

	s.products[product.ID] = product
	s.skuIndex[product.SKU] = product.ID
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if product.Name == "" || product.UnitPriceCents < 1 || product.StockQuantity < 0 {
		return nil, store.ErrInvalidInput
	}

	// SKU is immutable after creation.
	product.SKU = existing.SKU
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	delete(s.skuIndex, product.SKU)
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" || customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.customers[customer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}

	customer.TotalOwedCents = existing.TotalOwedCents
	customer.CreatedAt = existing.CreatedAt
	s.customers[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customers[id]
	if !exists {
		return store.ErrNotFound
	}
	if customer.TotalOwedCents > 0 {
		return store.ErrOutstandingBalance
	}
	delete(s.customers, id)
	return nil
}

// CreateSale commits the whole checkout under one lock: stock is re-checked
// against current quantities, the sale is stored, stock is decremented, and
// for utang sales the customer balance rises and the credit lines land.
// Nothing is written if any line fails.
func (s *Store) CreateSale(_ context.Context, sale domain.Sale, credits []domain.CreditTransaction) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.sales[sale.ID]; exists {
		return nil, store.ErrInvalidInput
	}

	for _, item := range sale.Items {
		product, exists := s.products[item.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		if product.StockQuantity < item.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	var customer domain.Customer
	if sale.PaymentType == domain.PaymentTypeUtang {
		existing, exists := s.customers[sale.CustomerID]
		if !exists {
			return nil, store.ErrNotFound
		}
		customer = existing
	}

	for _, item := range sale.Items {
		product := s.products[item.ProductID]
		product.StockQuantity -= item.Quantity
		product.UpdatedAt = sale.CreatedAt
		s.products[item.ProductID] = product
	}

	if sale.PaymentType == domain.PaymentTypeUtang {
		customer.TotalOwedCents += sale.TotalCents
		customer.UpdatedAt = sale.CreatedAt
		s.customers[customer.ID] = customer
		for _, credit := range credits {
			s.creditTxByID[credit.ID] = credit
		}
	}

	s.sales[sale.ID] = cloneSale(sale)
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !from.IsZero() && sale.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.CreatedAt.Before(to) {
			continue
		}
		result = append(result, cloneSale(sale))
	}
	sortSalesDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListSalesByCustomer(_ context.Context, customerID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 8)
	for _, sale := range s.sales {
		if sale.CustomerID != customerID {
			continue
		}
		result = append(result, cloneSale(sale))
	}
	sortSalesDesc(result)
	return result, nil
}

func (s *Store) GetCreditTransactionByID(_ context.Context, id string) (*domain.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.creditTxByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyTx := tx
	return &copyTx, nil
}

func (s *Store) ListCreditTransactionsByCustomer(_ context.Context, customerID string) ([]domain.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.CreditTransaction, 0, 8)
	for _, tx := range s.creditTxByID {
		if tx.CustomerID != customerID {
			continue
		}
		result = append(result, tx)
	}
	// Oldest first so payment spreading retires the earliest utang first.
	slices.SortFunc(result, func(a, b domain.CreditTransaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

// ApplyPayment lands an already-computed payment atomically: the payment
// record, the customer's new aggregate balance, and every touched credit
// line are written under one lock.
func (s *Store) ApplyPayment(_ context.Context, applied store.SalePayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if applied.Payment.ID == "" || applied.Payment.AmountCents < 1 {
		return store.ErrInvalidInput
	}
	if _, exists := s.customers[applied.Customer.ID]; !exists {
		return store.ErrNotFound
	}
	for _, tx := range applied.Transactions {
		if _, exists := s.creditTxByID[tx.ID]; !exists {
			return store.ErrNotFound
		}
	}

	s.payments = append(s.payments, applied.Payment)
	s.customers[applied.Customer.ID] = applied.Customer
	for _, tx := range applied.Transactions {
		s.creditTxByID[tx.ID] = tx
	}
	return nil
}

func (s *Store) ListPaymentsByCustomer(_ context.Context, customerID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Payment, 0, 8)
	for _, p := range s.payments {
		if p.CustomerID != customerID {
			continue
		}
		result = append(result, p)
	}
	sortPaymentsDesc(result)
	return result, nil
}

func (s *Store) ListPayments(_ context.Context, from time.Time, to time.Time) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if !from.IsZero() && p.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !p.CreatedAt.Before(to) {
			continue
		}
		result = append(result, p)
	}
	sortPaymentsDesc(result)
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.TrimSpace(user.Username)
	if username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	cloned := sale
	cloned.Items = make([]domain.SaleItem, len(sale.Items))
	copy(cloned.Items, sale.Items)
	return cloned
}

func sortSalesDesc(sales []domain.Sale) {
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func sortPaymentsDesc(payments []domain.Payment) {
	slices.SortFunc(payments, func(a, b domain.Payment) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func cmpString(a, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
