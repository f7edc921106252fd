package store

import (
	"context"
	"errors"
	"time"

	"sarisari/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidInput       = errors.New("invalid input")
	ErrOutstandingBalance = errors.New("customer has outstanding balance")
)

// SalePayment carries everything a store must persist atomically when a
// payment is applied: the append-only payment record, the updated customer
// aggregate, and the credit transactions whose balances moved with it.
type SalePayment struct {
	Payment      domain.Payment
	Customer     domain.Customer
	Transactions []domain.CreditTransaction
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	// DeleteCustomer fails with ErrOutstandingBalance while the customer
	// still owes anything.
	DeleteCustomer(ctx context.Context, id string) error

	// CreateSale persists the sale, decrements stock per line, and — for
	// utang sales — raises the customer balance and inserts the credit
	// lines, all or nothing.
	CreateSale(ctx context.Context, sale domain.Sale, credits []domain.CreditTransaction) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error)
	ListSalesByCustomer(ctx context.Context, customerID string) ([]domain.Sale, error)

	GetCreditTransactionByID(ctx context.Context, id string) (*domain.CreditTransaction, error)
	ListCreditTransactionsByCustomer(ctx context.Context, customerID string) ([]domain.CreditTransaction, error)
	// ApplyPayment atomically appends the payment record, stores the
	// updated customer aggregate, and rewrites the touched credit lines.
	ApplyPayment(ctx context.Context, applied SalePayment) error
	ListPaymentsByCustomer(ctx context.Context, customerID string) ([]domain.Payment, error)
	ListPayments(ctx context.Context, from time.Time, to time.Time) ([]domain.Payment, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}
