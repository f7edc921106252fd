package domain

import "time"

type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	StockQuantity  int       `json:"stock_quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name           string `json:"name"`
	SKU            string `json:"sku"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	StockQuantity  int    `json:"stock_quantity"`
}

type ProductUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	UnitPriceCents *int64  `json:"unit_price_cents,omitempty"`
	StockQuantity  *int    `json:"stock_quantity,omitempty"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type Customer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Contact        string    `json:"contact"`
	TotalOwedCents int64     `json:"total_owed_cents"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Contact *string `json:"contact,omitempty"`
}

// SaleItem is a line item snapshot captured when the cashier adds a product
// to the cart. ProductName and UnitPriceCents are deliberately NOT re-read
// at checkout; they record what the customer was shown.
type SaleItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type Sale struct {
	ID            string     `json:"id"`
	Items         []SaleItem `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TotalCents    int64      `json:"total_cents"`
	PaymentType   string     `json:"payment_type"`
	CustomerID    string     `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

type CheckoutRequest struct {
	Items       []SaleItem `json:"items"`
	PaymentType string     `json:"payment_type"`
	CustomerID  string     `json:"customer_id,omitempty"`
}

type CheckoutResponse struct {
	Sale               Sale                `json:"sale"`
	CreditTransactions []CreditTransaction `json:"credit_transactions,omitempty"`
}

// CreditTransaction tracks repayment of a single utang sale line. One record
// is created per SaleItem at checkout when the sale is paid on credit.
type CreditTransaction struct {
	ID                    string    `json:"id"`
	CustomerID            string    `json:"customer_id"`
	SaleID                string    `json:"sale_id"`
	ProductID             string    `json:"product_id"`
	ProductName           string    `json:"product_name"`
	Quantity              int       `json:"quantity"`
	UnitPriceCents        int64     `json:"unit_price_cents"`
	TotalAmountCents      int64     `json:"total_amount_cents"`
	AmountPaidCents       int64     `json:"amount_paid_cents"`
	RemainingBalanceCents int64     `json:"remaining_balance_cents"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Payment is an append-only record of money collected against a customer's
// utang balance. Records are never mutated or deleted.
type Payment struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentRequest carries the raw amount string exactly as typed by the
// cashier; parsing and validation happen in the ledger.
type PaymentRequest struct {
	Amount string `json:"amount"`
}

type PaymentResponse struct {
	Payment            Payment            `json:"payment"`
	ActualPaymentCents int64              `json:"actual_payment_cents"`
	ChangeCents        int64              `json:"change_cents"`
	Customer           Customer           `json:"customer"`
	CreditTransaction  *CreditTransaction `json:"credit_transaction,omitempty"`
}

type UtangSummary struct {
	CustomerID            string              `json:"customer_id"`
	CustomerName          string              `json:"customer_name"`
	TotalUtangCents       int64               `json:"total_utang_cents"`
	TotalPaidCents        int64               `json:"total_paid_cents"`
	RemainingBalanceCents int64               `json:"remaining_balance_cents"`
	Transactions          []CreditTransaction `json:"transactions"`
}

type DailySummary struct {
	Date                   string `json:"date"`
	TotalSalesCents        int64  `json:"total_sales_cents"`
	CashSalesCents         int64  `json:"cash_sales_cents"`
	UtangSalesCents        int64  `json:"utang_sales_cents"`
	CashTransactions       int64  `json:"cash_transactions"`
	UtangTransactions      int64  `json:"utang_transactions"`
	PaymentsCollectedCents int64  `json:"payments_collected_cents"`
	PaymentCount           int64  `json:"payment_count"`
}

type OutstandingReport struct {
	TotalOutstandingCents int64 `json:"total_outstanding_cents"`
	DebtorCount           int   `json:"debtor_count"`
	AverageOwedCents      int64 `json:"average_owed_cents"`
}

// HistoryEntry is one row in a customer's transaction history: either an
// utang sale or a payment, never both.
type HistoryEntry struct {
	Type      string    `json:"type"`
	Sale      *Sale     `json:"sale,omitempty"`
	Payment   *Payment  `json:"payment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	PaymentTypeCash  = "cash"
	PaymentTypeUtang = "utang"
)

const (
	SaleStatusCompleted = "completed"
	SaleStatusPending   = "pending"
)

const (
	CreditStatusUnpaid        = "unpaid"
	CreditStatusPartiallyPaid = "partially_paid"
	CreditStatusFullyPaid     = "fully_paid"
)

const (
	HistoryEntrySale    = "sale"
	HistoryEntryPayment = "payment"
)

// LowStockThreshold is the fixed stock level at or below which a product
// appears in the low-stock report.
const LowStockThreshold = 10
