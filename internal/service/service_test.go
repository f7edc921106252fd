package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sarisari/backend/internal/cache"
	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/store"
	"sarisari/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), cache.NoopReportCache{})
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func productBySKU(t *testing.T, svc *Service, sku string) domain.Product {
	t.Helper()
	products, err := svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	for _, p := range products {
		if p.SKU == sku {
			return p
		}
	}
	t.Fatalf("seed product %s not found", sku)
	return domain.Product{}
}

func cartLine(p domain.Product, qty int) domain.SaleItem {
	return domain.SaleItem{
		ProductID:      p.ID,
		ProductName:    p.Name,
		Quantity:       qty,
		UnitPriceCents: p.UnitPriceCents,
	}
}

func mustCreateCustomer(t *testing.T, svc *Service, name string) domain.Customer {
	t.Helper()
	customer, err := svc.CreateCustomer(adminCtx(), domain.CustomerCreateRequest{Name: name})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

// utangSale rings up one utang checkout for the given lines and returns it.
func utangSale(t *testing.T, svc *Service, customerID string, lines ...domain.SaleItem) domain.CheckoutResponse {
	t.Helper()
	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       lines,
		PaymentType: domain.PaymentTypeUtang,
		CustomerID:  customerID,
	})
	if err != nil {
		t.Fatalf("utang checkout: %v", err)
	}
	return resp
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(cashierCtx(), domain.ProductCreateRequest{
		Name: "Vinegar", SKU: "VIN-01", UnitPriceCents: 1800, StockQuantity: 10,
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name: "Vinegar", SKU: "vin-01", UnitPriceCents: 1800, StockQuantity: 10,
	})
	if err != nil {
		t.Fatalf("admin create failed: %v", err)
	}

	created := productBySKU(t, svc, "VIN-01")
	if created.Name != "Vinegar" {
		t.Fatalf("expected uppercased SKU lookup to find product, got %+v", created)
	}
}

func TestCheckoutCashDecrementsStock(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       []domain.SaleItem{cartLine(rice, 2)},
		PaymentType: domain.PaymentTypeCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Sale.TotalCents != 2*rice.UnitPriceCents {
		t.Fatalf("expected total %d, got %d", 2*rice.UnitPriceCents, resp.Sale.TotalCents)
	}
	if resp.Sale.Status != domain.SaleStatusCompleted {
		t.Fatalf("expected completed sale, got %s", resp.Sale.Status)
	}
	if len(resp.CreditTransactions) != 0 {
		t.Fatalf("cash sale must not create credit lines")
	}

	after := productBySKU(t, svc, "RICE-1KG")
	if after.StockQuantity != rice.StockQuantity-2 {
		t.Fatalf("expected stock %d, got %d", rice.StockQuantity-2, after.StockQuantity)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	svc := newTestService()
	eggs := productBySKU(t, svc, "EGG-TRAY")

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       []domain.SaleItem{cartLine(eggs, eggs.StockQuantity+1)},
		PaymentType: domain.PaymentTypeCash,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	after := productBySKU(t, svc, "EGG-TRAY")
	if after.StockQuantity != eggs.StockQuantity {
		t.Fatalf("failed checkout must not touch stock: %d -> %d", eggs.StockQuantity, after.StockQuantity)
	}
}

func TestCheckoutIsAllOrNothing(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	eggs := productBySKU(t, svc, "EGG-TRAY")

	// First line is fine, second exceeds stock: nothing may be written.
	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       []domain.SaleItem{cartLine(rice, 1), cartLine(eggs, eggs.StockQuantity+1)},
		PaymentType: domain.PaymentTypeCash,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if after := productBySKU(t, svc, "RICE-1KG"); after.StockQuantity != rice.StockQuantity {
		t.Fatalf("rice stock must be untouched after failed checkout: %d -> %d", rice.StockQuantity, after.StockQuantity)
	}
	sales, err := svc.ListSales(context.Background(), time.Time{}, time.Time{}, 10)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("no sale may be recorded on failure, got %d", len(sales))
	}
}

func TestCheckoutUtangRequiresCustomer(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       []domain.SaleItem{cartLine(rice, 1)},
		PaymentType: domain.PaymentTypeUtang,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	_, err = svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       []domain.SaleItem{cartLine(rice, 1)},
		PaymentType: domain.PaymentTypeUtang,
		CustomerID:  "cus-nope",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown customer, got %v", err)
	}
}

func TestCheckoutUtangCreatesCreditLines(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	oil := productBySKU(t, svc, "OIL-500")
	customer := mustCreateCustomer(t, svc, "Aling Rosa")

	resp := utangSale(t, svc, customer.ID, cartLine(rice, 2), cartLine(oil, 1))

	wantTotal := 2*rice.UnitPriceCents + oil.UnitPriceCents
	if resp.Sale.TotalCents != wantTotal {
		t.Fatalf("expected total %d, got %d", wantTotal, resp.Sale.TotalCents)
	}
	if resp.Sale.CustomerName != "Aling Rosa" {
		t.Fatalf("expected customer name snapshot, got %q", resp.Sale.CustomerName)
	}
	if len(resp.CreditTransactions) != 2 {
		t.Fatalf("expected one credit line per cart line, got %d", len(resp.CreditTransactions))
	}

	summary, err := svc.CustomerUtang(cashierCtx(), customer.ID)
	if err != nil {
		t.Fatalf("utang summary: %v", err)
	}
	if summary.RemainingBalanceCents != wantTotal {
		t.Fatalf("expected remaining %d, got %d", wantTotal, summary.RemainingBalanceCents)
	}

	customers, err := svc.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	for _, c := range customers {
		if c.ID == customer.ID && c.TotalOwedCents != wantTotal {
			t.Fatalf("customer aggregate out of step: owed %d, want %d", c.TotalOwedCents, wantTotal)
		}
	}
}

func TestCheckoutUsesCartSnapshotPrice(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")

	// Price changes after the item was added to the cart; the sale keeps
	// the price the customer was shown.
	newPrice := rice.UnitPriceCents + 1000
	if _, err := svc.UpdateProduct(adminCtx(), rice.ID, domain.ProductUpdateRequest{UnitPriceCents: &newPrice}); err != nil {
		t.Fatalf("update price: %v", err)
	}

	resp, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       []domain.SaleItem{cartLine(rice, 1)},
		PaymentType: domain.PaymentTypeCash,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if resp.Sale.TotalCents != rice.UnitPriceCents {
		t.Fatalf("expected snapshot price %d, got %d", rice.UnitPriceCents, resp.Sale.TotalCents)
	}
}

func TestCustomerPaymentClampsOverpayment(t *testing.T) {
	svc := newTestService()
	customer := mustCreateCustomer(t, svc, "Mang Ben")

	item, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name: "Rice Sack (25kg)", SKU: "RICE-25KG", UnitPriceCents: 25000, StockQuantity: 5,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	utangSale(t, svc, customer.ID, cartLine(item, 1))

	// Owes ₱250.00, hands over ₱300.00.
	resp, err := svc.RecordCustomerPayment(cashierCtx(), customer.ID, domain.PaymentRequest{Amount: "300"})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if resp.ActualPaymentCents != 25000 {
		t.Fatalf("expected actual 25000, got %d", resp.ActualPaymentCents)
	}
	if resp.ChangeCents != 5000 {
		t.Fatalf("expected change 5000, got %d", resp.ChangeCents)
	}
	if resp.Customer.TotalOwedCents != 0 {
		t.Fatalf("expected zero balance, got %d", resp.Customer.TotalOwedCents)
	}

	summary, err := svc.CustomerUtang(cashierCtx(), customer.ID)
	if err != nil {
		t.Fatalf("utang summary: %v", err)
	}
	if summary.RemainingBalanceCents != 0 {
		t.Fatalf("credit lines must settle with the aggregate, remaining %d", summary.RemainingBalanceCents)
	}
	for _, tx := range summary.Transactions {
		if tx.Status != domain.CreditStatusFullyPaid {
			t.Fatalf("expected fully paid line, got %+v", tx)
		}
	}
}

func TestCustomerPaymentPartialSpreadsOldestFirst(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	oil := productBySKU(t, svc, "OIL-500")
	customer := mustCreateCustomer(t, svc, "Ka Pedro")

	utangSale(t, svc, customer.ID, cartLine(rice, 1)) // 5500
	utangSale(t, svc, customer.ID, cartLine(oil, 1))  // 6500

	resp, err := svc.RecordCustomerPayment(cashierCtx(), customer.ID, domain.PaymentRequest{Amount: "60"})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if resp.ActualPaymentCents != 6000 || resp.ChangeCents != 0 {
		t.Fatalf("unexpected outcome: %+v", resp)
	}
	if resp.Customer.TotalOwedCents != 6000 {
		t.Fatalf("expected balance 6000, got %d", resp.Customer.TotalOwedCents)
	}

	summary, err := svc.CustomerUtang(cashierCtx(), customer.ID)
	if err != nil {
		t.Fatalf("utang summary: %v", err)
	}
	if summary.RemainingBalanceCents != resp.Customer.TotalOwedCents {
		t.Fatalf("aggregate %d and lines %d out of step", resp.Customer.TotalOwedCents, summary.RemainingBalanceCents)
	}

	var fullyPaid, partial int
	for _, tx := range summary.Transactions {
		switch tx.Status {
		case domain.CreditStatusFullyPaid:
			fullyPaid++
		case domain.CreditStatusPartiallyPaid:
			partial++
		}
	}
	if fullyPaid != 1 || partial != 1 {
		t.Fatalf("expected oldest line retired and next partial, got %+v", summary.Transactions)
	}
}

func TestCustomerPaymentRejectsBadAmounts(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	customer := mustCreateCustomer(t, svc, "Aling Luz")
	utangSale(t, svc, customer.ID, cartLine(rice, 1))

	for _, raw := range []string{"", "0", "-10", "abc", "NaN"} {
		if _, err := svc.RecordCustomerPayment(cashierCtx(), customer.ID, domain.PaymentRequest{Amount: raw}); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("amount %q: expected invalid input, got %v", raw, err)
		}
	}

	// No mutation happened.
	summary, err := svc.CustomerUtang(cashierCtx(), customer.ID)
	if err != nil {
		t.Fatalf("utang summary: %v", err)
	}
	if summary.RemainingBalanceCents != rice.UnitPriceCents {
		t.Fatalf("balance must be untouched, got %d", summary.RemainingBalanceCents)
	}
}

func TestCreditPaymentUpdatesLineAndCustomer(t *testing.T) {
	svc := newTestService()
	customer := mustCreateCustomer(t, svc, "Mang Isko")

	item, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name: "Dried Fish Pack", SKU: "FISH-01", UnitPriceCents: 10000, StockQuantity: 5,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	checkout := utangSale(t, svc, customer.ID, cartLine(item, 1))
	creditID := checkout.CreditTransactions[0].ID

	// ₱100.00 line, pays ₱40.00.
	resp, err := svc.RecordCreditPayment(cashierCtx(), creditID, domain.PaymentRequest{Amount: "40"})
	if err != nil {
		t.Fatalf("credit payment: %v", err)
	}
	if resp.ActualPaymentCents != 4000 || resp.ChangeCents != 0 {
		t.Fatalf("unexpected outcome: %+v", resp)
	}
	if resp.CreditTransaction == nil {
		t.Fatalf("expected updated credit transaction in response")
	}
	if resp.CreditTransaction.RemainingBalanceCents != 6000 {
		t.Fatalf("expected remaining 6000, got %d", resp.CreditTransaction.RemainingBalanceCents)
	}
	if resp.CreditTransaction.Status != domain.CreditStatusPartiallyPaid {
		t.Fatalf("expected partially_paid, got %s", resp.CreditTransaction.Status)
	}
	if resp.Customer.TotalOwedCents != 6000 {
		t.Fatalf("customer aggregate must drop in step, got %d", resp.Customer.TotalOwedCents)
	}

	// Settle with an overpayment: pay remaining 60 with 100, change 40.
	resp, err = svc.RecordCreditPayment(cashierCtx(), creditID, domain.PaymentRequest{Amount: "100"})
	if err != nil {
		t.Fatalf("second credit payment: %v", err)
	}
	if resp.ActualPaymentCents != 6000 || resp.ChangeCents != 4000 {
		t.Fatalf("unexpected second outcome: %+v", resp)
	}
	if resp.CreditTransaction.Status != domain.CreditStatusFullyPaid {
		t.Fatalf("expected fully_paid, got %s", resp.CreditTransaction.Status)
	}

	// A settled line refuses further payments.
	if _, err := svc.RecordCreditPayment(cashierCtx(), creditID, domain.PaymentRequest{Amount: "5"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input on settled line, got %v", err)
	}
}

func TestDeleteCustomerBlockedWhileOwing(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	customer := mustCreateCustomer(t, svc, "Aling Cita")
	utangSale(t, svc, customer.ID, cartLine(rice, 1))

	if err := svc.DeleteCustomer(adminCtx(), customer.ID); !errors.Is(err, store.ErrOutstandingBalance) {
		t.Fatalf("expected outstanding balance error, got %v", err)
	}

	if _, err := svc.RecordCustomerPayment(cashierCtx(), customer.ID, domain.PaymentRequest{Amount: "55"}); err != nil {
		t.Fatalf("settle balance: %v", err)
	}
	if err := svc.DeleteCustomer(adminCtx(), customer.ID); err != nil {
		t.Fatalf("delete after settling: %v", err)
	}
}

func TestDailySummarySplitsCashAndUtang(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	oil := productBySKU(t, svc, "OIL-500")
	customer := mustCreateCustomer(t, svc, "Ka Maria")

	if _, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       []domain.SaleItem{cartLine(rice, 2)},
		PaymentType: domain.PaymentTypeCash,
	}); err != nil {
		t.Fatalf("cash checkout: %v", err)
	}
	utangSale(t, svc, customer.ID, cartLine(oil, 1))
	if _, err := svc.RecordCustomerPayment(cashierCtx(), customer.ID, domain.PaymentRequest{Amount: "10"}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	summary, err := svc.DailySummary(cashierCtx(), "")
	if err != nil {
		t.Fatalf("daily summary: %v", err)
	}
	if summary.CashTransactions != 1 || summary.CashSalesCents != 2*rice.UnitPriceCents {
		t.Fatalf("cash side wrong: %+v", summary)
	}
	if summary.UtangTransactions != 1 || summary.UtangSalesCents != oil.UnitPriceCents {
		t.Fatalf("utang side wrong: %+v", summary)
	}
	if summary.TotalSalesCents != summary.CashSalesCents+summary.UtangSalesCents {
		t.Fatalf("total must be cash+utang: %+v", summary)
	}
	if summary.PaymentCount != 1 || summary.PaymentsCollectedCents != 1000 {
		t.Fatalf("payments wrong: %+v", summary)
	}

	if _, err := svc.DailySummary(cashierCtx(), "not-a-date"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid date error, got %v", err)
	}

	empty, err := svc.DailySummary(cashierCtx(), "2001-01-01")
	if err != nil {
		t.Fatalf("historic summary: %v", err)
	}
	if empty.TotalSalesCents != 0 || empty.PaymentCount != 0 {
		t.Fatalf("expected empty day, got %+v", empty)
	}
}

func TestOutstandingReport(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	oil := productBySKU(t, svc, "OIL-500")

	first := mustCreateCustomer(t, svc, "Debtor One")
	second := mustCreateCustomer(t, svc, "Debtor Two")
	utangSale(t, svc, first.ID, cartLine(rice, 1))
	utangSale(t, svc, second.ID, cartLine(oil, 1))

	report, err := svc.OutstandingReport(context.Background())
	if err != nil {
		t.Fatalf("outstanding report: %v", err)
	}
	want := rice.UnitPriceCents + oil.UnitPriceCents
	if report.DebtorCount != 2 || report.TotalOutstandingCents != want {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.AverageOwedCents != want/2 {
		t.Fatalf("expected average %d, got %d", want/2, report.AverageOwedCents)
	}
}

func TestOutstandingReportEmpty(t *testing.T) {
	svc := newTestService()
	report, err := svc.OutstandingReport(context.Background())
	if err != nil {
		t.Fatalf("outstanding report: %v", err)
	}
	if report.DebtorCount != 0 || report.AverageOwedCents != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestLowStockProducts(t *testing.T) {
	svc := newTestService()

	low, err := svc.LowStockProducts(context.Background())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	for _, p := range low {
		if p.StockQuantity > domain.LowStockThreshold {
			t.Fatalf("product above threshold in report: %+v", p)
		}
	}
	// Seeded shelf has the shampoo sachets (8) and egg trays (6) running low.
	if len(low) != 2 {
		t.Fatalf("expected 2 low-stock products, got %d", len(low))
	}
}

func TestCustomerHistoryNewestFirst(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	customer := mustCreateCustomer(t, svc, "Aling Fely")

	utangSale(t, svc, customer.ID, cartLine(rice, 1))
	if _, err := svc.RecordCustomerPayment(cashierCtx(), customer.ID, domain.PaymentRequest{Amount: "20"}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	// Cash sales never show up in a customer's history.
	if _, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:       []domain.SaleItem{cartLine(rice, 1)},
		PaymentType: domain.PaymentTypeCash,
	}); err != nil {
		t.Fatalf("cash checkout: %v", err)
	}

	history, err := svc.CustomerHistory(cashierCtx(), customer.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected sale + payment, got %d entries", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.After(history[i-1].CreatedAt) {
			t.Fatalf("history not sorted newest first")
		}
	}
	for _, entry := range history {
		switch entry.Type {
		case domain.HistoryEntrySale:
			if entry.Sale == nil || entry.Payment != nil {
				t.Fatalf("sale entry malformed: %+v", entry)
			}
		case domain.HistoryEntryPayment:
			if entry.Payment == nil || entry.Sale != nil {
				t.Fatalf("payment entry malformed: %+v", entry)
			}
		default:
			t.Fatalf("unknown entry type %q", entry.Type)
		}
	}
}

func TestRestockProduct(t *testing.T) {
	svc := newTestService()
	eggs := productBySKU(t, svc, "EGG-TRAY")

	updated, err := svc.RestockProduct(adminCtx(), eggs.ID, domain.RestockRequest{Quantity: 24})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if updated.StockQuantity != eggs.StockQuantity+24 {
		t.Fatalf("expected stock %d, got %d", eggs.StockQuantity+24, updated.StockQuantity)
	}

	if _, err := svc.RestockProduct(adminCtx(), eggs.ID, domain.RestockRequest{Quantity: 0}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero restock, got %v", err)
	}
	if _, err := svc.RestockProduct(cashierCtx(), eggs.ID, domain.RestockRequest{Quantity: 5}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for cashier, got %v", err)
	}
}

func TestCreateCashier(t *testing.T) {
	svc := newTestService()

	if _, err := svc.CreateCashier(cashierCtx(), domain.CashierCreateRequest{Username: "nene", Password: "longenough"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.CreateCashier(adminCtx(), domain.CashierCreateRequest{Username: "nene", Password: "short"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for weak password, got %v", err)
	}

	cashier, err := svc.CreateCashier(adminCtx(), domain.CashierCreateRequest{Username: "nene", Password: "longenough"})
	if err != nil {
		t.Fatalf("create cashier: %v", err)
	}
	if cashier.Role != "cashier" || !cashier.Active {
		t.Fatalf("unexpected cashier: %+v", cashier)
	}

	cashiers, err := svc.ListCashiers(adminCtx())
	if err != nil {
		t.Fatalf("list cashiers: %v", err)
	}
	found := false
	for _, c := range cashiers {
		if c.Username == "nene" {
			found = true
		}
	}
	if !found {
		t.Fatalf("created cashier missing from list")
	}
}

func TestAuditLogsRecordMutations(t *testing.T) {
	svc := newTestService()
	rice := productBySKU(t, svc, "RICE-1KG")
	customer := mustCreateCustomer(t, svc, "Aling Baby")
	utangSale(t, svc, customer.ID, cartLine(rice, 1))

	logs, err := svc.ListAuditLogs(adminCtx(), time.Time{}, time.Time{}, 50)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}

	actions := map[string]bool{}
	for _, entry := range logs {
		actions[entry.Action] = true
	}
	if !actions["customer_create"] || !actions["checkout"] {
		t.Fatalf("expected customer_create and checkout audit entries, got %v", actions)
	}

	if _, err := svc.ListAuditLogs(cashierCtx(), time.Time{}, time.Time{}, 50); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for cashier, got %v", err)
	}
}
