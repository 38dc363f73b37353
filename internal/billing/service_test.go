package billing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comercio-erp/comercio-erp/internal/inventory"
	"github.com/comercio-erp/comercio-erp/internal/masterdata"
	"github.com/comercio-erp/comercio-erp/internal/pricing"
	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// ==== FAKES

type fakeStock struct {
	stocks    map[int64]float64
	movements []inventory.Movement
}

func (f *fakeStock) GetArticleStockForUpdate(_ context.Context, articleID int64) (float64, error) {
	s, ok := f.stocks[articleID]
	if !ok {
		return 0, fmt.Errorf("%w: article %d", shared.ErrNotFound, articleID)
	}
	return s, nil
}

func (f *fakeStock) InsertMovement(_ context.Context, m inventory.Movement) (int64, error) {
	f.movements = append(f.movements, m)
	return int64(len(f.movements)), nil
}

func (f *fakeStock) SetArticleStock(_ context.Context, articleID int64, stock float64) error {
	f.stocks[articleID] = stock
	return nil
}

func (f *fakeStock) ListByReference(_ context.Context, reference string) ([]inventory.Movement, error) {
	var out []inventory.Movement
	for _, m := range f.movements {
		if strings.Contains(m.Reference, reference) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeStore struct {
	nextID      int64
	nextItemID  int64
	invoices    map[int64]*Invoice
	items       map[int64][]InvoiceItem
	orders      map[int64]*SourceOrder
	orderItems  map[int64][]SourceOrderItem
	clientTerms map[int64]int64
	stock       *fakeStock
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invoices:    map[int64]*Invoice{},
		items:       map[int64][]InvoiceItem{},
		orders:      map[int64]*SourceOrder{},
		orderItems:  map[int64][]SourceOrderItem{},
		clientTerms: map[int64]int64{},
		stock:       &fakeStock{stocks: map[int64]float64{}},
	}
}

func (f *fakeStore) GetInvoice(_ context.Context, id int64) (*InvoiceWithItems, error) {
	inv, ok := f.invoices[id]
	if !ok || inv.DeletedAt != nil {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return &InvoiceWithItems{
		Invoice:    *inv,
		ClientName: "Test Client",
		Items:      append([]InvoiceItem(nil), f.items[id]...),
	}, nil
}

func (f *fakeStore) ListInvoices(_ context.Context, _ ListInvoicesRequest) ([]InvoiceSummary, error) {
	var out []InvoiceSummary
	for id, inv := range f.invoices {
		if inv.DeletedAt != nil {
			continue
		}
		out = append(out, InvoiceSummary{Invoice: *inv, ClientName: "Test Client", ItemCount: len(f.items[id])})
	}
	return out, nil
}

func (f *fakeStore) GetOrder(_ context.Context, orderID int64) (*SourceOrder, error) {
	o, ok := f.orders[orderID]
	if !ok || o.DeletedAt != nil {
		return nil, fmt.Errorf("%w: sales order %d", shared.ErrNotFound, orderID)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) GetOrderItems(_ context.Context, orderID int64) ([]SourceOrderItem, error) {
	return f.orderItems[orderID], nil
}

func (f *fakeStore) ListOrderInvoices(_ context.Context, orderID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range f.invoices {
		if inv.SalesOrderID == orderID && inv.DeletedAt == nil {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakeStore) GetInvoiceForUpdate(_ context.Context, id int64) (*Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok || inv.DeletedAt != nil {
		return nil, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeStore) GetInvoiceItems(_ context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return f.items[invoiceID], nil
}

func (f *fakeStore) InsertInvoice(_ context.Context, inv *Invoice) (int64, error) {
	f.nextID++
	inv.ID = f.nextID
	cp := *inv
	f.invoices[inv.ID] = &cp
	return inv.ID, nil
}

func (f *fakeStore) InsertInvoiceItems(_ context.Context, invoiceID int64, items []InvoiceItem) error {
	for i := range items {
		f.nextItemID++
		items[i].ID = f.nextItemID
		items[i].InvoiceID = invoiceID
	}
	f.items[invoiceID] = append(f.items[invoiceID], items...)
	return nil
}

func (f *fakeStore) ReplaceInvoiceItems(_ context.Context, invoiceID int64, items []InvoiceItem) error {
	for i := range items {
		f.nextItemID++
		items[i].ID = f.nextItemID
		items[i].InvoiceID = invoiceID
	}
	f.items[invoiceID] = items
	return nil
}

func (f *fakeStore) UpdateItemDiscount(_ context.Context, invoiceID, itemID int64, discountPct, lineSubtotalUSD, lineSubtotalLocal float64) error {
	items := f.items[invoiceID]
	for i := range items {
		if items[i].ID == itemID {
			items[i].DiscountPct = discountPct
			items[i].LineSubtotalUSD = lineSubtotalUSD
			items[i].LineSubtotalLocal = lineSubtotalLocal
			return nil
		}
	}
	return fmt.Errorf("%w: invoice item %d", shared.ErrNotFound, itemID)
}

func (f *fakeStore) UpdateInvoiceAmounts(_ context.Context, inv *Invoice) error {
	existing, ok := f.invoices[inv.ID]
	if !ok || existing.DeletedAt != nil || existing.IsPrinted || existing.IsCancelled {
		return fmt.Errorf("%w: invoice %d is not editable", shared.ErrInvalidState, inv.ID)
	}
	cp := *inv
	f.invoices[inv.ID] = &cp
	return nil
}

func (f *fakeStore) MarkPrinted(_ context.Context, id int64, at time.Time) error {
	inv := f.invoices[id]
	inv.IsPrinted = true
	inv.PrintedAt = &at
	return nil
}

func (f *fakeStore) MarkCancelled(_ context.Context, id int64, at time.Time) error {
	inv := f.invoices[id]
	inv.IsCancelled = true
	inv.CancelledAt = &at
	return nil
}

func (f *fakeStore) SoftDeleteInvoice(_ context.Context, id int64, at time.Time) error {
	f.invoices[id].DeletedAt = &at
	return nil
}

func (f *fakeStore) SetOrderStatus(_ context.Context, orderID int64, status string, _ time.Time) error {
	o, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: sales order %d", shared.ErrNotFound, orderID)
	}
	o.Status = status
	return nil
}

func (f *fakeStore) UpdateClientPaymentTerm(_ context.Context, clientID, paymentTermID int64, _ time.Time) error {
	f.clientTerms[clientID] = paymentTermID
	return nil
}

func (f *fakeStore) Stock() inventory.MovementStore {
	return f.stock
}

type fakeRefs struct {
	clients  map[int64]*masterdata.Client
	articles map[int64]masterdata.Article
	terms    map[int64]*masterdata.PaymentTerm
	rules    []pricing.DiscountRule
	defaults []pricing.CategoryDefault
	settings masterdata.Settings
}

func (f *fakeRefs) GetClient(_ context.Context, id int64) (*masterdata.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: client %d", shared.ErrNotFound, id)
	}
	return c, nil
}

func (f *fakeRefs) GetArticles(_ context.Context, ids []int64) (map[int64]masterdata.Article, error) {
	out := map[int64]masterdata.Article{}
	for _, id := range ids {
		if a, ok := f.articles[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (f *fakeRefs) GetPaymentTerm(_ context.Context, id int64) (*masterdata.PaymentTerm, error) {
	t, ok := f.terms[id]
	if !ok {
		return nil, fmt.Errorf("%w: payment term %d", shared.ErrNotFound, id)
	}
	return t, nil
}

func (f *fakeRefs) LoadDiscountData(_ context.Context) ([]pricing.DiscountRule, []pricing.CategoryDefault, error) {
	return f.rules, f.defaults, nil
}

func (f *fakeRefs) GetSettings(_ context.Context) (*masterdata.Settings, error) {
	s := f.settings
	return &s, nil
}

type fakeSequencer struct {
	counters map[string]int64
}

func (f *fakeSequencer) NextSequence(_ context.Context, scope string, _ time.Time) (int64, error) {
	if f.counters == nil {
		f.counters = map[string]int64{}
	}
	f.counters[scope]++
	return f.counters[scope], nil
}

type fakeTracker struct {
	changes []shared.FieldChange
}

func (f *fakeTracker) Track(_ context.Context, changes []shared.FieldChange) error {
	f.changes = append(f.changes, changes...)
	return nil
}

// ==== FIXTURE

var testDay = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeTracker) {
	t.Helper()
	store := newFakeStore()
	store.orders[1] = &SourceOrder{ID: 1, OrderNumber: "SO-20260315-0001", ClientID: 7, Status: "PENDING"}
	store.orderItems[1] = []SourceOrderItem{
		{ArticleID: 1, ArticleCode: "A-001", Description: "Widget", Quantity: 10, UnitPrice: 100},
	}
	store.stock.stocks[1] = 15
	store.stock.stocks[2] = 20

	cat := int64(1)
	defaultTerm := int64(3)
	refs := &fakeRefs{
		clients: map[int64]*masterdata.Client{
			7: {ID: 7, BusinessName: "Test Client", PaymentTermID: &defaultTerm},
		},
		articles: map[int64]masterdata.Article{
			1: {ID: 1, Code: "A-001", Description: "Widget", CategoryID: &cat},
			2: {ID: 2, Code: "A-002", Description: "Gadget", CategoryID: &cat},
		},
		terms: map[int64]*masterdata.PaymentTerm{
			3: {ID: 3, Name: "Cash"},
			4: {ID: 4, Name: "30 days"},
		},
		rules: []pricing.DiscountRule{
			{CategoryID: 1, PaymentTermID: 3, DiscountPct: 10},
			{CategoryID: 1, PaymentTermID: 4, DiscountPct: 20},
		},
		defaults: []pricing.CategoryDefault{{CategoryID: 1, DiscountPct: 5}},
		settings: masterdata.Settings{ID: 1, USDExchangeRate: 1000},
	}

	clock := shared.FixedClock(testDay)
	tracker := &fakeTracker{}
	svc := NewService(store, refs, store.stock, inventory.NewLedger(clock), &fakeSequencer{}, nil, tracker, clock, nil)
	return svc, store, tracker
}

func createInvoice(t *testing.T, svc *Service) *InvoiceWithItems {
	t.Helper()
	inv, err := svc.CreateFromOrder(context.Background(), 1, CreateInvoiceRequest{})
	require.NoError(t, err)
	return inv
}

// ==== TESTS

func TestCreateInvoiceFromOrder(t *testing.T) {
	svc, store, _ := newTestService(t)

	inv := createInvoice(t, svc)

	assert.Equal(t, "INV-20260315-0001", inv.InvoiceNumber)
	assert.Equal(t, int64(3), inv.PaymentTermID, "client default term applies")
	assert.Equal(t, 1000.0, inv.ExchangeRate, "settings rate applies")

	// 10 x $100, term rule gives 10%: 1000 gross, 900 taxable, 21% tax
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 10.0, inv.Items[0].DiscountPct)
	assert.Equal(t, 900.0, inv.Items[0].LineSubtotalUSD)
	assert.Equal(t, 1000.0, inv.SubtotalUSD)
	assert.Equal(t, 100.0, inv.DiscountUSD)
	assert.Equal(t, 900.0, inv.TaxableUSD)
	assert.Equal(t, 189.0, inv.TaxUSD)
	assert.Equal(t, 1089.0, inv.TotalUSD)
	assert.Equal(t, 1089000.0, inv.TotalLocal)

	assert.False(t, inv.IsPrinted, "creation never touches stock")
	assert.Equal(t, 15.0, store.stock.stocks[1])
	assert.Equal(t, "INVOICED", store.orders[1].Status)
}

func TestCreateInvoiceRejectsSecondActive(t *testing.T) {
	svc, _, _ := newTestService(t)
	createInvoice(t, svc)

	_, err := svc.CreateFromOrder(context.Background(), 1, CreateInvoiceRequest{})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "already has an active invoice")
}

func TestCreateInvoiceAfterCancellation(t *testing.T) {
	svc, _, _ := newTestService(t)
	first := createInvoice(t, svc)

	_, err := svc.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	second, err := svc.CreateFromOrder(context.Background(), 1, CreateInvoiceRequest{})
	require.NoError(t, err)
	assert.Equal(t, "INV-20260315-0002", second.InvoiceNumber)
}

func TestCreateInvoiceRequiresPaymentTerm(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.orders[2] = &SourceOrder{ID: 2, OrderNumber: "SO-20260315-0002", ClientID: 8, Status: "PENDING"}
	store.orderItems[2] = []SourceOrderItem{{ArticleID: 1, ArticleCode: "A-001", Description: "Widget", Quantity: 1, UnitPrice: 10}}

	svcRefs := svc.refs.(*fakeRefs)
	svcRefs.clients[8] = &masterdata.Client{ID: 8, BusinessName: "No Term SA"}

	_, err := svc.CreateFromOrder(context.Background(), 2, CreateInvoiceRequest{})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "payment term")

	term := int64(4)
	inv, err := svc.CreateFromOrder(context.Background(), 2, CreateInvoiceRequest{PaymentTermID: &term})
	require.NoError(t, err)
	assert.Equal(t, int64(4), inv.PaymentTermID)
}

func TestCreateInvoiceUsesOrderPaymentTerm(t *testing.T) {
	svc, store, _ := newTestService(t)
	orderTerm := int64(4)
	store.orders[1].PaymentTermID = &orderTerm

	// the order's term beats the client default (term 3)
	inv := createInvoice(t, svc)
	assert.Equal(t, int64(4), inv.PaymentTermID)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 20.0, inv.Items[0].DiscountPct, "term 4 rule applies")

	// an explicit request override still beats the order's term
	_, err := svc.Cancel(context.Background(), inv.ID)
	require.NoError(t, err)
	reqTerm := int64(3)
	second, err := svc.CreateFromOrder(context.Background(), 1, CreateInvoiceRequest{PaymentTermID: &reqTerm})
	require.NoError(t, err)
	assert.Equal(t, int64(3), second.PaymentTermID)
}

func TestCreateInvoiceRequiresItems(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.orderItems[1] = nil

	_, err := svc.CreateFromOrder(context.Background(), 1, CreateInvoiceRequest{})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "no items to invoice")
}

func TestPrintInvoiceDebitsStockOnce(t *testing.T) {
	svc, store, _ := newTestService(t)
	inv := createInvoice(t, svc)

	result, err := svc.Print(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, result.StockDebited)
	assert.False(t, result.AlreadyPrinted)
	assert.True(t, result.Invoice.IsPrinted)

	assert.Equal(t, 5.0, store.stock.stocks[1])
	require.Len(t, store.stock.movements, 1)
	assert.Equal(t, inventory.MovementDebit, store.stock.movements[0].Type)
	assert.Equal(t, 10.0, store.stock.movements[0].Quantity)
	assert.Equal(t, 15.0, store.stock.movements[0].StockBefore)
	assert.Equal(t, 5.0, store.stock.movements[0].StockAfter)
	assert.Contains(t, store.stock.movements[0].Reference, inv.InvoiceNumber)

	// printing again is a no-op
	again, err := svc.Print(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyPrinted)
	assert.False(t, again.StockDebited)
	assert.Equal(t, 5.0, store.stock.stocks[1])
	assert.Len(t, store.stock.movements, 1)
}

func TestPrintCancelledInvoice(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := createInvoice(t, svc)

	_, err := svc.Cancel(context.Background(), inv.ID)
	require.NoError(t, err)

	_, err = svc.Print(context.Background(), inv.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestCancelPrintedInvoiceRestoresStock(t *testing.T) {
	svc, store, _ := newTestService(t)
	inv := createInvoice(t, svc)

	_, err := svc.Print(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, 5.0, store.stock.stocks[1])

	cancelled, err := svc.Cancel(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)

	assert.Equal(t, 15.0, store.stock.stocks[1])
	require.Len(t, store.stock.movements, 2)
	assert.Equal(t, inventory.MovementCredit, store.stock.movements[1].Type)
	assert.Contains(t, store.stock.movements[1].Reference, "cancelled")

	assert.Equal(t, "PENDING", store.orders[1].Status)

	_, err = svc.Cancel(context.Background(), inv.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "already cancelled")
}

func TestCancelDraftInvoiceLeavesStockAlone(t *testing.T) {
	svc, store, _ := newTestService(t)
	inv := createInvoice(t, svc)

	_, err := svc.Cancel(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.Empty(t, store.stock.movements)
	assert.Equal(t, 15.0, store.stock.stocks[1])
	assert.Equal(t, "PENDING", store.orders[1].Status)
}

func TestRemoveInvoice(t *testing.T) {
	svc, store, _ := newTestService(t)
	inv := createInvoice(t, svc)

	require.NoError(t, svc.Remove(context.Background(), inv.ID))
	assert.Equal(t, "PENDING", store.orders[1].Status)

	_, err := svc.Get(context.Background(), inv.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemovePrintedInvoice(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := createInvoice(t, svc)

	_, err := svc.Print(context.Background(), inv.ID)
	require.NoError(t, err)

	err = svc.Remove(context.Background(), inv.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "cannot delete printed invoices")
}

func TestRemoveCancelledInvoice(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := createInvoice(t, svc)

	_, err := svc.Cancel(context.Background(), inv.ID)
	require.NoError(t, err)

	err = svc.Remove(context.Background(), inv.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "cannot delete cancelled invoices")
}

func TestUpdateExchangeRate(t *testing.T) {
	svc, _, tracker := newTestService(t)
	inv := createInvoice(t, svc)

	updated, err := svc.UpdateExchangeRate(context.Background(), inv.ID, UpdateExchangeRateRequest{ExchangeRate: 1100})
	require.NoError(t, err)

	// USD figures never move; local amounts re-derive at the new rate
	assert.Equal(t, 1089.0, updated.TotalUSD)
	assert.Equal(t, 1197900.0, updated.TotalLocal)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 900.0, updated.Items[0].LineSubtotalUSD)
	assert.Equal(t, 990000.0, updated.Items[0].LineSubtotalLocal)

	require.Len(t, tracker.changes, 1)
	assert.Equal(t, "exchange_rate", tracker.changes[0].Field)
	assert.Equal(t, "1000", tracker.changes[0].Before)
	assert.Equal(t, "1100", tracker.changes[0].After)
}

func TestUpdateExchangeRateOnPrintedInvoice(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := createInvoice(t, svc)

	_, err := svc.Print(context.Background(), inv.ID)
	require.NoError(t, err)

	_, err = svc.UpdateExchangeRate(context.Background(), inv.ID, UpdateExchangeRateRequest{ExchangeRate: 1100})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "printed")
}

func TestUpdateItemsOverridesDiscountOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := createInvoice(t, svc)
	require.Len(t, inv.Items, 1)
	require.Equal(t, 10.0, inv.Items[0].DiscountPct)

	updated, err := svc.UpdateItems(context.Background(), inv.ID, UpdateItemsRequest{
		Items: []UpdateItemRequest{{ItemID: inv.Items[0].ID, DiscountPct: 5}},
	})
	require.NoError(t, err)

	// the line keeps its snapshot quantity and price; only the discount and
	// the derived amounts move
	require.Len(t, updated.Items, 1)
	assert.Equal(t, inv.Items[0].ID, updated.Items[0].ID)
	assert.Equal(t, 10.0, updated.Items[0].Quantity)
	assert.Equal(t, 100.0, updated.Items[0].UnitPriceUSD)
	assert.Equal(t, 5.0, updated.Items[0].DiscountPct)
	assert.Equal(t, 950.0, updated.Items[0].LineSubtotalUSD)
	assert.Equal(t, 950000.0, updated.Items[0].LineSubtotalLocal)

	assert.Equal(t, 1000.0, updated.SubtotalUSD)
	assert.Equal(t, 50.0, updated.DiscountUSD)
	assert.Equal(t, 950.0, updated.TaxableUSD)
	assert.Equal(t, 199.5, updated.TaxUSD)
	assert.Equal(t, 1149.5, updated.TotalUSD)
	assert.Equal(t, 1149500.0, updated.TotalLocal)
}

func TestUpdateItemsRejectsUnknownLine(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := createInvoice(t, svc)

	_, err := svc.UpdateItems(context.Background(), inv.ID, UpdateItemsRequest{
		Items: []UpdateItemRequest{{ItemID: 999, DiscountPct: 5}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "invoice item 999")
}

func TestUpdatePaymentTerm(t *testing.T) {
	svc, store, tracker := newTestService(t)
	inv := createInvoice(t, svc)

	updated, err := svc.UpdatePaymentTerm(context.Background(), inv.ID, UpdatePaymentTermRequest{PaymentTermID: 4})
	require.NoError(t, err)

	// term 4 rule re-resolves the line to 20%
	assert.Equal(t, int64(4), updated.PaymentTermID)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, 20.0, updated.Items[0].DiscountPct)
	assert.Equal(t, 800.0, updated.Items[0].LineSubtotalUSD)
	assert.Equal(t, 968.0, updated.TotalUSD)

	// the chosen term sticks as the client's default
	assert.Equal(t, int64(4), store.clientTerms[7])

	require.Len(t, tracker.changes, 1)
	assert.Equal(t, "payment_term_id", tracker.changes[0].Field)
	assert.Equal(t, "3", tracker.changes[0].Before)
	assert.Equal(t, "4", tracker.changes[0].After)

	_, err = svc.UpdatePaymentTerm(context.Background(), inv.ID, UpdatePaymentTermRequest{PaymentTermID: 99})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestStockMovements(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := createInvoice(t, svc)

	movements, err := svc.StockMovements(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)

	_, err = svc.Print(context.Background(), inv.ID)
	require.NoError(t, err)

	movements, err = svc.StockMovements(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, inventory.MovementDebit, movements[0].Type)
}

func TestInvoicePermissions(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := createInvoice(t, svc)

	perms, err := svc.Permissions(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, perms.CanEdit)
	assert.True(t, perms.CanPrint)
	assert.True(t, perms.CanCancel)
	assert.True(t, perms.CanDelete)

	_, err = svc.Print(context.Background(), inv.ID)
	require.NoError(t, err)
	perms, err = svc.Permissions(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.False(t, perms.CanEdit)
	assert.True(t, perms.CanPrint, "reprinting stays allowed as a no-op")
	assert.True(t, perms.CanCancel)
	assert.False(t, perms.CanDelete)

	_, err = svc.Cancel(context.Background(), inv.ID)
	require.NoError(t, err)
	perms, err = svc.Permissions(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.False(t, perms.CanPrint)
	assert.False(t, perms.CanCancel)
}
