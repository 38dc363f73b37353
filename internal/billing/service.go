package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/comercio-erp/comercio-erp/internal/inventory"
	"github.com/comercio-erp/comercio-erp/internal/masterdata"
	"github.com/comercio-erp/comercio-erp/internal/numbering"
	"github.com/comercio-erp/comercio-erp/internal/pricing"
	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// Order statuses billing flips as invoices come and go.
const (
	orderStatusPending  = "PENDING"
	orderStatusInvoiced = "INVOICED"
)

// Store is the persistence surface the service drives.
type Store interface {
	GetInvoice(ctx context.Context, id int64) (*InvoiceWithItems, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]InvoiceSummary, error)
	GetOrder(ctx context.Context, orderID int64) (*SourceOrder, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]SourceOrderItem, error)
	ListOrderInvoices(ctx context.Context, orderID int64) ([]Invoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the transactional writes of one invoice operation.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error)
	GetInvoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error)
	ListOrderInvoices(ctx context.Context, orderID int64) ([]Invoice, error)
	InsertInvoice(ctx context.Context, inv *Invoice) (int64, error)
	InsertInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error
	ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []InvoiceItem) error
	UpdateItemDiscount(ctx context.Context, invoiceID, itemID int64, discountPct, lineSubtotalUSD, lineSubtotalLocal float64) error
	UpdateInvoiceAmounts(ctx context.Context, inv *Invoice) error
	MarkPrinted(ctx context.Context, id int64, at time.Time) error
	MarkCancelled(ctx context.Context, id int64, at time.Time) error
	SoftDeleteInvoice(ctx context.Context, id int64, at time.Time) error
	SetOrderStatus(ctx context.Context, orderID int64, status string, at time.Time) error
	UpdateClientPaymentTerm(ctx context.Context, clientID, paymentTermID int64, at time.Time) error
	Stock() inventory.MovementStore
}

// ReferenceData is the master-data read side billing consults.
type ReferenceData interface {
	GetClient(ctx context.Context, id int64) (*masterdata.Client, error)
	GetArticles(ctx context.Context, ids []int64) (map[int64]masterdata.Article, error)
	GetPaymentTerm(ctx context.Context, id int64) (*masterdata.PaymentTerm, error)
	LoadDiscountData(ctx context.Context) ([]pricing.DiscountRule, []pricing.CategoryDefault, error)
	GetSettings(ctx context.Context) (*masterdata.Settings, error)
}

// MovementReader looks up the stock trail a document left behind.
type MovementReader interface {
	ListByReference(ctx context.Context, reference string) ([]inventory.Movement, error)
}

// Service implements the invoice lifecycle.
type Service struct {
	store     Store
	refs      ReferenceData
	movements MovementReader
	ledger    *inventory.Ledger
	seq       numbering.Sequencer
	audit     shared.AuditRecorder
	changes   shared.ChangeTracker
	clock     shared.Clock
	logger    *slog.Logger
}

// NewService constructs Service.
func NewService(store Store, refs ReferenceData, movements MovementReader, ledger *inventory.Ledger, seq numbering.Sequencer, audit shared.AuditRecorder, changes shared.ChangeTracker, clock shared.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: store, refs: refs, movements: movements, ledger: ledger,
		seq: seq, audit: audit, changes: changes, clock: clock, logger: logger,
	}
}

// Get returns one invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*InvoiceWithItems, error) {
	return s.store.GetInvoice(ctx, id)
}

// List returns invoice summaries, newest first.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]InvoiceSummary, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.store.ListInvoices(ctx, req)
}

// Permissions projects what the caller may do with the invoice right now.
func (s *Service) Permissions(ctx context.Context, id int64) (InvoicePermissions, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return InvoicePermissions{}, err
	}
	return PermissionsFor(&inv.Invoice), nil
}

// StockMovements returns the ledger entries referencing this invoice.
func (s *Service) StockMovements(ctx context.Context, id int64) ([]inventory.Movement, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.movements.ListByReference(ctx, inv.InvoiceNumber)
}

// CreateFromOrder invoices a sales order. The order must be live, have lines,
// and carry no other active invoice. Creation never touches stock; only the
// print step does.
func (s *Service) CreateFromOrder(ctx context.Context, orderID int64, req CreateInvoiceRequest) (*InvoiceWithItems, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListOrderInvoices(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, inv := range existing {
		if inv.Active() {
			return nil, fmt.Errorf("%w: order %s already has an active invoice", shared.ErrInvalidState, order.OrderNumber)
		}
	}

	orderItems, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(orderItems) == 0 {
		return nil, fmt.Errorf("%w: order %s has no items to invoice", shared.ErrValidation, order.OrderNumber)
	}

	client, err := s.refs.GetClient(ctx, order.ClientID)
	if err != nil {
		return nil, err
	}
	var termID int64
	switch {
	case req.PaymentTermID != nil:
		termID = *req.PaymentTermID
	case order.PaymentTermID != nil:
		termID = *order.PaymentTermID
	case client.PaymentTermID != nil:
		termID = *client.PaymentTermID
	default:
		return nil, fmt.Errorf("%w: neither the order nor its client has a payment term", shared.ErrValidation)
	}
	if _, err := s.refs.GetPaymentTerm(ctx, termID); err != nil {
		return nil, fmt.Errorf("%w: payment term %d does not exist", shared.ErrValidation, termID)
	}

	rate := 0.0
	if req.ExchangeRate != nil {
		rate = *req.ExchangeRate
	} else {
		settings, err := s.refs.GetSettings(ctx)
		if err != nil {
			return nil, err
		}
		rate = settings.USDExchangeRate
	}

	resolver, articles, err := s.discountContext(ctx, articleIDsOf(orderItems))
	if err != nil {
		return nil, err
	}

	items := make([]InvoiceItem, 0, len(orderItems))
	priced := make([]pricing.InvoiceLine, 0, len(orderItems))
	for _, oi := range orderItems {
		discount := resolver.Resolve(categoryOf(articles, oi.ArticleID), termID)
		subUSD := pricing.LineSubtotalUSD(oi.Quantity, oi.UnitPrice, discount)
		items = append(items, InvoiceItem{
			ArticleID:         oi.ArticleID,
			ArticleCode:       oi.ArticleCode,
			Description:       oi.Description,
			Quantity:          oi.Quantity,
			UnitPriceUSD:      oi.UnitPrice,
			DiscountPct:       discount,
			LineSubtotalUSD:   subUSD,
			UnitPriceLocal:    pricing.ToLocal(oi.UnitPrice, rate),
			LineSubtotalLocal: pricing.ToLocal(subUSD, rate),
		})
		priced = append(priced, pricing.InvoiceLine{Quantity: oi.Quantity, UnitPriceUSD: oi.UnitPrice, DiscountPct: discount})
	}
	totals := pricing.InvoiceTotalsFor(priced, rate)

	now := s.clock()
	var invoiceID int64
	insert := func() error {
		seq, err := s.seq.NextSequence(ctx, numbering.ScopeInvoice, now)
		if err != nil {
			return err
		}
		inv := &Invoice{
			InvoiceNumber: numbering.Format(numbering.ScopeInvoice, now, seq),
			SalesOrderID:  orderID,
			ClientID:      order.ClientID,
			PaymentTermID: termID,
			ExchangeRate:  rate,
			SubtotalUSD:   totals.SubtotalUSD,
			DiscountUSD:   totals.DiscountUSD,
			TaxableUSD:    totals.TaxableUSD,
			TaxUSD:        totals.TaxUSD,
			TotalUSD:      totals.TotalUSD,
			TotalLocal:    totals.TotalLocal,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.ListOrderInvoices(ctx, orderID)
			if err != nil {
				return err
			}
			for _, c := range current {
				if c.Active() {
					return fmt.Errorf("%w: order %s already has an active invoice", shared.ErrInvalidState, order.OrderNumber)
				}
			}
			id, err := tx.InsertInvoice(ctx, inv)
			if err != nil {
				return err
			}
			invoiceID = id
			if err := tx.InsertInvoiceItems(ctx, id, items); err != nil {
				return err
			}
			return tx.SetOrderStatus(ctx, orderID, orderStatusInvoiced, now)
		})
	}

	if err := insert(); err != nil {
		if !numbering.IsUniqueViolation(err) {
			return nil, err
		}
		if err := insert(); err != nil {
			return nil, err
		}
	}

	s.recordAudit(ctx, "invoice.created", invoiceID, map[string]any{
		"orderNumber": order.OrderNumber,
		"totalUsd":    totals.TotalUSD,
	})
	return s.store.GetInvoice(ctx, invoiceID)
}

// Print marks the invoice printed and debits the invoiced quantities from
// stock. Printing twice is a no-op: the stock effect happens exactly once.
func (s *Service) Print(ctx context.Context, id int64) (*PrintResult, error) {
	result := &PrintResult{}
	now := s.clock()
	batch := uuid.NewString()

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsCancelled {
			return fmt.Errorf("%w: cannot print a cancelled invoice", shared.ErrInvalidState)
		}
		if inv.IsPrinted {
			result.AlreadyPrinted = true
			return nil
		}
		if err := tx.MarkPrinted(ctx, id, now); err != nil {
			return err
		}
		items, err := tx.GetInvoiceItems(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range items {
			_, err := s.ledger.Debit(ctx, tx.Stock(), inventory.Entry{
				ArticleID: item.ArticleID,
				Quantity:  item.Quantity,
				Reference: fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
				Note:      "stock debited on invoice print",
				BatchID:   batch,
			})
			if err != nil {
				return err
			}
		}
		result.StockDebited = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.StockDebited {
		s.recordAudit(ctx, "invoice.printed", id, nil)
	}
	invoice, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Invoice = invoice
	return result, nil
}

// Cancel voids the invoice. If it was printed, the invoiced quantities return
// to stock in the same transaction. The order reverts to PENDING when no
// active invoice remains.
func (s *Service) Cancel(ctx context.Context, id int64) (*InvoiceWithItems, error) {
	now := s.clock()
	batch := uuid.NewString()
	stockRestored := false

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsCancelled {
			return fmt.Errorf("%w: invoice is already cancelled", shared.ErrInvalidState)
		}
		if inv.IsPrinted {
			items, err := tx.GetInvoiceItems(ctx, id)
			if err != nil {
				return err
			}
			for _, item := range items {
				_, err := s.ledger.Credit(ctx, tx.Stock(), inventory.Entry{
					ArticleID: item.ArticleID,
					Quantity:  item.Quantity,
					Reference: fmt.Sprintf("Invoice %s cancelled", inv.InvoiceNumber),
					Note:      "stock restored on invoice cancellation",
					BatchID:   batch,
				})
				if err != nil {
					return err
				}
			}
			stockRestored = true
		}
		if err := tx.MarkCancelled(ctx, id, now); err != nil {
			return err
		}
		return s.revertOrderIfFree(ctx, tx, inv.SalesOrderID, id, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "invoice.cancelled", id, map[string]any{"stockRestored": stockRestored})
	return s.store.GetInvoice(ctx, id)
}

// Remove soft-deletes a draft invoice. Printed and cancelled invoices are
// part of history and cannot be deleted.
func (s *Service) Remove(ctx context.Context, id int64) error {
	now := s.clock()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsPrinted {
			return fmt.Errorf("%w: cannot delete printed invoices", shared.ErrInvalidState)
		}
		if inv.IsCancelled {
			return fmt.Errorf("%w: cannot delete cancelled invoices", shared.ErrInvalidState)
		}
		if err := tx.SoftDeleteInvoice(ctx, id, now); err != nil {
			return err
		}
		return s.revertOrderIfFree(ctx, tx, inv.SalesOrderID, id, now)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, "invoice.deleted", id, nil)
	return nil
}

// revertOrderIfFree flips the order back to PENDING when the invoice being
// removed or cancelled was the last active one.
func (s *Service) revertOrderIfFree(ctx context.Context, tx TxRepository, orderID, excludeInvoiceID int64, now time.Time) error {
	invoices, err := tx.ListOrderInvoices(ctx, orderID)
	if err != nil {
		return err
	}
	for _, inv := range invoices {
		if inv.ID != excludeInvoiceID && inv.Active() {
			return nil
		}
	}
	return tx.SetOrderStatus(ctx, orderID, orderStatusPending, now)
}

func (s *Service) editableInvoice(ctx context.Context, id int64) (*InvoiceWithItems, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.IsPrinted {
		return nil, fmt.Errorf("%w: cannot modify a printed invoice", shared.ErrInvalidState)
	}
	if inv.IsCancelled {
		return nil, fmt.Errorf("%w: cannot modify a cancelled invoice", shared.ErrInvalidState)
	}
	return inv, nil
}

// UpdateExchangeRate re-derives every local amount from the stored USD prices
// at the new rate. USD figures never change here.
func (s *Service) UpdateExchangeRate(ctx context.Context, id int64, req UpdateExchangeRateRequest) (*InvoiceWithItems, error) {
	inv, err := s.editableInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	previousRate := inv.ExchangeRate
	now := s.clock()
	items, priced := repriceLocal(inv.Items, req.ExchangeRate)
	totals := pricing.InvoiceTotalsFor(priced, req.ExchangeRate)

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ReplaceInvoiceItems(ctx, id, items); err != nil {
			return err
		}
		header := inv.Invoice
		header.ExchangeRate = req.ExchangeRate
		applyTotals(&header, totals)
		header.UpdatedAt = now
		return tx.UpdateInvoiceAmounts(ctx, &header)
	})
	if err != nil {
		return nil, err
	}

	s.trackChange(ctx, id, "exchange_rate",
		strconv.FormatFloat(previousRate, 'f', -1, 64),
		strconv.FormatFloat(req.ExchangeRate, 'f', -1, 64), now)
	s.recordAudit(ctx, "invoice.exchange_rate_updated", id, map[string]any{
		"from": previousRate, "to": req.ExchangeRate,
	})
	return s.store.GetInvoice(ctx, id)
}

// UpdateItems overrides per-line discounts on a draft invoice. Quantities and
// USD prices come from the order snapshot and never change here; each touched
// line and the invoice aggregates are recomputed from the stored prices.
func (s *Service) UpdateItems(ctx context.Context, id int64, req UpdateItemsRequest) (*InvoiceWithItems, error) {
	inv, err := s.editableInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no item discounts given", shared.ErrValidation)
	}

	overrides := make(map[int64]float64, len(req.Items))
	for _, it := range req.Items {
		overrides[it.ItemID] = it.DiscountPct
	}
	known := make(map[int64]bool, len(inv.Items))
	for _, it := range inv.Items {
		known[it.ID] = true
	}
	for itemID := range overrides {
		if !known[itemID] {
			return nil, fmt.Errorf("%w: invoice item %d does not exist", shared.ErrValidation, itemID)
		}
	}

	rate := inv.ExchangeRate
	type lineUpdate struct {
		itemID   int64
		discount float64
		subUSD   float64
		subLocal float64
	}
	updates := make([]lineUpdate, 0, len(overrides))
	priced := make([]pricing.InvoiceLine, 0, len(inv.Items))
	for _, it := range inv.Items {
		discount := it.DiscountPct
		if pct, ok := overrides[it.ID]; ok {
			discount = pct
			subUSD := pricing.LineSubtotalUSD(it.Quantity, it.UnitPriceUSD, discount)
			updates = append(updates, lineUpdate{
				itemID:   it.ID,
				discount: discount,
				subUSD:   subUSD,
				subLocal: pricing.ToLocal(subUSD, rate),
			})
		}
		priced = append(priced, pricing.InvoiceLine{Quantity: it.Quantity, UnitPriceUSD: it.UnitPriceUSD, DiscountPct: discount})
	}
	totals := pricing.InvoiceTotalsFor(priced, rate)
	now := s.clock()

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, u := range updates {
			if err := tx.UpdateItemDiscount(ctx, id, u.itemID, u.discount, u.subUSD, u.subLocal); err != nil {
				return err
			}
		}
		header := inv.Invoice
		applyTotals(&header, totals)
		header.UpdatedAt = now
		return tx.UpdateInvoiceAmounts(ctx, &header)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "invoice.items_updated", id, map[string]any{"items": len(updates)})
	return s.store.GetInvoice(ctx, id)
}

// UpdatePaymentTerm re-resolves every line discount against the new term and
// persists the term on the client as its new default. The client write is the
// second, explicit step of the same transaction.
func (s *Service) UpdatePaymentTerm(ctx context.Context, id int64, req UpdatePaymentTermRequest) (*InvoiceWithItems, error) {
	inv, err := s.editableInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.refs.GetPaymentTerm(ctx, req.PaymentTermID); err != nil {
		return nil, fmt.Errorf("%w: payment term %d does not exist", shared.ErrValidation, req.PaymentTermID)
	}

	resolver, articles, err := s.discountContext(ctx, articleIDsOfItems(inv.Items))
	if err != nil {
		return nil, err
	}

	rate := inv.ExchangeRate
	items := make([]InvoiceItem, 0, len(inv.Items))
	priced := make([]pricing.InvoiceLine, 0, len(inv.Items))
	for _, it := range inv.Items {
		discount := resolver.Resolve(categoryOf(articles, it.ArticleID), req.PaymentTermID)
		subUSD := pricing.LineSubtotalUSD(it.Quantity, it.UnitPriceUSD, discount)
		next := it
		next.ID = 0
		next.DiscountPct = discount
		next.LineSubtotalUSD = subUSD
		next.UnitPriceLocal = pricing.ToLocal(it.UnitPriceUSD, rate)
		next.LineSubtotalLocal = pricing.ToLocal(subUSD, rate)
		items = append(items, next)
		priced = append(priced, pricing.InvoiceLine{Quantity: it.Quantity, UnitPriceUSD: it.UnitPriceUSD, DiscountPct: discount})
	}
	totals := pricing.InvoiceTotalsFor(priced, rate)

	previousTerm := inv.PaymentTermID
	now := s.clock()

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ReplaceInvoiceItems(ctx, id, items); err != nil {
			return err
		}
		header := inv.Invoice
		header.PaymentTermID = req.PaymentTermID
		applyTotals(&header, totals)
		header.UpdatedAt = now
		if err := tx.UpdateInvoiceAmounts(ctx, &header); err != nil {
			return err
		}
		// the chosen term becomes the client's default for future documents
		return tx.UpdateClientPaymentTerm(ctx, inv.ClientID, req.PaymentTermID, now)
	})
	if err != nil {
		return nil, err
	}

	s.trackChange(ctx, id, "payment_term_id",
		strconv.FormatInt(previousTerm, 10),
		strconv.FormatInt(req.PaymentTermID, 10), now)
	s.recordAudit(ctx, "invoice.payment_term_updated", id, map[string]any{
		"from": previousTerm, "to": req.PaymentTermID,
	})
	return s.store.GetInvoice(ctx, id)
}

func (s *Service) discountContext(ctx context.Context, articleIDs []int64) (*pricing.DiscountResolver, map[int64]masterdata.Article, error) {
	rules, defaults, err := s.refs.LoadDiscountData(ctx)
	if err != nil {
		return nil, nil, err
	}
	articles, err := s.refs.GetArticles(ctx, articleIDs)
	if err != nil {
		return nil, nil, err
	}
	return pricing.NewDiscountResolver(rules, defaults), articles, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, invoiceID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    "system",
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
		Meta:     meta,
		At:       s.clock(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) trackChange(ctx context.Context, invoiceID int64, field, before, after string, at time.Time) {
	if s.changes == nil {
		return
	}
	err := s.changes.Track(ctx, []shared.FieldChange{{
		Entity:   "invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
		Field:    field,
		Before:   before,
		After:    after,
		At:       at,
	}})
	if err != nil {
		s.logger.Warn("change tracking failed", slog.String("field", field), slog.Any("error", err))
	}
}

func applyTotals(inv *Invoice, t pricing.InvoiceTotals) {
	inv.SubtotalUSD = t.SubtotalUSD
	inv.DiscountUSD = t.DiscountUSD
	inv.TaxableUSD = t.TaxableUSD
	inv.TaxUSD = t.TaxUSD
	inv.TotalUSD = t.TotalUSD
	inv.TotalLocal = t.TotalLocal
}

// repriceLocal rebuilds the local columns of existing lines at a new rate.
func repriceLocal(items []InvoiceItem, rate float64) ([]InvoiceItem, []pricing.InvoiceLine) {
	out := make([]InvoiceItem, 0, len(items))
	priced := make([]pricing.InvoiceLine, 0, len(items))
	for _, it := range items {
		next := it
		next.ID = 0
		next.UnitPriceLocal = pricing.ToLocal(it.UnitPriceUSD, rate)
		next.LineSubtotalLocal = pricing.ToLocal(it.LineSubtotalUSD, rate)
		out = append(out, next)
		priced = append(priced, pricing.InvoiceLine{Quantity: it.Quantity, UnitPriceUSD: it.UnitPriceUSD, DiscountPct: it.DiscountPct})
	}
	return out, priced
}

func articleIDsOf(items []SourceOrderItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ArticleID)
	}
	return ids
}

func articleIDsOfItems(items []InvoiceItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ArticleID)
	}
	return ids
}

func categoryOf(articles map[int64]masterdata.Article, articleID int64) int64 {
	if art, ok := articles[articleID]; ok && art.CategoryID != nil {
		return *art.CategoryID
	}
	return 0
}
