package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/comercio-erp/comercio-erp/internal/inventory"
	"github.com/comercio-erp/comercio-erp/internal/masterdata"
	"github.com/comercio-erp/comercio-erp/internal/numbering"
	"github.com/comercio-erp/comercio-erp/internal/pricing"
	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// Store is the persistence surface the service drives.
type Store interface {
	GetOrder(ctx context.Context, id int64) (*SalesOrderWithDetails, error)
	ListOrders(ctx context.Context, req ListOrdersRequest) ([]SalesOrderSummary, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the transactional writes of one order lifecycle step.
// Dependent invoices and delivery notes are manipulated here because their
// fate is decided by the order, inside the order's transaction.
type TxRepository interface {
	InsertOrder(ctx context.Context, o *SalesOrder) (int64, error)
	InsertOrderItems(ctx context.Context, orderID int64, items []SalesOrderItem) error
	UpdateOrderHeader(ctx context.Context, o *SalesOrder) error
	DeleteOrderItems(ctx context.Context, orderID int64) error
	SoftDeleteOrder(ctx context.Context, orderID int64, at time.Time) error

	GetInvoiceItems(ctx context.Context, invoiceID int64) ([]OrderInvoiceItem, error)
	ReplaceInvoiceItems(ctx context.Context, invoiceID int64, items []OrderInvoiceItem) error
	UpdateInvoiceTotals(ctx context.Context, invoiceID int64, totals OrderInvoiceTotals, at time.Time) error
	MarkInvoiceCancelled(ctx context.Context, invoiceID int64, at time.Time) error
	SoftDeleteInvoice(ctx context.Context, invoiceID int64, at time.Time) error

	ReplaceDeliveryNoteItems(ctx context.Context, noteID int64, items []OrderDeliveryNoteItem, at time.Time) error
	SoftDeleteDeliveryNote(ctx context.Context, noteID int64, at time.Time) error

	Stock() inventory.MovementStore
}

// ReferenceData is the read side of master data the lifecycle consults.
type ReferenceData interface {
	GetClient(ctx context.Context, id int64) (*masterdata.Client, error)
	GetArticles(ctx context.Context, ids []int64) (map[int64]masterdata.Article, error)
	GetPaymentTerm(ctx context.Context, id int64) (*masterdata.PaymentTerm, error)
	LoadDiscountData(ctx context.Context) ([]pricing.DiscountRule, []pricing.CategoryDefault, error)
	GetSettings(ctx context.Context) (*masterdata.Settings, error)
}

// Service implements the sales-order lifecycle.
type Service struct {
	store  Store
	refs   ReferenceData
	ledger *inventory.Ledger
	seq    numbering.Sequencer
	audit  shared.AuditRecorder
	clock  shared.Clock
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(store Store, refs ReferenceData, ledger *inventory.Ledger, seq numbering.Sequencer, audit shared.AuditRecorder, clock shared.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, refs: refs, ledger: ledger, seq: seq, audit: audit, clock: clock, logger: logger}
}

// Get returns one order with its dependent documents.
func (s *Service) Get(ctx context.Context, id int64) (*SalesOrderWithDetails, error) {
	return s.store.GetOrder(ctx, id)
}

// List returns order summaries, newest first.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]SalesOrderSummary, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.store.ListOrders(ctx, req)
}

// Permissions projects what the caller may do with the order right now.
func (s *Service) Permissions(ctx context.Context, id int64) (OrderPermissions, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return OrderPermissions{}, err
	}
	return PermissionsFor(FlagsFor(order)), nil
}

// buildItems prices the requested lines against the article catalogue.
func (s *Service) buildItems(ctx context.Context, reqItems []CreateOrderItemRequest) ([]SalesOrderItem, []float64, error) {
	ids := make([]int64, 0, len(reqItems))
	for _, it := range reqItems {
		ids = append(ids, it.ArticleID)
	}
	articles, err := s.refs.GetArticles(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	items := make([]SalesOrderItem, 0, len(reqItems))
	lineTotals := make([]float64, 0, len(reqItems))
	for _, it := range reqItems {
		art, ok := articles[it.ArticleID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: article %d does not exist", shared.ErrValidation, it.ArticleID)
		}
		lt := pricing.LineTotal(it.Quantity, it.UnitPrice, it.DiscountPct)
		items = append(items, SalesOrderItem{
			ArticleID:   art.ID,
			ArticleCode: art.Code,
			Description: art.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			DiscountPct: it.DiscountPct,
			LineTotal:   lt,
		})
		lineTotals = append(lineTotals, lt)
	}
	return items, lineTotals, nil
}

// Create registers a new PENDING order.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*SalesOrderWithDetails, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order requires at least one item", shared.ErrValidation)
	}
	if _, err := s.refs.GetClient(ctx, req.ClientID); err != nil {
		return nil, fmt.Errorf("%w: client %d does not exist", shared.ErrValidation, req.ClientID)
	}
	if req.PaymentTermID != nil {
		if _, err := s.refs.GetPaymentTerm(ctx, *req.PaymentTermID); err != nil {
			return nil, fmt.Errorf("%w: payment term %d does not exist", shared.ErrValidation, *req.PaymentTermID)
		}
	}

	items, lineTotals, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	total := pricing.OrderTotal(lineTotals, req.SpecialDiscountPct)

	var orderID int64
	insert := func() error {
		seq, err := s.seq.NextSequence(ctx, numbering.ScopeSalesOrder, now)
		if err != nil {
			return err
		}
		order := &SalesOrder{
			OrderNumber:        numbering.Format(numbering.ScopeSalesOrder, now, seq),
			ClientID:           req.ClientID,
			Status:             StatusPending,
			PaymentTermID:      req.PaymentTermID,
			SpecialDiscountPct: req.SpecialDiscountPct,
			Total:              total,
			Notes:              req.Notes,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			id, err := tx.InsertOrder(ctx, order)
			if err != nil {
				return err
			}
			orderID = id
			return tx.InsertOrderItems(ctx, id, items)
		})
	}

	if err := insert(); err != nil {
		if !numbering.IsUniqueViolation(err) {
			return nil, err
		}
		// another writer took the number between counter bump and insert;
		// one fresh sequence is enough to get past it
		if err := insert(); err != nil {
			return nil, err
		}
	}

	s.recordAudit(ctx, "sales_order.created", orderID, map[string]any{"total": total, "items": len(items)})
	return s.store.GetOrder(ctx, orderID)
}

// Update edits an order in place. When the request carries items they are
// wholesale-replaced and the unprinted dependent documents regenerate, keeping
// their numbers but reflecting the new lines. Without items only the header
// fields change; lines and documents stay untouched.
func (s *Service) Update(ctx context.Context, id int64, req UpdateOrderRequest) (*UpdateOrderResult, error) {
	existing, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Locked() {
		return nil, fmt.Errorf("%w: cannot modify order with active printed invoice", shared.ErrInvalidState)
	}
	if _, err := s.refs.GetClient(ctx, req.ClientID); err != nil {
		return nil, fmt.Errorf("%w: client %d does not exist", shared.ErrValidation, req.ClientID)
	}
	if req.PaymentTermID != nil {
		if _, err := s.refs.GetPaymentTerm(ctx, *req.PaymentTermID); err != nil {
			return nil, fmt.Errorf("%w: payment term %d does not exist", shared.ErrValidation, *req.PaymentTermID)
		}
	}

	if len(req.Items) == 0 {
		return s.updateMetadata(ctx, existing, req)
	}

	items, lineTotals, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	rules, defaults, err := s.refs.LoadDiscountData(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.refs.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	resolver := pricing.NewDiscountResolver(rules, defaults)

	articleIDs := make([]int64, 0, len(items))
	for _, it := range items {
		articleIDs = append(articleIDs, it.ArticleID)
	}
	articles, err := s.refs.GetArticles(ctx, articleIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	total := pricing.OrderTotal(lineTotals, req.SpecialDiscountPct)
	summary := RegenerationSummary{}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		header := applyHeader(existing.SalesOrder, req, total, now)
		if err := tx.UpdateOrderHeader(ctx, &header); err != nil {
			return err
		}
		if err := tx.DeleteOrderItems(ctx, id); err != nil {
			return err
		}
		if err := tx.InsertOrderItems(ctx, id, items); err != nil {
			return err
		}

		for _, inv := range existing.Invoices {
			if !inv.Regenerable() {
				continue
			}
			if err := s.regenerateInvoice(ctx, tx, inv, items, articles, resolver, settings.USDExchangeRate, now); err != nil {
				return err
			}
			summary.Invoices++
		}

		for _, note := range existing.DeliveryNotes {
			if note.DeletedAt != nil {
				continue
			}
			noteItems := make([]OrderDeliveryNoteItem, 0, len(items))
			for _, it := range items {
				noteItems = append(noteItems, OrderDeliveryNoteItem{
					ArticleID:   it.ArticleID,
					ArticleCode: it.ArticleCode,
					Description: it.Description,
					Quantity:    it.Quantity,
				})
			}
			if err := tx.ReplaceDeliveryNoteItems(ctx, note.ID, noteItems, now); err != nil {
				return err
			}
			summary.DeliveryNotes++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary.Message = fmt.Sprintf("regenerated %d invoice(s) and %d delivery note(s)", summary.Invoices, summary.DeliveryNotes)
	s.recordAudit(ctx, "sales_order.updated", id, map[string]any{
		"total":                    total,
		"regeneratedInvoices":      summary.Invoices,
		"regeneratedDeliveryNotes": summary.DeliveryNotes,
	})

	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UpdateOrderResult{Order: order, Regenerated: summary}, nil
}

// applyHeader folds the editable request fields into the order header.
func applyHeader(header SalesOrder, req UpdateOrderRequest, total float64, now time.Time) SalesOrder {
	header.ClientID = req.ClientID
	header.SpecialDiscountPct = req.SpecialDiscountPct
	header.Notes = req.Notes
	header.Total = total
	header.UpdatedAt = now
	if req.Status != "" {
		header.Status = req.Status
	}
	if req.PaymentTermID != nil {
		header.PaymentTermID = req.PaymentTermID
	}
	return header
}

// updateMetadata changes the order header only. The existing lines stay, so
// the total is recomputed from them under the new special discount, and no
// dependent document is touched.
func (s *Service) updateMetadata(ctx context.Context, existing *SalesOrderWithDetails, req UpdateOrderRequest) (*UpdateOrderResult, error) {
	now := s.clock()
	lineTotals := make([]float64, 0, len(existing.Items))
	for _, it := range existing.Items {
		lineTotals = append(lineTotals, it.LineTotal)
	}
	total := pricing.OrderTotal(lineTotals, req.SpecialDiscountPct)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		header := applyHeader(existing.SalesOrder, req, total, now)
		return tx.UpdateOrderHeader(ctx, &header)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "sales_order.updated", existing.ID, map[string]any{"total": total})
	order, err := s.store.GetOrder(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	return &UpdateOrderResult{Order: order, Regenerated: RegenerationSummary{Message: "order fields updated"}}, nil
}

// regenerateInvoice rebuilds one unprinted invoice from the new order lines.
// A discount already granted for an article survives the edit; new articles
// get the resolution chain for the invoice's payment term.
func (s *Service) regenerateInvoice(ctx context.Context, tx TxRepository, inv OrderInvoice, items []SalesOrderItem, articles map[int64]masterdata.Article, resolver *pricing.DiscountResolver, settingsRate float64, now time.Time) error {
	previous, err := tx.GetInvoiceItems(ctx, inv.ID)
	if err != nil {
		return err
	}
	kept := make(map[int64]float64, len(previous))
	for _, p := range previous {
		kept[p.ArticleID] = p.DiscountPct
	}

	rate := inv.ExchangeRate
	if rate <= 0 {
		rate = settingsRate
	}

	invItems := make([]OrderInvoiceItem, 0, len(items))
	priced := make([]pricing.InvoiceLine, 0, len(items))
	for _, it := range items {
		discount, ok := kept[it.ArticleID]
		if !ok {
			var categoryID int64
			if art, found := articles[it.ArticleID]; found && art.CategoryID != nil {
				categoryID = *art.CategoryID
			}
			discount = resolver.Resolve(categoryID, inv.PaymentTermID)
		}
		subUSD := pricing.LineSubtotalUSD(it.Quantity, it.UnitPrice, discount)
		invItems = append(invItems, OrderInvoiceItem{
			InvoiceID:         inv.ID,
			ArticleID:         it.ArticleID,
			ArticleCode:       it.ArticleCode,
			Description:       it.Description,
			Quantity:          it.Quantity,
			UnitPriceUSD:      it.UnitPrice,
			DiscountPct:       discount,
			LineSubtotalUSD:   subUSD,
			UnitPriceLocal:    pricing.ToLocal(it.UnitPrice, rate),
			LineSubtotalLocal: pricing.ToLocal(subUSD, rate),
		})
		priced = append(priced, pricing.InvoiceLine{Quantity: it.Quantity, UnitPriceUSD: it.UnitPrice, DiscountPct: discount})
	}

	if err := tx.ReplaceInvoiceItems(ctx, inv.ID, invItems); err != nil {
		return err
	}
	t := pricing.InvoiceTotalsFor(priced, rate)
	return tx.UpdateInvoiceTotals(ctx, inv.ID, OrderInvoiceTotals{
		SubtotalUSD: t.SubtotalUSD,
		DiscountUSD: t.DiscountUSD,
		TaxableUSD:  t.TaxableUSD,
		TaxUSD:      t.TaxUSD,
		TotalUSD:    t.TotalUSD,
		TotalLocal:  t.TotalLocal,
	}, now)
}

// Cancel marks the order CANCELLED. Orders frozen by a printed invoice
// cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) (*SalesOrderWithDetails, error) {
	existing, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Locked() {
		return nil, fmt.Errorf("%w: cannot cancel order with active printed invoice", shared.ErrInvalidState)
	}
	if existing.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: order is already cancelled", shared.ErrInvalidState)
	}

	now := s.clock()
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		header := existing.SalesOrder
		header.Status = StatusCancelled
		header.UpdatedAt = now
		return tx.UpdateOrderHeader(ctx, &header)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "sales_order.cancelled", id, nil)
	return s.store.GetOrder(ctx, id)
}

// Remove soft-deletes the order and unwinds its dependent documents: printed
// invoices are cancelled with their stock credited back, unprinted ones are
// soft-deleted, delivery notes are soft-deleted, lines are removed.
func (s *Service) Remove(ctx context.Context, id int64) (*RemoveOrderResult, error) {
	existing, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	batch := uuid.NewString()
	result := &RemoveOrderResult{OrderNumber: existing.OrderNumber}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, inv := range existing.Invoices {
			if inv.DeletedAt != nil {
				continue
			}
			if inv.Locked() {
				invItems, err := tx.GetInvoiceItems(ctx, inv.ID)
				if err != nil {
					return err
				}
				for _, item := range invItems {
					_, err := s.ledger.Credit(ctx, tx.Stock(), inventory.Entry{
						ArticleID: item.ArticleID,
						Quantity:  item.Quantity,
						Reference: fmt.Sprintf("Invoice %s - order %s deleted", inv.InvoiceNumber, existing.OrderNumber),
						Note:      "stock restored on order deletion",
						BatchID:   batch,
					})
					if err != nil {
						return err
					}
				}
				if err := tx.MarkInvoiceCancelled(ctx, inv.ID, now); err != nil {
					return err
				}
				result.AffectedInvoices = append(result.AffectedInvoices, AffectedInvoice{
					ID: inv.ID, InvoiceNumber: inv.InvoiceNumber, WasCancelled: true,
				})
				continue
			}
			if err := tx.SoftDeleteInvoice(ctx, inv.ID, now); err != nil {
				return err
			}
			result.AffectedInvoices = append(result.AffectedInvoices, AffectedInvoice{
				ID: inv.ID, InvoiceNumber: inv.InvoiceNumber, WasCancelled: false,
			})
		}

		for _, note := range existing.DeliveryNotes {
			if note.DeletedAt != nil {
				continue
			}
			if err := tx.SoftDeleteDeliveryNote(ctx, note.ID, now); err != nil {
				return err
			}
			result.AffectedDeliveryNotes++
		}

		if err := tx.DeleteOrderItems(ctx, id); err != nil {
			return err
		}
		return tx.SoftDeleteOrder(ctx, id, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "sales_order.deleted", id, map[string]any{
		"orderNumber":      existing.OrderNumber,
		"affectedInvoices": len(result.AffectedInvoices),
	})
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    "system",
		Action:   action,
		Entity:   "sales_order",
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
		At:       s.clock(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
