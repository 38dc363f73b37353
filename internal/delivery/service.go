package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/comercio-erp/comercio-erp/internal/masterdata"
	"github.com/comercio-erp/comercio-erp/internal/numbering"
	"github.com/comercio-erp/comercio-erp/internal/shared"
)

// Store is the persistence surface the service drives.
type Store interface {
	GetNote(ctx context.Context, id int64) (*DeliveryNoteWithItems, error)
	ListNotes(ctx context.Context, req ListDeliveryNotesRequest) ([]DeliveryNoteWithItems, error)
	GetOrder(ctx context.Context, orderID int64) (*SourceOrder, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]SourceOrderItem, error)
	ListOrderNotes(ctx context.Context, orderID int64) ([]DeliveryNote, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the transactional writes of one note operation.
type TxRepository interface {
	ListOrderNotes(ctx context.Context, orderID int64) ([]DeliveryNote, error)
	InsertNote(ctx context.Context, n *DeliveryNote) (int64, error)
	InsertNoteItems(ctx context.Context, noteID int64, items []DeliveryNoteItem) error
	SoftDeleteNote(ctx context.Context, id int64, at time.Time) error
}

// ClientReader is the master-data slice delivery needs.
type ClientReader interface {
	GetClient(ctx context.Context, id int64) (*masterdata.Client, error)
}

// Service implements the delivery-note lifecycle.
type Service struct {
	store  Store
	refs   ClientReader
	seq    numbering.Sequencer
	audit  shared.AuditRecorder
	clock  shared.Clock
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(store Store, refs ClientReader, seq numbering.Sequencer, audit shared.AuditRecorder, clock shared.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = shared.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, refs: refs, seq: seq, audit: audit, clock: clock, logger: logger}
}

// Get returns one note with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*DeliveryNoteWithItems, error) {
	return s.store.GetNote(ctx, id)
}

// List returns notes, newest first.
func (s *Service) List(ctx context.Context, req ListDeliveryNotesRequest) ([]DeliveryNoteWithItems, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.store.ListNotes(ctx, req)
}

// CreateFromOrder generates a delivery note snapshotting the order's lines.
func (s *Service) CreateFromOrder(ctx context.Context, orderID int64, req CreateDeliveryNoteRequest) (*DeliveryNoteWithItems, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListOrderNotes(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, n := range existing {
		if n.Active() {
			return nil, fmt.Errorf("%w: order %s already has an active delivery note", shared.ErrInvalidState, order.OrderNumber)
		}
	}

	orderItems, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(orderItems) == 0 {
		return nil, fmt.Errorf("%w: order %s has no items to deliver", shared.ErrValidation, order.OrderNumber)
	}

	transporter := req.Transporter
	if transporter == nil {
		client, err := s.refs.GetClient(ctx, order.ClientID)
		if err != nil {
			return nil, err
		}
		transporter = client.Transporter
	}

	items := make([]DeliveryNoteItem, 0, len(orderItems))
	for _, oi := range orderItems {
		items = append(items, DeliveryNoteItem{
			ArticleID:   oi.ArticleID,
			ArticleCode: oi.ArticleCode,
			Description: oi.Description,
			Quantity:    oi.Quantity,
		})
	}

	now := s.clock()
	var noteID int64
	insert := func() error {
		seq, err := s.seq.NextSequence(ctx, numbering.ScopeDeliveryNote, now)
		if err != nil {
			return err
		}
		note := &DeliveryNote{
			NoteNumber:    numbering.Format(numbering.ScopeDeliveryNote, now, seq),
			SalesOrderID:  orderID,
			ClientID:      order.ClientID,
			Transporter:   transporter,
			WeightKg:      req.WeightKg,
			PackagesCount: req.PackagesCount,
			DeclaredValue: req.DeclaredValue,
			Notes:         req.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.ListOrderNotes(ctx, orderID)
			if err != nil {
				return err
			}
			for _, n := range current {
				if n.Active() {
					return fmt.Errorf("%w: order %s already has an active delivery note", shared.ErrInvalidState, order.OrderNumber)
				}
			}
			id, err := tx.InsertNote(ctx, note)
			if err != nil {
				return err
			}
			noteID = id
			return tx.InsertNoteItems(ctx, id, items)
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

	s.recordAudit(ctx, "delivery_note.created", noteID, map[string]any{"orderNumber": order.OrderNumber})
	return s.store.GetNote(ctx, noteID)
}

// Remove soft-deletes the note.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if _, err := s.store.GetNote(ctx, id); err != nil {
		return err
	}
	now := s.clock()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SoftDeleteNote(ctx, id, now)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "delivery_note.deleted", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, noteID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    "system",
		Action:   action,
		Entity:   "delivery_note",
		EntityID: strconv.FormatInt(noteID, 10),
		Meta:     meta,
		At:       s.clock(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
