package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yeremiapane/restaurant-pos-sync/models"
	"github.com/yeremiapane/restaurant-pos-sync/outbox"
	"github.com/yeremiapane/restaurant-pos-sync/store"
	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

var (
	ErrEmptyOrder   = errors.New("order has no lines")
	ErrNoTable      = errors.New("dine-in order needs a table")
	ErrNoStaff      = errors.New("staff id is required")
	ErrShiftClosed  = errors.New("shift already clocked out")
	ErrShiftMissing = errors.New("shift not found")
)

type OrderLineRequest struct {
	ItemID    string  `json:"item_id" binding:"required"`
	UnitPrice float64 `json:"unit_price" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
}

type OrderRequest struct {
	Lines     []OrderLineRequest `json:"lines" binding:"required"`
	OrderType string             `json:"order_type" binding:"required"`
	TableID   string             `json:"table_id"`
	WaiterID  string             `json:"waiter_id" binding:"required"`
}

// orderIntent is the outbox payload: just the local id. The engine re-reads
// the order and its lines from the store at replay time, so a crash between
// line insert and purge re-derives the same work from the surviving parent.
type orderIntent struct {
	OrderID string `json:"order_id"`
}

type shiftIntent struct {
	ShiftID string `json:"shift_id"`
}

// IntakeService is the offline write path: it persists the domain record and
// the matching outbox entry. The user sees immediate, unconditional success;
// reconciliation happens later and is reported only in aggregate.
type IntakeService struct {
	store     *store.Store
	outbox    *outbox.Outbox
	retention *RetentionManager
}

func NewIntakeService(st *store.Store, ob *outbox.Outbox, rm *RetentionManager) *IntakeService {
	return &IntakeService{store: st, outbox: ob, retention: rm}
}

// PlaceOrder buffers a new order locally. There is no cross-collection
// transaction between the order, its lines, and the outbox entry; an orphaned
// line after a crash is tolerated because replay only ever starts from the
// parent order.
func (s *IntakeService) PlaceOrder(req OrderRequest) (*models.Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if req.OrderType == models.OrderTypeDineIn && req.TableID == "" {
		return nil, ErrNoTable
	}
	if req.WaiterID == "" {
		return nil, ErrNoStaff
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("item %s: quantity must be positive", line.ItemID)
		}
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:        outbox.NewLocalID(),
		Origin:    models.OriginLocal,
		Status:    models.OrderStatusPending,
		OrderType: req.OrderType,
		TableID:   req.TableID,
		WaiterID:  req.WaiterID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var lines []models.OrderLine
	for _, line := range req.Lines {
		total := line.UnitPrice * float64(line.Quantity)
		order.Subtotal += total
		lines = append(lines, models.OrderLine{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Total:     total,
		})
	}
	order.Total = order.Subtotal

	if err := s.store.Put(order); err != nil {
		return nil, s.retention.HandleQuotaError(err)
	}
	if err := s.store.BulkPut(lines); err != nil {
		return nil, s.retention.HandleQuotaError(err)
	}
	order.Lines = lines
	if _, err := s.outbox.Enqueue(models.OutboxActionCreate, models.CollectionOrders, orderIntent{OrderID: order.ID}); err != nil {
		return nil, s.retention.HandleQuotaError(err)
	}

	utils.InfoLogger.Printf("Buffered offline order %s (%d lines, total %.2f)", order.ID, len(order.Lines), order.Total)
	return order, nil
}

// ClockIn buffers a new attendance shift.
func (s *IntakeService) ClockIn(staffID string) (*models.Shift, error) {
	if staffID == "" {
		return nil, ErrNoStaff
	}
	shift := &models.Shift{
		ID:      outbox.NewLocalID(),
		Origin:  models.OriginLocal,
		StaffID: staffID,
		ClockIn: time.Now().UTC(),
	}
	if err := s.store.Put(shift); err != nil {
		return nil, s.retention.HandleQuotaError(err)
	}
	if _, err := s.outbox.Enqueue(models.OutboxActionCreate, models.CollectionShifts, shiftIntent{ShiftID: shift.ID}); err != nil {
		return nil, s.retention.HandleQuotaError(err)
	}
	utils.InfoLogger.Printf("Buffered clock-in for staff %s (shift %s)", staffID, shift.ID)
	return shift, nil
}

// ClockOut closes a buffered shift. Only the local record changes; the
// pending outbox entry will replay whatever state the shift is in when the
// engine gets to it.
func (s *IntakeService) ClockOut(shiftID string) (*models.Shift, error) {
	var shift models.Shift
	if err := s.store.Get(&shift, shiftID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrShiftMissing
		}
		return nil, err
	}
	if shift.ClockOut != nil {
		return nil, ErrShiftClosed
	}
	now := time.Now().UTC()
	shift.ClockOut = &now
	if err := s.store.Put(&shift); err != nil {
		return nil, s.retention.HandleQuotaError(err)
	}
	return &shift, nil
}
