package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/models"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

const (
	StepOrder    = "order_update"
	StepStock    = "stock_decrement"
	StepCart     = "cart_clear"
	StepEarnings = "earnings_credit"
	StepNotify   = "notification"

	rowLockTTL = 5 * time.Second
)

type StepResult struct {
	Step    string
	Skipped bool
	Err     error
}

type FanoutReport struct {
	Steps []StepResult
}

// Failed lists the steps that returned an error.
func (r FanoutReport) Failed() []string {
	var failed []string
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s.Step)
		}
	}
	return failed
}

// Fanout applies the side effects of a successful payment. Steps are
// independent: a failing step is logged and the rest still run.
type Fanout struct {
	orders    interfaces.OrderStore
	inventory interfaces.InventoryStore
	carts     interfaces.CartStore
	earnings  interfaces.EarningsStore
	locker    interfaces.RowLocker
	tasks     interfaces.TaskQueue
	now       func() time.Time
}

// NewFanout builds the fan-out. locker may be nil, in which case the
// read-then-write fallbacks run unguarded.
func NewFanout(
	orders interfaces.OrderStore,
	inventory interfaces.InventoryStore,
	carts interfaces.CartStore,
	earnings interfaces.EarningsStore,
	locker interfaces.RowLocker,
	tasks interfaces.TaskQueue,
) *Fanout {
	return &Fanout{
		orders:    orders,
		inventory: inventory,
		carts:     carts,
		earnings:  earnings,
		locker:    locker,
		tasks:     tasks,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (f *Fanout) Run(ctx context.Context, tx *models.Transaction) FanoutReport {
	ctx, span := telemetry.Tracer.Start(ctx, "fanout.Run")
	defer span.End()

	var report FanoutReport
	record := func(step string, skipped bool, err error) {
		report.Steps = append(report.Steps, StepResult{Step: step, Skipped: skipped, Err: err})
		fields := []zap.Field{
			zap.String("reference_id", tx.ReferenceID),
			zap.String("order_id", tx.OrderID),
			zap.String("step", step),
		}
		switch {
		case err != nil:
			telemetry.FanoutFailuresTotal.WithLabelValues(step).Inc()
			telemetry.Logger.Error("Fan-out step failed", append(fields, zap.Error(err))...)
		case skipped:
			telemetry.Logger.Info("Fan-out step skipped", fields...)
		default:
			telemetry.Logger.Info("Fan-out step completed", fields...)
		}
	}

	record(StepOrder, false, f.orders.MarkPaid(ctx, tx.OrderID, tx.ID))
	record(StepStock, false, f.decrementStock(ctx, tx.OrderID))

	if tx.UserID == "" {
		record(StepCart, true, nil)
	} else {
		_, err := f.carts.ClearCart(ctx, tx.UserID)
		record(StepCart, false, err)
	}

	if tx.SellerID == "" || !tx.SellerEarnings.IsPositive() {
		record(StepEarnings, true, nil)
	} else {
		record(StepEarnings, false, f.creditSeller(ctx, tx.SellerID, tx.SellerEarnings))
	}

	record(StepNotify, false, f.tasks.EnqueueEmail(ctx, models.EmailTask{
		OrderID:     tx.OrderID,
		Type:        models.EmailOrderConfirmation,
		ReferenceID: tx.ReferenceID,
		EnqueuedAt:  f.now(),
	}))

	return report
}

func (f *Fanout) decrementStock(ctx context.Context, orderID string) error {
	order, err := f.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}

	var errs []error
	for _, item := range order.Items {
		if item.Quantity <= 0 {
			continue
		}
		if err := f.decrementProduct(ctx, item.ProductID, item.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", item.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) decrementProduct(ctx context.Context, productID string, quantity int) error {
	if atomic, ok := f.inventory.(interfaces.AtomicStockDecrementer); ok {
		_, err := atomic.DecrementStock(ctx, productID, quantity)
		return err
	}

	// Read-then-write fallback. Without a locker two concurrent writers can
	// lose an update; this is a known gap of stores lacking atomic decrement.
	unlock, err := f.lock(ctx, "product:"+productID)
	if err != nil {
		return err
	}
	defer unlock()

	stock, err := f.inventory.GetStock(ctx, productID)
	if err != nil {
		return err
	}
	next := stock - quantity
	if next < 0 {
		next = 0
	}
	return f.inventory.SetStock(ctx, productID, next)
}

func (f *Fanout) creditSeller(ctx context.Context, sellerID string, amount decimal.Decimal) error {
	if atomic, ok := f.earnings.(interfaces.AtomicEarningsIncrementer); ok {
		return atomic.IncrementEarnings(ctx, sellerID, amount)
	}

	unlock, err := f.lock(ctx, "seller:"+sellerID)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := f.earnings.GetEarnings(ctx, sellerID)
	if err != nil {
		return err
	}
	current.SellerID = sellerID
	current.TotalEarnings = current.TotalEarnings.Add(amount)
	current.PendingPayout = current.PendingPayout.Add(amount)
	return f.earnings.SetEarnings(ctx, current)
}

func (f *Fanout) lock(ctx context.Context, key string) (func(), error) {
	if f.locker == nil {
		return func() {}, nil
	}
	return f.locker.Lock(ctx, key, rowLockTTL)
}
