package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pasteleia/bakery/internal/domain/cart"
	"github.com/pasteleia/bakery/internal/domain/product"
)

const instrumentationName = "github.com/pasteleia/bakery/internal/domain/order"

// Submitter persists orders: header first, then lines, then one stock
// decrement per line. The steps are not transactional. By default a failure
// leaves the earlier steps committed and reports where it stopped; with
// WithCompensation the committed steps are rolled back.
type Submitter struct {
	orders     Repository
	inventory  Inventory
	compensate bool

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer    trace.Tracer
	submitted metric.Int64Counter
	failed    metric.Int64Counter
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithCompensation makes failed submissions undo the steps already applied.
func WithCompensation() SubmitterOption {
	return func(s *Submitter) { s.compensate = true }
}

// WithTracerProvider sets the tracer provider used for submission spans.
func WithTracerProvider(tp trace.TracerProvider) SubmitterOption {
	return func(s *Submitter) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for submission counters.
func WithMeterProvider(mp metric.MeterProvider) SubmitterOption {
	return func(s *Submitter) { s.meterProvider = mp }
}

// NewSubmitter creates a Submitter.
func NewSubmitter(orders Repository, inventory Inventory, opts ...SubmitterOption) (*Submitter, error) {
	s := &Submitter{
		orders:         orders,
		inventory:      inventory,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.submitted, err = meter.Int64Counter("bakery.orders.submitted",
		metric.WithDescription("Orders fully persisted"),
	); err != nil {
		return nil, errors.Wrap(err, "submitted counter")
	}
	if s.failed, err = meter.Int64Counter("bakery.orders.failed",
		metric.WithDescription("Order submissions stopped at a step"),
	); err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}
	return s, nil
}

// Submit persists draft with lines and returns the new order ID. Failures are
// reported as *SubmissionError.
func (s *Submitter) Submit(ctx context.Context, draft Draft, lines []cart.Line) (_ string, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit", trace.WithAttributes(
		attribute.String("order.status", string(draft.Status)),
		attribute.Int("order.lines", len(lines)),
	))
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if len(lines) == 0 {
		return "", ErrEmptyOrder
	}

	o := &Order{
		CustomerName:  draft.CustomerName,
		CustomerPhone: draft.CustomerPhone,
		Total:         draft.Total,
		Status:        draft.Status,
	}
	if err := s.step(ctx, StepHeader, func(ctx context.Context) error {
		return s.orders.CreateHeader(ctx, o)
	}); err != nil {
		return "", s.abort(ctx, &SubmissionError{Step: StepHeader, Err: err}, nil)
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	items := ItemsFor(o.ID, lines)
	if err := s.step(ctx, StepLines, func(ctx context.Context) error {
		return s.orders.InsertItems(ctx, items)
	}); err != nil {
		return "", s.abort(ctx, &SubmissionError{Step: StepLines, OrderID: o.ID, Err: err}, nil)
	}

	applied := make([]Item, 0, len(items))
	for _, it := range items {
		if err := s.step(ctx, StepStock, func(ctx context.Context) error {
			return s.decrement(ctx, it.ProductID, it.Quantity)
		}); err != nil {
			return "", s.abort(ctx, &SubmissionError{
				Step:      StepStock,
				OrderID:   o.ID,
				ProductID: it.ProductID,
				Err:       err,
			}, applied)
		}
		applied = append(applied, it)
	}

	s.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(o.Status))))
	zctx.From(ctx).Info("Order submitted",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.Int("lines", len(items)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	return o.ID, nil
}

func (s *Submitter) step(ctx context.Context, step Step, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "order.Submit."+string(step))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// decrement reduces the stock of one product. When the atomic operation is
// missing it falls back to read-then-write, which can lose concurrent updates.
func (s *Submitter) decrement(ctx context.Context, productID string, quantity int) error {
	err := s.inventory.DecrementStock(ctx, productID, quantity)
	if !errors.Is(err, ErrOperationNotFound) {
		return err
	}

	lg := zctx.From(ctx)
	lg.Warn("Atomic stock decrement unavailable, using read-then-write",
		zap.String("product_id", productID),
	)
	stock, err := s.inventory.Stock(ctx, productID)
	if errors.Is(err, product.ErrNotFound) {
		lg.Warn("Product vanished before stock update", zap.String("product_id", productID))
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read stock")
	}
	if err := s.inventory.SetStock(ctx, productID, stock-quantity); err != nil {
		return errors.Wrap(err, "write stock")
	}
	return nil
}

func (s *Submitter) abort(ctx context.Context, serr *SubmissionError, applied []Item) error {
	lg := zctx.From(ctx).With(
		zap.String("step", string(serr.Step)),
		zap.String("order_id", serr.OrderID),
	)
	s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("step", string(serr.Step))))

	if !s.compensate || serr.OrderID == "" {
		lg.Error("Order submission failed", zap.Error(serr.Err))
		return serr
	}

	var cerr error
	for i := len(applied) - 1; i >= 0; i-- {
		it := applied[i]
		if err := s.inventory.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			cerr = multierr.Append(cerr, errors.Wrapf(err, "restore stock of %s", it.ProductID))
		}
	}
	if err := s.orders.Delete(ctx, serr.OrderID); err != nil {
		cerr = multierr.Append(cerr, errors.Wrap(err, "delete order"))
	}

	serr.Compensated = cerr == nil
	serr.CompensationErr = cerr
	if cerr != nil {
		lg.Error("Order submission failed and could not be rolled back",
			zap.Error(serr.Err),
			zap.NamedError("compensation", cerr),
		)
		return serr
	}
	lg.Warn("Order submission failed and was rolled back", zap.Error(serr.Err))
	return serr
}
