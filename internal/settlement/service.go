package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/martinolivares/vendora-backend/internal/gateway"
	"github.com/martinolivares/vendora-backend/internal/notifications"
	"github.com/martinolivares/vendora-backend/pkg/config"
	"github.com/martinolivares/vendora-backend/pkg/db"
	"github.com/martinolivares/vendora-backend/pkg/db/models"
	"github.com/martinolivares/vendora-backend/pkg/enums"
	pkgerrors "github.com/martinolivares/vendora-backend/pkg/errors"
	"github.com/martinolivares/vendora-backend/pkg/logger"
	"github.com/martinolivares/vendora-backend/pkg/metrics"
)

// orderTransactionIDConstraint is the unique constraint that makes settlement
// idempotent: the gateway session id is the transaction id, so two concurrent
// settlements of the same session collide here and the loser resolves to the
// winner's order.
const orderTransactionIDConstraint = "orders_transaction_id_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo              Repository
	Gateway           gateway.CheckoutSessionClient
	Mailer            notifications.Mailer
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.SettlementMetrics
	Config            config.SettlementConfig
}

// Service settles completed checkout payments: it turns a paid gateway
// session into an order with items, commission sales, stock decrements and
// vendor credits, exactly once per session.
type Service struct {
	repo     Repository
	gateway  gateway.CheckoutSessionClient
	mailer   notifications.Mailer
	txRunner txRunner
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
	cfg      config.SettlementConfig
	validate *validator.Validate
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement repo required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout session client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if err := params.Config.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settlement config")
	}
	return &Service{
		repo:     params.Repo,
		gateway:  params.Gateway,
		mailer:   params.Mailer,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      params.Config,
		validate: validator.New(),
	}, nil
}

// Result reports how a settlement attempt resolved. AlreadySettled is true
// when the session had been settled before (or concurrently) and the existing
// order is returned instead of a new one.
type Result struct {
	OrderID          uuid.UUID
	OrderNumber      string
	AmountTotalCents int64
	AlreadySettled   bool
}

// SettlePayment is the single entry point for both the webhook and the
// success-page callback. Calling it any number of times for the same session
// yields the same order.
func (s *Service) SettlePayment(ctx context.Context, sessionID string) (*Result, error) {
	start := time.Now()
	result, err := s.settle(ctx, sessionID)

	outcome := metrics.OutcomeFailed
	switch {
	case err != nil:
	case result != nil && result.AlreadySettled:
		outcome = metrics.OutcomeDuplicate
	default:
		outcome = metrics.OutcomeSettled
	}
	s.metrics.ObserveOutcome(outcome, time.Since(start))

	return result, err
}

func (s *Service) settle(ctx context.Context, sessionID string) (*Result, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)

	// Fast path: the session may already be settled by an earlier delivery.
	if existing, err := s.findExistingOrder(ctx, sessionID); err != nil {
		return nil, err
	} else if existing != nil {
		s.logg.Info(ctx, "session already settled, returning existing order")
		return existing, nil
	}

	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment session not found")
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment not completed (status %s)", sess.PaymentStatus))
	}

	meta, err := extractOrderMetadata(sess, s.validate)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderNumber(ctx, meta.OrderNumber)

	var (
		order   *models.Order
		skipped error
	)
	txErr := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order = buildOrder(sess, meta)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		if sess.LineItems == nil || len(sess.LineItems.Data) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no line items")
		}

		for _, line := range sess.LineItems.Data {
			skipErr, err := s.settleLineItem(ctx, repo, order, line)
			if err != nil {
				return err
			}
			if skipErr != nil {
				skipped = multierr.Append(skipped, skipErr)
				s.metrics.IncSkippedLineItem()
			}
		}
		return nil
	})
	if txErr != nil {
		if db.IsUniqueViolation(txErr, orderTransactionIDConstraint) {
			// Lost the race against a concurrent settlement of the same
			// session. The winner's order is the settlement.
			winner, err := s.findExistingOrder(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			if winner == nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "settled order not found after conflict")
			}
			s.logg.Info(ctx, "concurrent settlement detected, returning existing order")
			return winner, nil
		}
		if typed := pkgerrors.As(txErr); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "settlement transaction failed")
	}

	if skipped != nil {
		s.logg.Warn(s.logg.WithField(ctx, "skipped", skipped.Error()),
			"some line items could not be settled")
	}

	s.sendConfirmation(ctx, sess, meta, order)

	s.logg.Info(ctx, "payment settled")
	return &Result{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		AmountTotalCents: order.AmountTotalCents,
	}, nil
}

// settleLineItem persists the snapshot row, decrements stock and credits the
// vendor for a single checkout line. The returned skip error marks lines with
// unresolvable products; the hard error aborts the whole transaction.
func (s *Service) settleLineItem(ctx context.Context, repo Repository, order *models.Order, line *stripe.LineItem) (skip error, fatal error) {
	productID, err := lineItemProductID(line)
	if err != nil {
		return err, nil
	}

	product, err := repo.FindProductByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("product %s no longer exists", productID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	qty := int(line.Quantity)
	if qty <= 0 {
		return fmt.Errorf("line item %s has non-positive quantity %d", line.ID, qty), nil
	}

	// The checkout line price, not the current catalog price: later product
	// edits must never change what this order charged.
	unitPrice := int64(0)
	if line.Price != nil {
		unitPrice = line.Price.UnitAmount
	}
	lineTotal := unitPrice * int64(qty)

	item := &models.OrderItem{
		OrderID:        order.ID,
		ProductID:      &product.ID,
		VendorID:       product.VendorID,
		Title:          product.Title,
		ImageURL:       product.ImageURL,
		SKU:            product.SKU,
		UnitPriceCents: unitPrice,
		Qty:            qty,
		TotalCents:     lineTotal,
	}
	if _, err := repo.CreateOrderItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
	}
	order.Items = append(order.Items, *item)

	oversold, err := repo.DecrementProductStock(ctx, product.ID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	if oversold {
		s.logg.Warn(s.logg.WithField(ctx, "product_id", product.ID),
			"stock oversold, counters clamped to zero")
	}

	if product.VendorID == nil {
		return nil, nil
	}

	commission := s.commissionFor(lineTotal)
	net := lineTotal - commission
	sale := &models.Sale{
		OrderID:         order.ID,
		ProductID:       product.ID,
		VendorID:        *product.VendorID,
		GrossCents:      lineTotal,
		CommissionCents: commission,
		NetCents:        net,
		ProductTitle:    product.Title,
		ProductImage:    product.ImageURL,
		UnitPriceCents:  unitPrice,
		Qty:             qty,
	}
	if _, err := repo.CreateSale(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}

	if err := repo.CreditVendor(ctx, *product.VendorID, net, commission); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit vendor")
	}
	return nil, nil
}

// commissionFor computes the marketplace commission on a gross amount using
// half-up rounding, so gross == commission + net always holds in cents.
func (s *Service) commissionFor(grossCents int64) int64 {
	return decimal.NewFromInt(grossCents).
		Mul(decimal.NewFromInt(s.cfg.CommissionRateBasisPoints)).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}

func (s *Service) findExistingOrder(ctx context.Context, sessionID string) (*Result, error) {
	existing, err := s.repo.FindOrderByTransactionID(ctx, sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup existing order")
	}
	return &Result{
		OrderID:          existing.ID,
		OrderNumber:      existing.OrderNumber,
		AmountTotalCents: existing.AmountTotalCents,
		AlreadySettled:   true,
	}, nil
}

// sendConfirmation emails the buyer after the transaction committed. Failures
// are logged and swallowed: mail must never undo or block a settlement.
func (s *Service) sendConfirmation(ctx context.Context, sess *stripe.CheckoutSession, meta *orderMetadata, order *models.Order) {
	if s.mailer == nil {
		return
	}

	email, name := s.recipient(ctx, sess, meta)
	if email == "" {
		s.logg.Warn(ctx, "no recipient email available, skipping confirmation")
		return
	}

	items := make([]notifications.ConfirmationItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, notifications.ConfirmationItem{
			Title:          item.Title,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}

	msg := notifications.OrderConfirmation{
		OrderNumber:      order.OrderNumber,
		RecipientEmail:   email,
		RecipientName:    name,
		AmountTotalCents: order.AmountTotalCents,
		Items:            items,
	}
	if err := s.mailer.SendOrderConfirmation(ctx, msg); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "email_error", err.Error()),
			"confirmation email failed")
	}
}

func (s *Service) recipient(ctx context.Context, sess *stripe.CheckoutSession, meta *orderMetadata) (email, name string) {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email, sess.CustomerDetails.Name
	}
	user, err := s.repo.FindUserByID(ctx, meta.UserID)
	if err != nil {
		return "", ""
	}
	return user.Email, user.FirstName
}

func buildOrder(sess *stripe.CheckoutSession, meta *orderMetadata) *models.Order {
	paymentMethod := "card"
	if len(sess.PaymentMethodTypes) > 0 {
		paymentMethod = string(sess.PaymentMethodTypes[0])
	}
	return &models.Order{
		OrderNumber:   meta.OrderNumber,
		UserID:        meta.UserID,
		TransactionID: sess.ID,

		ShippingName:       meta.Shipping.Name,
		ShippingAddress:    meta.Shipping.Address,
		ShippingCity:       meta.Shipping.City,
		ShippingState:      meta.Shipping.State,
		ShippingCountry:    meta.Shipping.Country,
		ShippingPostalCode: meta.Shipping.PostalCode,
		ShippingContact:    meta.Shipping.Contact,
		ShippingMethod:     meta.Shipping.Method,
		ShippingFeeCents:   int64(meta.Shipping.FeeCents),

		AmountTotalCents: sess.AmountTotal,
		PaymentMethod:    paymentMethod,
		PaymentStatus:    enums.PaymentStatusPaid,
		Status:           enums.OrderStatusProcessing,
	}
}
