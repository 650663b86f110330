package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/store"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/payment/pkg/processor"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrInvalidShipping        = errors.New("please fill in all shipping information")
	ErrPaymentDetailsRequired = errors.New("please enter complete card details")
	ErrPaymentFailed          = errors.New("payment failed")
	ErrCheckoutInProgress     = store.ErrCheckoutInProgress
)

type Carts interface {
	Store(c context.Context, userId uuid.UUID) *store.Store
}

type CheckoutService struct {
	carts     Carts
	payments  PaymentGateway
	publisher Publisher
	validate  *validator.Validate
	currency  string
	now       func() time.Time
}

func NewCheckoutService(carts Carts, payments PaymentGateway, publisher Publisher, currency string) *CheckoutService {
	if currency == "" {
		currency = "usd"
	}
	return &CheckoutService{
		carts:     carts,
		payments:  payments,
		publisher: publisher,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		currency:  currency,
		now:       time.Now,
	}
}

func OrderNumber(t time.Time) string {
	return "ORDER_" + strconv.FormatInt(t.UnixMilli(), 10)
}

func trimShipping(s request.Shipping) request.Shipping {
	return request.Shipping{
		Address:    strings.TrimSpace(s.Address),
		City:       strings.TrimSpace(s.City),
		PostalCode: strings.TrimSpace(s.PostalCode),
		Country:    strings.TrimSpace(s.Country),
	}
}

// Checkout charges the user's cart and removes the charged lines once payment
// succeeds. Only one checkout per cart runs at a time. Validation failures
// leave the cart untouched.
func (svc *CheckoutService) Checkout(
	c context.Context,
	userId uuid.UUID,
	param request.Checkout,
) (confirmation response.Confirmation, err error) {
	c, span := otel.Tracer.Start(c, "CheckoutService Checkout")
	defer span.End()

	paymentMethod := response.PaymentMethodCard
	if param.TestPayment {
		paymentMethod = response.PaymentMethodTest
	}

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CheckoutService Checkout").
		Str(constants.KEY_USER_ID, userId.String()).
		Str(constants.KEY_PAYMENT_METHOD, paymentMethod).
		Logger()
	c = logger.WithContext(c)

	defer func() {
		result := resultSucceeded
		switch {
		case errors.Is(err, ErrEmptyCart),
			errors.Is(err, ErrInvalidShipping),
			errors.Is(err, ErrPaymentDetailsRequired),
			errors.Is(err, ErrCheckoutInProgress):
			result = resultRejected
		case err != nil:
			result = resultFailed
		}
		checkoutsTotal.WithLabelValues(result, paymentMethod).Inc()
	}()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating checkout").Logger()
	logger.Trace().Msg("validating checkout")
	param.Shipping = trimShipping(param.Shipping)
	if err := svc.validate.StructCtx(c, param.Shipping); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidShipping, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	if !param.TestPayment && strings.TrimSpace(param.PaymentMethod) == "" {
		err := ErrPaymentDetailsRequired
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}

	cart := svc.carts.Store(c, userId)
	snapshot, err := cart.BeginCheckout()
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	defer cart.EndCheckout()
	if len(snapshot.Lines) == 0 {
		err := ErrEmptyCart
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Confirmation{}, err
	}
	summary := Price(snapshot.Total)
	logger = logger.With().Str(constants.KEY_TOTAL, summary.Total.StringFixed(2)).Logger()
	logger.Trace().Msg("validated checkout")

	now := svc.now()
	var intentId string
	if param.TestPayment {
		intentId = "pi_test_" + strconv.FormatInt(now.UnixMilli(), 10)
		logger.Info().Msg("simulating test payment")
	} else {
		logger = logger.With().Str(constants.KEY_PROCESS, "creating payment intent").Logger()
		logger.Trace().Msg("creating payment intent")
		intent, err := svc.payments.CreateIntent(c, MinorUnits(summary.Total), svc.currency)
		if err != nil {
			err = fmt.Errorf("failed creating payment intent with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Confirmation{}, err
		}
		logger.Trace().Msg("created payment intent")

		logger = logger.With().Str(constants.KEY_PROCESS, "confirming payment").Logger()
		logger.Trace().Msg("confirming payment")
		result, err := svc.payments.ConfirmIntent(c, intent.ClientSecret, strings.TrimSpace(param.PaymentMethod))
		if err != nil {
			if errors.Is(err, processor.ErrProcessorRejected) {
				err = fmt.Errorf("%w: %w", ErrPaymentFailed, err)
			}
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Confirmation{}, err
		}
		if result.Status != processor.StatusSucceeded {
			err := fmt.Errorf("%w: payment intent status=%s", ErrPaymentFailed, result.Status)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Confirmation{}, err
		}
		intentId = result.ID
		if intentId == "" {
			intentId = processor.IntentIDFromClientSecret(intent.ClientSecret)
		}
		logger.Info().Str(constants.KEY_PAYMENT_INTENT_ID, intentId).Msg("confirmed payment")
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "removing charged lines").Logger()
	cart.RemoveLines(c, snapshot.Lines)
	logger.Trace().Msg("removed charged lines")

	confirmation = response.Confirmation{
		OrderNumber:     OrderNumber(now),
		UserId:          userId.String(),
		Items:           snapshot.Response().Items,
		Shipping:        param.Shipping,
		Subtotal:        summary.Subtotal,
		Tax:             summary.Tax,
		ShippingFee:     summary.Shipping,
		Total:           summary.Total,
		PaymentMethod:   paymentMethod,
		PaymentIntentId: intentId,
		CreatedAt:       now,
	}
	logger = logger.With().Str(constants.KEY_ORDER_NUMBER, confirmation.OrderNumber).Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "publishing order confirmation").Logger()
	if svc.publisher != nil {
		if err := svc.publisher.Publish(c, confirmation); err != nil {
			err = fmt.Errorf("failed publishing order confirmation with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
	}
	logger.Info().Msg("checked out cart")

	return confirmation, nil
}
