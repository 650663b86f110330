package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/payment/internal/otel"
	"github.com/Alturino/storefront/payment/pkg/processor"
	"github.com/Alturino/storefront/payment/pkg/request"
	"github.com/Alturino/storefront/payment/pkg/response"
)

type IntentCreator interface {
	CreatePaymentIntent(c context.Context, amount int64, currency string) (processor.PaymentIntent, error)
}

type PaymentService struct {
	processor       IntentCreator
	defaultCurrency string
}

func NewPaymentService(processor IntentCreator, defaultCurrency string) PaymentService {
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return PaymentService{processor: processor, defaultCurrency: defaultCurrency}
}

func (svc PaymentService) CreatePaymentIntent(
	c context.Context,
	param request.CreatePaymentIntent,
) (response.PaymentIntent, error) {
	c, span := otel.Tracer.Start(c, "PaymentService CreatePaymentIntent")
	defer span.End()

	currency := strings.ToLower(param.Currency)
	if currency == "" {
		currency = svc.defaultCurrency
	}

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "PaymentService CreatePaymentIntent").
		Int64("amount", param.Amount).
		Str("currency", currency).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "creating payment intent in processor").Logger()
	logger.Trace().Msg("creating payment intent in processor")
	intent, err := svc.processor.CreatePaymentIntent(logger.WithContext(c), param.Amount, currency)
	if err != nil {
		err = fmt.Errorf("failed creating payment intent with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentIntent{}, err
	}
	logger.Info().Str(constants.KEY_PAYMENT_INTENT_ID, intent.ID).Msg("created payment intent in processor")

	return response.PaymentIntent{ClientSecret: intent.ClientSecret, ID: intent.ID}, nil
}
