package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/payment/pkg/processor"
	"github.com/Alturino/storefront/payment/pkg/request"
	"github.com/Alturino/storefront/payment/pkg/response"
)

var ErrPaymentUnavailable = errors.New("payment service unavailable")

type PaymentGateway interface {
	CreateIntent(c context.Context, amount int64, currency string) (response.PaymentIntent, error)
	ConfirmIntent(c context.Context, clientSecret string, paymentMethod string) (processor.PaymentIntent, error)
}

type IntentConfirmer interface {
	ConfirmPaymentIntent(c context.Context, intentId string, paymentMethod string) (processor.PaymentIntent, error)
}

// PaymentClient creates intents through the payment service and confirms
// them directly with the processor.
type PaymentClient struct {
	paymentServiceURL string
	httpClient        *http.Client
	processor         IntentConfirmer
}

func NewPaymentClient(paymentServiceURL string, processor IntentConfirmer) PaymentClient {
	return PaymentClient{
		paymentServiceURL: strings.TrimRight(paymentServiceURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		processor: processor,
	}
}

func (cl PaymentClient) CreateIntent(c context.Context, amount int64, currency string) (response.PaymentIntent, error) {
	c, span := otel.Tracer.Start(c, "PaymentClient CreateIntent")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "PaymentClient CreateIntent").
		Str(constants.KEY_PROCESS, fmt.Sprintf("creating payment intent in %s", constants.APP_PAYMENT_SERVICE)).
		Int64("amount", amount).
		Logger()

	body, err := json.Marshal(request.CreatePaymentIntent{Amount: amount, Currency: currency})
	if err != nil {
		err = fmt.Errorf("failed encoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentIntent{}, err
	}

	logger.Trace().Msg("creating payment intent")
	req, err := http.NewRequestWithContext(c, http.MethodPost, cl.paymentServiceURL+"/create-payment-intent", bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("failed creating request with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentIntent{}, err
	}
	req.Header.Set(constants.KEY_HEADER_CONTENT, constants.VALUE_APPLICATION_JSON)
	req.Header.Set(constants.KEY_HEADER_REQUEST_ID, log.RequestIDFromContext(c))

	resp, err := cl.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed creating payment intent with error=%w: %w", ErrPaymentUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentIntent{}, err
	}
	defer resp.Body.Close()

	envelope, err := inHttp.DecodeEnvelope[response.PaymentIntent](resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK || envelope.Data.ClientSecret == "" {
		err = fmt.Errorf(
			"failed creating payment intent with status=%d message=%s error=%w",
			resp.StatusCode,
			envelope.Message,
			ErrPaymentUnavailable,
		)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentIntent{}, err
	}
	logger.Info().Str(constants.KEY_PAYMENT_INTENT_ID, envelope.Data.ID).Msg("created payment intent")

	return envelope.Data, nil
}

func (cl PaymentClient) ConfirmIntent(
	c context.Context,
	clientSecret string,
	paymentMethod string,
) (processor.PaymentIntent, error) {
	c, span := otel.Tracer.Start(c, "PaymentClient ConfirmIntent")
	defer span.End()

	return cl.processor.ConfirmPaymentIntent(c, processor.IntentIDFromClientSecret(clientSecret), paymentMethod)
}
