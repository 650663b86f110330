package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

const StatusSucceeded = "succeeded"

var (
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrProcessorRejected    = errors.New("payment processor rejected request")
)

var tracer = otel.Tracer("payment processor")

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// APIError is the error object the processor returns for 4xx/5xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment processor responded with status=%d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 {
		return ErrProcessorUnavailable
	}
	return ErrProcessorRejected
}

// IntentIDFromClientSecret returns the payment intent id a client secret belongs to.
func IntentIDFromClientSecret(clientSecret string) string {
	id, _, _ := strings.Cut(clientSecret, "_secret_")
	return id
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}
}

func (cl *Client) CreatePaymentIntent(c context.Context, amount int64, currency string) (PaymentIntent, error) {
	c, span := tracer.Start(c, "ProcessorClient CreatePaymentIntent")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProcessorClient CreatePaymentIntent").
		Int64("amount", amount).
		Str("currency", currency).
		Logger()

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)

	logger = logger.With().Str(constants.KEY_PROCESS, "creating payment intent").Logger()
	logger.Trace().Msg("creating payment intent")
	intent, err := cl.post(c, "/v1/payment_intents", form)
	if err != nil {
		err = fmt.Errorf("failed creating payment intent with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return PaymentIntent{}, err
	}
	logger.Info().Str(constants.KEY_PAYMENT_INTENT_ID, intent.ID).Msg("created payment intent")

	return intent, nil
}

func (cl *Client) ConfirmPaymentIntent(c context.Context, intentId string, paymentMethod string) (PaymentIntent, error) {
	c, span := tracer.Start(c, "ProcessorClient ConfirmPaymentIntent")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProcessorClient ConfirmPaymentIntent").
		Str(constants.KEY_PAYMENT_INTENT_ID, intentId).
		Logger()

	form := url.Values{}
	form.Set("payment_method", paymentMethod)

	logger = logger.With().Str(constants.KEY_PROCESS, "confirming payment intent").Logger()
	logger.Trace().Msg("confirming payment intent")
	intent, err := cl.post(c, "/v1/payment_intents/"+url.PathEscape(intentId)+"/confirm", form)
	if err != nil {
		err = fmt.Errorf("failed confirming payment intent with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return PaymentIntent{}, err
	}
	logger.Info().Str("status", intent.Status).Msg("confirmed payment intent")

	return intent, nil
}

func (cl *Client) post(c context.Context, path string, form url.Values) (PaymentIntent, error) {
	req, err := http.NewRequestWithContext(c, http.MethodPost, cl.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return PaymentIntent{}, err
	}
	req.Header.Set(constants.KEY_HEADER_AUTH, "Bearer "+cl.apiKey)
	req.Header.Set(constants.KEY_HEADER_CONTENT, constants.VALUE_FORM_URLENCODED)

	resp, err := cl.httpClient.Do(req)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("%w: %w", ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("%w: %w", ErrProcessorUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := struct {
			Error *APIError `json:"error"`
		}{}
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == nil {
			apiErr.Error = &APIError{}
		}
		apiErr.Error.StatusCode = resp.StatusCode
		return PaymentIntent{}, apiErr.Error
	}

	intent := PaymentIntent{}
	if err := json.Unmarshal(body, &intent); err != nil {
		return PaymentIntent{}, fmt.Errorf("failed decoding payment intent with error=%w", err)
	}
	return intent, nil
}
