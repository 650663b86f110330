package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Alturino/storefront/cart/internal/store"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/payment/pkg/processor"
	paymentResponse "github.com/Alturino/storefront/payment/pkg/response"
)

type fakeCarts struct {
	stores map[uuid.UUID]*store.Store
}

func (f *fakeCarts) Store(_ context.Context, userId uuid.UUID) *store.Store {
	s, ok := f.stores[userId]
	if !ok {
		s = store.NewStore(store.NewMemoryStorage(), store.CartKey(userId))
		f.stores[userId] = s
	}
	return s
}

type fakePayments struct {
	createErr     error
	confirmErr    error
	status        string
	amount        int64
	currency      string
	clientSecret  string
	paymentMethod string
}

func (f *fakePayments) CreateIntent(_ context.Context, amount int64, currency string) (paymentResponse.PaymentIntent, error) {
	f.amount, f.currency = amount, currency
	if f.createErr != nil {
		return paymentResponse.PaymentIntent{}, f.createErr
	}
	return paymentResponse.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret_abc"}, nil
}

func (f *fakePayments) ConfirmIntent(_ context.Context, clientSecret, paymentMethod string) (processor.PaymentIntent, error) {
	f.clientSecret, f.paymentMethod = clientSecret, paymentMethod
	if f.confirmErr != nil {
		return processor.PaymentIntent{}, f.confirmErr
	}
	return processor.PaymentIntent{ID: processor.IntentIDFromClientSecret(clientSecret), Status: f.status}, nil
}

type fakePublisher struct {
	published []response.Confirmation
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, confirmation response.Confirmation) error {
	f.published = append(f.published, confirmation)
	return f.err
}

var (
	shirt = store.Product{ID: 1, Title: "Shirt", Price: decimal.NewFromInt(20)}
	lamp  = store.Product{ID: 2, Title: "Lamp", Price: decimal.NewFromInt(10)}
)

var shipping = request.Shipping{Address: " 1 Main St ", City: "Springfield", PostalCode: "12345", Country: "US"}

type CheckoutSuite struct {
	suite.Suite
	carts     *fakeCarts
	payments  *fakePayments
	publisher *fakePublisher
	service   *CheckoutService
	userId    uuid.UUID
	now       time.Time
}

func (s *CheckoutSuite) SetupTest() {
	s.carts = &fakeCarts{stores: map[uuid.UUID]*store.Store{}}
	s.payments = &fakePayments{status: processor.StatusSucceeded}
	s.publisher = &fakePublisher{}
	s.service = NewCheckoutService(s.carts, s.payments, s.publisher, "")
	s.now = time.UnixMilli(1700000000123)
	s.service.now = func() time.Time { return s.now }
	s.userId = uuid.New()
}

func (s *CheckoutSuite) cart() *store.Store {
	return s.carts.Store(context.Background(), s.userId)
}

func (s *CheckoutSuite) TestCardPaymentAboveThreshold() {
	c := context.Background()
	s.cart().Add(c, shirt, 2)
	s.cart().Add(c, lamp, 2)

	confirmation, err := s.service.Checkout(c, s.userId, request.Checkout{Shipping: shipping, PaymentMethod: "pm_card_visa"})

	s.Require().NoError(err)
	s.Equal("ORDER_1700000000123", confirmation.OrderNumber)
	s.Equal("60.00", confirmation.Subtotal.StringFixed(2))
	s.Equal("4.80", confirmation.Tax.StringFixed(2))
	s.Equal("0.00", confirmation.ShippingFee.StringFixed(2))
	s.Equal("64.80", confirmation.Total.StringFixed(2))
	s.Equal(response.PaymentMethodCard, confirmation.PaymentMethod)
	s.Equal("pi_1", confirmation.PaymentIntentId)
	s.Equal("1 Main St", confirmation.Shipping.Address)
	s.Len(confirmation.Items, 2)

	s.Equal(int64(6480), s.payments.amount)
	s.Equal("usd", s.payments.currency)
	s.Equal("pi_1_secret_abc", s.payments.clientSecret)
	s.Equal("pm_card_visa", s.payments.paymentMethod)

	s.Equal(0, s.cart().ItemsCount())
	s.Len(s.publisher.published, 1)
}

func (s *CheckoutSuite) TestTestPaymentBelowThreshold() {
	c := context.Background()
	s.cart().Add(c, lamp, 2)

	confirmation, err := s.service.Checkout(c, s.userId, request.Checkout{Shipping: shipping, TestPayment: true})

	s.Require().NoError(err)
	s.Equal("1.60", confirmation.Tax.StringFixed(2))
	s.Equal("5.99", confirmation.ShippingFee.StringFixed(2))
	s.Equal("27.59", confirmation.Total.StringFixed(2))
	s.Equal(response.PaymentMethodTest, confirmation.PaymentMethod)
	s.Equal("pi_test_1700000000123", confirmation.PaymentIntentId)
	s.Zero(s.payments.amount)
	s.Equal(0, s.cart().ItemsCount())
}

func (s *CheckoutSuite) TestValidationLeavesCartUntouched() {
	c := context.Background()
	s.cart().Add(c, lamp, 1)

	testCases := []struct {
		name     string
		param    request.Checkout
		expected error
	}{
		{
			name:     "blank city",
			param:    request.Checkout{Shipping: request.Shipping{Address: "a", City: "   ", PostalCode: "1", Country: "US"}, TestPayment: true},
			expected: ErrInvalidShipping,
		},
		{
			name:     "missing country",
			param:    request.Checkout{Shipping: request.Shipping{Address: "a", City: "b", PostalCode: "1"}, PaymentMethod: "pm"},
			expected: ErrInvalidShipping,
		},
		{
			name:     "missing card",
			param:    request.Checkout{Shipping: shipping},
			expected: ErrPaymentDetailsRequired,
		},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.service.Checkout(c, s.userId, tc.param)
			s.ErrorIs(err, tc.expected)
			s.Equal(1, s.cart().ItemsCount())
		})
	}
	s.Zero(s.payments.amount)
	s.Empty(s.publisher.published)
}

func (s *CheckoutSuite) TestEmptyCart() {
	_, err := s.service.Checkout(context.Background(), s.userId, request.Checkout{Shipping: shipping, TestPayment: true})

	s.ErrorIs(err, ErrEmptyCart)
}

func (s *CheckoutSuite) TestPaymentNotSucceeded() {
	c := context.Background()
	s.cart().Add(c, lamp, 1)
	s.payments.status = "requires_action"

	_, err := s.service.Checkout(c, s.userId, request.Checkout{Shipping: shipping, PaymentMethod: "pm_card_visa"})

	s.ErrorIs(err, ErrPaymentFailed)
	s.Equal(1, s.cart().ItemsCount())
}

func (s *CheckoutSuite) TestPaymentDeclined() {
	c := context.Background()
	s.cart().Add(c, lamp, 1)
	s.payments.confirmErr = &processor.APIError{StatusCode: http.StatusPaymentRequired, Message: "Your card was declined."}

	_, err := s.service.Checkout(c, s.userId, request.Checkout{Shipping: shipping, PaymentMethod: "pm_card_visa"})

	s.ErrorIs(err, ErrPaymentFailed)
	s.Contains(err.Error(), "Your card was declined.")
	s.Equal(1, s.cart().ItemsCount())
}

func (s *CheckoutSuite) TestPaymentServiceDown() {
	c := context.Background()
	s.cart().Add(c, lamp, 1)
	s.payments.createErr = ErrPaymentUnavailable

	_, err := s.service.Checkout(c, s.userId, request.Checkout{Shipping: shipping, PaymentMethod: "pm_card_visa"})

	s.ErrorIs(err, ErrPaymentUnavailable)
	s.Equal(1, s.cart().ItemsCount())
}

func (s *CheckoutSuite) TestPublishFailureIsNotSurfaced() {
	c := context.Background()
	s.cart().Add(c, lamp, 1)
	s.publisher.err = errors.New("broker down")

	_, err := s.service.Checkout(c, s.userId, request.Checkout{Shipping: shipping, TestPayment: true})

	s.NoError(err)
	s.Equal(0, s.cart().ItemsCount())
}

func (s *CheckoutSuite) TestCountsCheckouts() {
	c := context.Background()
	before := testutil.ToFloat64(checkoutsTotal.WithLabelValues(resultSucceeded, response.PaymentMethodTest))
	s.cart().Add(c, lamp, 1)

	_, err := s.service.Checkout(c, s.userId, request.Checkout{Shipping: shipping, TestPayment: true})

	s.Require().NoError(err)
	s.Equal(before+1, testutil.ToFloat64(checkoutsTotal.WithLabelValues(resultSucceeded, response.PaymentMethodTest)))
}

// slowPayments holds every CreateIntent call until release is closed.
type slowPayments struct {
	mu      sync.Mutex
	started chan struct{}
	release chan struct{}
	charges []int64
}

func (f *slowPayments) CreateIntent(_ context.Context, amount int64, _ string) (paymentResponse.PaymentIntent, error) {
	f.mu.Lock()
	f.charges = append(f.charges, amount)
	f.mu.Unlock()
	f.started <- struct{}{}
	<-f.release
	return paymentResponse.PaymentIntent{ID: "pi_2", ClientSecret: "pi_2_secret_abc"}, nil
}

func (f *slowPayments) ConfirmIntent(_ context.Context, clientSecret, _ string) (processor.PaymentIntent, error) {
	return processor.PaymentIntent{ID: processor.IntentIDFromClientSecret(clientSecret), Status: processor.StatusSucceeded}, nil
}

func (s *CheckoutSuite) TestConcurrentCheckoutChargesOnce() {
	c := context.Background()
	payments := &slowPayments{started: make(chan struct{}, 1), release: make(chan struct{})}
	service := NewCheckoutService(s.carts, payments, s.publisher, "")
	s.cart().Add(c, shirt, 3)
	param := request.Checkout{Shipping: shipping, PaymentMethod: "pm_card_visa"}

	type result struct {
		confirmation response.Confirmation
		err          error
	}
	first := make(chan result, 1)
	go func() {
		confirmation, err := service.Checkout(c, s.userId, param)
		first <- result{confirmation: confirmation, err: err}
	}()
	<-payments.started

	_, err := service.Checkout(c, s.userId, param)
	s.ErrorIs(err, ErrCheckoutInProgress)

	s.cart().Add(c, lamp, 1)
	close(payments.release)
	got := <-first

	s.Require().NoError(got.err)
	s.Equal("64.80", got.confirmation.Total.StringFixed(2))
	s.Equal([]int64{6480}, payments.charges)
	lines := s.cart().Lines()
	s.Require().Len(lines, 1)
	s.Equal(lamp.ID, lines[0].ProductID)
	s.Equal(1, lines[0].Quantity)

	_, err = service.Checkout(c, s.userId, param)
	s.Require().NoError(err)
	s.Equal(0, s.cart().ItemsCount())
}

func TestCheckoutSuite(t *testing.T) {
	suite.Run(t, new(CheckoutSuite))
}

type fakeWriter struct {
	messages []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.messages = append(f.messages, msgs...)
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	writer := &fakeWriter{}
	confirmation := response.Confirmation{OrderNumber: "ORDER_1", Total: decimal.RequireFromString("27.59")}

	require.NoError(t, NewKafkaPublisher(writer).Publish(context.Background(), confirmation))

	require.Len(t, writer.messages, 1)
	assert.Equal(t, "ORDER_1", string(writer.messages[0].Key))
	decoded := response.Confirmation{}
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, "27.59", decoded.Total.String())
}

type fakeConfirmer struct {
	intentId string
}

func (f *fakeConfirmer) ConfirmPaymentIntent(_ context.Context, intentId, _ string) (processor.PaymentIntent, error) {
	f.intentId = intentId
	return processor.PaymentIntent{ID: intentId, Status: processor.StatusSucceeded}, nil
}

func TestPaymentClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-payment-intent", r.URL.Path)
		body := map[string]any{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2759), body["amount"])
		fmt.Fprint(w, `{"status":"success","statusCode":200,"message":"created","data":{"client_secret":"pi_9_secret_x","id":"pi_9"}}`)
	}))
	defer server.Close()
	confirmer := &fakeConfirmer{}
	client := NewPaymentClient(server.URL, confirmer)
	c := context.Background()

	intent, err := client.CreateIntent(c, 2759, "usd")
	require.NoError(t, err)
	assert.Equal(t, "pi_9_secret_x", intent.ClientSecret)

	result, err := client.ConfirmIntent(c, intent.ClientSecret, "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, "pi_9", confirmer.intentId)
	assert.Equal(t, processor.StatusSucceeded, result.Status)
}

func TestPaymentClientFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"status":"failed","statusCode":502,"message":"processor down"}`)
	}))
	defer server.Close()

	_, err := NewPaymentClient(server.URL, &fakeConfirmer{}).CreateIntent(context.Background(), 100, "usd")

	assert.ErrorIs(t, err, ErrPaymentUnavailable)
}
