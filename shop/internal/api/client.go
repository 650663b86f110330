package api

import (
	"bytes"
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

	cartRequest "github.com/Alturino/storefront/cart/pkg/request"
	cartResponse "github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	inOtel "github.com/Alturino/storefront/internal/otel"
	productResponse "github.com/Alturino/storefront/product/pkg/response"
	"github.com/Alturino/storefront/shop/internal/otel"
)

var ErrUnavailable = errors.New("service unavailable")

// RemoteError is a failed response from one of the storefront services.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Client talks to the product and cart services on behalf of the terminal client.
type Client struct {
	productURL string
	cartURL    string
	httpClient *http.Client
}

func NewClient(productURL string, cartURL string) *Client {
	return &Client{
		productURL: strings.TrimRight(productURL, "/"),
		cartURL:    strings.TrimRight(cartURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}
}

func call[T any](c context.Context, cl *Client, method string, url string, token string, body interface{}) (T, error) {
	c, span := otel.Tracer.Start(c, "Client call")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "Client call").
		Str(constants.KEY_REQUEST_METHOD, method).
		Str(constants.KEY_URL, url).
		Logger()

	var zero T
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("failed encoding request body with error=%w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(c, method, url, reader)
	if err != nil {
		return zero, fmt.Errorf("failed creating request with error=%w", err)
	}
	if body != nil {
		req.Header.Set(constants.KEY_HEADER_CONTENT, constants.VALUE_APPLICATION_JSON)
	}
	if token != "" {
		req.Header.Set(constants.KEY_HEADER_AUTH, "Bearer "+token)
	}

	logger.Trace().Msg("sending request")
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return zero, err
	}
	defer resp.Body.Close()

	envelope, err := inHttp.DecodeEnvelope[T](resp.Body)
	if err != nil {
		err = &RemoteError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unexpected response with status %d", resp.StatusCode)}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return zero, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &RemoteError{StatusCode: resp.StatusCode, Message: envelope.Message}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Int(constants.KEY_STATUS_CODE, resp.StatusCode).Msg(err.Error())
		return zero, err
	}
	logger.Trace().Int(constants.KEY_STATUS_CODE, resp.StatusCode).Msg("received response")

	return envelope.Data, nil
}

func pageQuery(limit int, skip int) url.Values {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("skip", strconv.Itoa(skip))
	return query
}

func (cl *Client) ListProducts(c context.Context, limit int, skip int) (productResponse.ProductPage, error) {
	return call[productResponse.ProductPage](
		c, cl, http.MethodGet,
		fmt.Sprintf("%s/products?%s", cl.productURL, pageQuery(limit, skip).Encode()),
		"", nil,
	)
}

func (cl *Client) SearchProducts(c context.Context, query string, limit int, skip int) (productResponse.ProductPage, error) {
	values := pageQuery(limit, skip)
	values.Set("q", query)
	return call[productResponse.ProductPage](
		c, cl, http.MethodGet,
		fmt.Sprintf("%s/products/search?%s", cl.productURL, values.Encode()),
		"", nil,
	)
}

func (cl *Client) FindProduct(c context.Context, id int64) (productResponse.Product, error) {
	return call[productResponse.Product](c, cl, http.MethodGet, fmt.Sprintf("%s/products/%d", cl.productURL, id), "", nil)
}

func (cl *Client) GetCart(c context.Context, token string) (cartResponse.Cart, error) {
	return call[cartResponse.Cart](c, cl, http.MethodGet, cl.cartURL+"/carts", token, nil)
}

func (cl *Client) AddCartItem(c context.Context, token string, productId int64, quantity int) (cartResponse.Cart, error) {
	return call[cartResponse.Cart](
		c, cl, http.MethodPost, cl.cartURL+"/carts/items", token,
		cartRequest.AddCartItem{ProductId: productId, Quantity: quantity},
	)
}

func (cl *Client) UpdateCartItem(c context.Context, token string, productId int64, quantity int) (cartResponse.Cart, error) {
	return call[cartResponse.Cart](
		c, cl, http.MethodPut, fmt.Sprintf("%s/carts/items/%d", cl.cartURL, productId), token,
		cartRequest.UpdateCartItem{Quantity: &quantity},
	)
}

func (cl *Client) RemoveCartItem(c context.Context, token string, productId int64) (cartResponse.Cart, error) {
	return call[cartResponse.Cart](c, cl, http.MethodDelete, fmt.Sprintf("%s/carts/items/%d", cl.cartURL, productId), token, nil)
}

func (cl *Client) ClearCart(c context.Context, token string) (cartResponse.Cart, error) {
	return call[cartResponse.Cart](c, cl, http.MethodDelete, cl.cartURL+"/carts", token, nil)
}

func (cl *Client) Checkout(c context.Context, token string, checkout cartRequest.Checkout) (cartResponse.Confirmation, error) {
	return call[cartResponse.Confirmation](c, cl, http.MethodPost, cl.cartURL+"/carts/checkout", token, checkout)
}
