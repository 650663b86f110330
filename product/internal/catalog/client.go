package catalog

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
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/internal/otel"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg config.Catalog) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "catalog",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
	})
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		breaker: breaker,
	}
}

func (cl *Client) ListProducts(c context.Context, limit, skip int) (Page, error) {
	c, span := otel.Tracer.Start(c, "CatalogClient ListProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CatalogClient ListProducts").
		Int(constants.KEY_LIMIT, limit).
		Int(constants.KEY_SKIP, skip).
		Logger()
	c = logger.WithContext(c)

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("skip", strconv.Itoa(skip))

	logger = logger.With().Str(constants.KEY_PROCESS, "listing products").Logger()
	logger.Trace().Msg("listing products")
	page, err := cl.getPage(c, "/products?"+query.Encode())
	if err != nil {
		err = fmt.Errorf("failed listing products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Page{}, err
	}
	logger.Info().Int(constants.KEY_TOTAL, page.Total).Msg("listed products")

	return page, nil
}

func (cl *Client) SearchProducts(c context.Context, q string, limit, skip int) (Page, error) {
	c, span := otel.Tracer.Start(c, "CatalogClient SearchProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CatalogClient SearchProducts").
		Str(constants.KEY_QUERY, q).
		Int(constants.KEY_LIMIT, limit).
		Int(constants.KEY_SKIP, skip).
		Logger()
	c = logger.WithContext(c)

	query := url.Values{}
	query.Set("q", q)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("skip", strconv.Itoa(skip))

	logger = logger.With().Str(constants.KEY_PROCESS, "searching products").Logger()
	logger.Trace().Msg("searching products")
	page, err := cl.getPage(c, "/products/search?"+query.Encode())
	if err != nil {
		err = fmt.Errorf("failed searching products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Page{}, err
	}
	logger.Info().Int(constants.KEY_TOTAL, page.Total).Msg("searched products")

	return page, nil
}

func (cl *Client) FindProductByID(c context.Context, id int64) (Product, error) {
	c, span := otel.Tracer.Start(c, "CatalogClient FindProductByID")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CatalogClient FindProductByID").
		Int64(constants.KEY_PRODUCT_ID, id).
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product").Logger()
	logger.Trace().Msg("finding product")
	body, err := cl.get(c, "/products/"+strconv.FormatInt(id, 10))
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Product{}, err
	}

	product := Product{}
	if err := json.Unmarshal(body, &product); err != nil {
		err = fmt.Errorf("failed decoding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Product{}, err
	}
	logger.Info().Msg("found product")

	return product, nil
}

func (cl *Client) getPage(c context.Context, path string) (Page, error) {
	body, err := cl.get(c, path)
	if err != nil {
		return Page{}, err
	}
	page := Page{}
	if err := json.Unmarshal(body, &page); err != nil {
		return Page{}, fmt.Errorf("failed decoding page with error=%w", err)
	}
	if page.Products == nil {
		page.Products = []Product{}
	}
	return page, nil
}

func (cl *Client) get(c context.Context, path string) ([]byte, error) {
	body, err := cl.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(c, http.MethodGet, cl.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", constants.VALUE_APPLICATION_JSON)

		resp, err := cl.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrProductNotFound
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, StatusError{StatusCode: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return body, err
}
