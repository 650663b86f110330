package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/store"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	productResponse "github.com/Alturino/storefront/product/pkg/response"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product service unavailable")
)

type ProductFinder interface {
	FindProductById(c context.Context, id int64) (store.Product, error)
}

// ProductClient looks products up through the product service.
type ProductClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewProductClient(baseURL string) ProductClient {
	return ProductClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
	}
}

func (cl ProductClient) FindProductById(c context.Context, id int64) (store.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductClient FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "ProductClient FindProductById").
		Int64(constants.KEY_PRODUCT_ID, id).
		Str(constants.KEY_PROCESS, fmt.Sprintf("finding product in %s", constants.APP_PRODUCT_SERVICE)).
		Logger()

	logger.Trace().Msg("finding product")
	req, err := http.NewRequestWithContext(c, http.MethodGet, fmt.Sprintf("%s/products/%d", cl.baseURL, id), nil)
	if err != nil {
		err = fmt.Errorf("failed creating request with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return store.Product{}, err
	}
	req.Header.Set(constants.KEY_HEADER_REQUEST_ID, log.RequestIDFromContext(c))
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w: %w", ErrProductUnavailable, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return store.Product{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		err = fmt.Errorf("failed finding product with error=%w", ErrProductNotFound)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return store.Product{}, err
	case resp.StatusCode != http.StatusOK:
		err = fmt.Errorf("failed finding product with status=%d error=%w", resp.StatusCode, ErrProductUnavailable)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return store.Product{}, err
	}

	envelope, err := inHttp.DecodeEnvelope[productResponse.Product](resp.Body)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return store.Product{}, err
	}
	product := envelope.Data
	logger.Info().Str(constants.KEY_PRODUCT, product.Title).Msg("found product")

	return store.Product{
		ID:        product.ID,
		Title:     product.Title,
		Price:     product.Price,
		Thumbnail: product.Thumbnail,
	}, nil
}
