package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/internal/catalog"
	"github.com/Alturino/storefront/product/internal/otel"
)

const (
	KEY_PRODUCTS     = "products:"
	productCacheTTL  = 15 * time.Minute
	productTTLJitter = 3 * time.Minute
)

type Catalog interface {
	ListProducts(c context.Context, limit, skip int) (catalog.Page, error)
	SearchProducts(c context.Context, q string, limit, skip int) (catalog.Page, error)
	FindProductByID(c context.Context, id int64) (catalog.Product, error)
}

type ProductService struct {
	catalog Catalog
	cache   *redis.Client
}

func NewProductService(catalog Catalog, cache *redis.Client) ProductService {
	return ProductService{catalog: catalog, cache: cache}
}

func (svc ProductService) ListProducts(c context.Context, limit, skip int) (catalog.Page, error) {
	c, span := otel.Tracer.Start(c, "ProductService ListProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "ProductService ListProducts").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "listing products in catalog").Logger()
	logger.Trace().Msg("listing products in catalog")
	page, err := svc.catalog.ListProducts(logger.WithContext(c), limit, skip)
	if err != nil {
		err = fmt.Errorf("failed listing products in catalog with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return catalog.Page{}, err
	}
	logger.Info().Int(constants.KEY_TOTAL, page.Total).Msg("listed products in catalog")

	return page, nil
}

func (svc ProductService) SearchProducts(c context.Context, q string, limit, skip int) (catalog.Page, error) {
	c, span := otel.Tracer.Start(c, "ProductService SearchProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "ProductService SearchProducts").
		Str(constants.KEY_QUERY, q).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "searching products in catalog").Logger()
	logger.Trace().Msg("searching products in catalog")
	page, err := svc.catalog.SearchProducts(logger.WithContext(c), q, limit, skip)
	if err != nil {
		err = fmt.Errorf("failed searching products in catalog with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return catalog.Page{}, err
	}
	logger.Info().Int(constants.KEY_TOTAL, page.Total).Msg("searched products in catalog")

	return page, nil
}

// FindProductById serves single products from the cache first. Cache errors
// fall through to the catalog.
func (svc ProductService) FindProductById(c context.Context, id int64) (catalog.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	cacheKey := KEY_PRODUCTS + strconv.FormatInt(id, 10)
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "ProductService FindProductById").
		Str(constants.KEY_CACHE_KEY, cacheKey).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product in cache").Logger()
	logger.Trace().Msg("finding product in cache")
	jsonCache, err := svc.cache.Get(c, cacheKey).Result()
	switch {
	case err == nil:
		product := catalog.Product{}
		if err := json.Unmarshal([]byte(jsonCache), &product); err == nil {
			span.AddEvent("found product in cache")
			logger.Info().Msg("found product in cache")
			return product, nil
		}
		logger.Warn().Str(constants.KEY_JSON_CACHE, jsonCache).Msg("failed unmarshalling product from cache")
	case errors.Is(err, redis.Nil):
		logger.Trace().Msg("product is not in cache")
	default:
		err = fmt.Errorf("failed finding product in cache with error=%w", err)
		logger.Warn().Err(err).Msg(err.Error())
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product in catalog").Logger()
	logger.Trace().Msg("finding product in catalog")
	span.AddEvent("finding product in catalog")
	product, err := svc.catalog.FindProductByID(logger.WithContext(c), id)
	if err != nil {
		err = fmt.Errorf("failed finding product in catalog with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return catalog.Product{}, err
	}
	logger.Info().Msg("found product in catalog")

	logger = logger.With().Str(constants.KEY_PROCESS, "inserting product to cache").Logger()
	logger.Trace().Msg("inserting product to cache")
	raw, err := json.Marshal(product)
	if err == nil {
		ttl := productCacheTTL + rand.N(productTTLJitter)
		err = svc.cache.Set(c, cacheKey, raw, ttl).Err()
	}
	if err != nil {
		err = fmt.Errorf("failed inserting product to cache with error=%w", err)
		logger.Warn().Err(err).Msg(err.Error())
		return product, nil
	}
	logger.Info().Msg("inserted product to cache")

	return product, nil
}
