package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/internal/catalog"
	"github.com/Alturino/storefront/product/internal/otel"
	"github.com/Alturino/storefront/product/internal/service"
	"github.com/Alturino/storefront/product/pkg/request"
)

type ProductController struct {
	service  *service.ProductService
	validate *validator.Validate
}

func AttachProductController(mux *mux.Router, service *service.ProductService) {
	controller := ProductController{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	router := mux.PathPrefix("/products").Subrouter()
	router.HandleFunc("", controller.GetProducts).Methods(http.MethodGet)
	router.HandleFunc("/search", controller.SearchProducts).Methods(http.MethodGet)
	router.HandleFunc("/{productId:[0-9]+}", controller.FindProductById).Methods(http.MethodGet)
}

func statusCodeOf(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%s", key, raw)
	}
	return value, nil
}

func (ctrl ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController GetProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "ProductController GetProducts").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "parsing query").Logger()
	logger.Trace().Msg("parsing query")
	param := request.ListProducts{}
	var err error
	if param.Limit, err = queryInt(r, "limit", catalog.DefaultLimit); err == nil {
		param.Skip, err = queryInt(r, "skip", catalog.DefaultSkip)
	}
	if err == nil {
		err = ctrl.validate.StructCtx(c, param)
	}
	if err != nil {
		err = fmt.Errorf("failed parsing query with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.Int(constants.KEY_LIMIT, param.Limit), attribute.Int(constants.KEY_SKIP, param.Skip))
	logger = logger.With().Int(constants.KEY_LIMIT, param.Limit).Int(constants.KEY_SKIP, param.Skip).Logger()
	logger.Trace().Msg("parsed query")

	logger = logger.With().Str(constants.KEY_PROCESS, "listing products").Logger()
	logger.Trace().Msg("listing products")
	c = logger.WithContext(c)
	page, err := ctrl.service.ListProducts(c, param.Limit, param.Skip)
	if err != nil {
		err = fmt.Errorf("failed listing products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCodeOf(err), err)
		return
	}
	logger.Info().Msg("listed products")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found products",
		"data":       page.Response(param.Limit, param.Skip),
	})
}

func (ctrl ProductController) SearchProducts(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController SearchProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "ProductController SearchProducts").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "parsing query").Logger()
	logger.Trace().Msg("parsing query")
	param := request.SearchProducts{Query: r.URL.Query().Get("q")}
	var err error
	if param.Limit, err = queryInt(r, "limit", catalog.DefaultLimit); err == nil {
		param.Skip, err = queryInt(r, "skip", catalog.DefaultSkip)
	}
	if err == nil {
		err = ctrl.validate.StructCtx(c, param)
	}
	if err != nil {
		err = fmt.Errorf("failed parsing query with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().
		Str(constants.KEY_QUERY, param.Query).
		Int(constants.KEY_LIMIT, param.Limit).
		Int(constants.KEY_SKIP, param.Skip).
		Logger()
	logger.Trace().Msg("parsed query")

	logger = logger.With().Str(constants.KEY_PROCESS, "searching products").Logger()
	logger.Trace().Msg("searching products")
	c = logger.WithContext(c)
	page, err := ctrl.service.SearchProducts(c, param.Query, param.Limit, param.Skip)
	if err != nil {
		err = fmt.Errorf("failed searching products with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCodeOf(err), err)
		return
	}
	logger.Info().Msg("searched products")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found products",
		"data":       page.Response(param.Limit, param.Skip),
	})
}

func (ctrl ProductController) FindProductById(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "ProductController FindProductById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "ProductController FindProductById").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "parsing productId").Logger()
	logger.Trace().Msg("parsing productId")
	pathValues := mux.Vars(r)
	productId, err := strconv.ParseInt(pathValues["productId"], 10, 64)
	if err != nil {
		err = fmt.Errorf("failed parsing productId with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.Int64(constants.KEY_PRODUCT_ID, productId))
	logger = logger.With().Int64(constants.KEY_PRODUCT_ID, productId).Logger()
	logger.Trace().Msg("parsed productId")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product").Logger()
	logger.Trace().Msg("finding product")
	c = logger.WithContext(c)
	product, err := ctrl.service.FindProductById(c, productId)
	if err != nil {
		err = fmt.Errorf("failed finding product with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCodeOf(err), err)
		return
	}
	logger.Info().Msg("found product")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("found product with id=%d", productId),
		"data":       product.Response(),
	})
}
