package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Alturino/storefront/cart/internal/checkout"
	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/payment/pkg/processor"
)

type CartController struct {
	service  *service.CartService
	checkout *checkout.CheckoutService
	validate *validator.Validate
}

func AttachCartController(
	mux *mux.Router,
	service *service.CartService,
	checkout *checkout.CheckoutService,
	auth mux.MiddlewareFunc,
) {
	controller := CartController{
		service:  service,
		checkout: checkout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	router := mux.PathPrefix("/carts").Subrouter()
	router.Use(auth)
	router.HandleFunc("", controller.GetCart).Methods(http.MethodGet)
	router.HandleFunc("", controller.ClearCart).Methods(http.MethodDelete)
	router.HandleFunc("/items", controller.AddCartItem).Methods(http.MethodPost)
	router.HandleFunc("/items/{productId:[0-9]+}", controller.UpdateCartItem).Methods(http.MethodPut)
	router.HandleFunc("/items/{productId:[0-9]+}", controller.RemoveCartItem).Methods(http.MethodDelete)
	router.HandleFunc("/checkout", controller.Checkout).Methods(http.MethodPost)
}

func statusCodeOf(err error) int {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidShipping),
		errors.Is(err, checkout.ErrPaymentDetailsRequired):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, checkout.ErrPaymentUnavailable),
		errors.Is(err, processor.ErrProcessorUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (ctrl CartController) userId(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	c := r.Context()
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		inHttp.WriteFailed(c, w, http.StatusUnauthorized, err)
		return uuid.Nil, false
	}
	return userId, true
}

func productIdOf(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["productId"], 10, 64)
}

func (ctrl CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController GetCart")
	defer span.End()
	r = r.WithContext(c)

	userId, ok := ctrl.userId(w, r)
	if !ok {
		return
	}
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "CartController GetCart").
		Str(constants.KEY_USER_ID, userId.String()).
		Logger()
	c = logger.WithContext(c)

	snapshot := ctrl.service.GetCart(c, userId)
	logger.Info().Int(constants.KEY_CART_ITEMS_COUNT, snapshot.ItemsCount).Msg("found cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found cart",
		"data":       snapshot.Response(),
	})
}

func (ctrl CartController) AddCartItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController AddCartItem")
	defer span.End()
	r = r.WithContext(c)

	userId, ok := ctrl.userId(w, r)
	if !ok {
		return
	}
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "CartController AddCartItem").
		Str(constants.KEY_USER_ID, userId.String()).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.AddCartItem{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "validating request body").Logger()
	logger.Trace().Msg("validating request body")
	if err := ctrl.validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	span.SetAttributes(attribute.Int64(constants.KEY_PRODUCT_ID, reqBody.ProductId))
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "adding cart item").Logger()
	logger.Trace().Msg("adding cart item")
	c = logger.WithContext(c)
	snapshot, err := ctrl.service.AddCartItem(c, userId, reqBody)
	if err != nil {
		err = fmt.Errorf("failed adding cart item with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCodeOf(err), err)
		return
	}
	logger.Info().Msg("added cart item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("added product with id=%d to cart", reqBody.ProductId),
		"data":       snapshot.Response(),
	})
}

func (ctrl CartController) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController UpdateCartItem")
	defer span.End()
	r = r.WithContext(c)

	userId, ok := ctrl.userId(w, r)
	if !ok {
		return
	}
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "CartController UpdateCartItem").
		Str(constants.KEY_USER_ID, userId.String()).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "parsing request").Logger()
	logger.Trace().Msg("parsing request")
	productId, err := productIdOf(r)
	reqBody := request.UpdateCartItem{}
	if err == nil {
		err = json.NewDecoder(r.Body).Decode(&reqBody)
	}
	if err == nil {
		err = ctrl.validate.StructCtx(c, reqBody)
	}
	if err != nil {
		err = fmt.Errorf("failed parsing request with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Int64(constants.KEY_PRODUCT_ID, productId).Int(constants.KEY_QUANTITY, *reqBody.Quantity).Logger()
	logger.Trace().Msg("parsed request")

	c = logger.WithContext(c)
	snapshot := ctrl.service.UpdateCartItem(c, userId, productId, *reqBody.Quantity)
	logger.Info().Msg("updated cart item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("updated product with id=%d in cart", productId),
		"data":       snapshot.Response(),
	})
}

func (ctrl CartController) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController RemoveCartItem")
	defer span.End()
	r = r.WithContext(c)

	userId, ok := ctrl.userId(w, r)
	if !ok {
		return
	}
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "CartController RemoveCartItem").
		Str(constants.KEY_USER_ID, userId.String()).
		Logger()

	productId, err := productIdOf(r)
	if err != nil {
		err = fmt.Errorf("failed parsing productId with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Int64(constants.KEY_PRODUCT_ID, productId).Logger()

	c = logger.WithContext(c)
	snapshot := ctrl.service.RemoveCartItem(c, userId, productId)
	logger.Info().Msg("removed cart item")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("removed product with id=%d from cart", productId),
		"data":       snapshot.Response(),
	})
}

func (ctrl CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController ClearCart")
	defer span.End()
	r = r.WithContext(c)

	userId, ok := ctrl.userId(w, r)
	if !ok {
		return
	}
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "CartController ClearCart").
		Str(constants.KEY_USER_ID, userId.String()).
		Logger()
	c = logger.WithContext(c)

	snapshot := ctrl.service.ClearCart(c, userId)
	logger.Info().Msg("cleared cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "cleared cart",
		"data":       snapshot.Response(),
	})
}

func (ctrl CartController) Checkout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CartController Checkout")
	defer span.End()
	r = r.WithContext(c)

	userId, ok := ctrl.userId(w, r)
	if !ok {
		return
	}
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "CartController Checkout").
		Str(constants.KEY_USER_ID, userId.String()).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.Checkout{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger.Trace().Msg("decoded request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "checking out cart").Logger()
	logger.Trace().Msg("checking out cart")
	c = logger.WithContext(c)
	confirmation, err := ctrl.checkout.Checkout(c, userId, reqBody)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, statusCodeOf(err), err)
		return
	}
	logger.Info().Str(constants.KEY_ORDER_NUMBER, confirmation.OrderNumber).Msg("checked out cart")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "order confirmed",
		"data":       confirmation,
	})
}
