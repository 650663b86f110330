package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/payment/internal/otel"
	"github.com/Alturino/storefront/payment/internal/service"
	"github.com/Alturino/storefront/payment/pkg/processor"
	"github.com/Alturino/storefront/payment/pkg/request"
)

type PaymentController struct {
	service  *service.PaymentService
	validate *validator.Validate
}

func AttachPaymentController(mux *mux.Router, service *service.PaymentService) {
	controller := PaymentController{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	mux.HandleFunc("/create-payment-intent", controller.CreatePaymentIntent).Methods(http.MethodPost)
}

func (ctrl PaymentController) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "PaymentController CreatePaymentIntent")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "PaymentController CreatePaymentIntent").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.CreatePaymentIntent{}
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
	logger.Trace().Msg("validated request body")

	logger = logger.With().Str(constants.KEY_PROCESS, "creating payment intent").Logger()
	logger.Trace().Msg("creating payment intent")
	c = logger.WithContext(c)
	intent, err := ctrl.service.CreatePaymentIntent(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed creating payment intent with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		statusCode := http.StatusBadGateway
		if errors.Is(err, processor.ErrProcessorRejected) {
			statusCode = http.StatusPaymentRequired
		}
		inHttp.WriteFailed(c, w, statusCode, err)
		return
	}
	logger.Info().Str(constants.KEY_PAYMENT_INTENT_ID, intent.ID).Msg("created payment intent")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "created payment intent",
		"data":       intent,
	})
}
