package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	inOtel "github.com/Alturino/storefront/internal/otel"
	userErrors "github.com/Alturino/storefront/user/internal/errors"
	"github.com/Alturino/storefront/user/internal/otel"
	"github.com/Alturino/storefront/user/internal/service"
	"github.com/Alturino/storefront/user/pkg/request"
)

type UserController struct {
	service  *service.UserService
	validate *validator.Validate
}

func AttachUserController(mux *mux.Router, service *service.UserService, auth mux.MiddlewareFunc) {
	controller := UserController{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	router := mux.PathPrefix("/users").Subrouter()
	router.HandleFunc("/login", controller.Login).Methods(http.MethodPost)
	router.HandleFunc("/register", controller.Register).Methods(http.MethodPost)

	protected := router.NewRoute().Subrouter()
	protected.Use(auth)
	protected.HandleFunc("/logout", controller.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/me", controller.Me).Methods(http.MethodGet)
}

func statusCodeOf(err error) int {
	switch {
	case errors.Is(err, userErrors.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, userErrors.ErrWrongPassword),
		errors.Is(err, inErrors.ErrUnauthorized),
		errors.Is(err, inErrors.ErrTokenInvalid),
		errors.Is(err, inErrors.ErrEmptySubject):
		return http.StatusUnauthorized
	case errors.Is(err, userErrors.ErrEmailExist):
		return http.StatusConflict
	case errors.Is(err, userErrors.ErrWeakPassword),
		errors.Is(err, userErrors.ErrInvalidEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeFailed(c context.Context, w http.ResponseWriter, err error) {
	body := map[string]interface{}{
		"status":     "failed",
		"statusCode": statusCodeOf(err),
		"message":    err.Error(),
	}
	if code := service.Code(err); code != "" {
		body["code"] = code
	}
	inHttp.WriteJsonResponse(c, w, map[string]string{}, body)
}

func (ctrl UserController) Login(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Login")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "UserController Login").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.Login{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Object(constants.KEY_REQUEST_BODY, reqBody).Logger()
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

	logger = logger.With().Str(constants.KEY_PROCESS, "login").Logger()
	logger.Trace().Msg("login")
	c = logger.WithContext(c)
	login, err := ctrl.service.Login(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed login with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailed(c, w, err)
		return
	}
	logger.Info().Str(constants.KEY_USER_ID, login.Session.ID.String()).Msg("login success")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "login success",
		"data":       login,
	})
}

func (ctrl UserController) Register(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Register")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "UserController Register").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "decoding request body").Logger()
	logger.Trace().Msg("decoding request body")
	reqBody := request.Register{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteFailed(c, w, http.StatusBadRequest, err)
		return
	}
	logger = logger.With().Object(constants.KEY_REQUEST_BODY, reqBody).Logger()
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

	logger = logger.With().Str(constants.KEY_PROCESS, "registering user").Logger()
	logger.Trace().Msg("registering user")
	c = logger.WithContext(c)
	login, err := ctrl.service.Register(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed registering user with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailed(c, w, err)
		return
	}
	logger.Info().Str(constants.KEY_USER_ID, login.Session.ID.String()).Msg("registered user")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "registered user",
		"data":       login,
	})
}

func (ctrl UserController) Logout(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Logout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "UserController Logout").
		Str(constants.KEY_PROCESS, "logout").
		Logger()

	logger.Trace().Msg("logout")
	c = logger.WithContext(c)
	if err := ctrl.service.Logout(c); err != nil {
		err = fmt.Errorf("failed logout with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailed(c, w, err)
		return
	}
	logger.Info().Msg("logout success")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "logout success",
	})
}

func (ctrl UserController) Me(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "UserController Me")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "UserController Me").
		Str(constants.KEY_PROCESS, "finding session").
		Logger()

	logger.Trace().Msg("finding session")
	c = logger.WithContext(c)
	session, err := ctrl.service.Me(c)
	if err != nil {
		err = fmt.Errorf("failed finding session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailed(c, w, err)
		return
	}
	logger.Trace().Msg("found session")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "found session",
		"data":       session,
	})
}
