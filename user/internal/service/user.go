package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Alturino/storefront/internal"
	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
	inErrors "github.com/Alturino/storefront/user/internal/errors"
	"github.com/Alturino/storefront/user/internal/otel"
	"github.com/Alturino/storefront/user/internal/repository"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

const (
	TokenTTL          = 30 * time.Minute
	MinPasswordLength = 6
)

type Users interface {
	InsertUser(c context.Context, arg repository.InsertUserParams) (repository.User, error)
	FindUserByEmail(c context.Context, email string) (repository.User, error)
	FindUserById(c context.Context, id uuid.UUID) (repository.User, error)
}

type Revoker interface {
	Revoke(c context.Context, tokenId string, expiresAt time.Time) error
}

type UserService struct {
	users     Users
	revoker   Revoker
	secretKey string
	validate  *validator.Validate
}

func NewUserService(users Users, revoker Revoker, secretKey string) *UserService {
	return &UserService{
		users:     users,
		revoker:   revoker,
		secretKey: secretKey,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Code maps a user service error to the provider code clients classify on.
func Code(err error) string {
	switch {
	case errors.Is(err, inErrors.ErrUserNotFound):
		return response.CodeUserNotFound
	case errors.Is(err, inErrors.ErrWrongPassword):
		return response.CodeWrongPassword
	case errors.Is(err, inErrors.ErrEmailExist):
		return response.CodeEmailAlreadyInUse
	case errors.Is(err, inErrors.ErrWeakPassword):
		return response.CodeWeakPassword
	case errors.Is(err, inErrors.ErrInvalidEmail):
		return response.CodeInvalidEmail
	default:
		return ""
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *UserService) validateEmail(c context.Context, email string) error {
	if err := u.validate.VarCtx(c, email, "required,email"); err != nil {
		return fmt.Errorf("%w: %w", inErrors.ErrInvalidEmail, err)
	}
	return nil
}

func (u *UserService) Login(c context.Context, param request.Login) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "UserService Login")
	defer span.End()

	email := normalizeEmail(param.Email)
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "UserService Login").
		Str(constants.KEY_EMAIL, email).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating email").Logger()
	logger.Trace().Msg("validating email")
	if err := u.validateEmail(c, email); err != nil {
		err = fmt.Errorf("failed validating email with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Trace().Msg("validated email")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding user").Logger()
	logger.Trace().Msg("finding user by email")
	user, err := u.users.FindUserByEmail(c, email)
	if err != nil {
		err = fmt.Errorf("failed finding user by email with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger = logger.With().Str(constants.KEY_USER_ID, user.ID.String()).Logger()
	logger.Trace().Msg("found user by email")

	logger = logger.With().Str(constants.KEY_PROCESS, "verifying password").Logger()
	logger.Trace().Msg("verifying hashed password with password")
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(param.Password)); err != nil {
		err = fmt.Errorf("failed verifying password with error=%w", errors.Join(inErrors.ErrWrongPassword, err))
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Trace().Msg("verified hashed password with password")

	c = logger.WithContext(c)
	return u.issue(c, user)
}

func (u *UserService) Register(c context.Context, param request.Register) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "UserService Register")
	defer span.End()

	email := normalizeEmail(param.Email)
	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "UserService Register").
		Str(constants.KEY_EMAIL, email).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "validating credentials").Logger()
	logger.Trace().Msg("validating credentials")
	if err := u.validateEmail(c, email); err != nil {
		err = fmt.Errorf("failed validating email with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	if len(param.Password) < MinPasswordLength {
		err := fmt.Errorf("failed validating password with error=%w", inErrors.ErrWeakPassword)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Trace().Msg("validated credentials")

	logger = logger.With().Str(constants.KEY_PROCESS, "hashing password").Logger()
	logger.Trace().Msg("hashing password")
	hashed, err := bcrypt.GenerateFromPassword([]byte(param.Password), bcrypt.DefaultCost)
	if err != nil {
		err = fmt.Errorf("failed hashing password with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Trace().Msg("hashed password")

	logger = logger.With().Str(constants.KEY_PROCESS, "inserting user").Logger()
	logger.Trace().Msg("inserting user to database")
	now := time.Now()
	user, err := u.users.InsertUser(c, repository.InsertUserParams{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		err = fmt.Errorf("failed inserting user to database with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger = logger.With().Str(constants.KEY_USER_ID, user.ID.String()).Logger()
	logger.Info().Msg("inserted user to database")

	c = logger.WithContext(c)
	return u.issue(c, user)
}

func (u *UserService) issue(c context.Context, user repository.User) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "UserService issue")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "UserService issue").
		Str(constants.KEY_PROCESS, "signing token").
		Logger()

	logger.Trace().Msg("signing token")
	token, claims, err := internal.IssueToken(u.secretKey, user.ID, TokenTTL)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Str(constants.KEY_TOKEN_ID, claims.ID).Msg("signed token")

	return response.Login{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Session:   response.Session{ID: user.ID, Email: user.Email},
	}, nil
}

func (u *UserService) Logout(c context.Context) error {
	c, span := otel.Tracer.Start(c, "UserService Logout")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "UserService Logout").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting token id").Logger()
	logger.Trace().Msg("getting token id from context")
	tokenId, expiresAt, err := internal.TokenIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting token id with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger = logger.With().Str(constants.KEY_TOKEN_ID, tokenId).Logger()
	logger.Trace().Msg("got token id from context")

	logger = logger.With().Str(constants.KEY_PROCESS, "revoking token").Logger()
	logger.Trace().Msg("revoking token")
	c = logger.WithContext(c)
	if err := u.revoker.Revoke(c, tokenId, expiresAt); err != nil {
		err = fmt.Errorf("failed revoking token with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("revoked token")

	return nil
}

func (u *UserService) Me(c context.Context) (response.Session, error) {
	c, span := otel.Tracer.Start(c, "UserService Me")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Ctx(c).
		Str(constants.KEY_TAG, "UserService Me").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "getting userId").Logger()
	logger.Trace().Msg("getting userId from token")
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		err = fmt.Errorf("failed getting userId with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Session{}, err
	}
	logger = logger.With().Str(constants.KEY_USER_ID, userId.String()).Logger()
	logger.Trace().Msg("got userId from token")

	logger = logger.With().Str(constants.KEY_PROCESS, "finding user").Logger()
	logger.Trace().Msg("finding user by id")
	user, err := u.users.FindUserById(c, userId)
	if err != nil {
		err = fmt.Errorf("failed finding user by id with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Session{}, err
	}
	logger.Trace().Msg("found user by id")

	return response.Session{ID: user.ID, Email: user.Email}, nil
}
