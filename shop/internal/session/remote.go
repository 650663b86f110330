package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/internal/constants"
	inHttp "github.com/Alturino/storefront/internal/http"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/shop/internal/otel"
	"github.com/Alturino/storefront/user/pkg/response"
)

// RemoteProvider signs in against the user service and keeps the issued
// token in a local session file between runs.
type RemoteProvider struct {
	baseURL     string
	sessionFile string
	httpClient  *http.Client
	logger      zerolog.Logger

	mutex      sync.Mutex
	current    *Session
	generation int
	listeners  map[int]func(*Session)
	nextId     int
}

// NewRemoteProvider keeps the logger carried by c for work the provider does
// in the background, such as restoring the session on Subscribe.
func NewRemoteProvider(c context.Context, baseURL string, sessionFile string) *RemoteProvider {
	return &RemoteProvider{
		logger:      *zerolog.Ctx(c),
		baseURL:     strings.TrimRight(baseURL, "/"),
		sessionFile: sessionFile,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   15 * time.Second,
		},
		listeners: map[int]func(*Session){},
	}
}

func networkError(err error) error {
	return &ProviderError{Code: response.CodeNetworkRequestFailed, Message: err.Error()}
}

func (p *RemoteProvider) Subscribe(fn func(*Session)) func() {
	p.mutex.Lock()
	id := p.nextId
	p.nextId++
	p.listeners[id] = fn
	generation := p.generation
	p.mutex.Unlock()

	go func() {
		restored := p.restore(p.logger.WithContext(context.Background()))

		p.mutex.Lock()
		if p.generation == generation {
			p.current = restored
		}
		current := p.current
		_, subscribed := p.listeners[id]
		p.mutex.Unlock()

		if subscribed {
			fn(current)
		}
	}()

	return func() {
		p.mutex.Lock()
		delete(p.listeners, id)
		p.mutex.Unlock()
	}
}

func (p *RemoteProvider) notify(session *Session) {
	p.mutex.Lock()
	p.current = session
	p.generation++
	listeners := make([]func(*Session), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mutex.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
}

func (p *RemoteProvider) restore(c context.Context) *Session {
	c, span := otel.Tracer.Start(c, "RemoteProvider restore")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RemoteProvider restore").
		Str(constants.KEY_PROCESS, "restoring session").
		Logger()

	logger.Trace().Msg("reading session file")
	content, err := os.ReadFile(p.sessionFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Trace().Msg("no session file")
		return nil
	}
	if err != nil {
		err = fmt.Errorf("failed reading session file with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil
	}

	session := &Session{}
	if err := json.Unmarshal(content, session); err != nil || session.Token == "" {
		logger.Error().Err(err).Msg("discarding unreadable session file")
		p.removeSessionFile(c)
		return nil
	}
	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		logger.Info().Msg("discarding expired session")
		p.removeSessionFile(c)
		return nil
	}

	logger.Trace().Msg("verifying session")
	req, err := http.NewRequestWithContext(c, http.MethodGet, p.baseURL+"/users/me", nil)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil
	}
	req.Header.Set(constants.KEY_HEADER_AUTH, "Bearer "+session.Token)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed verifying session with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Warn().Err(err).Msg("keeping unverified session")
		return session
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Info().Int(constants.KEY_STATUS_CODE, resp.StatusCode).Msg("discarding rejected session")
		p.removeSessionFile(c)
		return nil
	}
	envelope, err := inHttp.DecodeEnvelope[response.Session](resp.Body)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return session
	}
	session.UserID = envelope.Data.ID
	session.Email = envelope.Data.Email
	logger.Info().Str(constants.KEY_USER_ID, session.UserID.String()).Msg("restored session")

	return session
}

func (p *RemoteProvider) persist(c context.Context, session *Session) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RemoteProvider persist").
		Str(constants.KEY_PROCESS, "writing session file").
		Logger()

	content, err := json.Marshal(session)
	if err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	if err := os.MkdirAll(filepath.Dir(p.sessionFile), 0o700); err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	if err := os.WriteFile(p.sessionFile, content, 0o600); err != nil {
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Trace().Msg("wrote session file")
}

func (p *RemoteProvider) removeSessionFile(c context.Context) {
	if err := os.Remove(p.sessionFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		zerolog.Ctx(c).Error().Err(err).Str(constants.KEY_TAG, "RemoteProvider removeSessionFile").Msg(err.Error())
	}
}

func (p *RemoteProvider) authenticate(c context.Context, path string, body interface{}) error {
	c, span := otel.Tracer.Start(c, "RemoteProvider authenticate")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RemoteProvider authenticate").
		Str(constants.KEY_URL, path).
		Logger()

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(c, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set(constants.KEY_HEADER_CONTENT, constants.VALUE_APPLICATION_JSON)

	logger = logger.With().Str(constants.KEY_PROCESS, "calling user service").Logger()
	logger.Trace().Msg("calling user service")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed calling user service with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return networkError(err)
	}
	defer resp.Body.Close()

	envelope, err := inHttp.DecodeEnvelope[response.Login](resp.Body)
	if err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return networkError(err)
	}
	if resp.StatusCode != http.StatusOK {
		err := &ProviderError{Code: envelope.Code, Message: envelope.Message}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Str(constants.KEY_ERROR_CODE, envelope.Code).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("called user service")

	login := envelope.Data
	session := &Session{
		UserID:    login.Session.ID,
		Email:     login.Session.Email,
		Token:     login.Token,
		ExpiresAt: login.ExpiresAt,
	}
	p.persist(c, session)
	p.notify(session)
	return nil
}

func (p *RemoteProvider) SignIn(c context.Context, email string, password string) error {
	return p.authenticate(c, "/users/login", passwordBody(email, password))
}

func (p *RemoteProvider) SignUp(c context.Context, email string, password string) error {
	return p.authenticate(c, "/users/register", passwordBody(email, password))
}

// passwordBody is the credential payload. The request types mask the password when marshalled.
func passwordBody(email string, password string) map[string]string {
	return map[string]string{"email": email, "password": password}
}

func (p *RemoteProvider) SignOut(c context.Context) error {
	c, span := otel.Tracer.Start(c, "RemoteProvider SignOut")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "RemoteProvider SignOut").
		Logger()

	p.mutex.Lock()
	current := p.current
	p.mutex.Unlock()

	if current != nil {
		logger = logger.With().Str(constants.KEY_PROCESS, "revoking token").Logger()
		logger.Trace().Msg("revoking token")
		req, err := http.NewRequestWithContext(c, http.MethodPost, p.baseURL+"/users/logout", nil)
		if err != nil {
			return err
		}
		req.Header.Set(constants.KEY_HEADER_AUTH, "Bearer "+current.Token)
		resp, err := p.httpClient.Do(req)
		if err != nil {
			err = fmt.Errorf("failed revoking token with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return networkError(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
			envelope, _ := inHttp.DecodeEnvelope[struct{}](resp.Body)
			err := &ProviderError{Code: envelope.Code, Message: envelope.Message}
			if err.Message == "" {
				err.Message = fmt.Sprintf("logout failed with status %d", resp.StatusCode)
			}
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Trace().Msg("revoked token")
	}

	p.removeSessionFile(c)
	p.notify(nil)
	return nil
}
