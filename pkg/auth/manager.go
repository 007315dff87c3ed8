package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kerbaras/mdhold/pkg/config"
	"github.com/kerbaras/mdhold/pkg/logger"
	"github.com/kerbaras/mdhold/pkg/mangadex"
)

// RefreshSkew is how close to expiry a session may get before Token
// refreshes it.
const RefreshSkew = 30 * time.Second

var ErrNoCredentials = errors.New("no refresh token or credentials available")

// Authenticator is the part of the MangaDex client the manager drives.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*mangadex.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*mangadex.TokenPair, error)
}

// Manager obtains and keeps a session. It prefers the refresh path whenever
// a refresh token is known and only falls back to credentials without one.
type Manager struct {
	auth     Authenticator
	store    Store
	prompter Prompter
	now      func() time.Time

	username     string
	password     string
	refreshToken string

	mu      sync.Mutex
	session *Session
}

type Option func(*Manager)

// WithCredentials sets the username and password used for login.
func WithCredentials(username, password string) Option {
	return func(m *Manager) {
		m.username = username
		m.password = password
	}
}

// WithRefreshToken sets a refresh token that wins over the stored one.
func WithRefreshToken(token string) Option {
	return func(m *Manager) { m.refreshToken = token }
}

func WithPrompter(p Prompter) Option {
	return func(m *Manager) { m.prompter = p }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(auth Authenticator, store Store, opts ...Option) *Manager {
	m := &Manager{
		auth:  auth,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromConfig builds a manager from the loaded configuration, picking the
// refresh token store it names.
func FromConfig(cfg *config.Config, auth Authenticator, prompter Prompter) *Manager {
	var store Store
	if cfg.TokenStore == config.TokenStoreKeyring {
		store = NewKeyringStore()
	} else {
		store = NewEnvFileStore(cfg.EnvFile, config.RefreshTokenKey)
	}
	return NewManager(auth, store,
		WithCredentials(cfg.Username, cfg.Password),
		WithRefreshToken(cfg.RefreshToken),
		WithPrompter(prompter),
	)
}

// Authenticate establishes a new session, through the refresh token when one
// is known and through login otherwise. A failed refresh is returned as is.
func (m *Manager) Authenticate(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticate(ctx)
}

// Login always uses credentials, replacing any stored refresh token.
func (m *Manager) Login(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.login(ctx)
}

// Token returns a session token that is valid for at least RefreshSkew,
// authenticating or refreshing as needed.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && !m.session.ExpiresWithin(m.now(), RefreshSkew) {
		return m.session.SessionToken, nil
	}

	var err error
	if m.session != nil && m.session.RefreshToken != "" {
		logger.Log.Debugw("session near expiry, refreshing", "expires_at", m.session.ExpiresAt)
		_, err = m.refresh(ctx, m.session.RefreshToken)
	} else {
		_, err = m.authenticate(ctx)
	}
	if err != nil {
		return "", err
	}
	return m.session.SessionToken, nil
}

// Session returns the current session, or nil before authentication.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Logout forgets the session and removes the stored refresh token.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.refreshToken = ""
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (m *Manager) authenticate(ctx context.Context) (*Session, error) {
	refresh := m.refreshToken
	if refresh == "" {
		stored, err := m.store.Load()
		if err != nil {
			return nil, fmt.Errorf("load refresh token: %w", err)
		}
		refresh = stored
	}
	if refresh != "" {
		return m.refresh(ctx, refresh)
	}
	return m.login(ctx)
}

func (m *Manager) refresh(ctx context.Context, refresh string) (*Session, error) {
	pair, err := m.auth.Refresh(ctx, refresh)
	if err != nil {
		return nil, err
	}
	session := newSession(pair, refresh, m.now())
	if session.RefreshToken != refresh {
		if err := m.persist(session.RefreshToken); err != nil {
			return nil, err
		}
	}
	m.session = session
	logger.Log.Infow("session refreshed", "expires_at", session.ExpiresAt)
	return session, nil
}

func (m *Manager) login(ctx context.Context) (*Session, error) {
	username, password := m.username, m.password
	if username == "" || password == "" {
		if m.prompter == nil {
			return nil, ErrNoCredentials
		}
		var err error
		if username, password, err = m.prompter.Credentials(); err != nil {
			return nil, err
		}
	}

	pair, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	session := newSession(pair, "", m.now())
	if session.RefreshToken != "" {
		if err := m.persist(session.RefreshToken); err != nil {
			return nil, err
		}
	}
	m.session = session
	logger.Log.Infow("logged in", "user", username, "expires_at", session.ExpiresAt)
	return session, nil
}

func (m *Manager) persist(refresh string) error {
	if err := m.store.Save(refresh); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	m.refreshToken = refresh
	logger.Log.Debugw("refresh token saved", "token", config.MaskSecret(refresh))
	return nil
}
