package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"

	"github.com/jimengproxy/jimeng-proxy/internal/tokensource"
)

// TokenStorageType selects where the default session tokens are kept.
type TokenStorageType string

const (
	TokenStorageTypeNone    TokenStorageType = "none"
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Token store defaults.
const (
	DefaultTokenEnvVar = "JIMENG_SESSION_TOKENS"
	keyringService     = "jimeng-proxy"
	keyringUser        = "session-tokens"
	tokenRefresh       = time.Minute
)

// ErrReadOnlyStore is returned when writing to a store that cannot be written.
var ErrReadOnlyStore = errors.New("token store is read-only")

// AuthConfig configures the default credential set used when a request
// has no Authorization header.
type AuthConfig struct {
	Storage TokenStorageType `koanf:"storage" validate:"oneof=none env file keyring"`
	File    string           `koanf:"file"`
	EnvVar  string           `koanf:"env_var"`
}

func (a AuthConfig) validate() error {
	switch a.Storage {
	case TokenStorageTypeFile:
		if a.File == "" {
			return errors.New("invalid config: auth.file is required for file storage")
		}
	case TokenStorageTypeEnv:
		if a.EnvVar == "" {
			return errors.New("invalid config: auth.env_var is required for env storage")
		}
	}
	return nil
}

// TokenStore persists a comma separated list of session tokens.
// Writing an empty string clears the store.
type TokenStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, tokens string) error
}

// NewTokenStore creates the store selected by Storage. It returns nil for
// TokenStorageTypeNone.
func (a AuthConfig) NewTokenStore() (TokenStore, error) {
	switch a.Storage {
	case TokenStorageTypeNone, "":
		return nil, nil
	case TokenStorageTypeEnv:
		return envStore{name: a.EnvVar}, nil
	case TokenStorageTypeFile:
		return fileStore{path: a.File}, nil
	case TokenStorageTypeKeyring:
		return keyringStore{service: keyringService, user: keyringUser}, nil
	default:
		return nil, fmt.Errorf("unknown token storage %q", a.Storage)
	}
}

type envStore struct {
	name string
}

func (s envStore) Read(context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(s.name)), nil
}

func (s envStore) Write(context.Context, string) error {
	return ErrReadOnlyStore
}

type fileStore struct {
	path string
}

func (s fileStore) Read(context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s fileStore) Write(_ context.Context, tokens string) error {
	if tokens == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing token file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(tokens+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

type keyringStore struct {
	service string
	user    string
}

func (s keyringStore) Read(context.Context) (string, error) {
	tokens, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring: %w", err)
	}
	return tokens, nil
}

func (s keyringStore) Write(_ context.Context, tokens string) error {
	if tokens == "" {
		if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("clearing keyring: %w", err)
		}
		return nil
	}
	if err := keyring.Set(s.service, s.user, tokens); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

// storeTokenSource exposes the store contents as a token whose access token
// is the raw comma separated list.
type storeTokenSource struct {
	ctx   context.Context
	store TokenStore
	now   func() time.Time
}

func (s storeTokenSource) Token() (*oauth2.Token, error) {
	tokens, err := s.store.Read(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tokens,
		TokenType:   tokensource.TokenType,
		Expiry:      s.now().Add(tokenRefresh),
	}, nil
}

// NewStoreTokenSource reads the store at most once per refresh period, so
// logins take effect without a restart.
func NewStoreTokenSource(ctx context.Context, store TokenStore) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, storeTokenSource{ctx: ctx, store: store, now: time.Now})
}
