package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/clock"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// TokenKey is the fixed name the auth token is persisted under.
const TokenKey = "token"

type record struct {
	Token   string    `msgpack:"token"`
	SavedAt time.Time `msgpack:"saved_at"`
}

// State holds the process-wide auth token. Reads are cheap and frequent
// (every outbound request); writes only happen on login and logout.
type State struct {
	mu    *xsync.RBMutex
	token string

	store  Store
	clock  clock.Clock
	logger *zap.Logger
}

type Option func(*State)

func WithClock(c clock.Clock) Option {
	return func(s *State) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open restores the session persisted in store. A JWT whose exp claim has
// already passed is discarded; tokens that are not JWTs are kept as is.
func Open(ctx context.Context, store Store, opts ...Option) (*State, error) {
	if store == nil {
		return nil, goerrors.New("session store is required", goerrors.CategoryValidation)
	}

	s := &State{
		mu:     xsync.NewRBMutex(),
		store:  store,
		clock:  clock.WallClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := store.Get(ctx, TokenKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s, nil
	}

	var rec record
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("discarding unreadable session record", zap.Error(err))
		return s, store.Delete(ctx, TokenKey)
	}

	if expired(rec.Token, s.clock.Now()) {
		s.logger.Info("discarding expired session token", zap.Time("saved_at", rec.SavedAt))
		return s, store.Delete(ctx, TokenKey)
	}

	s.token = rec.Token
	return s, nil
}

// Token returns the current token, if any.
func (s *State) Token() (string, bool) {
	t := s.mu.RLock()
	defer s.mu.RUnlock(t)
	return s.token, s.token != ""
}

// Login stores token in memory and persists it. The in-memory value wins
// even if persisting fails; the error is returned so callers can warn.
func (s *State) Login(ctx context.Context, token string) error {
	if token == "" {
		return goerrors.New("token must not be empty", goerrors.CategoryValidation).
			WithTextCode("EMPTY_TOKEN")
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	raw, err := msgpack.Marshal(record{Token: token, SavedAt: s.clock.Now().UTC()})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "encode session record")
	}
	return s.store.Set(ctx, TokenKey, raw)
}

// Logout clears the token in memory and in the store.
func (s *State) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	return s.store.Delete(ctx, TokenKey)
}

// Close releases the underlying store.
func (s *State) Close() error {
	return s.store.Close()
}

func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
