package session

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type kvRecord struct {
	bun.BaseModel `bun:"table:session_kv"`

	Name      string    `bun:"name,pk"`
	Value     []byte    `bun:"value"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// BunStore persists session values in a SQL table through bun.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
}

// OpenBunStore connects to dsn and makes sure the session table exists.
// "postgres://" and "postgresql://" DSNs use lib/pq; anything else is
// handed to sqlite3, with an optional "sqlite://" prefix stripped.
func OpenBunStore(ctx context.Context, dsn string) (*BunStore, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "open session database").
			WithTextCode("SESSION_STORE_OPEN")
	}

	store := NewBunStore(db)
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewBunStore wraps an existing bun database. The caller is responsible for
// creating the session table, or may use OpenBunStore instead.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db, now: time.Now}
}

func openDB(dsn string) (*bun.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	sqldb, err := sql.Open("sqlite3", strings.TrimPrefix(dsn, "sqlite://"))
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers anyway; one connection also keeps
	// ":memory:" databases from splitting per connection.
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func (s *BunStore) migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*kvRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "create session table").
			WithTextCode("SESSION_STORE_MIGRATE")
	}
	return nil
}

func (s *BunStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	rec := new(kvRecord)
	err := s.db.NewSelect().
		Model(rec).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if goerrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, goerrors.Wrap(err, goerrors.CategoryExternal, "read session value").
			WithMetadata(map[string]any{"name": name})
	}
	return rec.Value, true, nil
}

func (s *BunStore) Set(ctx context.Context, name string, value []byte) error {
	rec := &kvRecord{Name: name, Value: value, UpdatedAt: s.now().UTC()}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "write session value").
			WithMetadata(map[string]any{"name": name})
	}
	return nil
}

func (s *BunStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.NewDelete().
		Model((*kvRecord)(nil)).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "delete session value").
			WithMetadata(map[string]any{"name": name})
	}
	return nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
