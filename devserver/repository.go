package devserver

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// OpenDB opens the sqlite database at dsn.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Repository stores accounts and refresh sessions.
type Repository struct {
	db       *bun.DB
	accounts repository.Repository[*Account]
	sessions repository.Repository[*RefreshSession]
}

// NewRepository wraps db.
func NewRepository(db *bun.DB) *Repository {
	return &Repository{
		db: db,
		accounts: repository.NewRepository(db, repository.ModelHandlers[*Account]{
			NewRecord: func() *Account { return &Account{} },
			GetID: func(record *Account) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *Account, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
			GetIdentifier: func() string {
				return "username"
			},
		}),
		sessions: repository.NewRepository(db, repository.ModelHandlers[*RefreshSession]{
			NewRecord: func() *RefreshSession { return &RefreshSession{} },
			GetID: func(record *RefreshSession) uuid.UUID {
				if record == nil {
					return uuid.Nil
				}
				return record.ID
			},
			SetID: func(record *RefreshSession, id uuid.UUID) {
				if record != nil {
					record.ID = id
				}
			},
			GetIdentifier: func() string {
				return "id"
			},
		}),
	}
}

// Migrate creates the tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	models := []any{
		(*Account)(nil),
		(*RefreshSession)(nil),
	}
	for _, model := range models {
		if _, err := r.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CreateAccount inserts account. It returns ErrAccountExists when the
// username or email is taken.
func (r *Repository) CreateAccount(ctx context.Context, account *Account) (*Account, error) {
	account.Username = strings.TrimSpace(account.Username)
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	taken, err := r.db.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.username = ?", account.Username).
		WhereOr("?TableAlias.email = ?", account.Email).
		Exists(ctx)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, withSource(ErrAccountExists, nil, map[string]any{
			"username": account.Username,
		})
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	return r.accounts.Create(ctx, account)
}

// AccountByUsername returns a record not found error for unknown usernames.
func (r *Repository) AccountByUsername(ctx context.Context, username string) (*Account, error) {
	return r.accounts.GetByIdentifier(ctx, strings.TrimSpace(username))
}

// AccountByID returns the account with id.
func (r *Repository) AccountByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.accounts.GetByID(ctx, id.String())
}

// CreateRefreshSession issues a refresh credential for account.
func (r *Repository) CreateRefreshSession(ctx context.Context, accountID uuid.UUID, now time.Time, ttl time.Duration) (*RefreshSession, error) {
	return r.sessions.Create(ctx, &RefreshSession{
		ID:        uuid.New(),
		AccountID: accountID,
		ExpiresAt: now.Add(ttl).UTC(),
		CreatedAt: now.UTC(),
	})
}

// RefreshSessionByID returns the refresh session with id.
func (r *Repository) RefreshSessionByID(ctx context.Context, id uuid.UUID) (*RefreshSession, error) {
	return r.sessions.GetByID(ctx, id.String())
}

// DeleteRefreshSession removes the refresh session with id, if present.
func (r *Repository) DeleteRefreshSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*RefreshSession)(nil)).
		Where("id = ?", id.String()).
		Exec(ctx)
	return err
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || err == sql.ErrNoRows
}
