// Package database implements the moderation document store on PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/imagegate/internal/database/dbretry"
	"github.com/robalyx/imagegate/internal/database/migrations"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bunjson"
	"github.com/uptrace/bun/extra/bunotel"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// sonicProvider is a JSON provider that uses Sonic for encoding and decoding.
type sonicProvider struct{}

func (sonicProvider) Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func (sonicProvider) Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

func (sonicProvider) NewEncoder(w io.Writer) bunjson.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}

func (sonicProvider) NewDecoder(r io.Reader) bunjson.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

// Client is the PostgreSQL-backed Store.
type Client struct {
	db     *bun.DB
	logger *zap.Logger
	repo   *Repository
}

var _ Store = (*Client)(nil)

// NewConnection establishes a new database connection and returns a Client instance.
func NewConnection(
	ctx context.Context, cfg *config.PostgreSQL, logger *zap.Logger, autoMigrate bool,
) (*Client, error) {
	db := Open(cfg)

	if err := dbretry.WaitForConnection(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	if autoMigrate {
		migrator := migrate.NewMigrator(db, migrations.Migrations)
		if err := migrator.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize migrations: %w", err)
		}

		group, err := migrator.Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		if !group.IsZero() {
			logger.Info("Automatically ran migrations", zap.String("group", group.String()))
		}
	}

	client := &Client{
		db:     db,
		logger: logger.Named("database"),
		repo:   NewRepository(db, logger),
	}

	logger.Info("Database connection established")

	return client, nil
}

// Open builds the bun handle without touching the network.
func Open(cfg *config.PostgreSQL) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithAddr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		pgdriver.WithUser(cfg.User),
		pgdriver.WithPassword(cfg.Password),
		pgdriver.WithDatabase(cfg.DBName),
		pgdriver.WithInsecure(!cfg.TLS),
		pgdriver.WithApplicationName("imagegate"),
	))

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)
	sqldb.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Minute)

	bunjson.SetProvider(sonicProvider{})

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(cfg.DBName)))

	return db
}

// Model returns the repository containing all model operations.
func (c *Client) Model() *Repository {
	return c.repo
}

// DB returns the underlying bun.DB instance.
func (c *Client) DB() *bun.DB {
	return c.db
}

// Ping verifies the database answers.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping failed: %w", types.ErrPersistence, err)
	}
	return nil
}

// Close gracefully shuts down the database connection.
func (c *Client) Close() error {
	err := c.db.Close()
	if err != nil {
		c.logger.Error("Failed to close database connection", zap.Error(err))
		return err
	}

	c.logger.Info("Database connection closed")

	return nil
}

// SaveUpload implements Store.
func (c *Client) SaveUpload(ctx context.Context, upload *types.Upload) error {
	return c.repo.Upload().SaveUpload(ctx, upload)
}

// GetUpload implements Store.
func (c *Client) GetUpload(ctx context.Context, id string) (*types.Upload, error) {
	return c.repo.Upload().GetUpload(ctx, id)
}

// FindUploadByDigest implements Store.
func (c *Client) FindUploadByDigest(ctx context.Context, digest string) (*types.Upload, error) {
	return c.repo.Upload().FindByDigest(ctx, digest)
}

// ListUploadsByPrefix implements Store.
func (c *Client) ListUploadsByPrefix(ctx context.Context, prefix string, limit int) ([]*types.Upload, error) {
	return c.repo.Upload().ListByPrefix(ctx, prefix, limit)
}

// GetReviewCase implements Store.
func (c *Client) GetReviewCase(ctx context.Context, id string) (*types.ReviewCase, error) {
	return c.repo.ReviewCase().GetReviewCase(ctx, id)
}

// ListOpenReviewCases implements Store.
func (c *Client) ListOpenReviewCases(ctx context.Context, limit int) ([]*types.ReviewCase, error) {
	return c.repo.ReviewCase().ListOpen(ctx, limit)
}

// GetUserState implements Store.
func (c *Client) GetUserState(ctx context.Context, userID string) (*types.UserModerationState, error) {
	return c.repo.ModerationState().GetState(ctx, userID)
}

// RunInTx implements Store with a serializable transaction.
func (c *Client) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := c.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable},
		func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, &pgTx{tx: tx, repo: c.repo})
		})
	if err == nil || isTyped(err) {
		return err
	}
	if dbretry.IsConflict(err) {
		return fmt.Errorf("%w: transaction aborted: %w", types.ErrConflict, err)
	}
	return fmt.Errorf("%w: transaction failed: %w", types.ErrPersistence, err)
}

// isTyped reports whether err already carries a store error kind.
func isTyped(err error) bool {
	for _, kind := range []error{
		types.ErrValidation, types.ErrConflict, types.ErrPersistence, types.ErrNotFound,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// pgTx binds the repository models to an open transaction.
type pgTx struct {
	tx   bun.Tx
	repo *Repository
}

func (t *pgTx) GetUserState(ctx context.Context, userID string) (*types.UserModerationState, error) {
	return t.repo.ModerationState().GetStateWithTx(ctx, t.tx, userID, true)
}

func (t *pgTx) SaveUserState(ctx context.Context, state *types.UserModerationState) error {
	return t.repo.ModerationState().SaveStateWithTx(ctx, t.tx, state)
}

func (t *pgTx) FindOpenReviewCase(ctx context.Context, userID string) (*types.ReviewCase, error) {
	return t.repo.ReviewCase().FindOpenForUserWithTx(ctx, t.tx, userID)
}

func (t *pgTx) GetReviewCase(ctx context.Context, id string) (*types.ReviewCase, error) {
	return t.repo.ReviewCase().GetReviewCaseWithTx(ctx, t.tx, id, true)
}

func (t *pgTx) SaveReviewCase(ctx context.Context, reviewCase *types.ReviewCase) error {
	return t.repo.ReviewCase().SaveReviewCaseWithTx(ctx, t.tx, reviewCase)
}
