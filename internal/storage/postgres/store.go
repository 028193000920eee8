package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"ethLogs/internal/codec"
	"ethLogs/internal/model"
	"ethLogs/internal/storage"
)

const defaultHealthInterval = 5 * time.Second

// Store persists pool logs in Postgres. It owns its connection pool.
type Store struct {
	pool           *pgxpool.Pool
	logger         *zap.Logger
	healthInterval time.Duration
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHealthInterval sets how often Watch pings the database.
func WithHealthInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.healthInterval = d
		}
	}
}

func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{
		pool:           pool,
		logger:         zap.NewNop(),
		healthInterval: defaultHealthInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the envelope and payload tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctx, stmt.sql); err != nil {
				return fmt.Errorf("create %s: %w", stmt.table, err)
			}
		}
		return nil
	})
}

// WithTx runs fn inside a single transaction. The transaction commits only if fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(storage.LogWriter) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&txWriter{tx: tx})
	})
}

// Watch pings the database every health interval and returns the first failure.
// It returns ctx.Err() once ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.healthInterval)
			err := s.pool.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error("postgres connection check failed", zap.Error(err))
				return fmt.Errorf("postgres connection lost: %w", err)
			}
		}
	}
}

type txWriter struct {
	tx pgx.Tx
}

func (w *txWriter) InsertEnvelope(ctx context.Context, env model.LogEnvelope) (model.EnvelopeID, error) {
	var id int64
	err := w.tx.QueryRow(ctx, `
		INSERT INTO ethereum_logs (transaction_hash, block_number, address)
		VALUES ($1, $2, $3)
		RETURNING id
	`,
		codec.EncodeHash(env.TxHash),
		codec.EncodeUint64(env.BlockNumber),
		codec.EncodeAddress(env.Address),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return model.EnvelopeID(id), nil
}

func (w *txWriter) InsertSwap(ctx context.Context, id model.EnvelopeID, ev model.SwapEvent) error {
	amount0, err := codec.EncodeInt256(ev.Amount0)
	if err != nil {
		return fmt.Errorf("encode amount0: %w", err)
	}
	amount1, err := codec.EncodeInt256(ev.Amount1)
	if err != nil {
		return fmt.Errorf("encode amount1: %w", err)
	}
	_, err = w.tx.Exec(ctx, `
		INSERT INTO swap_logs (
			ethereum_log_id, sender_address, receiver_address, amount0, amount1,
			sqrt_price_x96, liquidity, tick
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		int64(id),
		codec.EncodeAddress(ev.Sender),
		codec.EncodeAddress(ev.Recipient),
		amount0,
		amount1,
		codec.EncodeUint256(ev.SqrtPriceX96),
		codec.EncodeUint128(ev.Liquidity),
		ev.Tick,
	)
	return err
}

func (w *txWriter) InsertMint(ctx context.Context, id model.EnvelopeID, ev model.MintEvent) error {
	_, err := w.tx.Exec(ctx, `
		INSERT INTO mint_logs (
			ethereum_log_id, sender_address, owner_address, tick_lower, tick_upper,
			amount, amount0, amount1
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		int64(id),
		codec.EncodeAddress(ev.Sender),
		codec.EncodeAddress(ev.Owner),
		ev.TickLower,
		ev.TickUpper,
		codec.EncodeUint128(ev.Amount),
		codec.EncodeUint256(ev.Amount0),
		codec.EncodeUint256(ev.Amount1),
	)
	return err
}

func (w *txWriter) InsertBurn(ctx context.Context, id model.EnvelopeID, ev model.BurnEvent) error {
	_, err := w.tx.Exec(ctx, `
		INSERT INTO burn_logs (
			ethereum_log_id, owner_address, tick_lower, tick_upper, amount, amount0, amount1
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		int64(id),
		codec.EncodeAddress(ev.Owner),
		ev.TickLower,
		ev.TickUpper,
		codec.EncodeUint128(ev.Amount),
		codec.EncodeUint256(ev.Amount0),
		codec.EncodeUint256(ev.Amount1),
	)
	return err
}

func (w *txWriter) InsertFlash(ctx context.Context, id model.EnvelopeID, ev model.FlashEvent) error {
	_, err := w.tx.Exec(ctx, `
		INSERT INTO flash_logs (
			ethereum_log_id, sender_address, receiver_address, amount0, amount1, paid0, paid1
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		int64(id),
		codec.EncodeAddress(ev.Sender),
		codec.EncodeAddress(ev.Recipient),
		codec.EncodeUint256(ev.Amount0),
		codec.EncodeUint256(ev.Amount1),
		codec.EncodeUint256(ev.Paid0),
		codec.EncodeUint256(ev.Paid1),
	)
	return err
}
