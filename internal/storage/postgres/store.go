package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"launchcurve/internal/model"
)

// Store provides Postgres persistence for launches and emitted events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS launches (
			address       TEXT PRIMARY KEY,
			mint          TEXT NOT NULL,
			vault         TEXT NOT NULL,
			dev_wallet    TEXT NOT NULL,
			creator       TEXT NOT NULL,
			fee_bps       INT NOT NULL,
			graduated     BOOLEAN NOT NULL,
			sol_reserve   BIGINT NOT NULL,
			token_reserve BIGINT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS launch_events (
			id         TEXT PRIMARY KEY,
			sequence   BIGINT NOT NULL,
			event_name TEXT NOT NULL,
			launch     TEXT NOT NULL,
			emitted_at TEXT NOT NULL,
			payload    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS launchpool_state (
			name              TEXT PRIMARY KEY,
			last_processed_seq BIGINT NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertLaunches inserts or updates launch state records.
func (s *Store) UpsertLaunches(ctx context.Context, launches []model.Launch) error {
	if len(launches) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, launch := range launches {
		batch.Queue(`
			INSERT INTO launches (
				address, mint, vault, dev_wallet, creator, fee_bps, graduated, sol_reserve, token_reserve, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			ON CONFLICT (address)
			DO UPDATE SET
				graduated = EXCLUDED.graduated,
				sol_reserve = EXCLUDED.sol_reserve,
				token_reserve = EXCLUDED.token_reserve,
				updated_at = now()
		`,
			launch.Address.String(),
			launch.Mint.String(),
			launch.Vault.String(),
			launch.DevWallet.String(),
			launch.Creator.String(),
			int32(launch.FeeBps),
			launch.Graduated,
			int64(launch.SolReserve),
			int64(launch.TokenReserve),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range launches {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertEvents inserts event records, skipping ones already stored.
func (s *Store) InsertEvents(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO launch_events (id, sequence, event_name, launch, emitted_at, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (id) DO NOTHING
		`,
			ev.ID,
			int64(ev.Sequence),
			ev.EventName,
			ev.Launch,
			ev.EmittedAt,
			[]byte(ev.Payload),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_seq for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_seq FROM launchpool_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return seq, true, nil
}

// SaveState upserts last_processed_seq for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO launchpool_state (name, last_processed_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_seq = EXCLUDED.last_processed_seq, updated_at = now()
	`, name, seq)
	return err
}
