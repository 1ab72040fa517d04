package postgres

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityStaker/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS staker_incentives (
	chain_id     BIGINT      NOT NULL,
	incentive_id TEXT        NOT NULL,
	reward_token TEXT        NOT NULL,
	pool         TEXT        NOT NULL,
	start_time   BIGINT      NOT NULL,
	end_time     BIGINT      NOT NULL,
	refundee     TEXT        NOT NULL,
	reward       NUMERIC     NOT NULL,
	ended        BOOLEAN     NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, incentive_id)
);
CREATE TABLE IF NOT EXISTS staker_positions (
	chain_id     BIGINT      NOT NULL,
	token_id     NUMERIC     NOT NULL,
	owner        TEXT        NOT NULL,
	incentive_id TEXT        NOT NULL,
	token0       TEXT        NOT NULL,
	token1       TEXT        NOT NULL,
	staked       BOOLEAN     NOT NULL,
	reward       NUMERIC     NOT NULL,
	advisory     TEXT        NOT NULL DEFAULT '',
	observed_at  TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, token_id)
);
CREATE TABLE IF NOT EXISTS staker_claimable (
	chain_id    BIGINT      NOT NULL,
	owner       TEXT        NOT NULL,
	amount      NUMERIC     NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, owner)
);
`

// Store provides Postgres persistence for incentives and position snapshots.
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

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertIncentives inserts or updates incentive rows.
func (s *Store) UpsertIncentives(ctx context.Context, chainID uint64, incentives []model.Incentive) error {
	if len(incentives) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, inc := range incentives {
		batch.Queue(`
			INSERT INTO staker_incentives (
				chain_id, incentive_id, reward_token, pool, start_time, end_time, refundee, reward, ended, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			ON CONFLICT (chain_id, incentive_id)
			DO UPDATE SET
				reward = EXCLUDED.reward,
				ended = EXCLUDED.ended,
				updated_at = now()
		`,
			int64(chainID),
			inc.ID,
			inc.Key.RewardToken.Hex(),
			inc.Key.Pool.Hex(),
			int64(inc.Key.StartTime),
			int64(inc.Key.EndTime),
			inc.Key.Refundee.Hex(),
			numeric(inc.Reward),
			inc.Ended,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range incentives {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutSnapshot upserts the positions and claimable balance of a snapshot and
// removes the owner's rows for positions the snapshot no longer lists.
func (s *Store) PutSnapshot(ctx context.Context, snap model.Snapshot) error {
	batch := snapshotBatch(snap)
	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	return nil
}

func snapshotBatch(snap model.Snapshot) *pgx.Batch {
	batch := &pgx.Batch{}
	if snap.Owner == "" {
		return batch
	}

	tokenIDs := make([]string, 0, len(snap.Positions))
	for _, pos := range snap.Positions {
		tokenIDs = append(tokenIDs, strconv.FormatUint(pos.TokenID, 10))
	}
	batch.Queue(`
		DELETE FROM staker_positions
		WHERE chain_id = $1
			AND owner = $2
			AND observed_at <= $3
			AND token_id::text <> ALL($4::text[])
	`, int64(snap.ChainID), snap.Owner, snap.TakenAt, tokenIDs)

	for i, pos := range snap.Positions {
		batch.Queue(`
			INSERT INTO staker_positions (
				chain_id, token_id, owner, incentive_id, token0, token1, staked, reward, advisory, observed_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
			ON CONFLICT (chain_id, token_id)
			DO UPDATE SET
				owner = EXCLUDED.owner,
				incentive_id = EXCLUDED.incentive_id,
				staked = EXCLUDED.staked,
				reward = EXCLUDED.reward,
				advisory = EXCLUDED.advisory,
				observed_at = EXCLUDED.observed_at,
				updated_at = now()
			WHERE staker_positions.observed_at <= EXCLUDED.observed_at
		`,
			int64(snap.ChainID),
			tokenIDs[i],
			snap.Owner,
			snap.IncentiveID,
			pos.Token0.Hex(),
			pos.Token1.Hex(),
			pos.Staked,
			numeric(pos.Reward),
			pos.Error,
			snap.TakenAt,
		)
	}
	if snap.Claimable != nil {
		batch.Queue(`
			INSERT INTO staker_claimable (chain_id, owner, amount, observed_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (chain_id, owner)
			DO UPDATE SET amount = EXCLUDED.amount, observed_at = EXCLUDED.observed_at
			WHERE staker_claimable.observed_at <= EXCLUDED.observed_at
		`, int64(snap.ChainID), snap.Owner, numeric(snap.Claimable), snap.TakenAt)
	}
	return batch
}

func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
